package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// IdempotencyStore persists processed request keys.
type IdempotencyStore struct {
	db execer
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(db execer) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = fmt.Errorf("idempotent request already processed: %w", ErrDuplicate)

// ScopedKey turns a client supplied key into a fixed-length key namespaced by module.
// It returns an empty string when nothing was supplied.
func ScopedKey(module, supplied string) string {
	supplied = strings.TrimSpace(supplied)
	if supplied == "" {
		return ""
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(module+":"+supplied)).String()
}

// CheckAndInsert ensures key uniqueness per module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.db.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, key, module, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Cleanup removes entries older than retention and reports how many went.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key=$1`, key)
	return err
}
