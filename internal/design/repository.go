package design

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/weavetrack/weavetrack/internal/platform/db"
	"github.com/weavetrack/weavetrack/internal/shared"
)

// Repository is the PostgreSQL Store. It runs on a pool or inside a transaction.
type Repository struct {
	q db.Querier
}

// NewRepository constructs Repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

const trackingColumns = `id, order_id, design_number, total_sets, allocated_sets, remaining_sets, is_active, created_at, updated_at`

func scanTracking(row pgx.Row) (Tracking, error) {
	var t Tracking
	err := row.Scan(&t.ID, &t.OrderID, &t.DesignNumber, &t.TotalSets, &t.AllocatedSets, &t.RemainingSets, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *Repository) InsertTracking(ctx context.Context, t Tracking) (Tracking, error) {
	row := r.q.QueryRow(ctx, `INSERT INTO design_set_tracking (order_id, design_number, total_sets, allocated_sets, remaining_sets, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
RETURNING `+trackingColumns, t.OrderID, t.DesignNumber, t.TotalSets, t.AllocatedSets, t.RemainingSets)
	created, err := scanTracking(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Tracking{}, fmt.Errorf("insert tracking: %w", shared.ErrDuplicate)
		}
		return Tracking{}, err
	}
	return created, nil
}

func (r *Repository) InsertBeamConfig(ctx context.Context, c BeamConfig) (BeamConfig, error) {
	err := r.q.QueryRow(ctx, `INSERT INTO design_beam_config (order_id, design_number, beam_color_id, beam_multiplier, is_active, created_at)
VALUES ($1, $2, $3, $4, TRUE, NOW())
RETURNING id`, c.OrderID, c.DesignNumber, c.BeamColorID, c.BeamMultiplier).Scan(&c.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return BeamConfig{}, fmt.Errorf("insert beam config: %w", shared.ErrDuplicate)
		}
		if db.IsForeignKeyViolation(err) {
			return BeamConfig{}, shared.NotFound("beam color", c.BeamColorID)
		}
		return BeamConfig{}, err
	}
	return c, nil
}

func (r *Repository) ListTracking(ctx context.Context, f Filter) ([]Tracking, error) {
	rows, err := r.q.Query(ctx, `SELECT `+trackingColumns+` FROM design_set_tracking
WHERE is_active AND ($1::bigint = 0 OR order_id = $1) AND ($2::text = '' OR design_number = $2)
ORDER BY order_id, design_number`, f.OrderID, f.DesignNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tracking
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) ListBeamConfigs(ctx context.Context, f Filter) ([]BeamConfig, error) {
	rows, err := r.q.Query(ctx, `SELECT b.id, b.order_id, b.design_number, b.beam_color_id, b.beam_multiplier,
	COALESCE(c.color_code, ''), COALESCE(c.color_name, '')
FROM design_beam_config b
LEFT JOIN colors c ON c.id = b.beam_color_id
WHERE b.is_active AND ($1::bigint = 0 OR b.order_id = $1) AND ($2::text = '' OR b.design_number = $2)
ORDER BY b.order_id, b.design_number, b.beam_color_id`, f.OrderID, f.DesignNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BeamConfig
	for rows.Next() {
		var c BeamConfig
		if err := rows.Scan(&c.ID, &c.OrderID, &c.DesignNumber, &c.BeamColorID, &c.BeamMultiplier, &c.BeamColorCode, &c.BeamColorName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DecrementRemaining guards the balance in the WHERE clause so PostgreSQL
// serialises concurrent writers on the row lock and re-checks the predicate.
func (r *Repository) DecrementRemaining(ctx context.Context, orderID int64, designNumber string, sets int) (Tracking, bool, error) {
	row := r.q.QueryRow(ctx, `UPDATE design_set_tracking
SET allocated_sets = allocated_sets + $3, remaining_sets = remaining_sets - $3, updated_at = NOW()
WHERE order_id = $1 AND design_number = $2 AND is_active AND remaining_sets >= $3
RETURNING `+trackingColumns, orderID, designNumber, sets)
	t, err := scanTracking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tracking{}, false, nil
		}
		if db.IsRetryable(err) {
			return Tracking{}, false, fmt.Errorf("decrement remaining: %w", shared.ErrConflict)
		}
		return Tracking{}, false, err
	}
	return t, true, nil
}

func (r *Repository) DeactivateOrder(ctx context.Context, orderID int64) error {
	if _, err := r.q.Exec(ctx, `UPDATE design_set_tracking SET is_active = FALSE, updated_at = NOW() WHERE order_id = $1 AND is_active`, orderID); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx, `UPDATE design_beam_config SET is_active = FALSE WHERE order_id = $1 AND is_active`, orderID)
	return err
}
