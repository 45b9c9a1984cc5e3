package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Audit actions written by the core services.
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	db execer
}

// NewAuditLogger returns a new AuditLogger backed by a pool or transaction.
func NewAuditLogger(db execer) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.db == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.db.Exec(ctx, `INSERT INTO audit_logs (action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}
