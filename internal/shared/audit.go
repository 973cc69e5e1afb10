package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog is one row of audit_logs. ActorID 0 marks a system action.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) missing() []string {
	var fields []string
	if l.Action == "" {
		fields = append(fields, "action")
	}
	if l.Entity == "" {
		fields = append(fields, "entity")
	}
	if l.EntityID == "" {
		fields = append(fields, "entity_id")
	}
	return fields
}

// AuditLogger appends audit records. Writes happen after the business
// transaction commits, so a failed write never undoes the change it describes.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the entry. Meta is stored as JSONB.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if missing := log.missing(); len(missing) > 0 {
		return fmt.Errorf("audit log missing %s", strings.Join(missing, ", "))
	}
	var actor *int64
	if log.ActorID != 0 {
		actor = &log.ActorID
	}
	at := log.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`, actor, log.Action, log.Entity, log.EntityID, log.Meta, at)
	return err
}
