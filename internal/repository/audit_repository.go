package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ballotbox/internal/domain"
	"ballotbox/pkg/database"

	"github.com/google/uuid"
)

// PostgresAuditSink persists audit events and notifications. It sits outside
// the consistency boundary: writes here are best-effort and never share a
// transaction with domain mutations.
type PostgresAuditSink struct {
	db      *database.PostgresDB
	timeout time.Duration
}

func NewPostgresAuditSink(db *database.PostgresDB, timeout time.Duration) *PostgresAuditSink {
	return &PostgresAuditSink{db: db, timeout: timeout}
}

// Record persists one audit event
func (r *PostgresAuditSink) Record(ctx context.Context, event *domain.AuditEvent) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode event metadata: %w", err)
		}
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, action, entity_type, entity_id, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.New(),
		event.ActorID,
		event.Action,
		event.EntityType,
		event.EntityID,
		metadata,
		event.OccurredAt,
	)
	if err != nil {
		return mapStorageErr("record audit event", fmt.Errorf("failed to record audit event: %w", err))
	}
	return nil
}

// Notify persists one user-facing notification
func (r *PostgresAuditSink) Notify(ctx context.Context, n *domain.Notification) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`,
		n.ID,
		n.UserID,
		n.Type,
		n.Title,
		n.Body,
		n.CreatedAt,
	)
	if err != nil {
		return mapStorageErr("store notification", fmt.Errorf("failed to store notification: %w", err))
	}
	return nil
}
