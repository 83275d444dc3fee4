package service

import (
	"context"
	"fmt"
	"time"

	"ballotbox/internal/domain"
	"ballotbox/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// auditEmitter hands domain events to the sink. Emission failures never fail
// the operation that produced the event; they come back as a warning string
// for the caller.
type auditEmitter struct {
	sink   repository.AuditSink
	logger *zap.Logger
}

// emit records one event. Returns "" on success, otherwise a caller-facing
// warning naming the dropped event.
func (e *auditEmitter) emit(ctx context.Context, actorID *uuid.UUID, action domain.AuditAction, entityType string, entityID uuid.UUID, metadata map[string]any) string {
	event := &domain.AuditEvent{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID.String(),
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	}

	if err := e.sink.Record(ctx, event); err != nil {
		e.logger.Warn("audit event not recorded",
			zap.String("action", string(action)),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
		return fmt.Sprintf("audit event %s was not recorded", action)
	}
	return ""
}

// notify stores a user-facing notification, best-effort.
func (e *auditEmitter) notify(ctx context.Context, userID uuid.UUID, kind, title, body string) {
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.sink.Notify(ctx, n); err != nil {
		e.logger.Warn("notification not stored",
			zap.String("type", kind),
			zap.Error(err))
	}
}

// appendWarning keeps warning slices nil until there is something to say.
func appendWarning(warnings []string, w string) []string {
	if w == "" {
		return warnings
	}
	return append(warnings, w)
}
