package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction enumerates the domain events handed to the audit sink.
type AuditAction string

const (
	ActionCastVote        AuditAction = "CAST_VOTE"
	ActionCreateSession   AuditAction = "CREATE_SESSION"
	ActionUpdateSession   AuditAction = "UPDATE_SESSION"
	ActionPublishSession  AuditAction = "PUBLISH_SESSION"
	ActionDeleteSession   AuditAction = "DELETE_SESSION"
	ActionAddCandidate    AuditAction = "ADD_CANDIDATE"
	ActionUpdateCandidate AuditAction = "UPDATE_CANDIDATE"
	ActionDeleteCandidate AuditAction = "DELETE_CANDIDATE"
	ActionRegisterUser    AuditAction = "REGISTER_USER"
	ActionUpdateUser      AuditAction = "UPDATE_USER"
	ActionDeleteUser      AuditAction = "DELETE_USER"
)

// AuditEvent is the record every mutating operation emits to the audit sink.
// ActorID is nil when the acting identity is anonymous. Emission is
// best-effort telemetry: a failed write never rolls back the domain mutation.
type AuditEvent struct {
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"`
	Action     AuditAction    `json:"action"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Notification is a user-facing message persisted by the sink, e.g. telling a
// creator their session went live.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
