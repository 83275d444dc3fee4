package domain

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls who can discover a session.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// SessionStatus is the derived lifecycle state of a session. It is never
// stored; it is recomputed from is_published and the schedule on every read.
type SessionStatus string

const (
	StatusDraft     SessionStatus = "draft"
	StatusScheduled SessionStatus = "scheduled" // published, start_at in the future
	StatusOpen      SessionStatus = "open"      // published, now within [start_at, end_at]
	StatusClosed    SessionStatus = "closed"    // published, end_at in the past
)

// VotingSession is a single voting event with a time window and rule set.
type VotingSession struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	CreatedBy   uuid.UUID       `json:"created_by"`
	StartAt     time.Time       `json:"start_at"`
	EndAt       time.Time       `json:"end_at"`
	IsPublished bool            `json:"is_published"`
	Visibility  Visibility      `json:"visibility"`
	CreatedAt   time.Time       `json:"created_at"`
	Settings    *VotingSettings `json:"settings,omitempty"`
	Candidates  []Candidate     `json:"candidates,omitempty"`
}

// StatusAt derives the lifecycle state at the given instant.
func (s *VotingSession) StatusAt(now time.Time) SessionStatus {
	if !s.IsPublished {
		return StatusDraft
	}
	switch {
	case now.Before(s.StartAt):
		return StatusScheduled
	case now.After(s.EndAt):
		return StatusClosed
	default:
		return StatusOpen
	}
}

// OpenAt reports whether ballots may be cast at the given instant.
func (s *VotingSession) OpenAt(now time.Time) bool {
	return s.StatusAt(now) == StatusOpen
}

// VotingSettings is the rule set governing ballot shape for one session.
type VotingSettings struct {
	SessionID                 uuid.UUID `json:"session_id"`
	Anonymous                 bool      `json:"anonymous"`
	MultiSelect               bool      `json:"multi_select"`
	MaxChoices                int       `json:"max_choices"`
	RequireConfirmedEmail     bool      `json:"require_confirmed_email"`
	AllowVoteChangeUntilClose bool      `json:"allow_vote_change_until_close"`
}

// EffectiveMaxChoices returns the number of candidates a single ballot may
// select. When multi-select is off, max_choices is ignored and the limit is 1.
func (s *VotingSettings) EffectiveMaxChoices() int {
	if !s.MultiSelect {
		return 1
	}
	return s.MaxChoices
}

// CreateSessionRequest is the payload for creating a session in draft state.
type CreateSessionRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	StartAt     time.Time             `json:"start_at"`
	EndAt       time.Time             `json:"end_at"`
	Visibility  Visibility            `json:"visibility"`
	Settings    CreateSettingsRequest `json:"settings"`
}

// CreateSettingsRequest carries the embedded rule set for session creation
// and updates.
type CreateSettingsRequest struct {
	Anonymous                 bool `json:"anonymous"`
	MultiSelect               bool `json:"multi_select"`
	MaxChoices                int  `json:"max_choices"`
	RequireConfirmedEmail     bool `json:"require_confirmed_email"`
	AllowVoteChangeUntilClose bool `json:"allow_vote_change_until_close"`
}

// UpdateSessionRequest rewrites schedule, visibility and settings. Nil fields
// are left unchanged.
type UpdateSessionRequest struct {
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	StartAt     *time.Time             `json:"start_at,omitempty"`
	EndAt       *time.Time             `json:"end_at,omitempty"`
	Visibility  *Visibility            `json:"visibility,omitempty"`
	Settings    *CreateSettingsRequest `json:"settings,omitempty"`
}

// SessionView is a session as returned to callers, with the derived status
// attached.
type SessionView struct {
	VotingSession
	Status SessionStatus `json:"status"`
}

// User is the minimal account shape the engine needs: identity, role and the
// confirmed-email flag the eligibility gate reads.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	EmailConfirmed bool      `json:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	RoleAdmin = "admin"
	RoleVoter = "voter"
)
