package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote is one recorded choice for one candidate. Rows are immutable once
// cast; a superseded ballot is soft-invalidated (is_valid = false), never
// deleted, so the full audit history survives vote changes.
type Vote struct {
	ID          uuid.UUID  `json:"id"`
	SessionID   uuid.UUID  `json:"session_id"`
	CandidateID uuid.UUID  `json:"candidate_id"`
	VoterID     *uuid.UUID `json:"voter_id,omitempty"`
	CastAt      time.Time  `json:"cast_at"`
	Weight      float64    `json:"weight"`
	IsValid     bool       `json:"is_valid"`
}

// CastVoteRequest is the payload for casting a ballot. A ballot selects one
// or more candidates of the same session in a single request.
type CastVoteRequest struct {
	CandidateIDs []uuid.UUID `json:"candidate_ids"`
}

// CastVoteResponse confirms a recorded ballot. Warnings carries non-fatal
// conditions, currently only audit-emission failures.
type CastVoteResponse struct {
	SessionID    uuid.UUID   `json:"session_id"`
	CandidateIDs []uuid.UUID `json:"candidate_ids"`
	CastAt       time.Time   `json:"cast_at"`
	Superseded   int         `json:"superseded_ballots,omitempty"`
	Warnings     []string    `json:"warnings,omitempty"`
}
