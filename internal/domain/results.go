package domain

import (
	"time"

	"github.com/google/uuid"
)

// CandidateTally is one entry of a results payload: a candidate and its
// weighted vote sum.
type CandidateTally struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Tally       float64   `json:"tally"`
}

// VotingResults is a results snapshot for one session. Payload is the
// serialized ordered tally list; Signature is a keyed digest over the payload,
// session id and generation time so a persisted snapshot can be checked for
// post-hoc tampering.
type VotingResults struct {
	SessionID   uuid.UUID `json:"session_id"`
	GeneratedAt time.Time `json:"generated_at"`
	TotalVotes  int       `json:"total_votes"`
	Payload     string    `json:"payload"`
	Signature   string    `json:"signature"`
}

// ResultsView is a snapshot decoded for callers, with display names joined in.
type ResultsView struct {
	SessionID   uuid.UUID          `json:"session_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	TotalVotes  int                `json:"total_votes"`
	Entries     []ResultsViewEntry `json:"entries"`
	Signature   string             `json:"signature"`
}

// ResultsViewEntry is one ranked row of a decoded snapshot.
type ResultsViewEntry struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	DisplayName string    `json:"display_name"`
	Tally       float64   `json:"tally"`
	Rank        int       `json:"rank"`
}
