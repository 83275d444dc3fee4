package repository

import (
	"context"

	"ballotbox/internal/domain"

	"github.com/google/uuid"
)

// SessionRepository defines data access for sessions, settings and candidates.
// Pure data access: no rule enforcement happens at this layer.
type SessionRepository interface {
	// CreateSession writes the session row and its settings row atomically.
	CreateSession(ctx context.Context, session *domain.VotingSession) error

	// GetSession retrieves a session with its settings, or nil when absent.
	GetSession(ctx context.Context, id uuid.UUID) (*domain.VotingSession, error)

	// GetSessionWithCandidates retrieves a session with settings and roster.
	GetSessionWithCandidates(ctx context.Context, id uuid.UUID) (*domain.VotingSession, error)

	// UpdateSession rewrites schedule, visibility and settings.
	UpdateSession(ctx context.Context, session *domain.VotingSession) error

	// SetPublished flips is_published to true. Returns false when the session
	// was already published.
	SetPublished(ctx context.Context, id uuid.UUID) (bool, error)

	// DeleteSession removes the session, cascading settings and candidates.
	// Vote rows block the delete unless purgeVotes removes them in the same
	// transaction.
	DeleteSession(ctx context.Context, id uuid.UUID, purgeVotes bool) error

	// ListPublished returns all published sessions, newest first.
	ListPublished(ctx context.Context) ([]domain.VotingSession, error)

	// ListByCreator returns all sessions created by the given user.
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]domain.VotingSession, error)

	// AddCandidate appends a candidate to the session roster.
	AddCandidate(ctx context.Context, candidate *domain.Candidate) error

	// GetCandidate retrieves a candidate by id, or nil when absent.
	GetCandidate(ctx context.Context, id uuid.UUID) (*domain.Candidate, error)

	// UpdateCandidate rewrites candidate presentation fields.
	UpdateCandidate(ctx context.Context, candidate *domain.Candidate) error

	// DeleteCandidate removes a candidate from the roster. Vote rows block
	// the delete unless purgeVotes removes them in the same transaction.
	DeleteCandidate(ctx context.Context, id uuid.UUID, purgeVotes bool) error

	// CandidatesBySession returns the roster in insertion order.
	CandidatesBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Candidate, error)
}

// TallyRow is one candidate's aggregate as read in a single consistent scan.
type TallyRow struct {
	CandidateID uuid.UUID
	DisplayName string
	Position    int
	Tally       float64
	Ballots     int
}

// VoteRepository defines data access for ballots.
type VoteRepository interface {
	// HasActiveBallot reports whether the voter holds a valid ballot in the
	// session.
	HasActiveBallot(ctx context.Context, sessionID, voterID uuid.UUID) (bool, error)

	// SupersedeAndInsert inserts the new ballot rows in one transaction,
	// serialized per voter+session. With allowChange the voter's prior valid
	// ballots are marked invalid first; without it an existing valid ballot
	// found under the serialization lock yields DuplicateVoteError. With a
	// nil voter rows are only inserted. Returns the number of superseded rows.
	SupersedeAndInsert(ctx context.Context, sessionID uuid.UUID, voterID *uuid.UUID, allowChange bool, votes []domain.Vote) (int, error)

	// CountBySession counts all vote rows under the session, valid or not.
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error)

	// CountByCandidate counts all vote rows referencing the candidate.
	CountByCandidate(ctx context.Context, candidateID uuid.UUID) (int, error)

	// TallyBySession reads every candidate of the session with its summed
	// valid-ballot weight and ballot count, in one statement.
	TallyBySession(ctx context.Context, sessionID uuid.UUID) ([]TallyRow, error)
}

// ResultsRepository persists results snapshots.
type ResultsRepository interface {
	// Upsert writes or replaces the session's snapshot.
	Upsert(ctx context.Context, results *domain.VotingResults) error

	// Get retrieves the session's snapshot, or nil when none was generated.
	Get(ctx context.Context, sessionID uuid.UUID) (*domain.VotingResults, error)
}

// UserRepository resolves voter identities for the eligibility gate.
type UserRepository interface {
	// GetByID retrieves a user by id, or nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// AuditSink receives domain events for persistence. Emission is best-effort:
// callers log failures and carry on.
type AuditSink interface {
	// Record persists one audit event.
	Record(ctx context.Context, event *domain.AuditEvent) error

	// Notify persists one user-facing notification.
	Notify(ctx context.Context, notification *domain.Notification) error
}
