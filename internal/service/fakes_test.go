package service

import (
	"context"
	"sort"
	"time"

	"ballotbox/internal/domain"
	"ballotbox/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// In-memory repository fakes. Rule enforcement lives in the services under
// test; these only store data, enforce the vote foreign-key restriction the
// schema carries, and repeat the under-lock duplicate check the real vote
// repository performs.

type memSessionRepo struct {
	sessions   map[uuid.UUID]*domain.VotingSession
	candidates map[uuid.UUID]*domain.Candidate
	nextPos    int

	// votes, when set, makes deletes honour the RESTRICT references the
	// schema places on vote rows.
	votes *memVoteRepo

	listPublishedCalls int
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{
		sessions:   make(map[uuid.UUID]*domain.VotingSession),
		candidates: make(map[uuid.UUID]*domain.Candidate),
	}
}

func (r *memSessionRepo) CreateSession(_ context.Context, session *domain.VotingSession) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *memSessionRepo) GetSession(_ context.Context, id uuid.UUID) (*domain.VotingSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return session, nil
}

func (r *memSessionRepo) GetSessionWithCandidates(ctx context.Context, id uuid.UUID) (*domain.VotingSession, error) {
	session, err := r.GetSession(ctx, id)
	if session == nil || err != nil {
		return session, err
	}
	roster, _ := r.CandidatesBySession(ctx, id)
	session.Candidates = roster
	return session, nil
}

func (r *memSessionRepo) UpdateSession(_ context.Context, session *domain.VotingSession) error {
	if _, ok := r.sessions[session.ID]; !ok {
		return &domain.NotFoundError{Entity: "session", ID: session.ID.String()}
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *memSessionRepo) SetPublished(_ context.Context, id uuid.UUID) (bool, error) {
	session, ok := r.sessions[id]
	if !ok {
		return false, &domain.NotFoundError{Entity: "session", ID: id.String()}
	}
	if session.IsPublished {
		return false, nil
	}
	session.IsPublished = true
	return true, nil
}

func (r *memSessionRepo) DeleteSession(_ context.Context, id uuid.UUID, purgeVotes bool) error {
	if r.votes != nil {
		if purgeVotes {
			r.votes.removeBySession(id)
		} else {
			for _, v := range r.votes.votes {
				if v.SessionID == id {
					return &pgconn.PgError{Code: "23503", ConstraintName: "votes_session_id_fkey"}
				}
			}
		}
	}
	delete(r.sessions, id)
	for cid, c := range r.candidates {
		if c.SessionID == id {
			delete(r.candidates, cid)
		}
	}
	return nil
}

func (r *memSessionRepo) ListPublished(_ context.Context) ([]domain.VotingSession, error) {
	r.listPublishedCalls++
	var out []domain.VotingSession
	for _, s := range r.sessions {
		if s.IsPublished {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]domain.VotingSession, error) {
	var out []domain.VotingSession
	for _, s := range r.sessions {
		if s.CreatedBy == creatorID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) AddCandidate(_ context.Context, candidate *domain.Candidate) error {
	r.nextPos++
	candidate.Position = r.nextPos
	r.candidates[candidate.ID] = candidate
	return nil
}

func (r *memSessionRepo) GetCandidate(_ context.Context, id uuid.UUID) (*domain.Candidate, error) {
	candidate, ok := r.candidates[id]
	if !ok {
		return nil, nil
	}
	return candidate, nil
}

func (r *memSessionRepo) UpdateCandidate(_ context.Context, candidate *domain.Candidate) error {
	if _, ok := r.candidates[candidate.ID]; !ok {
		return &domain.NotFoundError{Entity: "candidate", ID: candidate.ID.String()}
	}
	r.candidates[candidate.ID] = candidate
	return nil
}

func (r *memSessionRepo) DeleteCandidate(_ context.Context, id uuid.UUID, purgeVotes bool) error {
	if r.votes != nil {
		if purgeVotes {
			r.votes.removeByCandidate(id)
		} else {
			for _, v := range r.votes.votes {
				if v.CandidateID == id {
					return &pgconn.PgError{Code: "23503", ConstraintName: "votes_candidate_id_fkey"}
				}
			}
		}
	}
	delete(r.candidates, id)
	return nil
}

func (r *memSessionRepo) CandidatesBySession(_ context.Context, sessionID uuid.UUID) ([]domain.Candidate, error) {
	var out []domain.Candidate
	for _, c := range r.candidates {
		if c.SessionID == sessionID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

type memVoteRepo struct {
	votes []domain.Vote

	// insertErrs is consumed one error per SupersedeAndInsert call, letting a
	// test stage a unique violation for the first attempt only.
	insertErrs []error

	// staleActiveCheck makes HasActiveBallot report no ballot even when one
	// exists, modelling a check that ran before a concurrent cast committed.
	staleActiveCheck bool

	tallyRows []repository.TallyRow
}

func (r *memVoteRepo) HasActiveBallot(_ context.Context, sessionID, voterID uuid.UUID) (bool, error) {
	if r.staleActiveCheck {
		return false, nil
	}
	return r.hasValid(sessionID, voterID), nil
}

func (r *memVoteRepo) hasValid(sessionID, voterID uuid.UUID) bool {
	for _, v := range r.votes {
		if v.IsValid && v.SessionID == sessionID && v.VoterID != nil && *v.VoterID == voterID {
			return true
		}
	}
	return false
}

func (r *memVoteRepo) SupersedeAndInsert(_ context.Context, sessionID uuid.UUID, voterID *uuid.UUID, allowChange bool, votes []domain.Vote) (int, error) {
	if len(r.insertErrs) > 0 {
		err := r.insertErrs[0]
		r.insertErrs = r.insertErrs[1:]
		if err != nil {
			return 0, err
		}
	}

	superseded := 0
	if voterID != nil {
		if !allowChange && r.hasValid(sessionID, *voterID) {
			return 0, &domain.DuplicateVoteError{SessionID: sessionID.String()}
		}
		if allowChange {
			for i := range r.votes {
				v := &r.votes[i]
				if v.IsValid && v.SessionID == sessionID && v.VoterID != nil && *v.VoterID == *voterID {
					v.IsValid = false
					superseded++
				}
			}
		}
	}
	r.votes = append(r.votes, votes...)
	return superseded, nil
}

func (r *memVoteRepo) removeBySession(sessionID uuid.UUID) {
	kept := r.votes[:0]
	for _, v := range r.votes {
		if v.SessionID != sessionID {
			kept = append(kept, v)
		}
	}
	r.votes = kept
}

func (r *memVoteRepo) removeByCandidate(candidateID uuid.UUID) {
	kept := r.votes[:0]
	for _, v := range r.votes {
		if v.CandidateID != candidateID {
			kept = append(kept, v)
		}
	}
	r.votes = kept
}

func (r *memVoteRepo) CountBySession(_ context.Context, sessionID uuid.UUID) (int, error) {
	count := 0
	for _, v := range r.votes {
		if v.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (r *memVoteRepo) CountByCandidate(_ context.Context, candidateID uuid.UUID) (int, error) {
	count := 0
	for _, v := range r.votes {
		if v.CandidateID == candidateID {
			count++
		}
	}
	return count, nil
}

func (r *memVoteRepo) TallyBySession(_ context.Context, _ uuid.UUID) ([]repository.TallyRow, error) {
	return r.tallyRows, nil
}

type memResultsRepo struct {
	snapshots map[uuid.UUID]*domain.VotingResults
}

func newMemResultsRepo() *memResultsRepo {
	return &memResultsRepo{snapshots: make(map[uuid.UUID]*domain.VotingResults)}
}

func (r *memResultsRepo) Upsert(_ context.Context, results *domain.VotingResults) error {
	r.snapshots[results.SessionID] = results
	return nil
}

func (r *memResultsRepo) Get(_ context.Context, sessionID uuid.UUID) (*domain.VotingResults, error) {
	results, ok := r.snapshots[sessionID]
	if !ok {
		return nil, nil
	}
	return results, nil
}

type memUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return user, nil
}

type memAuditSink struct {
	events        []domain.AuditEvent
	notifications []domain.Notification
	recordErr     error
}

func (s *memAuditSink) Record(_ context.Context, event *domain.AuditEvent) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *memAuditSink) Notify(_ context.Context, notification *domain.Notification) error {
	s.notifications = append(s.notifications, *notification)
	return nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
