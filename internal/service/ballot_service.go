package service

import (
	"context"
	"fmt"
	"time"

	"ballotbox/internal/domain"
	"ballotbox/internal/repository"
	"ballotbox/pkg/redis"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BallotService validates and records one voter's choices against the
// session's active settings. Every ballot rule funnels through CastVote;
// settings are re-read on each call so a concurrent rule change is never
// enforced from stale state.
type BallotService struct {
	sessions repository.SessionRepository
	votes    repository.VoteRepository
	users    repository.UserRepository
	redis    *redis.Client
	audit    *auditEmitter
	cache    *ResultsCache
	logger   *zap.Logger

	now func() time.Time
}

func NewBallotService(
	sessions repository.SessionRepository,
	votes repository.VoteRepository,
	users repository.UserRepository,
	redisClient *redis.Client,
	sink repository.AuditSink,
	cache *ResultsCache,
	logger *zap.Logger,
) *BallotService {
	return &BallotService{
		sessions: sessions,
		votes:    votes,
		users:    users,
		redis:    redisClient,
		audit:    &auditEmitter{sink: sink, logger: logger},
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// CastVote validates the selection against the session's rules and records
// one vote row per selected candidate. Validation short-circuits on the first
// violated rule and every rejection names the rule in its message.
func (s *BallotService) CastVote(ctx context.Context, voterID *uuid.UUID, sessionID uuid.UUID, candidateIDs []uuid.UUID) (*domain.CastVoteResponse, error) {
	now := s.now().UTC()

	// Rule 1: the session must exist, be published and be inside its window.
	session, err := s.sessions.GetSessionWithCandidates(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &domain.SessionNotOpenError{Reason: "session does not exist"}
	}
	switch session.StatusAt(now) {
	case domain.StatusDraft:
		return nil, &domain.SessionNotOpenError{Reason: "session is not published"}
	case domain.StatusScheduled:
		return nil, &domain.SessionNotOpenError{Reason: "voting has not started yet"}
	case domain.StatusClosed:
		return nil, &domain.SessionNotOpenError{Reason: "voting has ended"}
	}
	settings := session.Settings

	// Rule 2: eligibility. An identity is required unless the session is
	// anonymous; a confirmed email is required when the settings demand it.
	if voterID == nil && !settings.Anonymous {
		return nil, &domain.EligibilityError{Reason: "this session requires a voter identity"}
	}
	if settings.RequireConfirmedEmail {
		if voterID == nil {
			return nil, &domain.EligibilityError{Reason: "this session requires a confirmed email address"}
		}
		voter, err := s.users.GetByID(ctx, *voterID)
		if err != nil {
			return nil, err
		}
		if voter == nil {
			return nil, &domain.EligibilityError{Reason: "voter account not found"}
		}
		if !voter.EmailConfirmed {
			return nil, &domain.EligibilityError{Reason: "voter email address is not confirmed"}
		}
	}

	// Rule 3: selection size against the single/multi-select rule.
	if err := validateSelectionSize(settings, candidateIDs); err != nil {
		return nil, err
	}

	// Rule 4: every candidate must belong to this session.
	roster := make(map[uuid.UUID]bool, len(session.Candidates))
	for _, c := range session.Candidates {
		roster[c.ID] = true
	}
	for _, id := range candidateIDs {
		if !roster[id] {
			return nil, &domain.InvalidSelectionError{Reason: fmt.Sprintf("candidate %s does not belong to this session", id)}
		}
	}

	// Duplicate HTTP retries within a short window are suppressed before any
	// ballot state changes. Degrades to the engine checks when redis is off.
	if s.redis != nil && voterID != nil {
		key := s.redis.KeyBuilder.KeyCastIdempotency(sessionID, voterID.String())
		ok, err := s.redis.SetNX(ctx, key, "1", redis.TTLCastLock)
		if err != nil {
			s.logger.Warn("cast idempotency lock unavailable", zap.Error(err))
		} else if !ok {
			return nil, &domain.ConflictError{Reason: "a ballot for this voter is already being processed"}
		}
	}

	// Rule 5: one active ballot per voter per session, unless vote changes
	// are allowed, in which case the prior ballot is superseded in the same
	// transaction as the insert. This check is the fast path; the repository
	// repeats it under the per-voter serialization lock.
	if voterID != nil {
		hasBallot, err := s.votes.HasActiveBallot(ctx, sessionID, *voterID)
		if err != nil {
			return nil, err
		}
		if hasBallot && !settings.AllowVoteChangeUntilClose {
			return nil, &domain.DuplicateVoteError{SessionID: sessionID.String()}
		}
	}

	rows := make([]domain.Vote, 0, len(candidateIDs))
	for _, candidateID := range candidateIDs {
		rows = append(rows, domain.Vote{
			ID:          uuid.New(),
			SessionID:   sessionID,
			CandidateID: candidateID,
			VoterID:     voterID,
			CastAt:      now,
			Weight:      1,
			IsValid:     true,
		})
	}

	allowChange := settings.AllowVoteChangeUntilClose
	superseded, err := s.votes.SupersedeAndInsert(ctx, sessionID, voterID, allowChange, rows)
	if repository.IsUniqueViolation(err) {
		// A concurrent cast won the race for the one-active-ballot index.
		if !allowChange {
			return nil, &domain.DuplicateVoteError{SessionID: sessionID.String()}
		}
		// Vote change is allowed: rerun the supersede-then-insert once so the
		// fresh transaction sees the concurrent ballot and supersedes it.
		superseded, err = s.votes.SupersedeAndInsert(ctx, sessionID, voterID, allowChange, rows)
		if repository.IsUniqueViolation(err) {
			return nil, &domain.ConflictError{Reason: "ballot is being changed concurrently, retry the request"}
		}
	}
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateSession(ctx, sessionID)

	actor := "anonymous"
	if voterID != nil {
		actor = voterID.String()
	}
	s.logger.Info("ballot recorded",
		zap.String("session_id", sessionID.String()),
		zap.String("voter", actor),
		zap.Int("choices", len(candidateIDs)),
		zap.Int("superseded", superseded))

	// The audit record carries the acting identity even for anonymous-result
	// sessions: anonymity governs result disclosure, not duplicate-prevention
	// bookkeeping. Exposed audit views must omit voter identity when the
	// session is anonymous.
	var warnings []string
	warnings = appendWarning(warnings, s.audit.emit(ctx, voterID, domain.ActionCastVote, "session", sessionID, map[string]any{
		"candidate_ids": candidateIDs,
		"superseded":    superseded,
	}))

	return &domain.CastVoteResponse{
		SessionID:    sessionID,
		CandidateIDs: candidateIDs,
		CastAt:       now,
		Superseded:   superseded,
		Warnings:     warnings,
	}, nil
}

func validateSelectionSize(settings *domain.VotingSettings, candidateIDs []uuid.UUID) error {
	if len(candidateIDs) == 0 {
		return &domain.InvalidSelectionError{Reason: "selection must include at least one candidate"}
	}

	seen := make(map[uuid.UUID]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		if seen[id] {
			return &domain.InvalidSelectionError{Reason: fmt.Sprintf("candidate %s appears more than once in the selection", id)}
		}
		seen[id] = true
	}

	limit := settings.EffectiveMaxChoices()
	if !settings.MultiSelect && len(candidateIDs) != 1 {
		return &domain.InvalidSelectionError{Reason: "this session allows exactly one choice"}
	}
	if len(candidateIDs) > limit {
		return &domain.InvalidSelectionError{Reason: fmt.Sprintf("selection exceeds maximum of %d", limit)}
	}
	return nil
}
