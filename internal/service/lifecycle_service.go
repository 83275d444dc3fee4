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

// LifecycleService owns the session state machine (draft → published →
// closed) and structural edits to schedule, visibility, settings and roster.
// Closed is always derived from the clock, never stored.
type LifecycleService struct {
	sessions repository.SessionRepository
	votes    repository.VoteRepository
	audit    *auditEmitter
	cache    *ResultsCache
	logger   *zap.Logger

	// lockPublished blocks structural edits once a session is published.
	lockPublished bool

	now func() time.Time
}

func NewLifecycleService(
	sessions repository.SessionRepository,
	votes repository.VoteRepository,
	sink repository.AuditSink,
	cache *ResultsCache,
	logger *zap.Logger,
	lockPublished bool,
) *LifecycleService {
	return &LifecycleService{
		sessions:      sessions,
		votes:         votes,
		audit:         &auditEmitter{sink: sink, logger: logger},
		cache:         cache,
		logger:        logger,
		lockPublished: lockPublished,
		now:           time.Now,
	}
}

// CreateSession creates a session in draft state. The session row and its
// settings row are written atomically.
func (s *LifecycleService) CreateSession(ctx context.Context, actorID uuid.UUID, req *domain.CreateSessionRequest) (*domain.SessionView, []string, error) {
	if err := validateSchedule(req.Title, req.StartAt, req.EndAt); err != nil {
		return nil, nil, err
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}
	if visibility != domain.VisibilityPrivate && visibility != domain.VisibilityPublic {
		return nil, nil, &domain.ValidationError{Reason: fmt.Sprintf("unknown visibility %q", visibility)}
	}

	settings, err := buildSettings(&req.Settings)
	if err != nil {
		return nil, nil, err
	}

	session := &domain.VotingSession{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   actorID,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		IsPublished: false,
		Visibility:  visibility,
		CreatedAt:   s.now().UTC(),
		Settings:    settings,
	}
	settings.SessionID = session.ID

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, nil, err
	}

	s.logger.Info("session created",
		zap.String("session_id", session.ID.String()),
		zap.String("created_by", actorID.String()))

	warnings := appendWarning(nil, s.audit.emit(ctx, &actorID, domain.ActionCreateSession, "session", session.ID, map[string]any{
		"title": session.Title,
	}))

	return s.view(session), warnings, nil
}

// GetSession returns a session with its roster and derived status.
func (s *LifecycleService) GetSession(ctx context.Context, id uuid.UUID) (*domain.SessionView, error) {
	session, err := s.sessions.GetSessionWithCandidates(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &domain.NotFoundError{Entity: "session", ID: id.String()}
	}
	return s.view(session), nil
}

// ListPublished returns all published sessions with derived status. The raw
// listing is cached; status is derived after the cache read so it never goes
// stale inside the TTL.
func (s *LifecycleService) ListPublished(ctx context.Context) ([]domain.SessionView, error) {
	if cached, ok := s.cache.GetPublishedList(ctx); ok {
		return s.views(cached), nil
	}

	sessions, err := s.sessions.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.StorePublishedList(ctx, sessions)
	return s.views(sessions), nil
}

// ListByCreator returns sessions owned by the given user, drafts included.
func (s *LifecycleService) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]domain.SessionView, error) {
	sessions, err := s.sessions.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	return s.views(sessions), nil
}

// UpdateSession rewrites schedule, visibility and settings. When the
// published-lock policy is on, published sessions reject structural edits
// with a conflict.
func (s *LifecycleService) UpdateSession(ctx context.Context, actorID, id uuid.UUID, req *domain.UpdateSessionRequest) (*domain.SessionView, []string, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, &domain.NotFoundError{Entity: "session", ID: id.String()}
	}

	if s.lockPublished && session.IsPublished {
		return nil, nil, &domain.ConflictError{Reason: "published sessions are locked for structural edits"}
	}

	if req.Title != nil {
		session.Title = *req.Title
	}
	if req.Description != nil {
		session.Description = *req.Description
	}
	if req.StartAt != nil {
		session.StartAt = *req.StartAt
	}
	if req.EndAt != nil {
		session.EndAt = *req.EndAt
	}
	if req.Visibility != nil {
		if *req.Visibility != domain.VisibilityPrivate && *req.Visibility != domain.VisibilityPublic {
			return nil, nil, &domain.ValidationError{Reason: fmt.Sprintf("unknown visibility %q", *req.Visibility)}
		}
		session.Visibility = *req.Visibility
	}
	if req.Settings != nil {
		settings, err := buildSettings(req.Settings)
		if err != nil {
			return nil, nil, err
		}
		settings.SessionID = session.ID
		session.Settings = settings
	}

	if err := validateSchedule(session.Title, session.StartAt, session.EndAt); err != nil {
		return nil, nil, err
	}

	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return nil, nil, err
	}

	s.cache.InvalidateSession(ctx, session.ID)

	warnings := appendWarning(nil, s.audit.emit(ctx, &actorID, domain.ActionUpdateSession, "session", session.ID, nil))
	return s.view(session), warnings, nil
}

// PublishSession transitions draft → published. Publishing an already
// published session is a no-op, not an error.
func (s *LifecycleService) PublishSession(ctx context.Context, actorID, id uuid.UUID) (*domain.SessionView, []string, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, &domain.NotFoundError{Entity: "session", ID: id.String()}
	}

	transitioned, err := s.sessions.SetPublished(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	session.IsPublished = true

	var warnings []string
	if transitioned {
		s.cache.InvalidatePublishedList(ctx)
		s.logger.Info("session published", zap.String("session_id", id.String()))

		warnings = appendWarning(warnings, s.audit.emit(ctx, &actorID, domain.ActionPublishSession, "session", id, nil))
		s.audit.notify(ctx, session.CreatedBy, "session_published",
			"Your voting session is live",
			fmt.Sprintf("Session %q is now visible to voters.", session.Title))
	}

	return s.view(session), warnings, nil
}

// DeleteSession removes a session and cascades settings and candidates.
// Sessions with recorded votes are protected: deletion requires an explicit
// destructive override from the caller, which also purges the vote rows.
func (s *LifecycleService) DeleteSession(ctx context.Context, actorID, id uuid.UUID, force bool) ([]string, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &domain.NotFoundError{Entity: "session", ID: id.String()}
	}

	voteCount, err := s.votes.CountBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	if voteCount > 0 && !force {
		return nil, &domain.ConflictError{
			Reason: fmt.Sprintf("session has %d recorded votes; deletion requires the destructive override", voteCount),
		}
	}

	if err := s.sessions.DeleteSession(ctx, id, force); err != nil {
		return nil, err
	}

	s.cache.InvalidateSession(ctx, id)
	s.cache.InvalidatePublishedList(ctx)

	s.logger.Info("session deleted",
		zap.String("session_id", id.String()),
		zap.Int("votes", voteCount),
		zap.Bool("force", force))

	warnings := appendWarning(nil, s.audit.emit(ctx, &actorID, domain.ActionDeleteSession, "session", id, map[string]any{
		"force": force,
		"votes": voteCount,
	}))
	return warnings, nil
}

// AddCandidate appends a candidate to the session roster.
func (s *LifecycleService) AddCandidate(ctx context.Context, actorID, sessionID uuid.UUID, req *domain.AddCandidateRequest) (*domain.Candidate, []string, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, &domain.NotFoundError{Entity: "session", ID: sessionID.String()}
	}

	if s.lockPublished && session.IsPublished {
		return nil, nil, &domain.ConflictError{Reason: "published sessions are locked for structural edits"}
	}
	if req.DisplayName == "" {
		return nil, nil, &domain.ValidationError{Reason: "candidate display name must not be empty"}
	}
	if !domain.ValidCandidateType(req.Type) {
		return nil, nil, &domain.ValidationError{Reason: fmt.Sprintf("unknown candidate type %q", req.Type)}
	}

	candidate := &domain.Candidate{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Type:        req.Type,
		DisplayName: req.DisplayName,
		Description: req.Description,
	}
	if err := s.sessions.AddCandidate(ctx, candidate); err != nil {
		return nil, nil, err
	}

	warnings := appendWarning(nil, s.audit.emit(ctx, &actorID, domain.ActionAddCandidate, "candidate", candidate.ID, map[string]any{
		"session_id": sessionID.String(),
	}))
	return candidate, warnings, nil
}

// UpdateCandidate rewrites candidate presentation fields.
func (s *LifecycleService) UpdateCandidate(ctx context.Context, actorID, candidateID uuid.UUID, req *domain.UpdateCandidateRequest) (*domain.Candidate, []string, error) {
	candidate, err := s.sessions.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, nil, err
	}
	if candidate == nil {
		return nil, nil, &domain.NotFoundError{Entity: "candidate", ID: candidateID.String()}
	}

	if req.Type != nil {
		if !domain.ValidCandidateType(*req.Type) {
			return nil, nil, &domain.ValidationError{Reason: fmt.Sprintf("unknown candidate type %q", *req.Type)}
		}
		candidate.Type = *req.Type
	}
	if req.DisplayName != nil {
		if *req.DisplayName == "" {
			return nil, nil, &domain.ValidationError{Reason: "candidate display name must not be empty"}
		}
		candidate.DisplayName = *req.DisplayName
	}
	if req.Description != nil {
		candidate.Description = *req.Description
	}

	if err := s.sessions.UpdateCandidate(ctx, candidate); err != nil {
		return nil, nil, err
	}

	s.cache.InvalidateSession(ctx, candidate.SessionID)

	warnings := appendWarning(nil, s.audit.emit(ctx, &actorID, domain.ActionUpdateCandidate, "candidate", candidateID, nil))
	return candidate, warnings, nil
}

// DeleteCandidate removes a candidate. Candidates with recorded votes are
// protected the same way sessions are: the engine signals the conflict and
// the override decision belongs to the caller.
func (s *LifecycleService) DeleteCandidate(ctx context.Context, actorID, candidateID uuid.UUID, force bool) ([]string, error) {
	candidate, err := s.sessions.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, &domain.NotFoundError{Entity: "candidate", ID: candidateID.String()}
	}

	voteCount, err := s.votes.CountByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if voteCount > 0 && !force {
		return nil, &domain.ConflictError{
			Reason: fmt.Sprintf("candidate has %d recorded votes; deletion requires the destructive override", voteCount),
		}
	}

	if err := s.sessions.DeleteCandidate(ctx, candidateID, force); err != nil {
		return nil, err
	}

	s.cache.InvalidateSession(ctx, candidate.SessionID)

	warnings := appendWarning(nil, s.audit.emit(ctx, &actorID, domain.ActionDeleteCandidate, "candidate", candidateID, map[string]any{
		"force": force,
		"votes": voteCount,
	}))
	return warnings, nil
}

func (s *LifecycleService) view(session *domain.VotingSession) *domain.SessionView {
	return &domain.SessionView{
		VotingSession: *session,
		Status:        session.StatusAt(s.now()),
	}
}

func (s *LifecycleService) views(sessions []domain.VotingSession) []domain.SessionView {
	now := s.now()
	views := make([]domain.SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, domain.SessionView{
			VotingSession: session,
			Status:        session.StatusAt(now),
		})
	}
	return views
}

func validateSchedule(title string, startAt, endAt time.Time) error {
	if title == "" {
		return &domain.ValidationError{Reason: "title must not be empty"}
	}
	if !endAt.After(startAt) {
		return &domain.ValidationError{Reason: "end_at must be after start_at"}
	}
	return nil
}

func buildSettings(req *domain.CreateSettingsRequest) (*domain.VotingSettings, error) {
	maxChoices := req.MaxChoices
	if req.MultiSelect {
		if maxChoices < 1 {
			return nil, &domain.ValidationError{Reason: "max_choices must be at least 1 for multi-select sessions"}
		}
	} else {
		// max_choices is meaningless without multi-select
		maxChoices = 1
	}

	return &domain.VotingSettings{
		Anonymous:                 req.Anonymous,
		MultiSelect:               req.MultiSelect,
		MaxChoices:                maxChoices,
		RequireConfirmedEmail:     req.RequireConfirmedEmail,
		AllowVoteChangeUntilClose: req.AllowVoteChangeUntilClose,
	}, nil
}
