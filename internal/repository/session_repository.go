package repository

import (
	"context"
	"fmt"
	"time"

	"ballotbox/internal/domain"
	"ballotbox/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PostgresSessionRepository struct {
	db      *database.PostgresDB
	timeout time.Duration
}

func NewPostgresSessionRepository(db *database.PostgresDB, timeout time.Duration) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db, timeout: timeout}
}

// CreateSession writes the session and its settings in one transaction so a
// session is never observable without settings.
func (r *PostgresSessionRepository) CreateSession(ctx context.Context, session *domain.VotingSession) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return mapStorageErr("create session", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO voting_sessions (id, title, description, created_by, start_at, end_at, is_published, visibility, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		session.ID,
		session.Title,
		session.Description,
		session.CreatedBy,
		session.StartAt,
		session.EndAt,
		session.IsPublished,
		session.Visibility,
		session.CreatedAt,
	)
	if err != nil {
		return mapStorageErr("create session", fmt.Errorf("failed to insert session: %w", err))
	}

	s := session.Settings
	_, err = tx.Exec(ctx, `
		INSERT INTO voting_settings (session_id, anonymous, multi_select, max_choices, require_confirmed_email, allow_vote_change_until_close)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		session.ID,
		s.Anonymous,
		s.MultiSelect,
		s.MaxChoices,
		s.RequireConfirmedEmail,
		s.AllowVoteChangeUntilClose,
	)
	if err != nil {
		return mapStorageErr("create session", fmt.Errorf("failed to insert settings: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return mapStorageErr("create session", err)
	}
	return nil
}

const sessionColumns = `
	vs.id, vs.title, vs.description, vs.created_by, vs.start_at, vs.end_at,
	vs.is_published, vs.visibility, vs.created_at,
	s.anonymous, s.multi_select, s.max_choices, s.require_confirmed_email, s.allow_vote_change_until_close
`

func scanSession(row pgx.Row) (*domain.VotingSession, error) {
	var (
		session  domain.VotingSession
		settings domain.VotingSettings
	)
	err := row.Scan(
		&session.ID,
		&session.Title,
		&session.Description,
		&session.CreatedBy,
		&session.StartAt,
		&session.EndAt,
		&session.IsPublished,
		&session.Visibility,
		&session.CreatedAt,
		&settings.Anonymous,
		&settings.MultiSelect,
		&settings.MaxChoices,
		&settings.RequireConfirmedEmail,
		&settings.AllowVoteChangeUntilClose,
	)
	if err != nil {
		return nil, err
	}
	settings.SessionID = session.ID
	session.Settings = &settings
	return &session, nil
}

// GetSession gets a session with its settings
func (r *PostgresSessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*domain.VotingSession, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + sessionColumns + `
		FROM voting_sessions vs
		JOIN voting_settings s ON s.session_id = vs.id
		WHERE vs.id = $1
	`

	session, err := scanSession(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapStorageErr("get session", fmt.Errorf("failed to get session: %w", err))
	}
	return session, nil
}

// GetSessionWithCandidates gets a session with settings and its roster
func (r *PostgresSessionRepository) GetSessionWithCandidates(ctx context.Context, id uuid.UUID) (*domain.VotingSession, error) {
	session, err := r.GetSession(ctx, id)
	if err != nil || session == nil {
		return session, err
	}

	candidates, err := r.CandidatesBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Candidates = candidates
	return session, nil
}

// UpdateSession rewrites schedule, visibility and settings
func (r *PostgresSessionRepository) UpdateSession(ctx context.Context, session *domain.VotingSession) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return mapStorageErr("update session", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE voting_sessions
		SET title = $2, description = $3, start_at = $4, end_at = $5, visibility = $6
		WHERE id = $1
	`,
		session.ID,
		session.Title,
		session.Description,
		session.StartAt,
		session.EndAt,
		session.Visibility,
	)
	if err != nil {
		return mapStorageErr("update session", fmt.Errorf("failed to update session: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "session", ID: session.ID.String()}
	}

	s := session.Settings
	_, err = tx.Exec(ctx, `
		UPDATE voting_settings
		SET anonymous = $2, multi_select = $3, max_choices = $4, require_confirmed_email = $5, allow_vote_change_until_close = $6
		WHERE session_id = $1
	`,
		session.ID,
		s.Anonymous,
		s.MultiSelect,
		s.MaxChoices,
		s.RequireConfirmedEmail,
		s.AllowVoteChangeUntilClose,
	)
	if err != nil {
		return mapStorageErr("update session", fmt.Errorf("failed to update settings: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return mapStorageErr("update session", err)
	}
	return nil
}

// SetPublished flips is_published false→true. Returns false when the session
// was already published.
func (r *PostgresSessionRepository) SetPublished(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE voting_sessions SET is_published = TRUE
		WHERE id = $1 AND is_published = FALSE
	`, id)
	if err != nil {
		return false, mapStorageErr("publish session", fmt.Errorf("failed to publish session: %w", err))
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteSession removes the session; settings and candidates cascade at the
// schema level. Vote rows are referenced with ON DELETE RESTRICT, so a
// destructive delete must purge them explicitly in the same transaction.
func (r *PostgresSessionRepository) DeleteSession(ctx context.Context, id uuid.UUID, purgeVotes bool) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return mapStorageErr("delete session", err)
	}
	defer tx.Rollback(ctx)

	if purgeVotes {
		if _, err := tx.Exec(ctx, `DELETE FROM votes WHERE session_id = $1`, id); err != nil {
			return mapStorageErr("delete session", fmt.Errorf("failed to purge votes: %w", err))
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM voting_sessions WHERE id = $1`, id)
	if err != nil {
		return mapStorageErr("delete session", fmt.Errorf("failed to delete session: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "session", ID: id.String()}
	}

	if err := tx.Commit(ctx); err != nil {
		return mapStorageErr("delete session", err)
	}
	return nil
}

// ListPublished returns published sessions, newest first
func (r *PostgresSessionRepository) ListPublished(ctx context.Context) ([]domain.VotingSession, error) {
	return r.list(ctx, `
		SELECT `+sessionColumns+`
		FROM voting_sessions vs
		JOIN voting_settings s ON s.session_id = vs.id
		WHERE vs.is_published = TRUE
		ORDER BY vs.created_at DESC
	`)
}

// ListByCreator returns all sessions created by the given user
func (r *PostgresSessionRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]domain.VotingSession, error) {
	return r.list(ctx, `
		SELECT `+sessionColumns+`
		FROM voting_sessions vs
		JOIN voting_settings s ON s.session_id = vs.id
		WHERE vs.created_by = $1
		ORDER BY vs.created_at DESC
	`, creatorID)
}

func (r *PostgresSessionRepository) list(ctx context.Context, query string, args ...any) ([]domain.VotingSession, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapStorageErr("list sessions", fmt.Errorf("failed to list sessions: %w", err))
	}
	defer rows.Close()

	var sessions []domain.VotingSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, mapStorageErr("list sessions", fmt.Errorf("failed to scan session: %w", err))
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// AddCandidate appends a candidate; position is assigned by the sequence
func (r *PostgresSessionRepository) AddCandidate(ctx context.Context, candidate *domain.Candidate) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO candidates (id, session_id, candidate_type, display_name, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING position
	`,
		candidate.ID,
		candidate.SessionID,
		candidate.Type,
		candidate.DisplayName,
		candidate.Description,
	).Scan(&candidate.Position)
	if err != nil {
		return mapStorageErr("add candidate", fmt.Errorf("failed to add candidate: %w", err))
	}
	return nil
}

// GetCandidate gets a candidate by id
func (r *PostgresSessionRepository) GetCandidate(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	var c domain.Candidate
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, session_id, candidate_type, display_name, description, position
		FROM candidates
		WHERE id = $1
	`, id).Scan(&c.ID, &c.SessionID, &c.Type, &c.DisplayName, &c.Description, &c.Position)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapStorageErr("get candidate", fmt.Errorf("failed to get candidate: %w", err))
	}
	return &c, nil
}

// UpdateCandidate rewrites candidate presentation fields
func (r *PostgresSessionRepository) UpdateCandidate(ctx context.Context, candidate *domain.Candidate) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE candidates SET candidate_type = $2, display_name = $3, description = $4
		WHERE id = $1
	`, candidate.ID, candidate.Type, candidate.DisplayName, candidate.Description)
	if err != nil {
		return mapStorageErr("update candidate", fmt.Errorf("failed to update candidate: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "candidate", ID: candidate.ID.String()}
	}
	return nil
}

// DeleteCandidate removes a candidate from the roster. Vote rows reference
// candidates with ON DELETE RESTRICT; a destructive delete purges them in the
// same transaction.
func (r *PostgresSessionRepository) DeleteCandidate(ctx context.Context, id uuid.UUID, purgeVotes bool) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return mapStorageErr("delete candidate", err)
	}
	defer tx.Rollback(ctx)

	if purgeVotes {
		if _, err := tx.Exec(ctx, `DELETE FROM votes WHERE candidate_id = $1`, id); err != nil {
			return mapStorageErr("delete candidate", fmt.Errorf("failed to purge votes: %w", err))
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return mapStorageErr("delete candidate", fmt.Errorf("failed to delete candidate: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "candidate", ID: id.String()}
	}

	if err := tx.Commit(ctx); err != nil {
		return mapStorageErr("delete candidate", err)
	}
	return nil
}

// CandidatesBySession returns the roster in insertion order
func (r *PostgresSessionRepository) CandidatesBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Candidate, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, session_id, candidate_type, display_name, description, position
		FROM candidates
		WHERE session_id = $1
		ORDER BY position ASC
	`, sessionID)
	if err != nil {
		return nil, mapStorageErr("list candidates", fmt.Errorf("failed to list candidates: %w", err))
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Type, &c.DisplayName, &c.Description, &c.Position); err != nil {
			return nil, mapStorageErr("list candidates", fmt.Errorf("failed to scan candidate: %w", err))
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
