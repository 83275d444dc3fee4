package repository

import (
	"context"
	"fmt"
	"time"

	"ballotbox/internal/domain"
	"ballotbox/pkg/database"

	"github.com/google/uuid"
)

type PostgresVoteRepository struct {
	db      *database.PostgresDB
	timeout time.Duration
}

func NewPostgresVoteRepository(db *database.PostgresDB, timeout time.Duration) *PostgresVoteRepository {
	return &PostgresVoteRepository{db: db, timeout: timeout}
}

// HasActiveBallot reports whether the voter holds a valid ballot in the session
func (r *PostgresVoteRepository) HasActiveBallot(ctx context.Context, sessionID, voterID uuid.UUID) (bool, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM votes
			WHERE session_id = $1 AND voter_id = $2 AND is_valid
		)
	`, sessionID, voterID).Scan(&exists)
	if err != nil {
		return false, mapStorageErr("check active ballot", fmt.Errorf("failed to check active ballot: %w", err))
	}
	return exists, nil
}

// SupersedeAndInsert runs the supersede-then-insert sequence in a single
// transaction scoped to voter+session. When allowChange is false the voter's
// ballot state is re-checked under the advisory lock: a concurrent cast that
// committed after the engine's duplicate check surfaces as DuplicateVoteError
// here instead of being silently superseded.
func (r *PostgresVoteRepository) SupersedeAndInsert(ctx context.Context, sessionID uuid.UUID, voterID *uuid.UUID, allowChange bool, votes []domain.Vote) (int, error) {
	for _, v := range votes {
		if v.Weight <= 0 {
			return 0, &domain.ValidationError{Reason: fmt.Sprintf("vote weight must be positive, got %v", v.Weight)}
		}
	}

	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, mapStorageErr("cast vote", err)
	}
	defer tx.Rollback(ctx)

	superseded := 0
	if voterID != nil {
		// Serialize concurrent casts by the same voter in the same session.
		// The advisory lock is transaction-scoped and released on commit or
		// rollback; without it two concurrent change-vote calls could both
		// see "no prior ballot" and double-insert.
		_, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::text, 0))`,
			sessionID, *voterID)
		if err != nil {
			return 0, mapStorageErr("cast vote", fmt.Errorf("failed to acquire ballot lock: %w", err))
		}

		if allowChange {
			tag, err := tx.Exec(ctx, `
				UPDATE votes SET is_valid = FALSE
				WHERE session_id = $1 AND voter_id = $2 AND is_valid
			`, sessionID, *voterID)
			if err != nil {
				return 0, mapStorageErr("cast vote", fmt.Errorf("failed to supersede prior ballot: %w", err))
			}
			superseded = int(tag.RowsAffected())
		} else {
			// The engine's duplicate check ran outside this transaction; only
			// the check under the lock is authoritative.
			var exists bool
			err := tx.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT 1 FROM votes
					WHERE session_id = $1 AND voter_id = $2 AND is_valid
				)
			`, sessionID, *voterID).Scan(&exists)
			if err != nil {
				return 0, mapStorageErr("cast vote", fmt.Errorf("failed to re-check active ballot: %w", err))
			}
			if exists {
				return 0, &domain.DuplicateVoteError{SessionID: sessionID.String()}
			}
		}
	}

	for i := range votes {
		v := &votes[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO votes (id, session_id, candidate_id, voter_id, cast_at, weight, is_valid)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		`, v.ID, v.SessionID, v.CandidateID, v.VoterID, v.CastAt, v.Weight)
		if err != nil {
			return 0, mapStorageErr("cast vote", fmt.Errorf("failed to insert vote: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, mapStorageErr("cast vote", err)
	}
	return superseded, nil
}

// CountBySession counts all vote rows under the session, valid or superseded
func (r *PostgresVoteRepository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, mapStorageErr("count votes", fmt.Errorf("failed to count votes: %w", err))
	}
	return count, nil
}

// CountByCandidate counts all vote rows referencing the candidate
func (r *PostgresVoteRepository) CountByCandidate(ctx context.Context, candidateID uuid.UUID) (int, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE candidate_id = $1`, candidateID).Scan(&count)
	if err != nil {
		return 0, mapStorageErr("count votes", fmt.Errorf("failed to count candidate votes: %w", err))
	}
	return count, nil
}

// TallyBySession reads every candidate with its summed valid weight and
// ballot count. One statement, so the scan is a consistent snapshot under
// read-committed isolation.
func (r *PostgresVoteRepository) TallyBySession(ctx context.Context, sessionID uuid.UUID) ([]TallyRow, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, `
		SELECT c.id, c.display_name, c.position,
		       COALESCE(SUM(v.weight) FILTER (WHERE v.is_valid), 0),
		       COUNT(v.id) FILTER (WHERE v.is_valid)
		FROM candidates c
		LEFT JOIN votes v ON v.candidate_id = c.id
		WHERE c.session_id = $1
		GROUP BY c.id, c.display_name, c.position
		ORDER BY c.position ASC
	`, sessionID)
	if err != nil {
		return nil, mapStorageErr("tally", fmt.Errorf("failed to read tally: %w", err))
	}
	defer rows.Close()

	var result []TallyRow
	for rows.Next() {
		var row TallyRow
		if err := rows.Scan(&row.CandidateID, &row.DisplayName, &row.Position, &row.Tally, &row.Ballots); err != nil {
			return nil, mapStorageErr("tally", fmt.Errorf("failed to scan tally row: %w", err))
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
