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

type PostgresResultsRepository struct {
	db      *database.PostgresDB
	timeout time.Duration
}

func NewPostgresResultsRepository(db *database.PostgresDB, timeout time.Duration) *PostgresResultsRepository {
	return &PostgresResultsRepository{db: db, timeout: timeout}
}

// Upsert writes or replaces the session's results snapshot
func (r *PostgresResultsRepository) Upsert(ctx context.Context, results *domain.VotingResults) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO voting_results (session_id, generated_at, total_votes, payload, signature)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			total_votes = EXCLUDED.total_votes,
			payload = EXCLUDED.payload,
			signature = EXCLUDED.signature
	`,
		results.SessionID,
		results.GeneratedAt,
		results.TotalVotes,
		results.Payload,
		results.Signature,
	)
	if err != nil {
		return mapStorageErr("store results", fmt.Errorf("failed to store results: %w", err))
	}
	return nil
}

// Get retrieves the session's snapshot, or nil when none was generated
func (r *PostgresResultsRepository) Get(ctx context.Context, sessionID uuid.UUID) (*domain.VotingResults, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	var results domain.VotingResults
	err := r.db.Pool.QueryRow(ctx, `
		SELECT session_id, generated_at, total_votes, payload, signature
		FROM voting_results
		WHERE session_id = $1
	`, sessionID).Scan(
		&results.SessionID,
		&results.GeneratedAt,
		&results.TotalVotes,
		&results.Payload,
		&results.Signature,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapStorageErr("get results", fmt.Errorf("failed to get results: %w", err))
	}
	return &results, nil
}
