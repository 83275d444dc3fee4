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

type PostgresUserRepository struct {
	db      *database.PostgresDB
	timeout time.Duration
}

func NewPostgresUserRepository(db *database.PostgresDB, timeout time.Duration) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, timeout: timeout}
}

// GetByID retrieves a user by id
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	var user domain.User
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, email, full_name, role, email_confirmed, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.Role,
		&user.EmailConfirmed,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapStorageErr("get user", fmt.Errorf("failed to get user: %w", err))
	}
	return &user, nil
}
