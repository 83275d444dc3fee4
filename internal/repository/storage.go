package repository

import (
	"context"
	"errors"
	"time"

	"ballotbox/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultStorageTimeout bounds a repository call when no explicit budget was
// configured.
const DefaultStorageTimeout = 5 * time.Second

// opContext derives a per-call context honouring the storage execution budget.
func opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStorageTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// mapStorageErr translates driver failures into the domain's transient error
// taxonomy. Rule violations never originate here; only timing and
// connectivity do.
func mapStorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.StorageTimeoutError{Op: op}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &domain.StorageUnavailableError{Op: op, Err: err}
	}
	return err
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. The ballot engine uses this to detect a concurrent cast racing
// the one-active-ballot index.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
