package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/cleaner-scheduler/internal/internaltypes"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
	pgErrCodeQueryCanceled        = "57014"
	pgErrCodeAdminShutdown        = "57P01"
	pgErrCodeTooManyConnections   = "53300"
)

// classify maps driver errors onto the domain sentinels, keeping the cause.
// Concurrent-write failures become ErrConflict; timeouts and lost
// connections become ErrTransient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", internaltypes.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgErrCodeSerializationFailure, pgErr.Code == pgErrCodeDeadlockDetected:
			return fmt.Errorf("%w: %w", internaltypes.ErrConflict, err)
		case pgErr.Code == pgErrCodeQueryCanceled,
			pgErr.Code == pgErrCodeAdminShutdown,
			pgErr.Code == pgErrCodeTooManyConnections,
			strings.HasPrefix(pgErr.Code, "08"):
			return fmt.Errorf("%w: %w", internaltypes.ErrTransient, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", internaltypes.ErrTransient, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", internaltypes.ErrTransient, err)
	}
	return err
}
