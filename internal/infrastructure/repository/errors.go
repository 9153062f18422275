package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
)

// storageError wraps a datastore failure. Failures a retry can fix become a
// retryable unavailable AppError so callers answer 503.
func storageError(op string, err error) error {
	if isUnavailable(err) {
		return apperrors.NewUnavailableError("Storage temporarily unavailable", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUnavailable reports whether err means the datastore could not be reached
// or was busy: deadlines, dropped or refused connections, and sqlite lock
// contention. Constraint and query errors are not retryable.
func isUnavailable(err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.SafeToRetry(err) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}
