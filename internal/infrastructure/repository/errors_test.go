package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
)

func TestStorageErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", fmt.Errorf("query: %w", context.Canceled), true},
		{"bad conn", driver.ErrBadConn, true},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"mysql invalid conn", fmt.Errorf("exec: %w", mysql.ErrInvalidConn), true},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"disk full", fmt.Errorf("write: %w", syscall.ENOSPC), false},
		{"plain failure", errors.New("syntax error near SELECT"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storageError("load subscription", tt.err)
			assert.Equal(t, tt.unavailable, apperrors.IsUnavailableError(err))
			if !tt.unavailable {
				assert.ErrorIs(t, err, tt.err)
				assert.Contains(t, err.Error(), "load subscription")
			}
		})
	}
}
