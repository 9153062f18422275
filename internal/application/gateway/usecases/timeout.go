package usecases

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
)

// withReadTimeout bounds the latency-sensitive reads of a request.
func withReadTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// transient converts a read that ran out of time into a retryable 503.
func transient(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewUnavailableError("Service temporarily unavailable", "read timed out")
	}
	return err
}
