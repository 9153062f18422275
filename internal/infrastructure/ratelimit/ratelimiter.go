// Package ratelimit throttles abusive clients on the unauthenticated edges
// of the gateway: session exchange, webhooks and handoff.
package ratelimit

import (
	"context"
	"time"
)

// Window is one sliding window; a zero Limit disables it.
type Window struct {
	Duration time.Duration
	Limit    int
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, windows ...Window) (bool, error)
	Count(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

// PerMinute is the window the HTTP middleware configures from
// ratelimit.requests_per_minute.
func PerMinute(limit int) Window {
	return Window{Duration: time.Minute, Limit: limit}
}
