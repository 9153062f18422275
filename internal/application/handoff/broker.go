// Package handoff delivers a freshly issued access token from the browser
// window that signed in to the plugin that is waiting for it.
//
// The plugin creates a handoff and long-polls it. The sign-in page delivers
// the token from a trusted origin, or the user cancels. Every handoff ends in
// exactly one of delivered, canceled or timeout.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/repolens/gatekeeper/internal/infrastructure/pubsub"
	"github.com/repolens/gatekeeper/internal/shared/biztime"
	"github.com/repolens/gatekeeper/internal/shared/id"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusCanceled  Status = "canceled"
	StatusTimeout   Status = "timeout"
)

var (
	ErrNotFound        = errors.New("handoff not found")
	ErrUntrustedOrigin = errors.New("handoff origin not trusted")
	ErrResolved        = errors.New("handoff already resolved")
)

// resultRetention keeps resolved handoffs readable for a late poll.
const resultRetention = time.Minute

type Result struct {
	Status Status
	Token  string
}

// TokenValidator checks delivered credentials before they are handed over.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

type entry struct {
	done      chan struct{}
	result    Result
	expiresAt time.Time
}

func (e *entry) resolved() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

type Broker struct {
	mu        sync.Mutex
	entries   map[string]*entry
	timeout   time.Duration
	trusted   map[string]struct{}
	validator TokenValidator
	publisher pubsub.HandoffPublisher
	logger    logger.Interface
}

// NewBroker builds a broker. publisher may be nil for a single instance.
func NewBroker(timeout time.Duration, trustedOrigins []string, validator TokenValidator,
	publisher pubsub.HandoffPublisher, logger logger.Interface) *Broker {
	trusted := make(map[string]struct{}, len(trustedOrigins))
	for _, o := range trustedOrigins {
		if o = normalizeOrigin(o); o != "" {
			trusted[o] = struct{}{}
		}
	}
	return &Broker{
		entries:   make(map[string]*entry),
		timeout:   timeout,
		trusted:   trusted,
		validator: validator,
		publisher: publisher,
		logger:    logger,
	}
}

func (b *Broker) Create(_ context.Context) (string, time.Time, error) {
	hid, err := id.NewHandoffID()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate handoff id: %w", err)
	}
	expiresAt := biztime.NowUTC().Add(b.timeout)

	b.mu.Lock()
	b.entries[hid] = &entry{done: make(chan struct{}), expiresAt: expiresAt}
	b.mu.Unlock()

	b.logger.Debugw("handoff created", "handoff_id", hid, "expires_at", expiresAt)
	return hid, expiresAt, nil
}

// Wait blocks until the handoff resolves or expires. A canceled ctx (the
// poller went away) returns ctx.Err() and leaves the handoff pending.
func (b *Broker) Wait(ctx context.Context, hid string) (Result, error) {
	b.mu.Lock()
	e, ok := b.entries[hid]
	b.mu.Unlock()
	if !ok {
		return Result{}, ErrNotFound
	}

	timer := time.NewTimer(time.Until(e.expiresAt))
	defer timer.Stop()

	select {
	case <-e.done:
		return e.result, nil
	case <-timer.C:
		b.resolve(hid, Result{Status: StatusTimeout})
		// A delivery may have won the race with the timer.
		return e.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Deliver hands token to the waiter. origin must be trusted and the token
// must validate.
func (b *Broker) Deliver(ctx context.Context, hid, origin, token string) error {
	if _, ok := b.trusted[normalizeOrigin(origin)]; !ok {
		b.logger.Warnw("handoff delivery from untrusted origin", "handoff_id", hid, "origin", origin)
		return ErrUntrustedOrigin
	}
	if _, err := b.validator.Validate(ctx, token); err != nil {
		return err
	}
	return b.settle(ctx, hid, Result{Status: StatusDelivered, Token: token})
}

// Cancel resolves a pending handoff as canceled.
func (b *Broker) Cancel(ctx context.Context, hid string) error {
	return b.settle(ctx, hid, Result{Status: StatusCanceled})
}

// HandleRemote applies a resolution published by another instance.
func (b *Broker) HandleRemote(_ context.Context, ev pubsub.HandoffEvent) {
	if b.resolve(ev.ID, Result{Status: Status(ev.Status), Token: ev.Token}) {
		b.logger.Debugw("handoff resolved from peer", "handoff_id", ev.ID, "status", ev.Status)
	}
}

func (b *Broker) settle(ctx context.Context, hid string, r Result) error {
	b.mu.Lock()
	e, ok := b.entries[hid]
	b.mu.Unlock()

	if ok {
		if e.resolved() {
			return ErrResolved
		}
		if b.resolve(hid, r) {
			b.logger.Infow("handoff resolved", "handoff_id", hid, "status", r.Status)
			return nil
		}
		return ErrResolved
	}

	// The waiter may be connected to another instance.
	if b.publisher == nil {
		return ErrNotFound
	}
	return b.publisher.Publish(ctx, pubsub.HandoffEvent{ID: hid, Status: string(r.Status), Token: r.Token})
}

// resolve sets the result once. It reports whether this call resolved it
// with r. A delivery or cancel arriving at or after expiry resolves the
// handoff as timeout instead, whether or not a poller is connected.
func (b *Broker) resolve(hid string, r Result) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[hid]
	if !ok || e.resolved() {
		return false
	}
	if r.Status != StatusTimeout && !biztime.NowUTC().Before(e.expiresAt) {
		e.result = Result{Status: StatusTimeout}
		close(e.done)
		return false
	}
	e.result = r
	close(e.done)
	return true
}

// Sweep drops handoffs past expiry plus retention. It returns how many.
func (b *Broker) Sweep(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for hid, e := range b.entries {
		if now.After(e.expiresAt.Add(resultRetention)) {
			delete(b.entries, hid)
			n++
		}
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (b *Broker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.Sweep(biztime.NowUTC()); n > 0 {
				b.logger.Debugw("expired handoffs swept", "count", n)
			}
		}
	}
}

func normalizeOrigin(o string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
}
