// Package goroutine launches goroutines that log panics instead of crashing the process.
package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// SafeGo runs fn in a new goroutine, recovering and logging any panic.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer recoverPanic(log, name)
		fn()
	}()
}

// SafeGoContext is SafeGo for loops that stop when ctx is done. The returned
// channel closes once fn has returned.
func SafeGoContext(ctx context.Context, log logger.Interface, name string, fn func(ctx context.Context)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer recoverPanic(log, name)
		fn(ctx)
	}()
	return done
}

func recoverPanic(log logger.Interface, name string) {
	if r := recover(); r != nil {
		log.Errorw("goroutine panicked",
			"goroutine", name,
			"panic", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)
	}
}
