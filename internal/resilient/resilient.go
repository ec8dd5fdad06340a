// Package resilient bounds and retries calls to generative backends.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashita-ai/kasane/internal/genfail"
)

// Policy controls Retry.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy is used for every backend call unless overridden.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// SlidesPolicy starts from a longer base delay; the renderer is slow to recover.
func SlidesPolicy() Policy {
	p := DefaultPolicy()
	p.BaseDelay = time.Second
	return p
}

// Timeouts are the per-call deadlines.
type Timeouts struct {
	Default     time.Duration
	Infographic time.Duration
	Slides      time.Duration
	Longform    time.Duration
	TTS         time.Duration
}

// DefaultTimeouts returns the stock per-call deadlines.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Default:     30 * time.Second,
		Infographic: 30 * time.Second,
		Slides:      90 * time.Second,
		Longform:    60 * time.Second,
		TTS:         45 * time.Second,
	}
}

// WithTimeout runs fn under a derived deadline. If the deadline fires the
// error is a genfail.Network wrapping context.DeadlineExceeded.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	v, err := fn(cctx)
	if err == nil {
		return v, nil
	}
	// Only our own deadline becomes a network failure; a parent cancel is passed through.
	if ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, genfail.Wrap(genfail.Network, "timeout",
			fmt.Errorf("request exceeded %s: %w", d, context.DeadlineExceeded))
	}
	return v, err
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx is done. Delays double from BaseDelay and are
// capped at MaxDelay. The last error is returned on exhaustion.
func Retry[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	attempts := max(p.Attempts, 1)
	delay := p.BaseDelay

	var (
		v   T
		err error
	)
	for attempt := range attempts {
		v, err = fn(ctx)
		if err == nil || !genfail.Retryable(err) {
			return v, err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return v, err
}

// Call retries a timeout-bounded fn: each attempt gets its own deadline.
func Call[T any](ctx context.Context, p Policy, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	return Retry(ctx, p, func(ctx context.Context) (T, error) {
		return WithTimeout(ctx, timeout, fn)
	})
}
