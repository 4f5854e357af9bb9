// Package ratelimit provides the randomized inter-page delay used while
// walking listing pages. The delay is a deliberate anti-bot throttle, not an
// error-recovery sleep.
package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

type Waiter interface {
	Wait(ctx context.Context) error
}

// RandomDelay sleeps for a random duration in [Min, Max] on every Wait call,
// honoring context cancellation.
type RandomDelay struct {
	Min time.Duration
	Max time.Duration
}

func NewRandomDelay(min, max time.Duration) *RandomDelay {
	if max < min {
		max = min
	}
	return &RandomDelay{Min: min, Max: max}
}

func (r *RandomDelay) Wait(ctx context.Context) error {
	delay := r.Min
	if spread := r.Max - r.Min; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread) + 1))
	}
	if delay <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// None performs no delay. Used by tests.
type None struct{}

func (None) Wait(ctx context.Context) error { return ctx.Err() }
