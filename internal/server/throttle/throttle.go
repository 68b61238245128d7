// Package throttle limits how often a key (an email address) may attempt a
// credential operation within a fixed window.
package throttle

import (
	"context"
	"time"
)

type Limiter interface {
	Allow(ctx context.Context, key string) Decision
	Close() error
}

// Decision is the outcome of one attempt.
type Decision struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration
}

// Unlimited allows every attempt. It is used when no Redis address is set.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) Decision { return Decision{Allowed: true} }

func (Unlimited) Close() error { return nil }
