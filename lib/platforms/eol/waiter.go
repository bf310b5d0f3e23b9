package eol

import (
	"context"
	"time"
)

// Waiter is the throttling strategy between dependent requests.
type Waiter interface {
	// Wait blocks for d or until ctx is done, whichever comes first.
	Wait(ctx context.Context, d time.Duration) error
}

// SleepWaiter really sleeps.
type SleepWaiter struct{}

func (SleepWaiter) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopWaiter never waits.
type NopWaiter struct{}

func (NopWaiter) Wait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
