// internal/utils/delay.go

package utils

import (
	"context"
	"time"
)

// Delayer abstracts deliberate pacing sleeps so tests can skip them.
// The remote activity site renders stats asynchronously and throttles
// rapid redirect chains; the production delayer paces around both.
type Delayer interface {
	Pause(ctx context.Context, d time.Duration)
}

// SleepDelayer waits for the full duration unless the context ends first.
type SleepDelayer struct{}

func (SleepDelayer) Pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// NopDelayer skips all pacing. Used in tests.
type NopDelayer struct{}

func (NopDelayer) Pause(context.Context, time.Duration) {}
