// ABOUTME: Injectable clock so tests drive time without real delays
// ABOUTME: Sleep is context-aware; cancellation wakes it immediately
package batch

import (
	"context"
	"time"
)

// Clock abstracts wall-clock reads and suspensions.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real clock used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or until ctx is done, returning ctx.Err() on cancellation.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
