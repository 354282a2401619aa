// ABOUTME: Reusable retry policy for API calls with exponential backoff
// ABOUTME: Applied uniformly at batch submission and polling call sites
package util

import "time"

// Policy describes a bounded exponential backoff schedule.
// The zero value is not usable; use DefaultPolicy or construct explicitly.
type Policy struct {
	BaseDelay   time.Duration
	Multiplier  float64
	MaxAttempts int
}

// DefaultPolicy retries four times at 2s, 4s, 8s, 16s.
var DefaultPolicy = Policy{
	BaseDelay:   2 * time.Second,
	Multiplier:  2,
	MaxAttempts: 4,
}

// Delay returns the wait before the given retry attempt (1-based).
// Attempt 1 waits BaseDelay, attempt 2 waits BaseDelay*Multiplier, and so on.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// Exhausted reports whether attempt exceeds the schedule.
func (p Policy) Exhausted(attempt int) bool {
	return attempt > p.MaxAttempts
}
