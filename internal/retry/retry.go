// Package retry provides a bounded retry policy with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy retries an operation a bounded number of times.
//
// Attempt n (1-based) waits Delay*Multiplier^(n-1) before attempt n+1,
// capped at MaxDelay when set. With Jitter the wait is scaled by a random
// factor in [0.5, 1.5).
type Policy struct {
	Attempts   int
	Delay      time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	Jitter     bool

	// Sleep replaces the real timer; tests inject a recorder.
	Sleep Sleeper
	// Rand drives jitter; nil uses a fixed factor of 1.
	Rand *rand.Rand
}

// ImagePolicy is the policy for fetching images that may not be readable
// immediately after upload.
func ImagePolicy() Policy {
	return Policy{Attempts: 3, Delay: 500 * time.Millisecond, Multiplier: 2, MaxDelay: 4 * time.Second}
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Backoff returns the wait after attempt n (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(p.Delay)
	if attempt > 1 {
		delay *= math.Pow(mult, float64(attempt-1))
	}
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter && p.Rand != nil {
		delay *= 0.5 + p.Rand.Float64()
	}
	return time.Duration(delay)
}

// Do calls fn until it succeeds, fails with an error retryable rejects, or
// the attempts run out. A context error while waiting is returned as is.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if serr := sleep(ctx, p.Backoff(attempt)); serr != nil {
			return serr
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
