package device

import (
	"context"
	"fmt"
	"time"

	"tuyastrip/internal/logging"

	"go.uber.org/zap"
)

const (
	// DefaultAttempts is the default number of attempts for a device operation
	DefaultAttempts = 3

	// DefaultDelay is the default pause between attempts
	DefaultDelay = 1 * time.Second
)

// Policy is a bounded fixed-delay retry policy: up to Attempts tries
// with Delay between them. No backoff growth, no jitter.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPolicy returns the retry policy used when no flags override it
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// Runner executes device operations under a retry policy. Every failed
// attempt is reported through OnAttempt before the next try; nothing is
// swallowed silently.
type Runner struct {
	Policy Policy

	// OnAttempt is called with the attempt number (1-based) and the
	// classified failure after each failed attempt. Optional.
	OnAttempt func(attempt int, err *OpError)

	// Sleep pauses between attempts. Defaults to a context-aware wait
	// on time.After. Injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run invokes op until it succeeds or the policy is exhausted. On
// success the result error is nil and no further attempts are made.
// On exhaustion it returns a terminal error wrapping the last observed
// failure; the runner sleeps between attempts but never after the last
// one, so N failures cost exactly N-1 sleeps.
func (r *Runner) Run(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := r.Policy.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = waitFor
	}

	var lastErr *OpError
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		lastErr = Classify(err)
		logging.Debug("Attempt failed",
			zap.Int("attempt", attempt),
			zap.String("kind", lastErr.Kind.String()),
			zap.Error(lastErr),
		)
		if r.OnAttempt != nil {
			r.OnAttempt(attempt, lastErr)
		}

		if attempt < attempts {
			if err := sleep(ctx, r.Policy.Delay); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

// waitFor sleeps for d, returning early if the context is cancelled
func waitFor(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
