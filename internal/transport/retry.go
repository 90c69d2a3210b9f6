// file: internal/transport/retry.go
package transport

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/dkoosis/mcpclient/internal/mcperror"
)

// BackoffKind selects the delay growth curve between retry attempts.
type BackoffKind int

const (
	BackoffConstant BackoffKind = iota
	BackoffLinear
	BackoffExponential
	BackoffCustom
)

// Backoff is the sum type `Constant | Linear | Exponential | Custom(fn)`.
// Every arm except Custom is serializable from YAML; Custom carries a
// closure and is only ever set in code.
type Backoff struct {
	Kind BackoffKind
	Fn   func(attempt int, base time.Duration) time.Duration
}

// Delay computes the raw (pre-jitter) delay for the given 1-indexed
// attempt number.
func (b Backoff) Delay(attempt int, base time.Duration) time.Duration {
	switch b.Kind {
	case BackoffLinear:
		return base * time.Duration(attempt)
	case BackoffExponential:
		return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	case BackoffCustom:
		if b.Fn != nil {
			return b.Fn(attempt, base)
		}
		return base
	default: // BackoffConstant
		return base
	}
}

// RetryPolicy configures withRetry.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
	Backoff        Backoff
}

// DefaultRetryPolicy is a conservative exponential backoff with modest
// jitter, suitable for reconnect attempts against a flaky child process
// or SSE endpoint.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		JitterFraction: 0.1,
		Backoff:        Backoff{Kind: BackoffExponential},
	}
}

// jitter returns a symmetric uniform offset in [-frac*d, +frac*d].
func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return 0
	}
	span := float64(d) * frac
	return time.Duration(span*2*rand.Float64() - span)
}

// WithTimeout races op against a timer; on timer expiry it returns a
// mcperror.Timeout error. op is expected to respect ctx cancellation; if
// it doesn't, the goroutine leaks until op itself returns (documented
// caller responsibility, matching the teacher's context-wrapped I/O
// pattern elsewhere in the transport layer).
func WithTimeout(ctx context.Context, d time.Duration, op string, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(cctx)
	}()

	select {
	case err := <-done:
		return err
	case <-cctx.Done():
		return mcperror.Timeout(op, d)
	}
}

// WithRetry runs fn up to policy.MaxAttempts times, sleeping
// min(MaxDelay, backoff(attempt, BaseDelay) + jitter) between failures.
// The final failure is wrapped as mcperror.OperationFailed.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		delay := policy.Backoff.Delay(attempt, policy.BaseDelay) + jitter(policy.BaseDelay, policy.JitterFraction)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
		if delay < 0 {
			delay = 0
		}

		select {
		case <-ctx.Done():
			return mcperror.OperationFailed(ctx.Err())
		case <-time.After(delay):
		}
	}

	return mcperror.OperationFailed(lastErr)
}
