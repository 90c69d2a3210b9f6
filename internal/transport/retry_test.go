// file: internal/transport/retry_test.go
package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/mcpclient/internal/mcperror"
)

func TestBackoffDelay(t *testing.T) {
	base := 100 * time.Millisecond

	assert.Equal(t, base, Backoff{Kind: BackoffConstant}.Delay(1, base))
	assert.Equal(t, base, Backoff{Kind: BackoffConstant}.Delay(5, base))

	assert.Equal(t, 3*base, Backoff{Kind: BackoffLinear}.Delay(3, base))

	assert.Equal(t, base, Backoff{Kind: BackoffExponential}.Delay(1, base))
	assert.Equal(t, 2*base, Backoff{Kind: BackoffExponential}.Delay(2, base))
	assert.Equal(t, 4*base, Backoff{Kind: BackoffExponential}.Delay(3, base))

	custom := Backoff{Kind: BackoffCustom, Fn: func(attempt int, base time.Duration) time.Duration {
		return base + time.Duration(attempt)*time.Millisecond
	}}
	assert.Equal(t, base+2*time.Millisecond, custom.Delay(2, base))
}

func TestWithRetrySucceedsBeforeMaxAttempts(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, Backoff: Backoff{Kind: BackoffConstant}}

	err := WithRetry(context.Background(), policy, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return assertErr
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAndWrapsFinalError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, Backoff: Backoff{Kind: BackoffConstant}}

	err := WithRetry(context.Background(), policy, func(ctx context.Context) error {
		return assertErr
	})

	require.Error(t, err)
	assert.True(t, mcperror.IsConnectionClosed(err) == false)
}

func TestWithTimeoutExpires(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "test-op", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	require.Error(t, err)
	assert.True(t, mcperror.IsTimeout(err))
}

func TestWithTimeoutSucceeds(t *testing.T) {
	err := WithTimeout(context.Background(), time.Second, "test-op", func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

var assertErr = mcperror.InvalidState("mock failure for retry test")
