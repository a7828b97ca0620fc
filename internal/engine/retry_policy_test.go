package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floworc/engine/internal/apperr"
)

func TestNodeBackoff_FollowsMinTwoToTheKAndTen(t *testing.T) {
	assert.Equal(t, 1*time.Second, NodeBackoff(0))
	assert.Equal(t, 2*time.Second, NodeBackoff(1))
	assert.Equal(t, 4*time.Second, NodeBackoff(2))
	assert.Equal(t, 8*time.Second, NodeBackoff(3))
	assert.Equal(t, 10*time.Second, NodeBackoff(4))
	assert.Equal(t, 10*time.Second, NodeBackoff(10))
}

func TestRetryPolicy_ExecuteSucceedsWithoutRetry(t *testing.T) {
	rp := DefaultRetryPolicy()
	calls := 0
	err := rp.Execute(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ExecuteRetriesUpToMaxAttempts(t *testing.T) {
	rp := &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffStrategy: BackoffConstant}
	calls := 0
	err := rp.Execute(context.Background(), func() error {
		calls++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_ShouldRetryFiltersByPattern(t *testing.T) {
	rp := &RetryPolicy{RetryableErrors: []string{"timeout"}}
	assert.True(t, rp.ShouldRetry(errors.New("request timeout")))
	assert.False(t, rp.ShouldRetry(errors.New("permission denied")))
	assert.False(t, rp.ShouldRetry(nil))
}

func TestRetryPolicy_GetDelayExponentialCapsAtMaxDelay(t *testing.T) {
	rp := &RetryPolicy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffStrategy: BackoffExponential}
	assert.Equal(t, time.Duration(0), rp.GetDelay(0))
	assert.Equal(t, time.Second, rp.GetDelay(1))
	assert.Equal(t, 2*time.Second, rp.GetDelay(2))
	assert.Equal(t, 4*time.Second, rp.GetDelay(3))
	assert.Equal(t, 5*time.Second, rp.GetDelay(4))
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.False(t, IsRetryableError(context.DeadlineExceeded))
	assert.True(t, IsRetryableError(errors.New("connection reset")))
}

func TestIsRetryableError_JudgesApperrByKind(t *testing.T) {
	assert.False(t, IsRetryableError(apperr.Validation("bad payload", nil)))
	assert.False(t, IsRetryableError(apperr.NotFound("no such job", nil)))
	assert.False(t, IsRetryableError(apperr.Auth("missing token", nil)))
	assert.True(t, IsRetryableError(apperr.Transport("dial failed", errors.New("dial tcp"))))
	assert.True(t, IsRetryableError(apperr.Handler("action failed", errors.New("boom"))))
	assert.True(t, IsRetryableError(apperr.Scheduler("dispatch failed", errors.New("boom"))))
}

func TestHTTPJobRetryPolicy_DefaultsAndOverridesMaxAttempts(t *testing.T) {
	rp := HTTPJobRetryPolicy(0)
	assert.Equal(t, 3, rp.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, rp.InitialDelay)
	assert.Equal(t, 5*time.Second, rp.MaxDelay)

	rp = HTTPJobRetryPolicy(7)
	assert.Equal(t, 7, rp.MaxAttempts)
}
