package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDownstream = errors.New("downstream unavailable")

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return Retryable(errDownstream)
		}
		return nil
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond), WithJitter(0))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsAttemptsAndUnwraps(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Retryable(errDownstream)
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond), WithJitter(0))

	assert.ErrorIs(t, err, errDownstream)
	assert.Equal(t, 3, attempts)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(errDownstream)
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, errDownstream)
	assert.Equal(t, 1, attempts)
}

func TestDo_PlainErrorIsNotRetriedByDefault(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errDownstream
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, errDownstream)
	assert.Equal(t, 1, attempts)
}

func TestDo_RetryIfOverridesClassification(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errDownstream
		}
		return nil
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond), WithJitter(0),
		WithRetryIf(func(err error) bool { return true }))

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return Retryable(errDownstream)
	}, WithMaxAttempts(10), WithInitialDelay(time.Hour))

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoWithData_ReturnsValue(t *testing.T) {
	attempts := 0
	got, err := DoWithData(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, Retryable(errDownstream)
		}
		return 42, nil
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond), WithJitter(0))

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var seen []int
	_ = Do(context.Background(), func(ctx context.Context) error {
		return Retryable(errDownstream)
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond), WithJitter(0),
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			seen = append(seen, attempt)
		}))

	// Final attempt does not trigger the callback.
	assert.Equal(t, []int{1, 2}, seen)
}

func TestCalculateDelay_ExponentialAndCapped(t *testing.T) {
	r := New(
		WithInitialDelay(100*time.Millisecond),
		WithMultiplier(2.0),
		WithMaxDelay(300*time.Millisecond),
		WithJitter(0),
	)

	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(3))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(8))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsRetryable(Retryable(errDownstream)))
	assert.False(t, IsRetryable(errDownstream))
	assert.False(t, IsRetryable(nil))

	assert.True(t, IsPermanent(Permanent(errDownstream)))
	assert.False(t, IsPermanent(errDownstream))

	assert.ErrorIs(t, Retryable(errDownstream), errDownstream)
	assert.ErrorIs(t, Permanent(errDownstream), errDownstream)
	assert.Nil(t, Retryable(nil))
	assert.Nil(t, Permanent(nil))
}
