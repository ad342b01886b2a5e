package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errChannel = errors.New("channel down")

// fakeNow is a controllable time source for breaker timeouts.
type fakeNow struct {
	t time.Time
}

func (f *fakeNow) now() time.Time          { return f.t }
func (f *fakeNow) advance(d time.Duration) { f.t = f.t.Add(d) }

func newBreaker(opts ...Option) (*CircuitBreaker, *fakeNow) {
	fn := &fakeNow{t: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)}
	opts = append(opts, WithNow(fn.now))
	return New("test", opts...), fn
}

func fail(ctx context.Context) error { return errChannel }
func ok(ctx context.Context) error   { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newBreaker(WithFailureThreshold(3), WithTimeout(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, fail)
		assert.ErrorIs(t, err, errChannel)
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.True(t, cb.IsOpen())

	err := cb.Execute(ctx, ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newBreaker(WithFailureThreshold(3))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	require.Error(t, cb.Execute(ctx, fail))
	require.NoError(t, cb.Execute(ctx, ok))
	require.Error(t, cb.Execute(ctx, fail))
	require.Error(t, cb.Execute(ctx, fail))

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newBreaker(
		WithFailureThreshold(2),
		WithSuccessThreshold(1),
		WithTimeout(time.Minute),
	)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, StateOpen, cb.State())

	clock.advance(61 * time.Second)

	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newBreaker(
		WithFailureThreshold(2),
		WithTimeout(time.Minute),
	)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	require.Error(t, cb.Execute(ctx, fail))

	clock.advance(61 * time.Second)

	require.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_ExecuteWithFallback(t *testing.T) {
	cb, _ := newBreaker(WithFailureThreshold(1), WithTimeout(time.Minute))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.ExecuteWithFallback(ctx, ok, func(cause error) error {
		called = true
		assert.ErrorIs(t, cause, ErrCircuitOpen)
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestBreaker_Reset(t *testing.T) {
	cb, _ := newBreaker(WithFailureThreshold(1))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	require.NoError(t, cb.Execute(ctx, ok))
}

func TestBreaker_IsFailureFilter(t *testing.T) {
	cb, _ := newBreaker(
		WithFailureThreshold(1),
		WithIsFailure(func(err error) bool { return !errors.Is(err, context.Canceled) }),
	)
	ctx := context.Background()

	// Cancellations are not counted as channel failures.
	err := cb.Execute(ctx, func(ctx context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	fn := &fakeNow{t: time.Now()}

	cb := New("notify",
		WithNow(fn.now),
		WithFailureThreshold(1),
		WithTimeout(time.Minute),
		WithOnStateChange(func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)

	require.Error(t, cb.Execute(context.Background(), fail))
	assert.Equal(t, []string{"closed->open"}, transitions)
}
