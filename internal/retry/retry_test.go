package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSleeper struct {
	waits []time.Duration
}

func (f *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	f.waits = append(f.waits, d)
	return nil
}

func TestPolicyDo(t *testing.T) {
	t.Run("succeeds on third attempt with exponential waits", func(t *testing.T) {
		sleeper := &fakeSleeper{}
		p := Policy{MaxAttempts: 3, Backoff: Exponential(time.Second), Sleep: sleeper.Sleep}

		calls := 0
		err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
			calls++
			if attempt < 3 {
				return errors.New("backend down")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.waits)
	})

	t.Run("exhaustion wraps last error", func(t *testing.T) {
		sleeper := &fakeSleeper{}
		p := Policy{MaxAttempts: 3, Backoff: Exponential(time.Second), Sleep: sleeper.Sleep}
		lastErr := errors.New("third failure")

		calls := 0
		err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
			calls++
			if attempt == 3 {
				return lastErr
			}
			return errors.New("failure")
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, ErrExhausted)
		assert.ErrorIs(t, err, lastErr)
		var ex *ExhaustedError
		require.ErrorAs(t, err, &ex)
		assert.Len(t, ex.Errors, 3)
		assert.Len(t, sleeper.waits, 2, "no wait after the final attempt")
	})

	t.Run("permanent error stops early", func(t *testing.T) {
		notFound := errors.New("not found")
		calls := 0
		err := Policy{MaxAttempts: 3}.Do(context.Background(), func(_ context.Context, _ int) error {
			calls++
			return Permanent(notFound)
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, notFound)
		assert.NotErrorIs(t, err, ErrExhausted)
	})

	t.Run("attempt timeout consumes a slot", func(t *testing.T) {
		p := Policy{MaxAttempts: 2, AttemptTimeout: 5 * time.Millisecond}
		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context, _ int) error {
			calls++
			<-ctx.Done()
			return ctx.Err()
		})
		assert.Equal(t, 2, calls)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorIs(t, err, ErrExhausted)
	})

	t.Run("failed wait ends the run", func(t *testing.T) {
		interrupted := errors.New("interrupted")
		sleep := func(context.Context, time.Duration) error { return interrupted }
		p := Policy{MaxAttempts: 3, Backoff: Exponential(time.Second), Sleep: sleep}

		calls := 0
		err := p.Do(context.Background(), func(_ context.Context, _ int) error {
			calls++
			return errors.New("backend down")
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, interrupted)
		assert.NotErrorIs(t, err, ErrExhausted)
	})

	t.Run("zero attempts still tries once", func(t *testing.T) {
		calls := 0
		err := Policy{}.Do(context.Background(), func(_ context.Context, attempt int) error {
			calls++
			assert.Equal(t, 1, attempt)
			return errors.New("down")
		})
		assert.Equal(t, 1, calls)
		var ex *ExhaustedError
		require.ErrorAs(t, err, &ex)
		assert.Equal(t, 1, ex.Attempts)
	})

	t.Run("attempt numbers are passed in order", func(t *testing.T) {
		sleeper := &fakeSleeper{}
		var seen []int
		_ = Policy{MaxAttempts: 4, Backoff: Exponential(10 * time.Millisecond), Sleep: sleeper.Sleep}.
			Do(context.Background(), func(_ context.Context, attempt int) error {
				seen = append(seen, attempt)
				return errors.New("down")
			})
		assert.Equal(t, []int{1, 2, 3, 4}, seen)
		assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, sleeper.waits)
	})

	t.Run("cancelled parent context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := Policy{MaxAttempts: 3}.Do(ctx, func(_ context.Context, _ int) error {
			calls++
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}

func TestExponential(t *testing.T) {
	b := Exponential(time.Second)()
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())

	b.Reset()
	assert.Equal(t, time.Second, b.NextBackOff(), "reset restarts the schedule")
}

func TestNoBackoff(t *testing.T) {
	assert.Zero(t, NoBackoff().NextBackOff())
}
