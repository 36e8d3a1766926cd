// Package retry runs an operation under an explicit attempt budget.
//
// A Policy is a plain value handed to whoever needs it, so callers and tests
// decide the number of attempts, the wait between them and how the wait is
// performed. Scheduling is delegated to cenkalti/backoff; this package adds
// the attempt accounting the callers report on.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var ErrExhausted = errors.New("retry attempts exhausted")

// BackoffFunc builds a fresh schedule for one Do call.
type BackoffFunc func() backoff.BackOff

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// AttemptFunc is one try. attempt is 1-based.
type AttemptFunc func(ctx context.Context, attempt int) error

type Policy struct {
	MaxAttempts    int
	Backoff        BackoffFunc
	AttemptTimeout time.Duration
	Sleep          SleepFunc
}

// Exponential doubles base after every failed attempt: base, 2*base, 4*base...
// There is no jitter and no elapsed-time cap; the attempt budget bounds the run.
func Exponential(base time.Duration) BackoffFunc {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = base
		b.Multiplier = 2
		b.RandomizationFactor = 0
		b.MaxElapsedTime = 0
		b.MaxInterval = max(b.MaxInterval, base<<6)
		b.Reset()
		return b
	}
}

func NoBackoff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Permanent marks err so Do returns it without spending the remaining attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// ExhaustedError carries every attempt's failure. It matches ErrExhausted and the last error.
type ExhaustedError struct {
	Attempts int
	Errors   []error
}

func (e *ExhaustedError) Last() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for i, err := range e.Errors {
		parts = append(parts, fmt.Sprintf("attempt %d: %v", i+1, err))
	}
	return fmt.Sprintf("%s after %d attempts: %s", ErrExhausted, e.Attempts, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Unwrap() []error {
	if last := e.Last(); last != nil {
		return []error{ErrExhausted, last}
	}
	return []error{ErrExhausted}
}

// sleepTimer satisfies backoff.Timer on top of a SleepFunc so tests can
// observe the waits without real time passing. A failed sleep cancels the run.
type sleepTimer struct {
	ctx   context.Context
	sleep SleepFunc
	fail  context.CancelCauseFunc
	c     chan time.Time
}

func newSleepTimer(ctx context.Context, sleep SleepFunc, fail context.CancelCauseFunc) *sleepTimer {
	return &sleepTimer{ctx: ctx, sleep: sleep, fail: fail, c: make(chan time.Time, 1)}
}

func (t *sleepTimer) Start(d time.Duration) {
	if d > 0 {
		if err := t.sleep(t.ctx, d); err != nil {
			t.fail(err)
			return
		}
	}
	t.c <- time.Now()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time { return t.c }

// Do calls fn until it succeeds, returns a Permanent error, ctx ends or the
// attempts run out. A per-attempt timeout counts as an ordinary failure.
func (p Policy) Do(ctx context.Context, fn AttemptFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	newBackoff := p.Backoff
	if newBackoff == nil {
		newBackoff = NoBackoff
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// MaxRetries counts waits, one fewer than attempts.
	schedule := backoff.WithContext(backoff.WithMaxRetries(newBackoff(), uint64(maxAttempts-1)), runCtx)

	exhausted := &ExhaustedError{}
	stopped := false
	operation := func() error {
		if err := context.Cause(runCtx); err != nil {
			stopped = true
			return backoff.Permanent(err)
		}
		attempt := exhausted.Attempts + 1

		attemptCtx, cancelAttempt := runCtx, context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			attemptCtx, cancelAttempt = context.WithTimeout(runCtx, p.AttemptTimeout)
		}
		err := fn(attemptCtx, attempt)
		cancelAttempt()
		if err == nil {
			return nil
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			stopped = true
			return err
		}
		exhausted.Attempts = attempt
		exhausted.Errors = append(exhausted.Errors, err)
		return err
	}

	err := backoff.RetryNotifyWithTimer(operation, schedule, nil, newSleepTimer(runCtx, sleep, cancel))
	switch {
	case err == nil:
		return nil
	case stopped:
		return err
	}
	// Parent cancellation or a failed wait ends the run early.
	if cause := context.Cause(runCtx); cause != nil {
		return cause
	}
	return exhausted
}
