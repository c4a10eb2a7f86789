package upgrade

import (
	"context"
	"time"

	uperrors "github.com/systmms/upshift/internal/errors"
)

// CheckFunc is one poll attempt. It returns done=true when the awaited
// condition holds, done=false to poll again after the interval, or a non-nil
// error to abort polling immediately with that error.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Poller repeatedly invokes a check at a fixed interval until it reports
// completion or a wall-clock deadline elapses. The deadline is checked before
// each invocation: a check that would start past the deadline never runs.
//
// A Poller is stateless between calls to Wait, so the same instance can be
// reused for a new deadline.
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration

	// Now and Sleep are injectable for tests. Nil means wall clock and a
	// context-aware timer sleep.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Wait polls check until done, failure, or deadline. The phase label names
// what is being awaited and is carried in the timeout error.
func (p *Poller) Wait(ctx context.Context, phase string, check CheckFunc) error {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	deadline := now().Add(p.Timeout)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if now().After(deadline) {
			return uperrors.TimeoutError{Phase: phase, Budget: p.Timeout}
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
}

// sleepContext sleeps for d or until the context is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
