package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/goerr/v2"
)

// ErrExhausted is returned by Do when every attempt completed without the
// operation reporting done.
var ErrExhausted = goerr.New("retry attempts exhausted")

// Policy bounds a retry loop: a fixed attempt budget plus a delay schedule
// applied between attempts.
type Policy struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Constant returns a policy with a fixed delay between attempts.
func Constant(attempts int, interval time.Duration) Policy {
	return Policy{Attempts: attempts, Initial: interval, Max: interval, Multiplier: 1}
}

// Exponential returns a policy whose delay doubles each attempt, capped
// at max.
func Exponential(attempts int, initial, max time.Duration) Policy {
	return Policy{Attempts: attempts, Initial: initial, Max: max, Multiplier: 2}
}

func (p Policy) schedule() backoff.BackOff {
	if p.Multiplier <= 1 {
		return backoff.NewConstantBackOff(p.Initial)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Do runs op until it reports done, returns an error, the attempt budget
// is spent, or ctx is cancelled. op returning (v, true, nil) stops the
// loop with v; a non-nil error aborts immediately. When the budget runs
// out, Do returns ErrExhausted.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, bool, error)) (T, error) {
	var zero T
	sched := p.schedule()

	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 {
			delay := sched.NextBackOff()
			if delay == backoff.Stop {
				break
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, goerr.Wrap(ctx.Err(), "retry cancelled")
			}
		}

		v, done, err := op(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return v, nil
		}
	}

	return zero, goerr.Wrap(ErrExhausted, "gave up", goerr.V("attempts", p.Attempts))
}
