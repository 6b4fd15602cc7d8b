package orchestrator

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Run processes conversations until ctx is done. Idle cycles back off
// exponentially up to the configured maximum; any other cycle resets it.
// Infrastructure errors are logged and retried with the same backoff.
func (o *Orchestrator) Run(ctx context.Context) error {
	b := o.newIdleBackoff()

	for {
		if err := ctx.Err(); err != nil {
			return nil //nolint:nilerr // cancellation is the normal shutdown path
		}

		rep, err := o.RunCycle(ctx)

		var wait time.Duration
		switch {
		case err != nil:
			wait = b.NextBackOff()
			o.logger.Warn("Cycle error, backing off", zap.Duration("wait", wait), zap.Error(err))
		case rep.State == StateIdle:
			wait = b.NextBackOff()
			o.logger.Debug("No work available", zap.Duration("wait", wait))
		default:
			b.Reset()
			wait = o.cyclePause
		}

		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (o *Orchestrator) newIdleBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.RandomizationFactor = 0.2
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = o.idleBackoffMax
	b.MaxElapsedTime = 0 // never stop
	if b.InitialInterval > b.MaxInterval {
		b.InitialInterval = b.MaxInterval
	}
	b.Reset()
	return b
}
