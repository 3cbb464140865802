package connection

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dmitrymomot/notifysync/pkg/transport"
)

// Policy controls reconnection.
type Policy struct {
	// AutoReconnect enables retries after a failed open or an unexpected close.
	AutoReconnect bool
	// DelayMin is the delay before the first retry.
	DelayMin time.Duration
	// DelayMax caps the delay.
	DelayMax time.Duration
	// MaxAttempts is the number of consecutive failed opens after which the
	// manager gives up. Zero means unlimited.
	MaxAttempts int
}

// DefaultPolicy matches transport.DefaultOptions.
func DefaultPolicy() Policy {
	return PolicyFromOptions(transport.DefaultOptions())
}

// PolicyFromOptions extracts the reconnect settings from transport options.
func PolicyFromOptions(o transport.Options) Policy {
	return Policy{
		AutoReconnect: o.AutoReconnect,
		DelayMin:      o.ReconnectDelayMin,
		DelayMax:      o.ReconnectDelayMax,
		MaxAttempts:   o.MaxReconnectAttempts,
	}
}

// Delay returns the wait before the next attempt after the given number of
// consecutive failures: DelayMin doubled per extra failure, capped at DelayMax.
func (p Policy) Delay(failures int) time.Duration {
	if p.DelayMin <= 0 {
		return 0
	}
	b := p.newBackOff()
	d := b.NextBackOff()
	for i := 1; i < failures; i++ {
		d = b.NextBackOff()
	}
	return d
}

// newBackOff returns a jitter-free exponential backoff that never stops on
// its own; the attempt budget is enforced by Exhausted.
func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	maxInterval := p.DelayMax
	if maxInterval <= 0 {
		maxInterval = time.Duration(math.MaxInt64)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = max(min(p.DelayMin, maxInterval), 0)
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Exhausted reports whether failures used up the attempt budget.
func (p Policy) Exhausted(failures int) bool {
	if !p.AutoReconnect {
		return true
	}
	return p.MaxAttempts > 0 && failures >= p.MaxAttempts
}
