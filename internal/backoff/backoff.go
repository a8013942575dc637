// Package backoff implements the exponential backoff schedule used for
// transport connect/auth retries (spec §4.1: 2s start, 15s cap, ±10% jitter,
// 5 retries after the first try, so 6 attempts in all). Not modeled on any example repo's backoff package — the
// example pack has no standalone backoff library (see DESIGN.md) — so this
// is a small, self-contained helper rather than a new third-party dep.
package backoff

import (
	"math/rand"
	"time"
)

// Policy configures a retry schedule.
type Policy struct {
	Start      time.Duration
	Max        time.Duration
	Jitter     float64 // fraction, e.g. 0.1 for ±10%
	MaxRetries int
}

// Default is the policy mandated by spec §4.1 for connect/auth retries.
var Default = Policy{
	Start:      2 * time.Second,
	Max:        15 * time.Second,
	Jitter:     0.10,
	MaxRetries: 5,
}

// Delay returns the backoff delay before retry attempt n (1-indexed: the
// delay waited before the first retry, i.e. after the first failure).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Start
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > p.Max {
			d = p.Max
			break
		}
	}
	if d > p.Max {
		d = p.Max
	}
	if p.Jitter > 0 {
		delta := float64(d) * p.Jitter
		d = d + time.Duration((rand.Float64()*2-1)*delta)
		if d < 0 {
			d = 0
		}
	}
	return d
}

// Retry runs fn up to p.MaxRetries+1 times, sleeping per Delay between
// attempts, stopping early if ctx-style cancellation is signalled via the
// shouldStop callback (checked before each sleep). fn's error is returned
// unwrapped from the final attempt.
func Retry(p Policy, shouldStop func() bool, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxRetries+1; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt > p.MaxRetries {
			break
		}
		if shouldStop != nil && shouldStop() {
			break
		}
		time.Sleep(p.Delay(attempt))
	}
	return lastErr
}
