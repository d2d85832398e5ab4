package stream

import (
	"time"
)

// DefaultMaxAttempts is the number of reconnects tried before giving up.
const DefaultMaxAttempts = 5

// Backoff computes reconnect delays: exponential growth from Base, capped at
// Max, plus up to Jitter of random spread.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration
}

// DefaultBackoff is 1s doubling up to 30s with 1s of jitter.
var DefaultBackoff = Backoff{
	Base:   time.Second,
	Max:    30 * time.Second,
	Jitter: time.Second,
}

// Delay returns the wait before reconnect attempt n (1-indexed) given a
// random sample r in [0, 1):
//
//	min(Base * 2^(n-1), Max) + r * Jitter
func (b Backoff) Delay(n int, r float64) time.Duration {
	if n < 1 {
		n = 1
	}
	if r < 0 {
		r = 0
	} else if r >= 1 {
		r = 0.999999
	}

	d := b.Base
	for i := 1; i < n && (b.Max <= 0 || d < b.Max); i++ {
		d *= 2
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}

	return d + time.Duration(r*float64(b.Jitter))
}
