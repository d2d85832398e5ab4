// Package clock provides an injectable time source so that reconnect
// backoff, notification expiry and feed tickers can be driven
// deterministically in tests.
//
// Production code uses Real(). Tests use Fake() and call Advance to fire
// pending timers:
//
//	c := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
//	s := stream.New(url, handlers, stream.WithClock(c))
//	c.WaitForTimers(1)
//	c.Advance(2 * time.Second)
package clock

import "time"

// Clock abstracts the subset of the time package used by slotsync.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f in its own goroutine (real) or synchronously
	// during Advance (fake) once d has elapsed.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker delivers ticks on C every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the timer from firing. It returns false if the timer
// already fired or was stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Ticker delivers periodic ticks on C. C has capacity 1; ticks are
// dropped when the consumer falls behind.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. C is not closed.
func (t *Ticker) Stop() { t.stopFunc() }
