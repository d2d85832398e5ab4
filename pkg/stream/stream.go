// Package stream maintains a resilient push channel: it opens the channel,
// parses inbound update frames and reconnects with exponential backoff when
// the channel drops.
package stream

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"

	"github.com/grovetools/slotsync/errors"
	"github.com/grovetools/slotsync/logging"
	"github.com/grovetools/slotsync/pkg/clock"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/sirupsen/logrus"
)

// transientErrorMessage is reported for an SSE error event without data.
const transientErrorMessage = "Connection error occurred"

// Handlers receive connection lifecycle events and updates. Nil handlers are
// skipped. Handlers are called one at a time and must not call back into the
// Stream synchronously.
type Handlers struct {
	OnConnect      func()
	OnDisconnect   func()
	OnReconnecting func()
	OnError        func(message string)
	OnUpdate       func(update models.UpdateEvent)
}

// Stream is a single push channel subscription with automatic reconnection.
type Stream struct {
	endpoint string
	handlers Handlers

	dialer      Dialer
	clock       clock.Clock
	backoff     Backoff
	maxAttempts int
	random      func() float64
	header      http.Header
	logger      *logrus.Entry

	mu       sync.Mutex
	state    State
	attempts int
	// gen fences dial goroutines, readers and timers from earlier
	// connections. Bumped on every teardown and every new attempt.
	gen     uint64
	channel Channel
	cancel  context.CancelFunc
	timer   *clock.Timer
}

// Option configures a Stream.
type Option func(*Stream)

// WithDialer replaces the scheme-based transport selection.
func WithDialer(d Dialer) Option {
	return func(s *Stream) { s.dialer = d }
}

// WithClock sets the clock used for reconnect timers.
func WithClock(c clock.Clock) Option {
	return func(s *Stream) { s.clock = c }
}

// WithBackoff sets the delay policy. A non-positive Base keeps the default.
func WithBackoff(b Backoff) Option {
	return func(s *Stream) {
		if b.Base > 0 {
			s.backoff = b
		}
	}
}

// WithMaxAttempts sets how many reconnects are tried before giving up.
func WithMaxAttempts(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRandom sets the jitter source. f must return values in [0, 1).
func WithRandom(f func() float64) Option {
	return func(s *Stream) { s.random = f }
}

// WithHeader adds request headers sent when dialing.
func WithHeader(h http.Header) Option {
	return func(s *Stream) { s.header = h.Clone() }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Stream) { s.logger = l }
}

// New creates an idle Stream for endpoint. Nothing is dialed until Connect.
func New(endpoint string, handlers Handlers, opts ...Option) *Stream {
	s := &Stream{
		endpoint:    endpoint,
		handlers:    handlers,
		dialer:      NewSchemeDialer(),
		clock:       clock.Real(),
		backoff:     DefaultBackoff,
		maxAttempts: DefaultMaxAttempts,
		random:      rand.Float64,
		header:      http.Header{},
		state:       Idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger("stream")
	}
	return s
}

// Endpoint returns the push channel URL.
func (s *Stream) Endpoint() string {
	return s.endpoint
}

// State returns the current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts returns the number of reconnects since the last open channel or
// explicit Connect.
func (s *Stream) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Connect (re)opens the channel. Any existing channel, dial or pending
// reconnect is torn down first and the attempt counter is reset.
func (s *Stream) Connect() {
	s.mu.Lock()
	old := s.teardownLocked()
	s.attempts = 0
	s.openLocked()
	s.mu.Unlock()

	s.closeChannel(old)
}

// Disconnect closes the channel, cancels any pending reconnect and reports
// OnDisconnect.
func (s *Stream) Disconnect() {
	s.mu.Lock()
	old := s.teardownLocked()
	s.state = Idle
	s.logger.Debug("Push channel disconnected")
	s.emitDisconnect()
	s.mu.Unlock()

	s.closeChannel(old)
}

// Cleanup releases everything without reporting any event.
func (s *Stream) Cleanup() {
	s.mu.Lock()
	old := s.teardownLocked()
	s.state = Idle
	s.mu.Unlock()

	s.closeChannel(old)
}

// teardownLocked clears every slot and invalidates in-flight work. The
// detached channel is returned so it can be closed without holding the
// mutex: closing may block on the peer.
func (s *Stream) teardownLocked() Channel {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	ch := s.channel
	s.channel = nil
	return ch
}

func (s *Stream) closeChannel(ch Channel) {
	if ch == nil {
		return
	}
	if err := ch.Close(); err != nil {
		s.logger.WithError(err).Debug("Error closing push channel")
	}
}

// openLocked validates the endpoint and starts an asynchronous dial.
func (s *Stream) openLocked() {
	u, err := ParseEndpoint(s.endpoint)
	if err != nil {
		s.state = Idle
		s.logger.WithError(err).Error("Failed to open push channel")
		s.emitError(messageOf(err))
		return
	}

	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = Connecting

	s.logger.WithFields(logrus.Fields{
		"endpoint": s.endpoint,
		"attempt":  s.attempts,
	}).Debug("Opening push channel")

	go s.run(ctx, gen, u)
}

// run dials and then reads frames until the channel closes or gen is
// superseded.
func (s *Stream) run(ctx context.Context, gen uint64, u *url.URL) {
	ch, err := s.dialer.Dial(ctx, u, s.header)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if ch != nil {
			_ = ch.Close()
		}
		return
	}
	if err != nil {
		s.logger.WithError(err).Warn("Push channel dial failed")
		s.closedLocked()
		s.mu.Unlock()
		return
	}
	s.channel = ch
	s.state = Open
	s.attempts = 0
	s.logger.WithField("endpoint", s.endpoint).Info("Push channel open")
	s.emitConnect()
	s.mu.Unlock()

	for {
		frame, err := ch.Next()

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.logger.WithError(err).Info("Push channel closed")
			s.channel = nil
			s.closedLocked()
			s.mu.Unlock()
			s.closeChannel(ch)
			return
		}
		s.handleFrameLocked(frame)
		s.mu.Unlock()
	}
}

// closedLocked reports the drop and starts the reconnect procedure.
func (s *Stream) closedLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.emitDisconnect()
	s.reconnectLocked()
}

func (s *Stream) reconnectLocked() {
	if s.attempts >= s.maxAttempts {
		s.state = Failed
		err := errors.MaxReconnectAttempts(s.maxAttempts)
		s.logger.WithField("attempts", s.attempts).Error("Giving up on push channel")
		s.emitError(err.Message)
		return
	}

	s.attempts++
	s.state = Reconnecting
	s.emitReconnecting()

	delay := s.backoff.Delay(s.attempts, s.random())
	s.logger.WithFields(logrus.Fields{
		"attempt":      s.attempts,
		"max_attempts": s.maxAttempts,
		"delay":        delay,
	}).Info("Scheduling reconnect")

	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.timer = nil
		s.openLocked()
	})
}

func (s *Stream) handleFrameLocked(f Frame) {
	switch f.Event {
	case "", "message":
	case "error":
		msg := string(f.Data)
		if msg == "" {
			msg = transientErrorMessage
		}
		s.logger.WithField("message", msg).Warn("Push channel reported an error")
		s.emitError(msg)
		return
	default:
		s.logger.WithField("event", f.Event).Debug("Ignoring named event")
		return
	}

	update, err := ParseUpdate(f.Data)
	if err != nil {
		s.logger.WithError(err).Warn("Dropping malformed frame")
		s.emitError(messageOf(err))
		return
	}
	s.emitUpdate(update)
}

func (s *Stream) emitConnect() {
	if s.handlers.OnConnect != nil {
		s.handlers.OnConnect()
	}
}

func (s *Stream) emitDisconnect() {
	if s.handlers.OnDisconnect != nil {
		s.handlers.OnDisconnect()
	}
}

func (s *Stream) emitReconnecting() {
	if s.handlers.OnReconnecting != nil {
		s.handlers.OnReconnecting()
	}
}

func (s *Stream) emitError(msg string) {
	if s.handlers.OnError != nil {
		s.handlers.OnError(msg)
	}
}

func (s *Stream) emitUpdate(u models.UpdateEvent) {
	if s.handlers.OnUpdate != nil {
		s.handlers.OnUpdate(u)
	}
}

// messageOf prefers the human message of a coded error.
func messageOf(err error) string {
	if syncErr, ok := errors.As(err); ok {
		return syncErr.Message
	}
	return err.Error()
}
