// Package realtime wires the push channel to the slot store and keeps the
// user-facing connection status and notifications.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/grovetools/slotsync/errors"
	"github.com/grovetools/slotsync/logging"
	"github.com/grovetools/slotsync/pkg/clock"
	"github.com/grovetools/slotsync/pkg/metrics"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/grovetools/slotsync/pkg/slotstore"
	"github.com/grovetools/slotsync/pkg/stream"
	"github.com/sirupsen/logrus"
)

// ConnectionFactory builds the push channel around the router's handlers.
type ConnectionFactory func(handlers stream.Handlers) Connection

// StreamFactory returns a factory that opens endpoint with stream.New.
func StreamFactory(endpoint string, opts ...stream.Option) ConnectionFactory {
	return func(h stream.Handlers) Connection {
		return stream.New(endpoint, h, opts...)
	}
}

// Router applies live updates to the store and tracks connection status.
type Router struct {
	store   *slotstore.Store
	fetcher Fetcher
	conn    Connection

	clock   clock.Clock
	logger  *logrus.Entry
	metrics *metrics.Metrics

	mu           sync.Mutex
	ui           UIState
	notification *Notification
	notifyTimer  *clock.Timer
	notifyGen    uint64
	subscribers  map[chan Status]struct{}
	closed       bool

	closeOnce sync.Once
}

// Option configures a Router.
type Option func(*Router)

// WithClock sets the clock used for notification expiry.
func WithClock(c clock.Clock) Option {
	return func(r *Router) { r.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New creates a Router. factory is called once, immediately, with the
// router's handler set.
func New(store *slotstore.Store, fetcher Fetcher, factory ConnectionFactory, opts ...Option) *Router {
	r := &Router{
		store:       store,
		fetcher:     fetcher,
		clock:       clock.Real(),
		ui:          UIState{ConnectionStatus: StatusDisconnected},
		subscribers: make(map[chan Status]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewLogger("realtime")
	}
	r.conn = factory(r.handlers())
	return r
}

// Store returns the slot store the router writes to.
func (r *Router) Store() *slotstore.Store {
	return r.store
}

// GroupedSlots is the store's grouped view.
func (r *Router) GroupedSlots() []models.DateGroup {
	return r.store.GroupedByDate()
}

func (r *Router) handlers() stream.Handlers {
	return stream.Handlers{
		OnConnect:      r.handleConnect,
		OnDisconnect:   r.handleDisconnect,
		OnReconnecting: r.handleReconnecting,
		OnError:        r.handleError,
		OnUpdate:       r.handleUpdate,
	}
}

func (r *Router) handleConnect() {
	r.metrics.StreamEvent("connect")
	r.setConnection(StatusConnected, Notification{
		Message: "Real-time updates connected",
		Kind:    KindSuccess,
		Timeout: ShortTimeout,
	})
}

func (r *Router) handleDisconnect() {
	r.metrics.StreamEvent("disconnect")
	r.setConnection(StatusDisconnected, Notification{
		Message: "Real-time updates disconnected",
		Kind:    KindWarning,
		Timeout: ShortTimeout,
	})
}

func (r *Router) handleReconnecting() {
	r.metrics.StreamEvent("reconnecting")
	r.setConnection(StatusReconnecting, Notification{
		Message: "Reconnecting to real-time updates...",
		Kind:    KindInfo,
		Timeout: ShortTimeout,
	})
}

func (r *Router) handleError(msg string) {
	r.metrics.StreamEvent("error")
	r.logger.WithField("error", msg).Warn("Push channel error")
	r.setConnection(StatusDisconnected, Notification{
		Message: fmt.Sprintf("Connection error: %s", msg),
		Kind:    KindError,
		Timeout: LongTimeout,
	})
}

func (r *Router) handleUpdate(ev models.UpdateEvent) {
	if r.store.ApplyUpdate(ev) {
		r.metrics.UpdateApplied()
		r.logger.WithFields(logrus.Fields{
			"slot_id":  ev.ID,
			"capacity": ev.CurrentCapacity,
			"category": ev.Category,
		}).Debug("Applied live update")
		return
	}
	r.metrics.UpdateUnknown()
}

func (r *Router) setConnection(status ConnectionStatus, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ui.ConnectionStatus = status
	r.showNotificationLocked(n)
	r.broadcastLocked()
}

// StartRealtime opens the push channel.
func (r *Router) StartRealtime() {
	r.conn.Connect()
}

// StopRealtime closes the push channel.
func (r *Router) StopRealtime() {
	r.conn.Disconnect()
}

// Close releases the push channel without notifications, stops the
// notification timer and closes all subscriptions. Safe to call repeatedly.
func (r *Router) Close() {
	r.closeOnce.Do(func() {
		r.conn.Cleanup()

		r.mu.Lock()
		defer r.mu.Unlock()
		r.stopNotifyTimerLocked()
		r.closed = true
		for ch := range r.subscribers {
			delete(r.subscribers, ch)
			close(ch)
		}
	})
}

// Refresh performs the bulk fetch and replaces the store contents. A failed
// fetch leaves the store untouched and is not retried.
func (r *Router) Refresh(ctx context.Context) error {
	if r.fetcher == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no fetcher configured")
	}

	r.mu.Lock()
	r.ui.IsLoading = true
	r.ui.Error = ""
	r.broadcastLocked()
	r.mu.Unlock()

	start := r.clock.Now()
	slots, err := r.fetcher.FetchTimeSlots(ctx)
	r.metrics.ObserveFetch(r.clock.Now().Sub(start), err)

	if err != nil {
		msg := messageOf(err)
		r.logger.WithError(err).Error("Error loading time slots")

		r.mu.Lock()
		r.ui.IsLoading = false
		r.ui.Error = msg
		r.showNotificationLocked(Notification{
			Message: fmt.Sprintf("Error loading time slots: %s", msg),
			Kind:    KindError,
			Timeout: LongTimeout,
		})
		r.broadcastLocked()
		r.mu.Unlock()
		return err
	}

	r.store.LoadAll(slots)
	r.metrics.SetSlots(r.store.Len())
	r.logger.WithField("count", len(slots)).Info("Loaded time slots")

	r.mu.Lock()
	r.ui.IsLoading = false
	r.showNotificationLocked(Notification{
		Message: fmt.Sprintf("Loaded %d time slots", len(slots)),
		Kind:    KindSuccess,
		Timeout: ShortTimeout,
	})
	r.broadcastLocked()
	r.mu.Unlock()
	return nil
}

// UIState returns a copy of the current presentation state.
func (r *Router) UIState() UIState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ui
}

// SetError sets or, with "", clears the error shown to the user.
func (r *Router) SetError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ui.Error = msg
	r.broadcastLocked()
}

// Notification returns the current notification, if any.
func (r *Router) Notification() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notification == nil {
		return Notification{}, false
	}
	return *r.notification, true
}

// ShowNotification replaces the current notification.
func (r *Router) ShowNotification(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showNotificationLocked(n)
	r.broadcastLocked()
}

// HideNotification clears the current notification.
func (r *Router) HideNotification() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopNotifyTimerLocked()
	r.notification = nil
	r.broadcastLocked()
}

func (r *Router) showNotificationLocked(n Notification) {
	r.stopNotifyTimerLocked()
	r.notification = &n
	if r.closed || n.Timeout <= 0 {
		return
	}

	gen := r.notifyGen
	r.notifyTimer = r.clock.AfterFunc(n.Timeout, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if gen != r.notifyGen {
			return
		}
		r.notifyTimer = nil
		r.notification = nil
		r.broadcastLocked()
	})
}

func (r *Router) stopNotifyTimerLocked() {
	r.notifyGen++
	if r.notifyTimer != nil {
		r.notifyTimer.Stop()
		r.notifyTimer = nil
	}
}

// Subscribe returns a channel of status snapshots and a function that ends
// the subscription. Slow subscribers miss snapshots.
func (r *Router) Subscribe() (<-chan Status, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Status, 16)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	r.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.subscribers[ch]; ok {
				delete(r.subscribers, ch)
				close(ch)
			}
		})
	}
}

func (r *Router) broadcastLocked() {
	status := Status{UI: r.ui}
	if r.notification != nil {
		n := *r.notification
		status.Notification = &n
	}
	for ch := range r.subscribers {
		select {
		case ch <- status:
		default:
		}
	}
}

func messageOf(err error) string {
	if syncErr, ok := errors.As(err); ok {
		return syncErr.Message
	}
	return err.Error()
}
