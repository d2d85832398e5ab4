package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/slotsync/pkg/clock"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type fakeChannel struct {
	frames chan Frame
	closed chan struct{}
	once   sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		frames: make(chan Frame, 8),
		closed: make(chan struct{}),
	}
}

func (c *fakeChannel) Next() (Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return Frame{}, io.EOF
	}
}

func (c *fakeChannel) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeChannel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	mu       sync.Mutex
	dials    int
	fail     bool
	channels chan *fakeChannel
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{channels: make(chan *fakeChannel, 16)}
}

func (d *fakeDialer) Dial(_ context.Context, _ *url.URL, _ http.Header) (Channel, error) {
	d.mu.Lock()
	d.dials++
	fail := d.fail
	d.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("connection refused")
	}
	ch := newFakeChannel()
	d.channels <- ch
	return ch, nil
}

func (d *fakeDialer) setFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = fail
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// recorder turns handler calls into a sequence of strings.
type recorder struct {
	events chan string
}

func newRecorder() *recorder {
	return &recorder{events: make(chan string, 64)}
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnConnect:      func() { r.events <- "connect" },
		OnDisconnect:   func() { r.events <- "disconnect" },
		OnReconnecting: func() { r.events <- "reconnecting" },
		OnError:        func(msg string) { r.events <- "error:" + msg },
		OnUpdate: func(u models.UpdateEvent) {
			r.events <- fmt.Sprintf("update:%d:%d:%s", u.ID, u.CurrentCapacity, u.Category)
		},
	}
}

func (r *recorder) next(t *testing.T) string {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for stream event")
		return ""
	}
}

func (r *recorder) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		require.Equal(t, w, r.next(t))
	}
}

func (r *recorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected stream event %q", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

type harness struct {
	stream *Stream
	dialer *fakeDialer
	clock  *clock.FakeClock
	rec    *recorder
	hook   *test.Hook
}

func newHarness(t *testing.T, endpoint string, opts ...Option) *harness {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{
		dialer: newFakeDialer(),
		clock:  clock.Fake(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)),
		rec:    newRecorder(),
		hook:   hook,
	}
	base := []Option{
		WithDialer(h.dialer),
		WithClock(h.clock),
		WithRandom(func() float64 { return 0 }),
		WithLogger(logrus.NewEntry(logger)),
	}
	h.stream = New(endpoint, h.rec.handlers(), append(base, opts...)...)
	t.Cleanup(h.stream.Cleanup)
	return h
}

// open connects and returns the channel handed out by the dialer.
func (h *harness) open(t *testing.T) *fakeChannel {
	t.Helper()
	h.stream.Connect()
	ch := h.nextChannel(t)
	h.rec.expect(t, "connect")
	return ch
}

func (h *harness) nextChannel(t *testing.T) *fakeChannel {
	t.Helper()
	select {
	case ch := <-h.dialer.channels:
		return ch
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for dial")
		return nil
	}
}
