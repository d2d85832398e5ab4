package stream

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const endpoint = "http://feed.test/sse"

func TestConnectOpensChannel(t *testing.T) {
	h := newHarness(t, endpoint)

	assert.Equal(t, Idle, h.stream.State())
	h.open(t)

	assert.Equal(t, Open, h.stream.State())
	assert.Equal(t, 0, h.stream.Attempts())
	assert.Equal(t, 1, h.dialer.dialCount())
}

func TestUpdatesAreDelivered(t *testing.T) {
	h := newHarness(t, endpoint)
	ch := h.open(t)

	ch.frames <- Frame{Data: []byte(`{"id":2,"currentCapacity":7,"category":"yellow"}`)}
	ch.frames <- Frame{Event: "message", Data: []byte(`{"id":3,"currentCapacity":10,"category":"red"}`)}

	h.rec.expect(t, "update:2:7:yellow", "update:3:10:red")
}

func TestChannelCloseSchedulesOneReconnect(t *testing.T) {
	h := newHarness(t, endpoint)
	ch := h.open(t)

	ch.Close()

	h.rec.expect(t, "disconnect", "reconnecting")
	h.clock.WaitForTimers(1)
	h.rec.expectNone(t)

	assert.Equal(t, 1, h.clock.Pending())
	assert.Equal(t, Reconnecting, h.stream.State())
	assert.Equal(t, 1, h.stream.Attempts())

	// First retry waits Base * 2^0 with zero jitter
	h.clock.Advance(999 * time.Millisecond)
	assert.Equal(t, 1, h.dialer.dialCount())

	h.clock.Advance(time.Millisecond)
	h.nextChannel(t)
	h.rec.expect(t, "connect")

	assert.Equal(t, Open, h.stream.State())
	assert.Equal(t, 0, h.stream.Attempts(), "an open channel resets the attempt counter")
	assert.Equal(t, 0, h.clock.Pending())
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t, endpoint)
	h.dialer.setFail(true)

	h.stream.Connect()
	h.rec.expect(t, "disconnect", "reconnecting")

	for attempt := 1; attempt <= DefaultMaxAttempts; attempt++ {
		h.clock.WaitForTimers(1)
		h.clock.Advance(DefaultBackoff.Delay(attempt, 0))

		if attempt < DefaultMaxAttempts {
			h.rec.expect(t, "disconnect", "reconnecting")
		}
	}

	h.rec.expect(t, "disconnect", "error:max reconnection attempts (5) reached")
	h.rec.expectNone(t)

	assert.Equal(t, DefaultMaxAttempts+1, h.dialer.dialCount())
	assert.Equal(t, Failed, h.stream.State())
	assert.Equal(t, 0, h.clock.Pending())

	// Nothing else happens on its own
	h.clock.Advance(time.Hour)
	h.rec.expectNone(t)
	assert.Equal(t, DefaultMaxAttempts+1, h.dialer.dialCount())
}

func TestConnectFromFailedResetsAttempts(t *testing.T) {
	h := newHarness(t, endpoint, WithMaxAttempts(1))
	h.dialer.setFail(true)

	h.stream.Connect()
	h.rec.expect(t, "disconnect", "reconnecting")
	h.clock.WaitForTimers(1)
	h.clock.Advance(time.Second)
	h.rec.expect(t, "disconnect", "error:max reconnection attempts (1) reached")
	require.Equal(t, Failed, h.stream.State())

	h.dialer.setFail(false)
	h.open(t)

	assert.Equal(t, Open, h.stream.State())
	assert.Equal(t, 0, h.stream.Attempts())
}

func TestExplicitConnectResetsAttemptsWhileReconnecting(t *testing.T) {
	h := newHarness(t, endpoint)
	h.dialer.setFail(true)

	h.stream.Connect()
	h.rec.expect(t, "disconnect", "reconnecting")
	h.clock.WaitForTimers(1)
	h.clock.Advance(time.Second)
	h.rec.expect(t, "disconnect", "reconnecting")
	h.clock.WaitForTimers(1)
	require.Equal(t, 2, h.stream.Attempts())

	h.stream.Connect()
	h.rec.expect(t, "disconnect", "reconnecting")
	h.clock.WaitForTimers(1)
	assert.Equal(t, 1, h.stream.Attempts())
	assert.Equal(t, 1, h.clock.Pending(), "the previous timer must be cancelled")
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	h := newHarness(t, endpoint)
	ch := h.open(t)

	ch.Close()
	h.rec.expect(t, "disconnect", "reconnecting")
	h.clock.WaitForTimers(1)

	h.stream.Disconnect()
	h.rec.expect(t, "disconnect")

	assert.Equal(t, 0, h.clock.Pending())
	h.clock.Advance(time.Minute)
	h.rec.expectNone(t)

	assert.Equal(t, 1, h.dialer.dialCount())
	assert.Equal(t, Idle, h.stream.State())
}

func TestDisconnectClosesOpenChannel(t *testing.T) {
	h := newHarness(t, endpoint)
	ch := h.open(t)

	h.stream.Disconnect()
	h.rec.expect(t, "disconnect")
	h.rec.expectNone(t)

	assert.True(t, ch.isClosed())
	assert.Equal(t, Idle, h.stream.State())
	assert.Equal(t, 0, h.clock.Pending())
}

func TestInvalidPayloadKeepsChannelOpen(t *testing.T) {
	h := newHarness(t, endpoint)
	ch := h.open(t)

	ch.frames <- Frame{Data: []byte("not json")}
	h.rec.expect(t, "error:invalid data received from server")

	ch.frames <- Frame{Data: []byte(`{"currentCapacity":1}`)}
	h.rec.expect(t, "error:invalid data received from server")

	ch.frames <- Frame{Data: []byte(`{"id":1,"currentCapacity":4,"category":"green"}`)}
	h.rec.expect(t, "update:1:4:green")

	assert.Equal(t, Open, h.stream.State())
	assert.False(t, ch.isClosed())
}

func TestTransientErrorLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, endpoint)
	ch := h.open(t)

	ch.frames <- Frame{Event: "error"}
	h.rec.expect(t, "error:Connection error occurred")

	ch.frames <- Frame{Event: "error", Data: []byte("upstream hiccup")}
	h.rec.expect(t, "error:upstream hiccup")

	ch.frames <- Frame{Event: "heartbeat", Data: []byte("{}")}
	h.rec.expectNone(t)

	assert.Equal(t, Open, h.stream.State())
	assert.Equal(t, 0, h.clock.Pending())
}

func TestInvalidEndpointIsNotRetried(t *testing.T) {
	for _, ep := range []string{"ftp://feed.test/sse", "", "http://"} {
		t.Run(ep, func(t *testing.T) {
			h := newHarness(t, ep)
			h.stream.Connect()

			ev := h.rec.next(t)
			assert.True(t, strings.HasPrefix(ev, "error:cannot open push channel"), ev)
			h.rec.expectNone(t)

			assert.Equal(t, Idle, h.stream.State())
			assert.Equal(t, 0, h.dialer.dialCount())
			assert.Equal(t, 0, h.clock.Pending())
		})
	}
}

func TestConnectWhileOpenReplacesChannel(t *testing.T) {
	h := newHarness(t, endpoint)
	first := h.open(t)

	second := h.open(t)
	h.rec.expectNone(t)

	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())
	assert.Equal(t, 2, h.dialer.dialCount())

	// Frames on the replaced channel are never delivered
	first.frames <- Frame{Data: []byte(`{"id":1,"currentCapacity":1}`)}
	h.rec.expectNone(t)
}

func TestCleanupIsSilent(t *testing.T) {
	h := newHarness(t, endpoint)
	ch := h.open(t)

	ch.Close()
	h.rec.expect(t, "disconnect", "reconnecting")
	h.clock.WaitForTimers(1)

	h.stream.Cleanup()
	h.rec.expectNone(t)

	assert.Equal(t, Idle, h.stream.State())
	assert.Equal(t, 0, h.clock.Pending())
	h.clock.Advance(time.Minute)
	assert.Equal(t, 1, h.dialer.dialCount())
}

func TestNilHandlersAreSkipped(t *testing.T) {
	d := newFakeDialer()
	s := New(endpoint, Handlers{}, WithDialer(d))
	defer s.Cleanup()

	s.Connect()
	ch := <-d.channels
	ch.frames <- Frame{Data: []byte("garbage")}

	require.Eventually(t, func() bool { return s.State() == Open }, waitTimeout, 5*time.Millisecond)
	s.Disconnect()
	assert.Equal(t, Idle, s.State())
}

// stuckChannel blocks in Close until released, like a peer that never
// acknowledges the close frame.
type stuckChannel struct {
	*fakeChannel
	closing chan struct{}
	release chan struct{}
}

func (c *stuckChannel) Close() error {
	select {
	case c.closing <- struct{}{}:
	default:
	}
	<-c.release
	return c.fakeChannel.Close()
}

func TestSlowCloseDoesNotBlockTheStream(t *testing.T) {
	ch := &stuckChannel{
		fakeChannel: newFakeChannel(),
		closing:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	dialer := DialerFunc(func(context.Context, *url.URL, http.Header) (Channel, error) {
		return ch, nil
	})
	h := newHarness(t, endpoint, WithDialer(dialer))

	h.stream.Connect()
	h.rec.expect(t, "connect")

	done := make(chan struct{})
	go func() {
		h.stream.Disconnect()
		close(done)
	}()

	select {
	case <-ch.closing:
	case <-time.After(waitTimeout):
		t.Fatal("channel was never closed")
	}

	// Close is still in progress; the stream must stay usable
	h.rec.expect(t, "disconnect")
	state := make(chan State, 1)
	go func() { state <- h.stream.State() }()
	select {
	case st := <-state:
		assert.Equal(t, Idle, st)
	case <-time.After(waitTimeout):
		t.Fatal("State blocked behind a closing channel")
	}

	close(ch.release)
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("Disconnect did not return")
	}
	assert.True(t, ch.isClosed())
	h.rec.expectNone(t)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "reconnecting", Reconnecting.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(42).String())
}
