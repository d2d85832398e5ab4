package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/slotsync/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEChannelParsing(t *testing.T) {
	body := strings.Join([]string{
		": connected",
		"",
		`data: {"id":1,"currentCapacity":2}`,
		"",
		"event: error",
		"data: upstream",
		"",
		"id: 9",
		"retry: 1000",
		"data: line one",
		"data:line two",
		"",
		"event: ping",
		"",
		"data: trailing without blank line",
	}, "\r\n")

	ch := newSSEChannel(io.NopCloser(strings.NewReader(body)))

	f, err := ch.Next()
	require.NoError(t, err)
	assert.Equal(t, Frame{Data: []byte(`{"id":1,"currentCapacity":2}`)}, f)

	f, err = ch.Next()
	require.NoError(t, err)
	assert.Equal(t, "error", f.Event)
	assert.Equal(t, "upstream", string(f.Data))

	f, err = ch.Next()
	require.NoError(t, err)
	assert.Equal(t, "", f.Event)
	assert.Equal(t, "line one\nline two", string(f.Data))

	// An event without a terminating blank line is never dispatched
	_, err = ch.Next()
	assert.Equal(t, io.EOF, err)
}

func sseHandler(frames []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
		}
		w.(http.Flusher).Flush()
	}
}

func TestSSEDialer(t *testing.T) {
	var gotAccept, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		sseHandler([]string{`{"id":1,"currentCapacity":5}`})(w, r)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL + "/sse")
	ch, err := NewSSEDialer(nil).Dial(context.Background(), u, http.Header{"User-Agent": {"slotsync-test"}})
	require.NoError(t, err)
	defer ch.Close()

	f, err := ch.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"currentCapacity":5}`, string(f.Data))

	_, err = ch.Next()
	assert.Error(t, err, "server closed the stream")

	assert.Equal(t, "text/event-stream", gotAccept)
	assert.Equal(t, "slotsync-test", gotUA)
}

func TestSSEDialerRejectsBadResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}},
		{"content type", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("[]"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			u, _ := url.Parse(srv.URL)
			_, err := NewSSEDialer(nil).Dial(context.Background(), u, nil)
			assert.Error(t, err)
		})
	}
}

func wsServer(t *testing.T, messages []string, hold chan struct{}) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if hold != nil {
			<-hold
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSocketDialer(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	srv := wsServer(t, []string{`{"id":2,"currentCapacity":1,"category":"green"}`}, hold)

	u, _ := url.Parse("ws" + strings.TrimPrefix(srv.URL, "http") + "/ws")
	ch, err := NewWebSocketDialer(nil).Dial(context.Background(), u, nil)
	require.NoError(t, err)

	f, err := ch.Next()
	require.NoError(t, err)
	assert.Equal(t, "", f.Event)
	assert.JSONEq(t, `{"id":2,"currentCapacity":1,"category":"green"}`, string(f.Data))

	require.NoError(t, ch.Close())
	_, err = ch.Next()
	assert.Error(t, err)
}

func TestSchemeDialerRejectsUnknownScheme(t *testing.T) {
	u, _ := url.Parse("gopher://feed.test")
	_, err := NewSchemeDialer().Dial(context.Background(), u, nil)
	assert.Error(t, err)
}

// The stream end to end over both real transports: open, receive, drop,
// schedule a reconnect.
func TestStreamOverRealTransports(t *testing.T) {
	payload := `{"id":4,"currentCapacity":6,"category":"yellow"}`

	sse := httptest.NewServer(sseHandler([]string{payload}))
	defer sse.Close()
	ws := wsServer(t, []string{payload}, nil)

	endpoints := map[string]string{
		"sse":       sse.URL + "/sse",
		"websocket": "ws" + strings.TrimPrefix(ws.URL, "http") + "/ws",
	}

	for name, ep := range endpoints {
		t.Run(name, func(t *testing.T) {
			rec := newRecorder()
			fake := clock.Fake(time.Now())
			s := New(ep, rec.handlers(), WithClock(fake), WithRandom(func() float64 { return 0 }))
			defer s.Cleanup()

			s.Connect()
			rec.expect(t, "connect", "update:4:6:yellow", "disconnect", "reconnecting")

			fake.WaitForTimers(1)
			assert.Equal(t, Reconnecting, s.State())
			assert.Equal(t, 1, s.Attempts())
		})
	}
}
