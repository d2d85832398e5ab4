package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/grovetools/slotsync/errors"
)

// Channel is an open push channel.
type Channel interface {
	// Next blocks until the next frame arrives. Any error means the
	// channel is closed.
	Next() (Frame, error)
	// Close releases the channel and unblocks a pending Next.
	Close() error
}

// Dialer opens push channels.
type Dialer interface {
	Dial(ctx context.Context, endpoint *url.URL, header http.Header) (Channel, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, endpoint *url.URL, header http.Header) (Channel, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, endpoint *url.URL, header http.Header) (Channel, error) {
	return f(ctx, endpoint, header)
}

// SchemeDialer routes http(s) endpoints to SSE and ws(s) endpoints to
// WebSocket.
type SchemeDialer struct {
	SSE       Dialer
	WebSocket Dialer
}

// NewSchemeDialer returns the default transport set.
func NewSchemeDialer() *SchemeDialer {
	return &SchemeDialer{
		SSE:       NewSSEDialer(nil),
		WebSocket: NewWebSocketDialer(nil),
	}
}

// Dial implements Dialer.
func (d *SchemeDialer) Dial(ctx context.Context, endpoint *url.URL, header http.Header) (Channel, error) {
	switch strings.ToLower(endpoint.Scheme) {
	case "http", "https":
		return d.SSE.Dial(ctx, endpoint, header)
	case "ws", "wss":
		return d.WebSocket.Dial(ctx, endpoint, header)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", endpoint.Scheme)
	}
}

// ParseEndpoint validates a push channel URL. Failures are transport-open
// errors: they are reported once and never retried.
func ParseEndpoint(endpoint string) (*url.URL, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.EndpointInvalid(endpoint, "empty endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.EndpointInvalid(endpoint, err.Error())
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ws", "wss":
	default:
		return nil, errors.EndpointInvalid(endpoint, fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return nil, errors.EndpointInvalid(endpoint, "missing host")
	}
	return u, nil
}
