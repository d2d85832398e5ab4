package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer opens push channels over WebSocket. Every text or binary
// message is one frame.
type WebSocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebSocketDialer creates a WebSocket dialer. A nil dialer uses
// websocket.DefaultDialer settings with a 10s handshake timeout.
func NewWebSocketDialer(d *websocket.Dialer) *WebSocketDialer {
	if d == nil {
		d = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		}
	}
	return &WebSocketDialer{dialer: d}
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, endpoint *url.URL, header http.Header) (Channel, error) {
	conn, resp, err := d.dialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial websocket: %w", err)
	}
	return &wsChannel{conn: conn}, nil
}

type wsChannel struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// Next implements Channel.
func (c *wsChannel) Next() (Frame, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return Frame{Data: data}, nil
		}
	}
}

// Close sends a close frame when possible and closes the connection.
func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}
