package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// maxSSELine bounds a single SSE line.
const maxSSELine = 1 << 20

// SSEDialer opens Server-Sent Events channels over HTTP.
type SSEDialer struct {
	client *http.Client
}

// NewSSEDialer creates an SSE dialer. A nil client uses one without a
// timeout, since the response body stays open for the channel lifetime.
func NewSSEDialer(client *http.Client) *SSEDialer {
	if client == nil {
		client = &http.Client{}
	}
	return &SSEDialer{client: client}
}

// Dial implements Dialer.
func (d *SSEDialer) Dial(ctx context.Context, endpoint *url.URL, header http.Header) (Channel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}

	return newSSEChannel(resp.Body), nil
}

// sseChannel parses an event stream body into frames.
type sseChannel struct {
	body      io.ReadCloser
	scanner   *bufio.Scanner
	closeOnce sync.Once
}

func newSSEChannel(body io.ReadCloser) *sseChannel {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	return &sseChannel{body: body, scanner: scanner}
}

// Next returns the next dispatched event. Comment lines and events without
// data are skipped.
func (c *sseChannel) Next() (Frame, error) {
	var (
		event   string
		data    bytes.Buffer
		hasData bool
	)

	for c.scanner.Scan() {
		line := strings.TrimSuffix(c.scanner.Text(), "\r")

		if line == "" {
			if hasData {
				return Frame{Event: event, Data: data.Bytes()}, nil
			}
			event = ""
			continue
		}

		// Comment (keepalive)
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		}
		// id and retry are not used
	}

	if err := c.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// Close implements Channel.
func (c *sseChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.body.Close()
	})
	return err
}
