package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyLoggerKinds(t *testing.T) {
	tests := []struct {
		kind string
		icon string
	}{
		{"success", "✓"},
		{"error", "✗"},
		{"warning", "⚠"},
		{"info", "•"},
		{"unknown", "•"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			var buf bytes.Buffer
			p := NewPrettyLogger().WithWriter(&buf)

			p.Kind(tt.kind, "Loaded 3 time slots")

			out := buf.String()
			assert.Contains(t, out, tt.icon)
			assert.Contains(t, out, "Loaded 3 time slots")
			assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
		})
	}
}

func TestPrettyLoggerErrorWithCause(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)

	p.ErrorPretty("Fetch failed", errors.New("connection refused"))

	assert.Contains(t, buf.String(), "Fetch failed")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestPrettyLoggerFieldAndDivider(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)

	p.Field("endpoint", "http://localhost:8080/sse")
	p.Divider()
	p.Blank()

	out := buf.String()
	assert.Contains(t, out, "endpoint")
	assert.Contains(t, out, "http://localhost:8080/sse")
	assert.Contains(t, out, "────")
	assert.Equal(t, &buf, p.Writer())
}
