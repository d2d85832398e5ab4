package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Defaults applied by SetDefaults.
const (
	DefaultBaseURL     = "http://localhost:8080"
	DefaultSlotsPath   = "/timeSlots"
	DefaultStreamPath  = "/sse"
	DefaultTimeout     = "10s"
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = "1s"
	DefaultMaxDelay    = "30s"
	DefaultJitter      = "1s"
	DefaultTimezone    = "Local"
)

// Config represents the slotsync.yml configuration.
type Config struct {
	Version  string         `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty"`
	Endpoint EndpointConfig `yaml:"endpoint,omitempty" toml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Stream   StreamConfig   `yaml:"stream,omitempty" toml:"stream,omitempty" json:"stream,omitempty"`
	Display  DisplayConfig  `yaml:"display,omitempty" toml:"display,omitempty" json:"display,omitempty"`

	// Extensions captures all other top-level keys (for example `logging`).
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// EndpointConfig locates the slot source.
type EndpointConfig struct {
	// BaseURL is the root of the slot API. Fetch and the default push
	// channel are resolved relative to it.
	BaseURL string `yaml:"base_url,omitempty" toml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"description=Root URL of the time slot API"`
	// SlotsPath is appended to BaseURL for the bulk fetch.
	SlotsPath string `yaml:"slots_path,omitempty" toml:"slots_path,omitempty" json:"slots_path,omitempty" jsonschema:"description=Path of the bulk fetch endpoint"`
	// StreamURL overrides the push channel URL. The scheme selects the
	// transport: http(s) for server-sent events, ws(s) for WebSocket.
	StreamURL string `yaml:"stream_url,omitempty" toml:"stream_url,omitempty" json:"stream_url,omitempty" jsonschema:"description=Push channel URL (http(s) for SSE or ws(s) for WebSocket)"`
	// Timeout bounds the bulk fetch request.
	Timeout string `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"description=Bulk fetch timeout as a Go duration"`
}

// StreamConfig tunes reconnection of the push channel.
type StreamConfig struct {
	MaxAttempts int    `yaml:"max_attempts,omitempty" toml:"max_attempts,omitempty" json:"max_attempts,omitempty" jsonschema:"minimum=1,description=Reconnection attempts before giving up"`
	BaseDelay   string `yaml:"base_delay,omitempty" toml:"base_delay,omitempty" json:"base_delay,omitempty" jsonschema:"description=Delay before the first reconnection attempt"`
	MaxDelay    string `yaml:"max_delay,omitempty" toml:"max_delay,omitempty" json:"max_delay,omitempty" jsonschema:"description=Upper bound of the exponential part of the delay"`
	Jitter      string `yaml:"jitter,omitempty" toml:"jitter,omitempty" json:"jitter,omitempty" jsonschema:"description=Maximum random delay added to each attempt"`
}

// DisplayConfig controls presentation.
type DisplayConfig struct {
	// Timezone is an IANA name used to derive slot dates. "Local" uses the
	// system zone.
	Timezone string `yaml:"timezone,omitempty" toml:"timezone,omitempty" json:"timezone,omitempty" jsonschema:"description=IANA time zone used to group slots by date"`
}

// StreamTiming is the parsed form of StreamConfig.
type StreamTiming struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
}

// SetDefaults fills empty fields.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Endpoint.BaseURL == "" {
		c.Endpoint.BaseURL = DefaultBaseURL
	}
	if c.Endpoint.SlotsPath == "" {
		c.Endpoint.SlotsPath = DefaultSlotsPath
	}
	if c.Endpoint.Timeout == "" {
		c.Endpoint.Timeout = DefaultTimeout
	}
	if c.Stream.MaxAttempts == 0 {
		c.Stream.MaxAttempts = DefaultMaxAttempts
	}
	if c.Stream.BaseDelay == "" {
		c.Stream.BaseDelay = DefaultBaseDelay
	}
	if c.Stream.MaxDelay == "" {
		c.Stream.MaxDelay = DefaultMaxDelay
	}
	if c.Stream.Jitter == "" {
		c.Stream.Jitter = DefaultJitter
	}
	if c.Display.Timezone == "" {
		c.Display.Timezone = DefaultTimezone
	}
}

// ResolvedStreamURL returns StreamURL, or the SSE path under BaseURL.
func (e EndpointConfig) ResolvedStreamURL() string {
	if e.StreamURL != "" {
		return e.StreamURL
	}
	return strings.TrimRight(e.BaseURL, "/") + DefaultStreamPath
}

// TimeoutDuration parses Timeout. Empty means no timeout.
func (e EndpointConfig) TimeoutDuration() (time.Duration, error) {
	if e.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(e.Timeout)
}

// Timing parses the duration strings.
func (s StreamConfig) Timing() (StreamTiming, error) {
	t := StreamTiming{MaxAttempts: s.MaxAttempts}
	fields := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"base_delay", s.BaseDelay, &t.BaseDelay},
		{"max_delay", s.MaxDelay, &t.MaxDelay},
		{"jitter", s.Jitter, &t.Jitter},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		d, err := time.ParseDuration(f.value)
		if err != nil {
			return StreamTiming{}, fmt.Errorf("stream.%s: %w", f.name, err)
		}
		*f.dst = d
	}
	return t, nil
}

// Location resolves Timezone.
func (d DisplayConfig) Location() (*time.Location, error) {
	if d.Timezone == "" || d.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(d.Timezone)
}

// UnmarshalExtension decodes an extension section into target, which must be
// a pointer. A missing section leaves target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
