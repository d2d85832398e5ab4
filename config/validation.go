package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/grovetools/slotsync/errors"
)

// Validate checks the semantics the schema cannot express
func (c *Config) Validate() error {
	if err := validateEndpoint(&c.Endpoint); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid endpoint configuration")
	}

	if err := validateStream(&c.Stream); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid stream configuration")
	}

	if _, err := c.Display.Location(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid display configuration").
			WithDetail("timezone", c.Display.Timezone)
	}

	return nil
}

func validateEndpoint(e *EndpointConfig) error {
	if err := validateURL("base_url", e.BaseURL, "http", "https"); err != nil {
		return err
	}
	if e.SlotsPath != "" && !strings.HasPrefix(e.SlotsPath, "/") {
		return fmt.Errorf("slots_path must start with '/': %q", e.SlotsPath)
	}
	if e.StreamURL != "" {
		if err := validateURL("stream_url", e.StreamURL, "http", "https", "ws", "wss"); err != nil {
			return err
		}
	}
	timeout, err := e.TimeoutDuration()
	if err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	if timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func validateStream(s *StreamConfig) error {
	if s.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", s.MaxAttempts)
	}

	timing, err := s.Timing()
	if err != nil {
		return err
	}
	// A zero delay would fire the reconnect synchronously
	if timing.BaseDelay <= 0 {
		return fmt.Errorf("base_delay must be positive")
	}
	if timing.MaxDelay < timing.BaseDelay {
		return fmt.Errorf("max_delay (%s) must not be smaller than base_delay (%s)", timing.MaxDelay, timing.BaseDelay)
	}
	if timing.Jitter < 0 {
		return fmt.Errorf("jitter must not be negative")
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL: %q", field, raw)
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return nil
		}
	}
	return fmt.Errorf("%s scheme %q not supported (want one of %s)", field, u.Scheme, strings.Join(schemes, ", "))
}
