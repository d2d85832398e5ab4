package cmd

import (
	"net/http"
	"time"

	"github.com/grovetools/slotsync/config"
	"github.com/grovetools/slotsync/logging"
	"github.com/grovetools/slotsync/pkg/stream"
	"github.com/grovetools/slotsync/pkg/timeslot"
)

// newService builds the bulk fetch client from cfg.
func newService(cfg *config.Config) (*timeslot.Service, *time.Location, error) {
	loc, err := cfg.Display.Location()
	if err != nil {
		return nil, nil, err
	}
	timeout, err := cfg.Endpoint.TimeoutDuration()
	if err != nil {
		return nil, nil, err
	}

	svc := timeslot.NewService(cfg.Endpoint.BaseURL,
		timeslot.WithSlotsPath(cfg.Endpoint.SlotsPath),
		timeslot.WithLocation(loc),
		timeslot.WithHTTPClient(&http.Client{Timeout: timeout}),
		timeslot.WithLogger(logging.NewLogger("timeslot")),
	)
	return svc, loc, nil
}

// streamOptions maps the stream section onto stream options.
func streamOptions(cfg *config.Config) ([]stream.Option, error) {
	timing, err := cfg.Stream.Timing()
	if err != nil {
		return nil, err
	}
	return []stream.Option{
		stream.WithMaxAttempts(timing.MaxAttempts),
		stream.WithBackoff(stream.Backoff{
			Base:   timing.BaseDelay,
			Max:    timing.MaxDelay,
			Jitter: timing.Jitter,
		}),
	}, nil
}
