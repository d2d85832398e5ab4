// Package timeslot fetches and normalizes the bulk time slot listing.
package timeslot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/grovetools/slotsync/errors"
	"github.com/grovetools/slotsync/logging"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/grovetools/slotsync/version"
	"github.com/sirupsen/logrus"
)

const (
	defaultSlotsPath  = "/timeSlots"
	defaultStreamPath = "/sse"
)

// Service talks to the slot API.
type Service struct {
	baseURL    string
	slotsPath  string
	httpClient *http.Client
	location   *time.Location
	userAgent  string
	logger     *logrus.Entry
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithLocation sets the zone used to derive slot dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Service) { s.logger = l }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Service) { s.userAgent = ua }
}

// WithSlotsPath overrides the bulk fetch path.
func WithSlotsPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.slotsPath = path
		}
	}
}

// NewService creates a Service rooted at baseURL.
func NewService(baseURL string, opts ...Option) *Service {
	s := &Service{
		baseURL:    strings.TrimRight(baseURL, "/"),
		slotsPath:  defaultSlotsPath,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		location:   time.Local,
		userAgent:  version.UserAgent(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger("timeslot")
	}
	return s
}

// SlotsURL is the bulk fetch endpoint.
func (s *Service) SlotsURL() string {
	return s.baseURL + s.slotsPath
}

// StreamURL is the default push channel endpoint.
func (s *Service) StreamURL() string {
	return s.baseURL + defaultStreamPath
}

// FetchTimeSlots retrieves all slots, normalized and sorted by start time.
// One malformed record fails the whole fetch.
func (s *Service) FetchTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	url := s.SlotsURL()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.FetchFailed(url, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.FetchFailed(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.FetchStatus(url, resp.StatusCode)
	}

	var raw []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.FetchFailed(url, fmt.Errorf("failed to decode response: %w", err))
	}

	slots := make([]models.TimeSlot, 0, len(raw))
	for _, r := range raw {
		slot, err := Normalize(r, s.location)
		if err != nil {
			s.logger.WithError(err).Error("Error fetching time slots")
			return nil, err
		}
		slots = append(slots, slot)
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})

	s.logger.WithFields(logrus.Fields{
		"count":    len(slots),
		"duration": time.Since(start),
	}).Debug("Fetched time slots")

	return slots, nil
}
