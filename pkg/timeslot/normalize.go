package timeslot

import (
	"fmt"
	"strings"
	"time"

	"github.com/grovetools/slotsync/errors"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/mitchellh/mapstructure"
)

// rawSlot mirrors one record of the bulk response. The API is inconsistent
// about key spelling, so both variants are captured.
type rawSlot struct {
	ID           int          `mapstructure:"id"`
	StartTime    string       `mapstructure:"start_time"`
	StartTimeAlt string       `mapstructure:"startTime"`
	EndTime      string       `mapstructure:"end_time"`
	EndTimeAlt   string       `mapstructure:"endTime"`
	Category     string       `mapstructure:"category"`
	Capacity     *rawCapacity `mapstructure:"capacity"`
}

type rawCapacity struct {
	CurrentCapacity *int `mapstructure:"current_capacity"`
	Current         *int `mapstructure:"current"`
	MaxCapacity     *int `mapstructure:"max_capacity"`
	Maximum         *int `mapstructure:"maximum"`
}

// timeLayouts are tried in order; layouts without a zone are read in the
// service location.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Normalize converts one decoded JSON object into a TimeSlot.
func Normalize(raw map[string]interface{}, loc *time.Location) (models.TimeSlot, error) {
	var rs rawSlot
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &rs,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return models.TimeSlot{}, fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return models.TimeSlot{}, errors.Wrap(err, errors.ErrCodeNormalizeFailed, "malformed time slot").
			WithDetail("id", rs.ID)
	}

	startRaw := firstNonEmpty(rs.StartTime, rs.StartTimeAlt)
	if startRaw == "" {
		return models.TimeSlot{}, errors.NormalizeFailed(rs.ID, "Start time not found in API response")
	}
	endRaw := firstNonEmpty(rs.EndTime, rs.EndTimeAlt)
	if endRaw == "" {
		return models.TimeSlot{}, errors.NormalizeFailed(rs.ID, "End time not found in API response")
	}

	if rs.Capacity == nil {
		return models.TimeSlot{}, errors.NormalizeFailed(rs.ID, "Capacity data not found in API response")
	}
	current := firstSet(rs.Capacity.CurrentCapacity, rs.Capacity.Current)
	maxCap := firstSet(rs.Capacity.MaxCapacity, rs.Capacity.Maximum)
	if current == nil || maxCap == nil {
		return models.TimeSlot{}, errors.NormalizeFailed(rs.ID, "Capacity data not found in API response")
	}

	start, err := parseTime(startRaw, loc)
	if err != nil {
		return models.TimeSlot{}, errors.NormalizeFailed(rs.ID, fmt.Sprintf("invalid start time %q", startRaw))
	}
	end, err := parseTime(endRaw, loc)
	if err != nil {
		return models.TimeSlot{}, errors.NormalizeFailed(rs.ID, fmt.Sprintf("invalid end time %q", endRaw))
	}

	return models.TimeSlot{
		ID:        rs.ID,
		StartTime: start,
		EndTime:   end,
		Category:  models.Category(rs.Category),
		Capacity:  models.Capacity{Current: *current, Max: *maxCap},
		Date:      models.DateOf(start, loc),
	}, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstSet(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
