package feed

import (
	"fmt"
	"os"
	"time"

	"github.com/grovetools/slotsync/pkg/models"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML document accepted by `slotsync serve --fixture`.
//
//	slots:
//	  - id: 1
//	    start_time: 2024-03-10T09:00:00Z
//	    end_time: 2024-03-10T10:00:00Z
//	    category: green
//	    capacity: {current: 0, max: 10}
type Fixture struct {
	Slots []models.TimeSlot `yaml:"slots"`
}

// LoadFixture reads and validates a fixture file. Dates are derived in loc.
func LoadFixture(path string, loc *time.Location) ([]models.TimeSlot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data, loc)
}

// ParseFixture decodes fixture YAML.
func ParseFixture(data []byte, loc *time.Location) ([]models.TimeSlot, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	seen := make(map[int]bool, len(f.Slots))
	for i := range f.Slots {
		s := &f.Slots[i]
		if seen[s.ID] {
			return nil, fmt.Errorf("slot %d: duplicate id", s.ID)
		}
		seen[s.ID] = true

		if s.StartTime.IsZero() || s.EndTime.IsZero() {
			return nil, fmt.Errorf("slot %d: start_time and end_time are required", s.ID)
		}
		if !s.EndTime.After(s.StartTime) {
			return nil, fmt.Errorf("slot %d: end_time must be after start_time", s.ID)
		}
		if s.Capacity.Current < 0 || s.Capacity.Current > s.Capacity.Max {
			return nil, fmt.Errorf("slot %d: capacity %d/%d out of range", s.ID, s.Capacity.Current, s.Capacity.Max)
		}
		if s.Category == "" {
			s.Category = CategoryFor(s.Capacity.Current, s.Capacity.Max)
		}
		s.Date = models.DateOf(s.StartTime, loc)
	}
	return f.Slots, nil
}

// DefaultSlots generates three days of hourly slots from 09:00 to 13:00,
// starting the day after now.
func DefaultSlots(now time.Time, loc *time.Location) []models.TimeSlot {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	first := time.Date(now.Year(), now.Month(), now.Day()+1, 9, 0, 0, 0, loc)

	var slots []models.TimeSlot
	id := 1
	for day := 0; day < 3; day++ {
		for hour := 0; hour < 4; hour++ {
			start := first.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
			current := (id * 3) % 11
			slots = append(slots, models.TimeSlot{
				ID:        id,
				StartTime: start,
				EndTime:   start.Add(time.Hour),
				Category:  CategoryFor(current, 10),
				Capacity:  models.Capacity{Current: current, Max: 10},
				Date:      models.DateOf(start, loc),
			})
			id++
		}
	}
	return slots
}

// CategoryFor bands a capacity: under half booked is green, full is red.
func CategoryFor(current, max int) models.Category {
	switch {
	case max <= 0 || current >= max:
		return models.CategoryRed
	case current*2 < max:
		return models.CategoryGreen
	default:
		return models.CategoryYellow
	}
}
