package models

import (
	"time"
)

// DateLayout is the calendar date format used to group time slots.
const DateLayout = "2006-01-02"

// Category is the availability band of a time slot.
// Values outside the known set are carried through unchanged.
type Category string

const (
	CategoryGreen  Category = "green"
	CategoryYellow Category = "yellow"
	CategoryRed    Category = "red"
)

// Known reports whether c is one of the categories defined by the feed.
func (c Category) Known() bool {
	switch c {
	case CategoryGreen, CategoryYellow, CategoryRed:
		return true
	}
	return false
}

// Capacity holds the booked and maximum capacity of a slot.
type Capacity struct {
	Current int `json:"current" yaml:"current"`
	Max     int `json:"max" yaml:"max"`
}

// TimeSlot is the normalized record kept in the local store.
type TimeSlot struct {
	ID        int       `json:"id" yaml:"id"`
	StartTime time.Time `json:"startTime" yaml:"start_time"`
	EndTime   time.Time `json:"endTime" yaml:"end_time"`
	Category  Category  `json:"category" yaml:"category"`
	Capacity  Capacity  `json:"capacity" yaml:"capacity"`
	Date      string    `json:"date" yaml:"date"` // YYYY-MM-DD of StartTime

	// Live update tracking, informational only
	HasLiveUpdate  bool      `json:"hasLiveUpdate,omitempty" yaml:"-"`
	LastLiveUpdate time.Time `json:"lastLiveUpdate,omitzero" yaml:"-"`
}

// UpdateEvent is a partial patch pushed by the feed for an existing slot.
type UpdateEvent struct {
	ID              int      `json:"id"`
	CurrentCapacity int      `json:"currentCapacity"`
	Category        Category `json:"category"`
}

// DateGroup is one entry of the grouped view: all slots starting on Date,
// ordered by start time.
type DateGroup struct {
	Date  string     `json:"date"`
	Slots []TimeSlot `json:"slots"`
}

// DateOf returns the calendar date of t in loc. A nil loc uses time.Local.
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}
