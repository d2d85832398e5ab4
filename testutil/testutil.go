package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/slotsync/pkg/models"
	"github.com/stretchr/testify/require"
)

// BaseTime is the start of the first fixture slot.
var BaseTime = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

// SampleSlots returns three slots on one day: ids 1, 2, 3 with capacities
// 0/10, 5/10 and 10/10, one hour each, starting at BaseTime.
func SampleSlots() []models.TimeSlot {
	return []models.TimeSlot{
		Slot(1, BaseTime, 0, 10, models.CategoryGreen),
		Slot(2, BaseTime.Add(time.Hour), 5, 10, models.CategoryYellow),
		Slot(3, BaseTime.Add(2*time.Hour), 10, 10, models.CategoryRed),
	}
}

// Slot builds a one-hour slot dated in UTC.
func Slot(id int, start time.Time, current, max int, category models.Category) models.TimeSlot {
	return models.TimeSlot{
		ID:        id,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Category:  category,
		Capacity:  models.Capacity{Current: current, Max: max},
		Date:      models.DateOf(start, time.UTC),
	}
}

// RawSlotsJSON is a bulk-fetch body using both key spellings.
const RawSlotsJSON = `[
  {"id": 2, "startTime": "2024-03-10T10:00:00Z", "endTime": "2024-03-10T11:00:00Z", "category": "yellow", "capacity": {"current": 5, "maximum": 10}},
  {"id": 1, "start_time": "2024-03-10T09:00:00Z", "end_time": "2024-03-10T10:00:00Z", "category": "green", "capacity": {"current_capacity": 0, "max_capacity": 10}},
  {"id": 3, "start_time": "2024-03-11T09:00:00Z", "endTime": "2024-03-11T10:00:00Z", "category": "red", "capacity": {"current_capacity": 10, "maximum": 10}}
]`

// RandomString generates a random hex string of the given length
func RandomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}

// WriteFile writes content under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// Receive waits for one value on ch or fails the test.
func Receive[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %s waiting for value", timeout)
	}
	var zero T
	return zero
}

// NoReceive asserts that nothing arrives on ch within wait.
func NoReceive[T any](t *testing.T, ch <-chan T, wait time.Duration) {
	t.Helper()

	select {
	case v := <-ch:
		t.Fatalf("unexpected value %v", v)
	case <-time.After(wait):
	}
}
