package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryKnown(t *testing.T) {
	assert.True(t, CategoryGreen.Known())
	assert.True(t, CategoryYellow.Known())
	assert.True(t, CategoryRed.Known())
	assert.False(t, Category("purple").Known())
	assert.False(t, Category("").Known())
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-10", DateOf(ts, time.UTC))

	berlin := time.FixedZone("CET", 60*60)
	assert.Equal(t, "2024-03-11", DateOf(ts, berlin), "date follows the display location")
}

func TestTimeSlotJSONOmitsLiveFieldsUntilUpdated(t *testing.T) {
	slot := TimeSlot{
		ID:        1,
		StartTime: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
		Category:  CategoryGreen,
		Capacity:  Capacity{Current: 2, Max: 10},
		Date:      "2024-03-10",
	}

	data, err := json.Marshal(slot)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hasLiveUpdate")
	assert.NotContains(t, string(data), "lastLiveUpdate")

	slot.HasLiveUpdate = true
	slot.LastLiveUpdate = time.Date(2024, 3, 10, 9, 5, 0, 0, time.UTC)
	data, err = json.Marshal(slot)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hasLiveUpdate":true`)
	assert.Contains(t, string(data), `"lastLiveUpdate":"2024-03-10T09:05:00Z"`)
}
