package feed

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/grovetools/slotsync/pkg/clock"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/grovetools/slotsync/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestHubPublishUpdatesSlotAndFansOut(t *testing.T) {
	hub := NewHub(testutil.SampleSlots(), quietLogger())
	a := hub.Subscribe()
	b := hub.Subscribe()

	ev := models.UpdateEvent{ID: 2, CurrentCapacity: 9, Category: models.CategoryRed}
	hub.Publish(ev)

	assert.Equal(t, ev, testutil.Receive(t, a, time.Second))
	assert.Equal(t, ev, testutil.Receive(t, b, time.Second))

	slot, ok := hub.Get(2)
	require.True(t, ok)
	assert.Equal(t, 9, slot.Capacity.Current)
	assert.Equal(t, models.CategoryRed, slot.Category)

	// Empty category keeps the existing one
	hub.Publish(models.UpdateEvent{ID: 2, CurrentCapacity: 4})
	slot, _ = hub.Get(2)
	assert.Equal(t, 4, slot.Capacity.Current)
	assert.Equal(t, models.CategoryRed, slot.Category)
}

func TestHubUnknownSlotIsStillBroadcast(t *testing.T) {
	hub := NewHub(testutil.SampleSlots(), quietLogger())
	ch := hub.Subscribe()

	hub.Publish(models.UpdateEvent{ID: 99, CurrentCapacity: 1})

	assert.Equal(t, 99, testutil.Receive(t, ch, time.Second).ID)
	assert.Len(t, hub.Slots(), 3)
	_, ok := hub.Get(99)
	assert.False(t, ok)
}

func TestHubDropsForFullSubscriber(t *testing.T) {
	hub := NewHub(testutil.SampleSlots(), quietLogger())
	slow := hub.Subscribe()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish(models.UpdateEvent{ID: 1, CurrentCapacity: i % 10})
	}

	stats := hub.Stats()
	assert.Equal(t, uint64(subscriberBuffer+5), stats.Published)
	assert.Equal(t, uint64(5), stats.Dropped)
	assert.Len(t, slow, subscriberBuffer)
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(nil, quietLogger())
	ch := hub.Subscribe()
	assert.Equal(t, 1, hub.Stats().Subscribers)

	hub.Unsubscribe(ch)
	hub.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Stats().Subscribers)
}

func TestParseFixture(t *testing.T) {
	data := []byte(`
slots:
  - id: 1
    start_time: 2024-03-10T23:30:00Z
    end_time: 2024-03-11T00:30:00Z
    capacity: {current: 2, max: 10}
  - id: 2
    start_time: 2024-03-11T09:00:00Z
    end_time: 2024-03-11T10:00:00Z
    category: red
    capacity: {current: 10, max: 10}
`)
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	slots, err := ParseFixture(data, berlin)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, models.CategoryGreen, slots[0].Category)
	assert.Equal(t, "2024-03-11", slots[0].Date)
	assert.Equal(t, models.CategoryRed, slots[1].Category)
	assert.Equal(t, 10, slots[1].Capacity.Max)
}

func TestParseFixtureErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "duplicate id",
			yaml: "slots:\n  - id: 1\n    start_time: 2024-03-10T09:00:00Z\n    end_time: 2024-03-10T10:00:00Z\n    capacity: {current: 0, max: 1}\n  - id: 1\n    start_time: 2024-03-10T09:00:00Z\n    end_time: 2024-03-10T10:00:00Z\n    capacity: {current: 0, max: 1}\n",
			want: "duplicate id",
		},
		{
			name: "missing times",
			yaml: "slots:\n  - id: 1\n    capacity: {current: 0, max: 1}\n",
			want: "required",
		},
		{
			name: "end before start",
			yaml: "slots:\n  - id: 1\n    start_time: 2024-03-10T10:00:00Z\n    end_time: 2024-03-10T09:00:00Z\n    capacity: {current: 0, max: 1}\n",
			want: "after start_time",
		},
		{
			name: "over capacity",
			yaml: "slots:\n  - id: 1\n    start_time: 2024-03-10T09:00:00Z\n    end_time: 2024-03-10T10:00:00Z\n    capacity: {current: 3, max: 1}\n",
			want: "out of range",
		},
		{
			name: "not yaml",
			yaml: "slots: [",
			want: "failed to parse fixture",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.yaml), time.UTC)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	_, err := LoadFixture("/nonexistent/fixture.yml", time.UTC)
	assert.Error(t, err)
}

func TestDefaultSlots(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	slots := DefaultSlots(now, time.UTC)

	require.Len(t, slots, 12)
	assert.Equal(t, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), slots[0].StartTime)
	assert.Equal(t, "2024-03-11", slots[0].Date)
	assert.Equal(t, "2024-03-13", slots[11].Date)

	for i, s := range slots {
		assert.Equal(t, i+1, s.ID)
		assert.Equal(t, time.Hour, s.EndTime.Sub(s.StartTime))
		assert.LessOrEqual(t, s.Capacity.Current, s.Capacity.Max)
		assert.Equal(t, CategoryFor(s.Capacity.Current, s.Capacity.Max), s.Category)
	}
}

func TestCategoryFor(t *testing.T) {
	assert.Equal(t, models.CategoryGreen, CategoryFor(0, 10))
	assert.Equal(t, models.CategoryGreen, CategoryFor(4, 10))
	assert.Equal(t, models.CategoryYellow, CategoryFor(5, 10))
	assert.Equal(t, models.CategoryYellow, CategoryFor(9, 10))
	assert.Equal(t, models.CategoryRed, CategoryFor(10, 10))
	assert.Equal(t, models.CategoryRed, CategoryFor(0, 0))
}

func TestGeneratorStepStaysInRange(t *testing.T) {
	hub := NewHub(testutil.SampleSlots(), quietLogger())
	g := NewGenerator(hub, time.Second, quietLogger(), WithSeed(42))

	for i := 0; i < 200; i++ {
		ev, ok := g.Step()
		require.True(t, ok)

		slot, found := hub.Get(ev.ID)
		require.True(t, found)
		assert.GreaterOrEqual(t, ev.CurrentCapacity, 0)
		assert.LessOrEqual(t, ev.CurrentCapacity, slot.Capacity.Max)
		assert.Equal(t, ev.CurrentCapacity, slot.Capacity.Current)
		assert.Equal(t, CategoryFor(ev.CurrentCapacity, slot.Capacity.Max), ev.Category)
	}
}

func TestGeneratorStepWithoutSlots(t *testing.T) {
	g := NewGenerator(NewHub(nil, quietLogger()), time.Second, quietLogger())
	_, ok := g.Step()
	assert.False(t, ok)
}

func TestGeneratorRunPublishesOnTick(t *testing.T) {
	fake := clock.Fake(testutil.BaseTime)
	hub := NewHub(testutil.SampleSlots(), quietLogger())
	ch := hub.Subscribe()
	g := NewGenerator(hub, 2*time.Second, quietLogger(), WithGeneratorClock(fake), WithSeed(7))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(done)
	}()

	fake.WaitForTimers(1)
	testutil.NoReceive(t, ch, 50*time.Millisecond)

	fake.Advance(2 * time.Second)
	testutil.Receive(t, ch, time.Second)

	cancel()
	testutil.Receive(t, done, time.Second)
}
