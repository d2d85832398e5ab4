// Package slotstore holds the authoritative local copy of time slots and
// merges live updates into it.
package slotstore

import (
	"sort"
	"sync"

	"github.com/grovetools/slotsync/logging"
	"github.com/grovetools/slotsync/pkg/clock"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Store is the in-memory slot collection. It is safe for concurrent use and
// supports pub/sub for change notifications.
type Store struct {
	mu          sync.RWMutex
	slots       *orderedmap.OrderedMap[int, models.TimeSlot]
	version     uint64
	subscribers map[chan Change]struct{}

	// grouped caches GroupedByDate for groupedVersion.
	cacheMu        sync.Mutex
	grouped        []models.DateGroup
	groupedVersion uint64
	groupedValid   bool

	clock  clock.Clock
	logger *logrus.Entry
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp live updates.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		slots:       orderedmap.New[int, models.TimeSlot](),
		subscribers: make(map[chan Change]struct{}),
		clock:       clock.Real(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger("slotstore")
	}
	return s
}

// LoadAll replaces the whole collection. For duplicate ids the last value
// wins and the first position is kept.
func (s *Store) LoadAll(slots []models.TimeSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := orderedmap.New[int, models.TimeSlot](orderedmap.WithCapacity[int, models.TimeSlot](len(slots)))
	for _, slot := range slots {
		if _, present := next.Set(slot.ID, slot); present {
			s.logger.WithField("slot_id", slot.ID).Warn("Duplicate slot id in load, keeping last value")
		}
	}
	s.slots = next
	s.version++

	s.broadcastLocked(Change{Type: ChangeLoad, Count: s.slots.Len()})
}

// ApplyUpdate patches the current capacity and category of an existing slot.
// It returns false, and changes nothing, when the id is unknown. An update
// without a category keeps the existing one.
func (s *Store) ApplyUpdate(ev models.UpdateEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots.Get(ev.ID)
	if !ok {
		s.logger.WithField("slot_id", ev.ID).Warn("Live update for unknown slot")
		return false
	}

	if ev.CurrentCapacity < 0 || ev.CurrentCapacity > slot.Capacity.Max {
		s.logger.WithFields(logrus.Fields{
			"slot_id":  ev.ID,
			"capacity": ev.CurrentCapacity,
			"max":      slot.Capacity.Max,
		}).Warn("Live update outside capacity range")
	}

	slot.Capacity.Current = ev.CurrentCapacity
	if ev.Category != "" {
		slot.Category = ev.Category
	}
	slot.HasLiveUpdate = true
	slot.LastLiveUpdate = s.clock.Now()

	s.slots.Set(ev.ID, slot)
	s.version++

	s.broadcastLocked(Change{Type: ChangeUpdate, SlotID: ev.ID, Count: s.slots.Len()})
	return true
}

// Get returns the slot with the given id.
func (s *Store) Get(id int) (models.TimeSlot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots.Get(id)
}

// All returns every slot in insertion order.
func (s *Store) All() []models.TimeSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.TimeSlot, 0, s.slots.Len())
	for pair := s.slots.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// Len returns the number of slots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots.Len()
}

// Version increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// GroupedByDate returns slots grouped by date, dates ascending and slots
// within a date by start time. The result is recomputed only after a
// mutation and callers always receive their own copy.
func (s *Store) GroupedByDate() []models.DateGroup {
	s.mu.RLock()
	version := s.version
	s.cacheMu.Lock()
	if !s.groupedValid || s.groupedVersion != version {
		s.grouped = group(s.slots)
		s.groupedVersion = version
		s.groupedValid = true
	}
	result := copyGroups(s.grouped)
	s.cacheMu.Unlock()
	s.mu.RUnlock()
	return result
}

func group(slots *orderedmap.OrderedMap[int, models.TimeSlot]) []models.DateGroup {
	byDate := make(map[string][]models.TimeSlot)
	var dates []string
	for pair := slots.Oldest(); pair != nil; pair = pair.Next() {
		slot := pair.Value
		if _, seen := byDate[slot.Date]; !seen {
			dates = append(dates, slot.Date)
		}
		byDate[slot.Date] = append(byDate[slot.Date], slot)
	}
	sort.Strings(dates)

	groups := make([]models.DateGroup, 0, len(dates))
	for _, date := range dates {
		daySlots := byDate[date]
		sort.SliceStable(daySlots, func(i, j int) bool {
			return daySlots[i].StartTime.Before(daySlots[j].StartTime)
		})
		groups = append(groups, models.DateGroup{Date: date, Slots: daySlots})
	}
	return groups
}

func copyGroups(groups []models.DateGroup) []models.DateGroup {
	out := make([]models.DateGroup, len(groups))
	for i, g := range groups {
		out[i] = models.DateGroup{
			Date:  g.Date,
			Slots: append([]models.TimeSlot(nil), g.Slots...),
		}
	}
	return out
}

// Subscribe creates a new subscription channel for store changes.
func (s *Store) Subscribe() chan Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Change, 100)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

func (s *Store) broadcastLocked(c Change) {
	for ch := range s.subscribers {
		select {
		case ch <- c:
		default:
			// Slow subscribers miss changes rather than stall writers
		}
	}
}
