// Package feed is a local time slot feed used for development and end-to-end
// tests. It serves the bulk endpoint and pushes capacity updates over SSE and
// WebSocket.
package feed

import (
	"sync"

	"github.com/grovetools/slotsync/pkg/models"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// subscriberBuffer is the per-subscriber queue length. Updates to a full
// queue are dropped for that subscriber only.
const subscriberBuffer = 100

// Hub holds the authoritative slots and fans out updates to subscribers.
type Hub struct {
	mu          sync.RWMutex
	slots       *orderedmap.OrderedMap[int, models.TimeSlot]
	subscribers map[chan models.UpdateEvent]struct{}
	published   uint64
	dropped     uint64
	logger      *logrus.Entry
}

// NewHub creates a hub serving slots in the given order.
func NewHub(slots []models.TimeSlot, logger *logrus.Entry) *Hub {
	h := &Hub{
		slots:       orderedmap.New[int, models.TimeSlot](),
		subscribers: make(map[chan models.UpdateEvent]struct{}),
		logger:      logger,
	}
	for _, s := range slots {
		h.slots.Set(s.ID, s)
	}
	return h
}

// Slots returns a copy of the current slots.
func (h *Hub) Slots() []models.TimeSlot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]models.TimeSlot, 0, h.slots.Len())
	for pair := h.slots.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// Get returns the slot with the given id.
func (h *Hub) Get(id int) (models.TimeSlot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.slots.Get(id)
}

// Publish applies ev to the matching slot and sends it to every subscriber.
// Updates for unknown ids are still sent so clients can be exercised
// against them.
func (h *Hub) Publish(ev models.UpdateEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if slot, ok := h.slots.Get(ev.ID); ok {
		slot.Capacity.Current = ev.CurrentCapacity
		if ev.Category != "" {
			slot.Category = ev.Category
		}
		h.slots.Set(ev.ID, slot)
	}

	h.published++
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped++
			h.logger.WithField("slot_id", ev.ID).Debug("Subscriber queue full, dropping update")
		}
	}
}

// Subscribe registers a new update queue.
func (h *Hub) Subscribe() chan models.UpdateEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan models.UpdateEvent, subscriberBuffer)
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a queue and closes it.
func (h *Hub) Unsubscribe(ch chan models.UpdateEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[ch]; !ok {
		return
	}
	delete(h.subscribers, ch)
	close(ch)
}

// Stats reports subscriber and delivery counters.
type Stats struct {
	Slots       int    `json:"slots"`
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// Stats returns a snapshot of the hub counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Slots:       h.slots.Len(),
		Subscribers: len(h.subscribers),
		Published:   h.published,
		Dropped:     h.dropped,
	}
}
