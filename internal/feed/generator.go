package feed

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/grovetools/slotsync/pkg/clock"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/sirupsen/logrus"
)

// Generator publishes random capacity changes at a fixed interval.
type Generator struct {
	hub      *Hub
	interval time.Duration
	clock    clock.Clock
	rand     *rand.Rand
	logger   *logrus.Entry
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorClock sets the clock driving the ticker.
func WithGeneratorClock(c clock.Clock) GeneratorOption {
	return func(g *Generator) { g.clock = c }
}

// WithSeed makes the generated sequence reproducible.
func WithSeed(seed uint64) GeneratorOption {
	return func(g *Generator) { g.rand = rand.New(rand.NewPCG(seed, seed)) }
}

// NewGenerator creates a generator for hub.
func NewGenerator(hub *Hub, interval time.Duration, logger *logrus.Entry, opts ...GeneratorOption) *Generator {
	g := &Generator{
		hub:      hub,
		interval: interval,
		clock:    clock.Real(),
		rand:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Step publishes one change for a random slot. It returns false when the hub
// has no slots.
func (g *Generator) Step() (models.UpdateEvent, bool) {
	slots := g.hub.Slots()
	if len(slots) == 0 {
		return models.UpdateEvent{}, false
	}

	slot := slots[g.rand.IntN(len(slots))]
	current := slot.Capacity.Current + g.rand.IntN(5) - 2
	current = min(max(current, 0), slot.Capacity.Max)

	ev := models.UpdateEvent{
		ID:              slot.ID,
		CurrentCapacity: current,
		Category:        CategoryFor(current, slot.Capacity.Max),
	}
	g.hub.Publish(ev)

	g.logger.WithFields(logrus.Fields{
		"slot_id":  ev.ID,
		"capacity": ev.CurrentCapacity,
		"category": ev.Category,
	}).Debug("Published update")
	return ev, true
}

// Run publishes on every tick until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) {
	ticker := g.clock.NewTicker(g.interval)
	defer ticker.Stop()

	g.logger.WithField("interval", g.interval).Info("Starting update generator")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Step()
		}
	}
}
