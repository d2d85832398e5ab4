package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/grovetools/slotsync/errors"
	"github.com/grovetools/slotsync/pkg/models"
)

// Frame is one message received on a push channel.
type Frame struct {
	// Event is the SSE event name. Empty for WebSocket messages and for
	// unnamed SSE events.
	Event string
	Data  []byte
}

// wireUpdate uses pointers so missing required fields can be told apart
// from zero values.
type wireUpdate struct {
	ID              *int             `json:"id"`
	CurrentCapacity *int             `json:"currentCapacity"`
	Category        *models.Category `json:"category"`
}

// ParseUpdate decodes a frame payload into an UpdateEvent. The payload must
// be a JSON object carrying at least id and currentCapacity.
func ParseUpdate(data []byte) (models.UpdateEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.UpdateEvent{}, errors.PayloadInvalid(fmt.Errorf("payload is not a JSON object"))
	}

	var w wireUpdate
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return models.UpdateEvent{}, errors.PayloadInvalid(err)
	}
	if w.ID == nil {
		return models.UpdateEvent{}, errors.PayloadInvalid(fmt.Errorf("missing id"))
	}
	if w.CurrentCapacity == nil {
		return models.UpdateEvent{}, errors.PayloadInvalid(fmt.Errorf("missing currentCapacity"))
	}

	ev := models.UpdateEvent{ID: *w.ID, CurrentCapacity: *w.CurrentCapacity}
	if w.Category != nil {
		ev.Category = *w.Category
	}
	return ev, nil
}
