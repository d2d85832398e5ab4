package slotstore

// ChangeType identifies what modified the store.
type ChangeType string

const (
	// ChangeLoad means the collection was replaced.
	ChangeLoad ChangeType = "load"
	// ChangeUpdate means a single slot was patched.
	ChangeUpdate ChangeType = "update"
)

// Change is broadcast to subscribers after every mutation.
type Change struct {
	Type ChangeType `json:"type"`
	// SlotID is set for ChangeUpdate.
	SlotID int `json:"slotId,omitempty"`
	// Count is the number of slots after the change.
	Count int `json:"count"`
}
