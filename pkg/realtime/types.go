package realtime

import (
	"context"
	"time"

	"github.com/grovetools/slotsync/pkg/models"
)

// ConnectionStatus is the user-facing view of the push channel.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
)

// UIState is the presentation state owned by the router.
type UIState struct {
	IsLoading        bool             `json:"isLoading"`
	Error            string           `json:"error,omitempty"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
}

// NotificationKind is the severity of a notification.
type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
	KindInfo    NotificationKind = "info"
	KindWarning NotificationKind = "warning"
)

// Notification is a transient message for the user. A zero Timeout keeps
// it until hidden or replaced.
type Notification struct {
	Message string           `json:"message"`
	Kind    NotificationKind `json:"kind"`
	Timeout time.Duration    `json:"timeout,omitempty"`
}

// Notification timeouts.
const (
	ShortTimeout = 3 * time.Second
	LongTimeout  = 5 * time.Second
)

// Status is a snapshot sent to subscribers whenever UIState or the current
// notification changes.
type Status struct {
	UI           UIState       `json:"ui"`
	Notification *Notification `json:"notification,omitempty"`
}

// Connection is the push channel driven by the router.
type Connection interface {
	Connect()
	Disconnect()
	Cleanup()
}

// Fetcher performs the bulk load.
type Fetcher interface {
	FetchTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]models.TimeSlot, error)

// FetchTimeSlots calls f.
func (f FetcherFunc) FetchTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	return f(ctx)
}
