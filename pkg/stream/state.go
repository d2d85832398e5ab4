package stream

// State is the lifecycle state of a push channel connection.
type State int

const (
	// Idle means no channel and no pending reconnect.
	Idle State = iota
	// Connecting means a dial is in flight.
	Connecting
	// Open means frames are being delivered.
	Open
	// Reconnecting means a reconnect timer is pending.
	Reconnecting
	// Failed means reconnection gave up. Only Connect leaves this state.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
