// Package broker implements the opener side of the media picker protocols.
//
// A controller launches a picker context, tracks its connection state, and resolves at
// most one pending request with the file the user picked. Controller exposes the generic
// "media manager" protocol; KeyedController the keyed "video manager" protocol.
package broker

// State represents the connection state of a controller.
type State uint32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
