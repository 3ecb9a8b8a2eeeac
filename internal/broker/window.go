package broker

import (
	"context"
	"errors"

	"github.com/standardbeagle/mmbroker/internal/protocol"
)

// Default picker window geometry.
const (
	DefaultWidth  = 1000
	DefaultHeight = 640
)

// ErrNoWindow is returned when an operation needs a picker window and none is open.
var ErrNoWindow = errors.New("no picker window")

// LaunchSpec describes a picker context to launch.
type LaunchSpec struct {
	URL    string
	Name   string
	Width  int
	Height int

	// Action tags control envelopes (focus, close) posted to the picker.
	Action string
}

// Launcher opens picker contexts.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Window, error)
}

// Window is the handle to a launched picker context. Implementations must not call
// back into the controller that owns them.
type Window interface {
	Focus() error
	Close() error
	Post(env protocol.Envelope) error
}

// Source is the context an inbound envelope arrived from.
type Source interface {
	ID() string
	Origin() string
	Post(env protocol.Envelope) error
	Close() error
}

// Attacher is implemented by windows that route Focus/Close/Post through the source
// that announced itself for them.
type Attacher interface {
	Attach(src Source)
}

// Event is one inbound envelope with its source.
type Event struct {
	Envelope protocol.Envelope
	Source   Source
}

// Dispatcher consumes inbound events. The transport calls Dispatch from a single
// goroutine, in arrival order.
type Dispatcher interface {
	Dispatch(ev Event)
}
