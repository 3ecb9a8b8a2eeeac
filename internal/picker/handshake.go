// Package picker implements the picker side of the broker protocol: reading launch
// parameters, announcing the picker to its opener, and reporting the selection.
package picker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/standardbeagle/mmbroker/internal/broker"
	"github.com/standardbeagle/mmbroker/internal/protocol"
	"github.com/standardbeagle/mmbroker/internal/querystring"
)

// ParamOpenerOrigin is the launch parameter carrying the opener's origin.
const ParamOpenerOrigin = "opener_origin"

var (
	// ErrNoOpener is returned by Start when the launch parameters do not address an opener.
	ErrNoOpener = errors.New("no opener origin in launch parameters")

	// ErrNoModel is returned by a keyed Start when the launch parameters carry no model.
	ErrNoModel = errors.New("no model in launch parameters")
)

// Opener is the picker's link to the context that launched it.
type Opener interface {
	Post(env protocol.Envelope) error
	// Messages yields inbound envelopes and is closed when the link drops.
	Messages() <-chan protocol.Envelope
	Close() error
}

// Dialer links a picker to the opener at origin.
type Dialer interface {
	Dial(ctx context.Context, origin string) (Opener, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, origin string) (Opener, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, origin string) (Opener, error) {
	return f(ctx, origin)
}

// Handshake announces a picker to its opener.
//
// A generic handshake is addressed by opener_origin and tags everything with the
// mediamanager action. A keyed handshake is addressed by site, tags its result with
// the model parameter and sends nothing else.
type Handshake struct {
	// OnMessage receives envelopes from the opener that carry the handshake's action.
	OnMessage func(env protocol.Envelope)

	query  string
	dialer Dialer
	keyed  bool
	action string

	mu     sync.Mutex
	opener Opener
	origin string
	done   chan struct{}
}

// New creates a handshake for a picker loaded with the given location query string.
func New(query string, dialer Dialer) *Handshake {
	return &Handshake{
		query:  query,
		dialer: dialer,
		action: protocol.ActionMediaManager,
	}
}

// NewKeyed creates a keyed handshake for a picker launched with site, key and model
// parameters.
func NewKeyed(query string, dialer Dialer) *Handshake {
	return &Handshake{
		query:  query,
		dialer: dialer,
		keyed:  true,
	}
}

// Keyed reports whether the handshake speaks the keyed protocol.
func (h *Handshake) Keyed() bool {
	return h.keyed
}

// Action returns the tag the handshake answers to. For a keyed handshake it is the
// model, known after Start.
func (h *Handshake) Action() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.action
}

// Start reads the launch parameters and, if they address an opener that can be reached,
// sends the connected announcement (generic only) and starts listening. The handshake counts as opened
// only when Start returns nil.
func (h *Handshake) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opener != nil {
		return nil
	}

	params := querystring.Decode(h.query)
	originParam := ParamOpenerOrigin
	if h.keyed {
		originParam = broker.ParamSite
	}
	origin, ok := originOf(params, originParam)
	if !ok {
		return ErrNoOpener
	}
	action := h.action
	if h.keyed {
		model, ok := stringParam(params, broker.ParamModel)
		if !ok || model == "" {
			return ErrNoModel
		}
		action = model
	}

	if h.dialer == nil {
		return ErrNoOpener
	}
	opener, err := h.dialer.Dial(ctx, origin)
	if err != nil {
		return fmt.Errorf("failed to reach opener %s: %w", origin, err)
	}
	if opener == nil {
		return ErrNoOpener
	}

	if !h.keyed {
		if err := opener.Post(protocol.NewMessage(action, protocol.KindConnected, nil)); err != nil {
			_ = opener.Close()
			return fmt.Errorf("failed to announce to opener %s: %w", origin, err)
		}
	}

	h.action = action
	h.opener = opener
	h.origin = origin
	h.done = make(chan struct{})
	go h.listen(opener, action, h.done)

	log.Printf("[DEBUG] picker: connected to opener %s", origin)
	return nil
}

// Opened reports whether the handshake reached an opener.
func (h *Handshake) Opened() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opener != nil
}

// OpenerOrigin returns the origin the handshake connected to, or "".
func (h *Handshake) OpenerOrigin() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.origin
}

// Done is closed when the opener link drops. It is nil before a successful Start.
func (h *Handshake) Done() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// Select reports the chosen file to the opener. No-op when not opened.
func (h *Handshake) Select(file protocol.File) error {
	return h.Send(file.Payload())
}

// Send reports a selection payload: an insert-file message for a generic handshake, a
// model-keyed envelope for a keyed one. No-op when not opened.
func (h *Handshake) Send(payload map[string]any) error {
	h.mu.Lock()
	opener, action := h.opener, h.action
	h.mu.Unlock()

	if opener == nil {
		return nil
	}
	if h.keyed {
		return opener.Post(protocol.NewKeyed(action, payload))
	}
	return opener.Post(protocol.NewMessage(action, protocol.KindInsertFile, payload))
}

// Stop sends the closed announcement without waiting for any acknowledgement and drops
// the link. A keyed handshake has no announcement and only drops the link. Safe to call
// more than once.
func (h *Handshake) Stop() {
	h.mu.Lock()
	opener, action := h.opener, h.action
	h.opener = nil
	h.mu.Unlock()

	if opener == nil {
		return
	}
	if !h.keyed {
		if err := opener.Post(protocol.NewMessage(action, protocol.KindClosed, nil)); err != nil {
			log.Printf("[DEBUG] picker: closed announcement failed: %v", err)
		}
	}
	_ = opener.Close()
}

func (h *Handshake) listen(opener Opener, action string, done chan struct{}) {
	defer close(done)
	for env := range opener.Messages() {
		if !env.Matches(action) {
			continue
		}
		if h.OnMessage != nil {
			h.OnMessage(env)
		}
	}
}

// stringParam returns the single string value of name.
func stringParam(params *querystring.Values, name string) (string, bool) {
	v, ok := params.Get(name)
	if !ok || v.IsSeq() {
		return "", false
	}
	s := v.Scalar()
	if s.IsUndefined() || s.IsInt() {
		return "", false
	}
	return s.String(), true
}

// originOf returns the origin-valued parameter name as scheme://host. A single
// trailing slash is allowed; any other path or a query is not.
func originOf(params *querystring.Values, name string) (string, bool) {
	raw, ok := stringParam(params, name)
	if !ok {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	if strings.Trim(u.Path, "/") != "" || u.RawQuery != "" {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}
