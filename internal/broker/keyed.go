package broker

import (
	"context"
	"errors"
	"log"

	"github.com/standardbeagle/mmbroker/internal/protocol"
	"github.com/standardbeagle/mmbroker/internal/querystring"
)

// Keyed launch parameters.
const (
	ParamSite  = "site"
	ParamKey   = "key"
	ParamModel = "model"
)

// KeyedFunc receives the raw payload of a keyed envelope.
type KeyedFunc func(payload map[string]any)

// KeyedConfig configures a KeyedController.
type KeyedConfig struct {
	// URL is the video manager page to launch.
	URL string
	// Origin is this opener's scheme://host; it is sent as site with a trailing slash.
	Origin string
	// Key is the shared secret passed to the video manager.
	Key string
	// Model is the message-key tag inbound envelopes must carry. Defaults to
	// protocol.ModelVideoManager.
	Model string

	Width  int
	Height int

	// Name is the picker window name. Defaults to "Video Manager".
	Name string

	Launcher Launcher
}

// KeyedController drives the keyed video manager protocol. A single inbound kind is
// expected and the picker is always closed after a result.
type KeyedController struct {
	session[map[string]any]

	model string
}

// NewKeyedController validates cfg and computes the launch URL once.
func NewKeyedController(cfg KeyedConfig) (*KeyedController, error) {
	if cfg.Launcher == nil {
		return nil, errors.New("launcher required")
	}
	if err := validateLaunchURL(cfg.URL); err != nil {
		return nil, err
	}
	origin, err := normalizeOrigin(cfg.Origin)
	if err != nil {
		return nil, err
	}

	if cfg.Model == "" {
		cfg.Model = protocol.ModelVideoManager
	}
	if cfg.Name == "" {
		cfg.Name = "Video Manager"
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}

	params := querystring.New()
	params.SetString(ParamSite, origin+"/")
	params.SetString(ParamKey, cfg.Key)
	params.SetString(ParamModel, cfg.Model)

	c := &KeyedController{model: cfg.Model}
	c.session.init(cfg.Model, cfg.Launcher, LaunchSpec{
		URL:    querystring.AppendTo(cfg.URL, params),
		Name:   cfg.Name,
		Width:  cfg.Width,
		Height: cfg.Height,
		Action: cfg.Model,
	})
	return c, nil
}

// Model returns the message-key tag this controller answers to.
func (c *KeyedController) Model() string {
	return c.model
}

// RequestInsert registers cb as the single pending request, superseding any earlier
// one, and opens or focuses the picker.
//
// A keyed picker sends nothing before its result, so its window has no attached source
// until then. Focusing an already open picker therefore usually fails; the failure is
// logged at [WARN] and the new request still waits on the open picker.
func (c *KeyedController) RequestInsert(cb KeyedFunc) *Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := c.registerLocked(cb, true)
	c.openLocked()
	return req
}

// Pick requests a payload and waits for it. When ctx ends first the request is
// cancelled; the picker stays open.
func (c *KeyedController) Pick(ctx context.Context) (map[string]any, error) {
	var payload map[string]any
	req := c.RequestInsert(func(p map[string]any) { payload = p })

	select {
	case <-req.Done():
	case <-ctx.Done():
		c.Cancel(req)
		<-req.Done()
	}

	if err := req.Err(); err != nil {
		if errors.Is(err, ErrCancelled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return payload, nil
}

// Dispatch handles one inbound event. Anything whose key differs from the model tag is
// ignored, as is a matching event with no request pending.
func (c *KeyedController) Dispatch(ev Event) {
	env := ev.Envelope

	c.mu.Lock()
	if !env.MatchesKey(c.model) {
		c.mu.Unlock()
		return
	}
	if c.req == nil {
		c.mu.Unlock()
		log.Printf("[DEBUG] %s: payload with no request pending, ignored", c.name)
		return
	}

	c.markConnectedLocked(ev.Source)
	req, cb := c.takeLocked()
	win := c.win
	c.mu.Unlock()

	if deliver(req, cb, env.Payload) {
		c.closeWindow(win)
	}
}
