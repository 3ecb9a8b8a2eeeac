package broker

import (
	"context"
	"errors"
	"log"

	"github.com/standardbeagle/mmbroker/internal/protocol"
	"github.com/standardbeagle/mmbroker/internal/querystring"
)

// ParamOpenerOrigin is the launch parameter the picker replies to.
const ParamOpenerOrigin = "opener_origin"

// Meta accompanies a picked file URL.
type Meta struct {
	Alt string `json:"alt"`
}

// Selection is a resolved pick from the generic protocol.
type Selection struct {
	URL  string        `json:"url"`
	Meta Meta          `json:"meta"`
	File protocol.File `json:"file"`
}

// InsertFunc receives the insertable URL and its metadata.
type InsertFunc func(url string, meta Meta)

// Config configures a Controller.
type Config struct {
	// URL is the media manager page to launch.
	URL string
	// Origin is this opener's scheme://host, sent to the picker as opener_origin.
	Origin string

	Width  int
	Height int

	// AutoClose is the default for requests that do not override it.
	AutoClose bool

	// Action is the protocol tag. Defaults to protocol.ActionMediaManager.
	Action string
	// Name is the picker window name. Defaults to "Media Manager".
	Name string

	Launcher Launcher

	// Fallback receives selections that arrive with no request pending.
	Fallback func(Selection)
}

// Controller drives the generic media manager protocol.
type Controller struct {
	session[Selection]

	action    string
	autoClose bool
	fallback  func(Selection)
}

// NewController validates cfg and computes the launch URL once.
func NewController(cfg Config) (*Controller, error) {
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

	if cfg.Action == "" {
		cfg.Action = protocol.ActionMediaManager
	}
	if cfg.Name == "" {
		cfg.Name = "Media Manager"
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}

	params := querystring.New()
	params.SetString(ParamOpenerOrigin, origin)

	c := &Controller{
		action:    cfg.Action,
		autoClose: cfg.AutoClose,
		fallback:  cfg.Fallback,
	}
	c.session.init(cfg.Action, cfg.Launcher, LaunchSpec{
		URL:    querystring.AppendTo(cfg.URL, params),
		Name:   cfg.Name,
		Width:  cfg.Width,
		Height: cfg.Height,
		Action: cfg.Action,
	})
	return c, nil
}

// Action returns the protocol tag this controller answers to.
func (c *Controller) Action() string {
	return c.action
}

// RequestInsert registers cb as the single pending request, replacing (and settling
// with ErrSuperseded) any earlier one. The picker is opened if none is held, otherwise
// the existing one is focused.
func (c *Controller) RequestInsert(cb InsertFunc, opts ...RequestOption) *Request {
	return c.request(func(sel Selection) {
		if cb != nil {
			cb(sel.URL, sel.Meta)
		}
	}, opts...)
}

func (c *Controller) request(cb func(Selection), opts ...RequestOption) *Request {
	o := requestOptions{autoClose: c.autoClose}
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	req := c.registerLocked(cb, o.autoClose)
	c.openLocked()
	return req
}

// Pick requests a selection and waits for it. When ctx ends first the request is
// cancelled; the picker stays open.
func (c *Controller) Pick(ctx context.Context, opts ...RequestOption) (Selection, error) {
	var sel Selection
	req := c.request(func(s Selection) { sel = s }, opts...)

	select {
	case <-req.Done():
	case <-ctx.Done():
		c.Cancel(req)
		<-req.Done()
	}

	if err := req.Err(); err != nil {
		if errors.Is(err, ErrCancelled) && ctx.Err() != nil {
			return Selection{}, ctx.Err()
		}
		return Selection{}, err
	}
	return sel, nil
}

// Post sends a control envelope tagged with this controller's action to the picker.
func (c *Controller) Post(kind protocol.Kind, payload map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.win == nil {
		return ErrNoWindow
	}
	return c.win.Post(protocol.NewMessage(c.action, kind, payload))
}

// Dispatch handles one inbound event. Events arriving while inactive or carrying
// another protocol's tag are ignored.
func (c *Controller) Dispatch(ev Event) {
	env := ev.Envelope

	c.mu.Lock()
	if !c.active || !env.Matches(c.action) {
		c.mu.Unlock()
		return
	}

	switch env.Msg {
	case protocol.KindConnected:
		c.markConnectedLocked(ev.Source)
		c.mu.Unlock()

	case protocol.KindInsertFile:
		if state := c.state; state != StateConnected {
			c.mu.Unlock()
			log.Printf("[DEBUG] %s: insert-file while %s, ignored", c.name, state)
			return
		}
		file, ok := protocol.SelectedFile(env.Payload)
		if !ok {
			c.mu.Unlock()
			log.Printf("[DEBUG] %s: insert-file without a file path, ignored", c.name)
			return
		}
		sel := Selection{
			URL:  protocol.MediaURL(file.Path),
			Meta: Meta{Alt: file.Name},
			File: file,
		}
		req, cb := c.takeLocked()
		win := c.win
		c.mu.Unlock()

		c.resolve(req, cb, sel, win)

	case protocol.KindClosed:
		c.markDisconnectedLocked()
		c.closeLocked()
		c.mu.Unlock()

	default:
		c.mu.Unlock()
	}
}

func (c *Controller) resolve(req *Request, cb func(Selection), sel Selection, win Window) {
	if req == nil {
		if c.fallback != nil {
			c.fallback(sel)
			return
		}
		log.Printf("[DEBUG] %s: %s picked with no request pending and no fallback", c.name, sel.URL)
		return
	}

	if !deliver(req, cb, sel) {
		return
	}
	if req.AutoClose {
		c.closeWindow(win)
	}
}
