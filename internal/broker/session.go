package broker

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
)

// session is the picker lifecycle shared by both protocol variants: one window, one
// pending request, one state. T is the result type handed to request callbacks.
//
// All fields are guarded by mu. Launcher and Window calls happen under mu; request
// callbacks never do.
type session[T any] struct {
	mu       sync.Mutex
	name     string
	launcher Launcher
	spec     LaunchSpec

	state   State
	active  bool
	win     Window
	lastErr error

	req *Request
	cb  func(T)
}

func (s *session[T]) init(name string, launcher Launcher, spec LaunchSpec) {
	s.name = name
	s.launcher = launcher
	s.spec = spec
	s.state = StateDisconnected
}

// Open launches the picker. If a picker is already open it is focused instead.
// Launch failures are not returned: they are logged, recorded in LastError, and the
// state does not advance.
func (s *session[T]) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openLocked()
}

// Close clears the active flag, closes the picker if open, and discards any pending
// request without invoking it. Safe to call in any state.
func (s *session[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Cancel discards r if it is still the pending request. The picker stays open.
func (s *session[T]) Cancel(r *Request) {
	if r == nil {
		return
	}
	s.mu.Lock()
	if s.req == r {
		s.req = nil
		s.cb = nil
	}
	s.mu.Unlock()
	r.cancel(ErrCancelled)
}

// MarkConnected records that the picker announced itself.
func (s *session[T]) MarkConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markConnectedLocked(nil)
}

// MarkDisconnected records that the picker went away: the window handle is dropped
// (not closed) and any pending request is discarded.
func (s *session[T]) MarkDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markDisconnectedLocked()
}

// State returns the current connection state.
func (s *session[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether the state is StateConnected.
func (s *session[T]) Connected() bool {
	return s.State() == StateConnected
}

// Active reports whether Open was called since the last Close.
func (s *session[T]) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// HasWindow reports whether a picker handle is held.
func (s *session[T]) HasWindow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.win != nil
}

// Pending returns the pending request, or nil.
func (s *session[T]) Pending() *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req
}

// LastError returns the most recent launch failure, or nil after a successful launch.
func (s *session[T]) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LaunchURL returns the picker URL with launch parameters applied.
func (s *session[T]) LaunchURL() string {
	return s.spec.URL
}

func (s *session[T]) openLocked() {
	if s.win != nil {
		s.focusLocked()
		return
	}

	s.active = true

	// A launched picker outlives the call; dropping the handle later does not stop it.
	win, err := s.launcher.Launch(context.Background(), s.spec)
	if err == nil && win == nil {
		err = ErrNoWindow
	}
	if err != nil {
		s.lastErr = err
		log.Printf("[WARN] %s: launch failed: %v", s.name, err)
		return
	}

	s.win = win
	s.lastErr = nil
	s.setStateLocked(StateConnecting)
}

func (s *session[T]) focusLocked() {
	if s.win == nil || !s.active {
		return
	}
	if err := s.win.Focus(); err != nil {
		log.Printf("[WARN] %s: focus failed: %v", s.name, err)
	}
}

func (s *session[T]) closeLocked() {
	s.active = false

	if s.win != nil {
		if err := s.win.Close(); err != nil {
			log.Printf("[DEBUG] %s: window close failed: %v", s.name, err)
		}
	}
	s.dropWindowLocked()
	s.discardLocked(ErrCancelled)

	if s.state != StateDisconnected {
		s.setStateLocked(StateClosed)
	}
}

// closeWindow closes the picker only if win is still the current handle.
func (s *session[T]) closeWindow(win Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if win != nil && s.win != win {
		return
	}
	s.closeLocked()
}

func (s *session[T]) markConnectedLocked(src Source) {
	if a, ok := s.win.(Attacher); ok && src != nil {
		a.Attach(src)
	}
	s.setStateLocked(StateConnected)
}

func (s *session[T]) markDisconnectedLocked() {
	s.dropWindowLocked()
	s.discardLocked(ErrCancelled)
	if s.state != StateDisconnected {
		s.setStateLocked(StateClosed)
	}
}

func (s *session[T]) dropWindowLocked() {
	s.win = nil
}

// registerLocked installs a new pending request, superseding any existing one.
func (s *session[T]) registerLocked(cb func(T), autoClose bool) *Request {
	if s.req != nil {
		s.req.cancel(ErrSuperseded)
		log.Printf("[DEBUG] %s: request %s superseded", s.name, s.req.ID)
	}
	s.req = newRequest(autoClose)
	s.cb = cb
	return s.req
}

// takeLocked removes and returns the pending request and its callback.
func (s *session[T]) takeLocked() (*Request, func(T)) {
	req, cb := s.req, s.cb
	s.req = nil
	s.cb = nil
	return req, cb
}

func (s *session[T]) discardLocked(err error) {
	req, _ := s.takeLocked()
	if req != nil {
		req.cancel(err)
	}
}

func (s *session[T]) setStateLocked(next State) {
	if s.state == next {
		return
	}
	log.Printf("[DEBUG] %s: %s -> %s", s.name, s.state, next)
	s.state = next
}

// deliver runs cb for req outside any lock.
func deliver[T any](req *Request, cb func(T), v T) bool {
	return req.deliver(func() {
		if cb != nil {
			cb(v)
		}
	})
}

// normalizeOrigin validates a scheme://host origin and strips any trailing slash.
func normalizeOrigin(origin string) (string, error) {
	origin = strings.TrimRight(origin, "/")
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" || (u.Path != "" && u.Path != "/") {
		return "", fmt.Errorf("invalid origin %q: want scheme://host", origin)
	}
	return origin, nil
}

func validateLaunchURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid picker URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid picker URL %q: want an absolute URL", raw)
	}
	return nil
}
