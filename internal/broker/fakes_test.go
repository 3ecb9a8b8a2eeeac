package broker

import (
	"context"
	"errors"
	"sync"

	"github.com/standardbeagle/mmbroker/internal/protocol"
)

type fakeWindow struct {
	mu       sync.Mutex
	focused  int
	closed   int
	posted   []protocol.Envelope
	attached Source
	focusErr error
}

func (w *fakeWindow) Focus() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.focused++
	return w.focusErr
}

func (w *fakeWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed++
	return nil
}

func (w *fakeWindow) Post(env protocol.Envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.posted = append(w.posted, env)
	return nil
}

func (w *fakeWindow) Attach(src Source) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attached = src
}

func (w *fakeWindow) counts() (focused, closed int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused, w.closed
}

type fakeLauncher struct {
	mu       sync.Mutex
	specs    []LaunchSpec
	windows  []*fakeWindow
	ctxs     []context.Context
	fail     error
	focusErr error
}

func (l *fakeLauncher) Launch(ctx context.Context, spec LaunchSpec) (Window, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return nil, l.fail
	}
	w := &fakeWindow{focusErr: l.focusErr}
	l.ctxs = append(l.ctxs, ctx)
	l.specs = append(l.specs, spec)
	l.windows = append(l.windows, w)
	return w, nil
}

func (l *fakeLauncher) launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *fakeLauncher) last() *fakeWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.windows) == 0 {
		return nil
	}
	return l.windows[len(l.windows)-1]
}

type fakeSource struct {
	origin string
}

func (s *fakeSource) ID() string                       { return "peer-1" }
func (s *fakeSource) Origin() string                   { return s.origin }
func (s *fakeSource) Post(env protocol.Envelope) error { return nil }
func (s *fakeSource) Close() error                     { return nil }

var errPopupBlocked = errors.New("popup blocked")

func generic(kind protocol.Kind, payload map[string]any) Event {
	return Event{
		Envelope: protocol.NewMessage(protocol.ActionMediaManager, kind, payload),
		Source:   &fakeSource{origin: "https://media.example.com"},
	}
}

func keyed(key string, payload map[string]any) Event {
	return Event{
		Envelope: protocol.NewKeyed(key, payload),
		Source:   &fakeSource{origin: "https://video.example.com"},
	}
}
