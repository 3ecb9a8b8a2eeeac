// Package launcher opens picker contexts as browser windows and adapts them to
// broker.Window. Control messages reach the page through the relay peer that announced
// itself for the window; the launched process is only killed as a last resort.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"sync"

	"github.com/standardbeagle/mmbroker/internal/broker"
	"github.com/standardbeagle/mmbroker/internal/protocol"
)

var (
	// ErrNotConnected is returned when a window has no picker peer attached yet.
	ErrNotConnected = errors.New("picker not connected")

	// ErrNoBrowser is returned when app mode is requested and no Chromium-family
	// browser can be found.
	ErrNoBrowser = errors.New("no chromium-based browser found")
)

// appModeBrowsers are looked up in order when AppMode is set without a Command.
var appModeBrowsers = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"microsoft-edge",
	"brave-browser",
}

// Config configures how picker windows are opened.
type Config struct {
	// Command is the browser executable. Empty uses the platform opener
	// (xdg-open, open, or ShellExecute).
	Command string
	// Args are passed before the URL.
	Args []string
	// AppMode opens a chromeless Chromium window sized to the launch spec.
	AppMode bool
}

// Launcher implements broker.Launcher.
type Launcher struct {
	config   Config
	lookPath func(string) (string, error)
}

// New creates a launcher.
func New(config Config) *Launcher {
	return &Launcher{config: config, lookPath: exec.LookPath}
}

// Launch opens spec.URL. The returned window is usable immediately, but Focus and Post
// fail with ErrNotConnected until the picker's peer is attached.
func (l *Launcher) Launch(ctx context.Context, spec broker.LaunchSpec) (broker.Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := newWindow(spec)

	name, args, err := l.command(spec)
	if err != nil {
		return nil, err
	}
	if name == "" {
		if err := openDefault(spec.URL); err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", spec.URL, err)
		}
		log.Printf("[DEBUG] launcher: opened %s with system handler", spec.Name)
		return w, nil
	}

	cmd := exec.Command(name, args...)
	setProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", name, err)
	}
	log.Printf("[DEBUG] launcher: started %s (pid %d) for %s", name, cmd.Process.Pid, spec.Name)

	w.cmd = cmd
	go w.wait()
	return w, nil
}

// command resolves the executable and arguments for spec. An empty name means the
// platform opener should be used.
func (l *Launcher) command(spec broker.LaunchSpec) (string, []string, error) {
	name := l.config.Command
	if name == "" && l.config.AppMode {
		for _, candidate := range appModeBrowsers {
			if path, err := l.lookPath(candidate); err == nil {
				name = path
				break
			}
		}
		if name == "" {
			return "", nil, ErrNoBrowser
		}
	}
	if name == "" {
		return "", nil, nil
	}

	args := append([]string(nil), l.config.Args...)
	if l.config.AppMode {
		args = append(args, appModeArgs(spec)...)
	} else {
		args = append(args, spec.URL)
	}
	return name, args, nil
}

func appModeArgs(spec broker.LaunchSpec) []string {
	width, height := spec.Width, spec.Height
	if width <= 0 {
		width = broker.DefaultWidth
	}
	if height <= 0 {
		height = broker.DefaultHeight
	}
	return []string{
		"--app=" + spec.URL,
		"--window-size=" + strconv.Itoa(width) + "," + strconv.Itoa(height),
		"--new-window",
	}
}

// Window is a launched picker context.
type Window struct {
	spec broker.LaunchSpec

	mu     sync.Mutex
	cmd    *exec.Cmd
	peer   broker.Source
	closed bool
	exited chan struct{}
}

func newWindow(spec broker.LaunchSpec) *Window {
	return &Window{spec: spec, exited: make(chan struct{})}
}

// Attach routes control messages through src from now on.
func (w *Window) Attach(src broker.Source) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.peer = src
}

// Peer returns the attached peer, or nil.
func (w *Window) Peer() broker.Source {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.peer
}

// Focus asks the picker to raise itself.
func (w *Window) Focus() error {
	return w.Post(protocol.NewMessage(w.spec.Action, protocol.KindFocus, nil))
}

// Post sends env to the attached picker.
func (w *Window) Post(env protocol.Envelope) error {
	w.mu.Lock()
	peer, closed := w.peer, w.closed
	w.mu.Unlock()

	if closed {
		return broker.ErrNoWindow
	}
	if peer == nil {
		return ErrNotConnected
	}
	return peer.Post(env)
}

// Close asks the picker to close, drops the peer, and kills the launched process if it
// is still running. Idempotent.
func (w *Window) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	peer, cmd := w.peer, w.cmd
	w.mu.Unlock()

	if peer != nil {
		if err := peer.Post(protocol.NewMessage(w.spec.Action, protocol.KindClose, nil)); err != nil {
			log.Printf("[DEBUG] launcher: close message to %s failed: %v", w.spec.Name, err)
		}
		_ = peer.Close()
	}

	if cmd != nil && cmd.Process != nil && !w.hasExited() {
		if err := terminate(cmd); err != nil {
			log.Printf("[DEBUG] launcher: terminate pid %d: %v", cmd.Process.Pid, err)
		}
	}
	return nil
}

// Exited is closed when the launched process exits. It never closes for windows
// opened through the platform handler.
func (w *Window) Exited() <-chan struct{} {
	return w.exited
}

func (w *Window) hasExited() bool {
	select {
	case <-w.exited:
		return true
	default:
		return false
	}
}

func (w *Window) wait() {
	_ = w.cmd.Wait()
	close(w.exited)
}
