// Package relay is the opener's cross-context channel: picker pages connect to it over
// WebSocket, and every decoded envelope is handed to the registered dispatchers from a
// single goroutine in arrival order.
package relay

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/standardbeagle/mmbroker/internal/broker"
	"github.com/standardbeagle/mmbroker/internal/protocol"
	"github.com/standardbeagle/mmbroker/internal/relay/scripts"
)

// Endpoint paths served by the relay.
const (
	WebSocketPath = scripts.WebSocketPath
	ScriptPath    = "/__mmbroker/handshake.js"
)

// Config holds configuration for creating a relay server.
type Config struct {
	// ListenAddr defaults to 127.0.0.1:0 (auto-assigned port).
	ListenAddr string
	// AllowedOrigins are the exact picker origins accepted on the WebSocket endpoint.
	AllowedOrigins []string
	// EventBuffer is the inbound event queue length (default 64).
	EventBuffer int
}

// Server accepts picker connections and dispatches their envelopes.
type Server struct {
	ListenAddr string

	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	running    atomic.Bool
	startTime  time.Time
	mu         sync.Mutex
	cancelFunc context.CancelFunc

	originsMu sync.RWMutex
	origins   map[string]bool

	dispatchMu  sync.RWMutex
	dispatchers []broker.Dispatcher
	events      chan broker.Event

	peers    sync.Map // id -> *Peer
	received atomic.Int64
	dropped  atomic.Int64
	rejected atomic.Int64

	// Ready signal - closed when server is ready to accept connections
	ready     chan struct{}
	readyOnce sync.Once
}

// Stats holds relay statistics.
type Stats struct {
	ListenAddr  string        `json:"listen_addr"`
	Origin      string        `json:"origin"`
	Running     bool          `json:"running"`
	Uptime      time.Duration `json:"uptime"`
	Connections int           `json:"connections"`
	Received    int64         `json:"received"`
	Dropped     int64         `json:"dropped"`
	Rejected    int64         `json:"rejected"`
}

// NewServer creates a relay server. Call Start to begin listening.
func NewServer(config Config) *Server {
	if config.ListenAddr == "" {
		config.ListenAddr = "127.0.0.1:0"
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}

	s := &Server{
		ListenAddr: config.ListenAddr,
		origins:    make(map[string]bool),
		events:     make(chan broker.Event, config.EventBuffer),
		ready:      make(chan struct{}),
	}
	for _, o := range config.AllowedOrigins {
		s.AllowOrigin(o)
	}
	s.wsUpgrader = websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	return s
}

// AllowOrigin accepts connections whose Origin header equals origin exactly
// (after trimming a trailing slash).
func (s *Server) AllowOrigin(origin string) {
	origin = strings.TrimRight(origin, "/")
	if origin == "" {
		return
	}
	s.originsMu.Lock()
	s.origins[origin] = true
	s.originsMu.Unlock()
}

// Register adds a dispatcher. Dispatchers receive every decoded envelope and are
// responsible for their own tag filtering.
func (s *Server) Register(d broker.Dispatcher) {
	s.dispatchMu.Lock()
	s.dispatchers = append(s.dispatchers, d)
	s.dispatchMu.Unlock()
}

// Handler returns the relay's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, s.handleWebSocket)
	mux.HandleFunc(ScriptPath, s.handleScript)
	return mux
}

// Start binds the listener and begins serving and dispatching.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return fmt.Errorf("relay server already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	listener, err := net.Listen("tcp", s.ListenAddr)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to listen on %s: %w", s.ListenAddr, err)
	}

	// Update ListenAddr with actual bound address
	s.ListenAddr = listener.Addr().String()

	s.httpServer = &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler(),
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.startTime = time.Now()
	s.running.Store(true)

	go s.runDispatch(ctx)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("[WARN] relay: serve failed: %v", err)
			s.running.Store(false)
		}
	}()

	s.readyOnce.Do(func() {
		close(s.ready)
	})

	return nil
}

// Stop closes every peer and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return fmt.Errorf("relay server not running")
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	s.peers.Range(func(key, value interface{}) bool {
		_ = value.(*Peer).Close()
		return true
	})

	err := s.httpServer.Shutdown(ctx)
	s.running.Store(false)
	return err
}

// Ready returns a channel that is closed when the server is ready to accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// IsRunning returns true if the relay is serving.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// Origin returns the scheme://host pickers use to reach this relay. It is the opener
// origin advertised in launch URLs.
func (s *Server) Origin() string {
	return originFor(s.ListenAddr)
}

// Stats returns relay statistics.
func (s *Server) Stats() Stats {
	stats := Stats{
		ListenAddr: s.ListenAddr,
		Origin:     s.Origin(),
		Running:    s.running.Load(),
		Received:   s.received.Load(),
		Dropped:    s.dropped.Load(),
		Rejected:   s.rejected.Load(),
	}
	if stats.Running {
		stats.Uptime = time.Since(s.startTime)
	}
	s.peers.Range(func(key, value interface{}) bool {
		stats.Connections++
		return true
	})
	return stats
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	s.originsMu.RLock()
	ok := s.origins[origin]
	s.originsMu.RUnlock()
	if !ok {
		s.rejected.Add(1)
		log.Printf("[DEBUG] relay: rejected origin %q", origin)
	}
	return ok
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	peer := newPeer(uuid.NewString(), r.Header.Get("Origin"), conn)
	s.peers.Store(peer.id, peer)
	defer func() {
		s.peers.Delete(peer.id)
		_ = peer.Close()
	}()

	ctx := r.Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		env, err := protocol.Decode(data)
		if err != nil {
			// Foreign or malformed frames are dropped; nothing is sent back.
			s.dropped.Add(1)
			log.Printf("[DEBUG] relay: dropped frame from %s: %v", peer.id, err)
			continue
		}
		s.received.Add(1)

		select {
		case s.events <- broker.Event{Envelope: env, Source: peer}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(scripts.Handshake()))
}

func (s *Server) runDispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.dispatch(ev)
		}
	}
}

func (s *Server) dispatch(ev broker.Event) {
	s.dispatchMu.RLock()
	ds := make([]broker.Dispatcher, len(s.dispatchers))
	copy(ds, s.dispatchers)
	s.dispatchMu.RUnlock()

	for _, d := range ds {
		d.Dispatch(ev)
	}
}

// originFor turns a bound listen address into a browser-reachable origin.
func originFor(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// OriginOf returns the scheme://host of rawURL, or "" if it has none.
func OriginOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
