package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/mmbroker/internal/broker"
	"github.com/standardbeagle/mmbroker/internal/protocol"
)

const pickerOrigin = "https://media.example.com"

type recorder struct {
	mu     sync.Mutex
	events []broker.Event
}

func (r *recorder) Dispatch(ev broker.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []broker.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broker.Event(nil), r.events...)
}

func startServer(t *testing.T) (*Server, *recorder) {
	t.Helper()
	s := NewServer(Config{AllowedOrigins: []string{pickerOrigin + "/"}})
	rec := &recorder{}
	s.Register(rec)

	require.NoError(t, s.Start(context.Background()))
	<-s.Ready()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s, rec
}

func dial(t *testing.T, s *Server, origin string) (*websocket.Conn, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(s.Origin(), "http") + WebSocketPath
	header := http.Header{}
	header.Set("Origin", origin)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, err
}

func TestServerDispatchesInOrder(t *testing.T) {
	s, rec := startServer(t)

	conn, err := dial(t, s, pickerOrigin)
	require.NoError(t, err)

	frames := []string{
		`{"action":"mediamanager","msg":"connected"}`,
		`not json`,
		`{"foo":1}`,
		`{"action":"mediamanager","msg":"insert-file","path":"a.png"}`,
		`{"key":"videomanager","id":7}`,
	}
	for _, f := range frames {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(f)))
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, 2*time.Second, 10*time.Millisecond)

	events := rec.snapshot()
	assert.Equal(t, protocol.KindConnected, events[0].Envelope.Msg)
	assert.Equal(t, protocol.KindInsertFile, events[1].Envelope.Msg)
	assert.Equal(t, "a.png", events[1].Envelope.Payload["path"])
	assert.Equal(t, "videomanager", events[2].Envelope.Key)

	src := events[0].Source
	require.NotNil(t, src)
	assert.NotEmpty(t, src.ID())
	assert.Equal(t, pickerOrigin, src.Origin())

	stats := s.Stats()
	assert.Equal(t, int64(3), stats.Received)
	assert.Equal(t, int64(2), stats.Dropped)
	assert.Equal(t, 1, stats.Connections)
	assert.True(t, stats.Running)
}

func TestServerPostReachesPicker(t *testing.T) {
	s, rec := startServer(t)

	conn, err := dial(t, s, pickerOrigin)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"mediamanager","msg":"connected"}`)))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	src := rec.snapshot()[0].Source
	require.NoError(t, src.Post(protocol.NewMessage(protocol.ActionMediaManager, protocol.KindFocus, nil)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "mediamanager", got["action"])
	assert.Equal(t, "focus", got["msg"])

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	assert.ErrorIs(t, src.Post(protocol.NewMessage(protocol.ActionMediaManager, protocol.KindClose, nil)), ErrPeerClosed)
}

func TestServerRejectsForeignOrigin(t *testing.T) {
	s, _ := startServer(t)

	_, err := dial(t, s, "https://evil.example.com")
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, int64(1), s.Stats().Rejected)

	s.AllowOrigin("https://evil.example.com")
	_, err = dial(t, s, "https://evil.example.com")
	assert.NoError(t, err)
}

func TestServerServesHandshakeScript(t *testing.T) {
	s, _ := startServer(t)

	resp, err := http.Get(s.Origin() + ScriptPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "window.mmbroker")
}

func TestServerLifecycle(t *testing.T) {
	s := NewServer(Config{})
	assert.Equal(t, "127.0.0.1:0", s.ListenAddr)
	assert.False(t, s.IsRunning())
	assert.Error(t, s.Stop(context.Background()))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.NotEqual(t, "127.0.0.1:0", s.ListenAddr)
	assert.Error(t, s.Start(context.Background()))

	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestOriginFor(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:8080", "http://127.0.0.1:8080"},
		{"0.0.0.0:9000", "http://127.0.0.1:9000"},
		{"[::]:9000", "http://127.0.0.1:9000"},
		{":7000", "http://127.0.0.1:7000"},
		{"[::1]:7000", "http://[::1]:7000"},
		{"localhost:80", "http://localhost:80"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, originFor(tt.addr))
		})
	}
}

func TestOriginOf(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://media.example.com/manager?x=1", "https://media.example.com"},
		{"http://localhost:8000/", "http://localhost:8000"},
		{"/relative/path", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, OriginOf(tt.url))
		})
	}
}
