package picker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/standardbeagle/mmbroker/internal/protocol"
)

// WebSocketPath is the opener relay's WebSocket endpoint.
const WebSocketPath = "/__mmbroker/ws"

// WebSocketDialer reaches an opener through its relay.
type WebSocketDialer struct {
	// Origin is sent as the Origin header; the relay only accepts configured pickers.
	Origin string
	// HandshakeTimeout bounds the WebSocket upgrade (default 10s).
	HandshakeTimeout time.Duration
}

// Dial connects to <origin>/__mmbroker/ws.
func (d WebSocketDialer) Dial(ctx context.Context, origin string) (Opener, error) {
	wsURL := strings.TrimRight(origin, "/") + WebSocketPath
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	default:
		return nil, fmt.Errorf("unsupported opener origin %q", origin)
	}

	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	header := http.Header{}
	if d.Origin != "" {
		header.Set("Origin", d.Origin)
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	link := &wsOpener{
		conn:     conn,
		messages: make(chan protocol.Envelope, 16),
	}
	go link.readLoop()
	return link, nil
}

type wsOpener struct {
	conn      *websocket.Conn
	messages  chan protocol.Envelope
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (o *wsOpener) Post(env protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	return o.conn.WriteMessage(websocket.TextMessage, data)
}

func (o *wsOpener) Messages() <-chan protocol.Envelope {
	return o.messages
}

func (o *wsOpener) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.writeMu.Lock()
		_ = o.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		o.writeMu.Unlock()
		err = o.conn.Close()
	})
	return err
}

func (o *wsOpener) readLoop() {
	defer close(o.messages)
	for {
		_, data, err := o.conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			log.Printf("[DEBUG] picker: dropped frame from opener: %v", err)
			continue
		}
		o.messages <- env
	}
}
