package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/standardbeagle/mmbroker/internal/protocol"
)

const writeTimeout = 5 * time.Second

// ErrPeerClosed is returned when posting to a closed peer.
var ErrPeerClosed = errors.New("peer closed")

// Peer is one connected picker context. It implements broker.Source.
type Peer struct {
	id        string
	origin    string
	conn      *websocket.Conn
	connected time.Time

	writeMu sync.Mutex
	closed  atomic.Bool
}

func newPeer(id, origin string, conn *websocket.Conn) *Peer {
	return &Peer{
		id:        id,
		origin:    origin,
		conn:      conn,
		connected: time.Now(),
	}
}

// ID returns the peer's connection id.
func (p *Peer) ID() string { return p.id }

// Origin returns the Origin header the peer connected with.
func (p *Peer) Origin() string { return p.origin }

// Post sends env to the picker.
func (p *Peer) Post(env protocol.Envelope) error {
	if p.closed.Load() {
		return ErrPeerClosed
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := p.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal close frame and closes the connection. Idempotent.
func (p *Peer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.writeMu.Lock()
	_ = p.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	p.writeMu.Unlock()

	return p.conn.Close()
}
