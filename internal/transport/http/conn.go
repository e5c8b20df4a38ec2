package http

import (
	"sync"

	"github.com/coder/websocket"

	"github.com/vovakirdan/signal-relay/internal/core"
)

// wsConn adapts a WebSocket to core.Conn. Sends are queued to a bounded
// buffer drained by the handler's write loop.
type wsConn struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, buffer int) *wsConn {
	if buffer <= 0 {
		buffer = 1
	}
	return &wsConn{
		ws:   ws,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(payload []byte) error {
	select {
	case <-c.done:
		return core.ErrConnClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return core.ErrSendBufferFull
	}
}

func (c *wsConn) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close marks the connection closed and wakes the write loop, which performs
// the actual close handshake.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}
