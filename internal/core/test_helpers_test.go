package core

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	failSend bool
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.failSend {
		return ErrSendBufferFull
	}
	c.frames = append(c.frames, payload)
	return nil
}

func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) ofType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range c.messages(t) {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// newTestHub returns a hub whose handlers are driven directly by the test.
func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(time.Hour, nil)
	t.Cleanup(h.shutdown)
	return h
}

func connect(h *Hub, clientID, roomID string) *fakeConn {
	conn := &fakeConn{}
	h.handleConnect(conn, clientID, roomID)
	return conn
}

func resetAll(conns ...*fakeConn) {
	for _, c := range conns {
		c.reset()
	}
}

// requireRoomsConsistent checks that every room size matches the number of
// open registered connections in that room.
func requireRoomsConsistent(t *testing.T, st *State) {
	t.Helper()

	open := make(map[string]int)
	for _, rec := range st.Registry.Records() {
		if rec.Conn.Open() {
			open[rec.RoomID]++
		}
	}
	for roomID, members := range st.Rooms.rooms {
		require.NotEmpty(t, members, "room %q kept with no members", roomID)
		require.Equal(t, open[roomID], st.Rooms.Size(roomID), "room %q", roomID)
	}
	for roomID, n := range open {
		require.Equal(t, n, st.Rooms.Size(roomID), "room %q", roomID)
	}
}
