package core

// DefaultRoomID is used when a client connects without naming a room.
const DefaultRoomID = "default"

// Conn is the transport-owned handle the core delivers frames to.
// The core never owns the underlying socket; it only sends and checks liveness.
type Conn interface {
	// Send queues a frame without blocking.
	Send(payload []byte) error
	// Open reports whether the connection can still accept frames.
	Open() bool
	// Close asks the transport to shut the connection down. It must not block.
	Close() error
}

// ClientRecord binds a live connection to a client identity and a room.
type ClientRecord struct {
	ClientID string
	RoomID   string
	Conn     Conn

	heartbeat *Heartbeat
	seq       uint64 // registration order
}
