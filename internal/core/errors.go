package core

import "errors"

var (
	// ErrConnClosed is returned by Conn.Send once the connection is no longer open.
	ErrConnClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned by Conn.Send when a slow consumer cannot keep up.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrHubStopped is returned by hub calls made after Run has exited.
	ErrHubStopped = errors.New("hub stopped")
)
