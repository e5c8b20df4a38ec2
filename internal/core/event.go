package core

type connectEvent struct {
	conn     Conn
	clientID string
	roomID   string
}

type messageEvent struct {
	conn    Conn
	payload []byte
}

// disconnectEvent covers both close and error; err is nil for a clean close.
type disconnectEvent struct {
	conn Conn
	err  error
}

// Stats is a snapshot of relay occupancy.
type Stats struct {
	Rooms   int `json:"rooms"`
	Clients int `json:"clients"`
}
