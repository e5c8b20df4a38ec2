package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/signal-relay/internal/proto"
)

// Hub serializes every connection event onto a single goroutine. Registry and
// room mutations only happen inside Run, so they need no locking.
type Hub struct {
	state      *State
	router     *Router
	presence   *PresenceNotifier
	heartbeats *HeartbeatScheduler
	log        *zerolog.Logger

	connects    chan connectEvent
	messages    chan messageEvent
	disconnects chan disconnectEvent
	ticks       chan Conn
	stats       chan chan Stats
	done        chan struct{}
}

// NewHub creates a hub that sends heartbeats every heartbeatInterval.
func NewHub(heartbeatInterval time.Duration, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	ticks := make(chan Conn)
	return &Hub{
		state:       NewState(),
		router:      NewRouter(logger),
		presence:    NewPresenceNotifier(logger),
		heartbeats:  NewHeartbeatScheduler(heartbeatInterval, ticks),
		log:         logger,
		connects:    make(chan connectEvent),
		messages:    make(chan messageEvent),
		disconnects: make(chan disconnectEvent),
		ticks:       ticks,
		stats:       make(chan chan Stats),
		done:        make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled, then cancels every heartbeat
// and closes every registered connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case ev := <-h.connects:
			h.handleConnect(ev.conn, ev.clientID, ev.roomID)
		case ev := <-h.messages:
			h.handleMessage(ev.conn, ev.payload)
		case ev := <-h.disconnects:
			h.handleDisconnect(ev.conn, ev.err)
		case conn := <-h.ticks:
			h.handleTick(conn)
		case reply := <-h.stats:
			reply <- Stats{Rooms: h.state.Rooms.Len(), Clients: h.state.Registry.Len()}
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Connect registers conn as clientID in roomID.
func (h *Hub) Connect(conn Conn, clientID, roomID string) error {
	if roomID == "" {
		roomID = DefaultRoomID
	}
	select {
	case h.connects <- connectEvent{conn: conn, clientID: clientID, roomID: roomID}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Message hands an inbound frame from conn to the router.
func (h *Hub) Message(conn Conn, payload []byte) error {
	select {
	case h.messages <- messageEvent{conn: conn, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Disconnect runs cleanup for conn. err is the transport error, nil on a clean close.
func (h *Hub) Disconnect(conn Conn, err error) {
	select {
	case h.disconnects <- disconnectEvent{conn: conn, err: err}:
	case <-h.done:
	}
}

// Stats returns current room and client counts.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

func (h *Hub) handleConnect(conn Conn, clientID, roomID string) {
	// A connection rebinding to another identity leaves its old room first.
	if prior, ok := h.state.Registry.Lookup(conn); ok {
		h.handleDisconnect(conn, nil)
		h.log.Warn().Str("client_id", prior.ClientID).Str("room_id", prior.RoomID).Msg("connection re-registered, released prior identity")
	}

	rec, evicted := h.state.Registry.Register(conn, clientID, roomID)
	if evicted != nil {
		evicted.heartbeat.Stop()
		h.log.Info().Str("client_id", clientID).Str("room_id", roomID).Msg("client reconnected, replacing stale connection")
	}
	h.state.Rooms.Join(roomID, clientID)

	if payload, err := proto.Encode(proto.NewWelcome(clientID, roomID)); err != nil {
		h.log.Error().Err(err).Msg("encode welcome")
	} else if err := conn.Send(payload); err != nil {
		h.log.Warn().Err(err).Str("client_id", clientID).Msg("send welcome")
	}

	rec.heartbeat = h.heartbeats.Start(conn)

	h.log.Info().
		Str("client_id", clientID).
		Str("room_id", roomID).
		Int("count", h.state.Rooms.Size(roomID)).
		Msg("client connected")

	// A reconnect replaces a member rather than adding one.
	if evicted == nil {
		h.announce(roomID, conn, proto.NewUserJoined(clientID, roomID))
	}
	h.presence.Notify(h.state, roomID)
}

func (h *Hub) handleMessage(conn Conn, payload []byte) {
	rec, ok := h.state.Registry.Lookup(conn)
	if !ok {
		h.log.Debug().Msg("message from unregistered connection ignored")
		return
	}
	h.router.Route(h.state, rec, payload)
}

// handleDisconnect is a no-op for connections that were already removed or
// replaced by a reconnect.
func (h *Hub) handleDisconnect(conn Conn, err error) {
	rec, ok := h.state.Registry.Remove(conn)
	if !ok {
		return
	}
	h.state.Rooms.Leave(rec.RoomID, rec.ClientID)
	rec.heartbeat.Stop()

	ev := h.log.Info()
	if err != nil {
		ev = h.log.Warn().Err(err)
	}
	ev.Str("client_id", rec.ClientID).
		Str("room_id", rec.RoomID).
		Int("count", h.state.Rooms.Size(rec.RoomID)).
		Msg("client disconnected")

	h.announce(rec.RoomID, nil, proto.NewUserLeft(rec.ClientID, rec.RoomID))
	h.presence.Notify(h.state, rec.RoomID)
}

// announce sends a membership event to the open members of roomID except exclude.
func (h *Hub) announce(roomID string, exclude Conn, msg any) {
	payload, err := proto.Encode(msg)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("encode membership event")
		return
	}
	broadcast(h.log, h.state.Registry.Members(roomID), exclude, payload)
}

func (h *Hub) handleTick(conn Conn) {
	rec, ok := h.state.Registry.Lookup(conn)
	if !ok || !conn.Open() {
		return
	}
	payload, err := proto.Encode(proto.Signal{Type: proto.TypeHeartbeat})
	if err != nil {
		h.log.Error().Err(err).Msg("encode heartbeat")
		return
	}
	if err := conn.Send(payload); err != nil {
		h.log.Warn().Err(err).Str("client_id", rec.ClientID).Msg("send heartbeat")
	}
}

func (h *Hub) shutdown() {
	for _, rec := range h.state.Registry.Records() {
		rec.heartbeat.Stop()
		if err := rec.Conn.Close(); err != nil {
			h.log.Warn().Err(err).Str("client_id", rec.ClientID).Msg("close connection")
		}
	}
	h.log.Info().Int("clients", h.state.Registry.Len()).Msg("hub stopped")
}
