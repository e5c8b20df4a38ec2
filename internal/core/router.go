package core

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/signal-relay/internal/proto"
)

// Router dispatches inbound frames from registered clients.
type Router struct {
	log *zerolog.Logger
}

// NewRouter builds a router that logs through logger.
func NewRouter(logger *zerolog.Logger) *Router {
	return &Router{log: logger}
}

// Route classifies raw and delivers it according to its kind:
//   - offer is broadcast to the sender's room
//   - answer, ice-candidate and hangup go to targetClientId when present,
//     otherwise to the room
//   - ping is answered with pong to the sender only
//   - anything else is wrapped as a text message and broadcast
func (rt *Router) Route(st *State, sender *ClientRecord, raw []byte) {
	in := proto.Parse(raw)

	switch in.Kind {
	case proto.KindPing:
		rt.reply(sender, proto.Signal{Type: proto.TypePong})

	case proto.KindOffer:
		rt.forwardToRoom(st, sender, in)

	case proto.KindAnswer, proto.KindICECandidate, proto.KindHangup:
		if in.Targeted() {
			rt.forwardToClient(st, sender, in)
			return
		}
		rt.forwardToRoom(st, sender, in)

	default:
		if in.Type != "" {
			rt.log.Debug().Str("client_id", sender.ClientID).Str("type", in.Type).Msg("unrecognized message type, relaying as text")
		} else {
			rt.log.Debug().Str("client_id", sender.ClientID).Msg("unparseable message, relaying as text")
		}
		payload, err := proto.Encode(proto.NewText(in.Raw, sender.ClientID))
		if err != nil {
			rt.log.Error().Err(err).Str("client_id", sender.ClientID).Msg("encode text message")
			return
		}
		broadcast(rt.log, st.Registry.Members(sender.RoomID), sender.Conn, payload)
	}
}

func (rt *Router) reply(sender *ClientRecord, msg any) {
	payload, err := proto.Encode(msg)
	if err != nil {
		rt.log.Error().Err(err).Msg("encode reply")
		return
	}
	if err := sender.Conn.Send(payload); err != nil {
		rt.log.Warn().Err(err).Str("client_id", sender.ClientID).Msg("send reply")
	}
}

func (rt *Router) forwardToRoom(st *State, sender *ClientRecord, in proto.Inbound) {
	payload, err := proto.Forward(in, sender.ClientID)
	if err != nil {
		rt.log.Error().Err(err).Str("client_id", sender.ClientID).Msg("encode forward")
		return
	}
	n := broadcast(rt.log, st.Registry.Members(sender.RoomID), sender.Conn, payload)
	rt.log.Debug().
		Str("client_id", sender.ClientID).
		Str("room_id", sender.RoomID).
		Stringer("kind", in.Kind).
		Int("recipients", n).
		Msg("relayed to room")
}

// forwardToClient delivers to a single client. A missing or closed target is
// dropped without telling the sender.
func (rt *Router) forwardToClient(st *State, sender *ClientRecord, in proto.Inbound) {
	target, ok := st.Registry.LookupByClientID(in.TargetClientID)
	if !ok || !target.Open() {
		rt.log.Debug().
			Str("client_id", sender.ClientID).
			Str("target_client_id", in.TargetClientID).
			Stringer("kind", in.Kind).
			Msg("target not connected, dropping")
		return
	}

	payload, err := proto.Forward(in, sender.ClientID)
	if err != nil {
		rt.log.Error().Err(err).Str("client_id", sender.ClientID).Msg("encode forward")
		return
	}
	if err := target.Send(payload); err != nil {
		rt.log.Warn().Err(err).Str("target_client_id", in.TargetClientID).Msg("send to target")
	}
}

// broadcast sends payload to every open member except exclude. Failures are
// logged per recipient and never stop the fan-out. It returns the number of
// successful sends.
func broadcast(logger *zerolog.Logger, members []*ClientRecord, exclude Conn, payload []byte) int {
	delivered := 0
	for _, rec := range members {
		if rec.Conn == exclude || !rec.Conn.Open() {
			continue
		}
		if err := rec.Conn.Send(payload); err != nil {
			logger.Warn().Err(err).Str("client_id", rec.ClientID).Str("room_id", rec.RoomID).Msg("broadcast send failed")
			continue
		}
		delivered++
	}
	return delivered
}
