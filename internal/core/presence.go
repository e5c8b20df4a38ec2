package core

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/signal-relay/internal/proto"
)

// PresenceNotifier pushes room member counts after membership changes.
// Counts are resent on every call, even if unchanged.
type PresenceNotifier struct {
	log *zerolog.Logger
}

// NewPresenceNotifier builds a notifier that logs through logger.
func NewPresenceNotifier(logger *zerolog.Logger) *PresenceNotifier {
	return &PresenceNotifier{log: logger}
}

// Notify sends the current size of roomID to every open connection in it.
func (p *PresenceNotifier) Notify(st *State, roomID string) {
	count := st.Rooms.Size(roomID)
	payload, err := proto.Encode(proto.NewUserCount(roomID, count))
	if err != nil {
		p.log.Error().Err(err).Str("room_id", roomID).Msg("encode user count")
		return
	}
	n := broadcast(p.log, st.Registry.Members(roomID), nil, payload)
	p.log.Debug().Str("room_id", roomID).Int("count", count).Int("recipients", n).Msg("presence updated")
}
