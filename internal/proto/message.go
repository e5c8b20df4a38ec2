package proto

import (
	"encoding/json"
	"fmt"
)

// Inbound type tags recognized by the relay.
const (
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeHangup       = "hangup"
	TypePing         = "ping"
)

// Outbound type tags.
const (
	TypeWelcome    = "welcome"
	TypeUserCount  = "user-count"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
	TypeHeartbeat  = "heartbeat"
	TypePong       = "pong"
	TypeMessage    = "message"
)

const (
	fieldType     = "type"
	fieldTarget   = "targetClientId"
	fieldSenderID = "senderClientId"
)

// Kind classifies an inbound frame. KindText is the fallback arm for
// anything that is not a well-formed recognized message.
type Kind int

const (
	KindText Kind = iota
	KindOffer
	KindAnswer
	KindICECandidate
	KindHangup
	KindPing
)

var kindByType = map[string]Kind{
	TypeOffer:        KindOffer,
	TypeAnswer:       KindAnswer,
	TypeICECandidate: KindICECandidate,
	TypeHangup:       KindHangup,
	TypePing:         KindPing,
}

func (k Kind) String() string {
	switch k {
	case KindOffer:
		return TypeOffer
	case KindAnswer:
		return TypeAnswer
	case KindICECandidate:
		return TypeICECandidate
	case KindHangup:
		return TypeHangup
	case KindPing:
		return TypePing
	default:
		return "text"
	}
}

// Inbound is a client frame after boundary validation.
type Inbound struct {
	Kind Kind
	// Type is the raw type tag, empty when the payload was not a JSON object.
	Type string
	// TargetClientID is set only when the payload carried a string targetClientId.
	TargetClientID string
	// Fields holds every top-level field of the original object.
	Fields map[string]json.RawMessage
	Raw    []byte
}

// Targeted reports whether the message should go to a single client
// instead of the whole room.
func (in Inbound) Targeted() bool {
	switch in.Kind {
	case KindAnswer, KindICECandidate, KindHangup:
		return in.TargetClientID != ""
	default:
		return false
	}
}

// Parse classifies a raw frame. It never fails: malformed JSON, a missing or
// non-string type, an unknown type and a non-string targetClientId all
// produce a KindText message carrying the raw payload.
func Parse(raw []byte) Inbound {
	text := Inbound{Kind: KindText, Raw: raw}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return text
	}

	var typ string
	if err := json.Unmarshal(fields[fieldType], &typ); err != nil {
		return text
	}
	text.Type = typ
	text.Fields = fields

	kind, ok := kindByType[typ]
	if !ok {
		return text
	}

	var target string
	if rawTarget, present := fields[fieldTarget]; present {
		if err := json.Unmarshal(rawTarget, &target); err != nil {
			return text
		}
	}

	return Inbound{
		Kind:           kind,
		Type:           typ,
		TargetClientID: target,
		Fields:         fields,
		Raw:            raw,
	}
}

// Forward re-encodes a signaling message with senderClientId injected.
// A client-supplied senderClientId is overwritten.
func Forward(in Inbound, senderClientID string) ([]byte, error) {
	sender, err := json.Marshal(senderClientID)
	if err != nil {
		return nil, fmt.Errorf("marshal sender: %w", err)
	}

	out := make(map[string]json.RawMessage, len(in.Fields)+1)
	for k, v := range in.Fields {
		out[k] = v
	}
	out[fieldSenderID] = sender

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal forward: %w", err)
	}
	return data, nil
}

// Welcome is sent once to a connection after it is registered.
type Welcome struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	ClientID string `json:"clientId"`
	RoomID   string `json:"roomId"`
}

// NewWelcome builds the greeting for a freshly registered client.
func NewWelcome(clientID, roomID string) Welcome {
	return Welcome{
		Type:     TypeWelcome,
		Message:  "Connected as " + clientID,
		ClientID: clientID,
		RoomID:   roomID,
	}
}

// UserCount carries the live member count of a room.
type UserCount struct {
	Type   string `json:"type"`
	Count  int    `json:"count"`
	RoomID string `json:"roomId"`
}

// NewUserCount builds a presence update.
func NewUserCount(roomID string, count int) UserCount {
	return UserCount{Type: TypeUserCount, Count: count, RoomID: roomID}
}

// Membership announces a client joining or leaving a room to the other members.
type Membership struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	RoomID   string `json:"roomId"`
}

// NewUserJoined builds the event sent to a room when clientID joins it.
func NewUserJoined(clientID, roomID string) Membership {
	return Membership{Type: TypeUserJoined, ClientID: clientID, RoomID: roomID}
}

// NewUserLeft builds the event sent to a room when clientID leaves it.
func NewUserLeft(clientID, roomID string) Membership {
	return Membership{Type: TypeUserLeft, ClientID: clientID, RoomID: roomID}
}

// Signal is a bodiless control frame such as heartbeat or pong.
type Signal struct {
	Type string `json:"type"`
}

// Text wraps a payload the relay could not classify.
type Text struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ClientID string `json:"clientId"`
}

// NewText wraps raw as an opaque text message from clientID.
func NewText(raw []byte, clientID string) Text {
	return Text{Type: TypeMessage, Text: string(raw), ClientID: clientID}
}

// Encode marshals an outbound message.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return data, nil
}
