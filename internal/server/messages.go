package server

import (
	"encoding/json"
	"fmt"
)

const (
	MsgPing    = "ping"
	MsgJoin    = "join"
	MsgStart   = "start"
	MsgPlay    = "play"
	MsgDraw    = "draw"
	MsgRestart = "restart"
	MsgLeave   = "leave"
)

type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func newServerMessage(n Notification) ServerMessage {
	return ServerMessage{Type: n.NotificationType(), Payload: n}
}

// decodePayload unmarshals a command payload. A missing payload decodes to
// the zero value so validation can report what is absent.
func decodePayload[T any](msgType string, payload json.RawMessage) (T, error) {
	var req T
	if len(payload) == 0 || string(payload) == "null" {
		return req, nil
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("INVALID_PAYLOAD: Invalid %s payload", msgType)
	}
	return req, nil
}

func (r *JoinRequest) Validate() error {
	r.RoomID = NormalizeRoomID(r.RoomID)
	if r.RoomID != "" {
		if err := ValidateRoomID(r.RoomID); err != nil {
			return err
		}
	}
	name, err := ValidateName(r.Name)
	if err != nil {
		return err
	}
	r.Name = name
	return nil
}

func (r *RoomRequest) Validate() error {
	r.RoomID = NormalizeRoomID(r.RoomID)
	return ValidateRoomID(r.RoomID)
}

func (r *PlayRequest) Validate() error {
	r.RoomID = NormalizeRoomID(r.RoomID)
	if err := ValidateRoomID(r.RoomID); err != nil {
		return err
	}
	if err := r.Card.Validate(); err != nil {
		return err
	}
	if r.Card.IsWild() && !r.DeclaredColor.IsNatural() {
		return ErrColorRequired
	}
	return nil
}
