package server

import (
	"uno-server/internal/uno"
)

// ============================================================================
// ERROR RESPONSES
// ============================================================================
// tygo:generate
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// JOIN (join)
// ============================================================================
// tygo:generate
type JoinRequest struct {
	// Empty RoomID asks the server to generate a room code.
	RoomID     string `json:"roomId"`
	Name       string `json:"name"`
	VsOpponent bool   `json:"vsOpponent"`
}

// ============================================================================
// START / DRAW / RESTART / LEAVE
// ============================================================================
// tygo:generate
type RoomRequest struct {
	RoomID string `json:"roomId"`
}

// ============================================================================
// PLAY (play)
// ============================================================================
// tygo:generate
type PlayRequest struct {
	RoomID        string    `json:"roomId"`
	Card          uno.Card  `json:"card"`
	DeclaredColor uno.Color `json:"declaredColor,omitempty"`
}

// ============================================================================
// NOTIFICATIONS
// ============================================================================

// Notification is an outbound message. NotificationType becomes the envelope
// type on the wire.
type Notification interface {
	NotificationType() string
}

// tygo:generate
type ParticipantInfo struct {
	ID     uno.Actor `json:"id"`
	Name   string    `json:"name"`
	IsHost bool      `json:"isHost"`
}

// tygo:generate
type Pong struct{}

// tygo:generate
type Welcome struct {
	ParticipantID string `json:"participantId"`
}

// tygo:generate
type HostAssigned struct {
	RoomID string    `json:"roomId"`
	HostID uno.Actor `json:"hostId"`
}

// tygo:generate
type Roster struct {
	Rooms map[string]int `json:"rooms"`
}

// tygo:generate
type PlayerJoined struct {
	RoomID       string            `json:"roomId"`
	Participant  ParticipantInfo   `json:"participant"`
	Participants []ParticipantInfo `json:"participants"`
}

// tygo:generate
type PlayerLeft struct {
	RoomID        string    `json:"roomId"`
	ParticipantID uno.Actor `json:"participantId"`
}

// tygo:generate
type GameStarted struct {
	RoomID       string            `json:"roomId"`
	TopCard      uno.PlayedCard    `json:"topCard"`
	ActiveColor  uno.Color         `json:"activeColor"`
	Participants []ParticipantInfo `json:"participants"`
}

// tygo:generate
type HandDealt struct {
	Cards []uno.Card `json:"cards"`
}

// tygo:generate
type CardsDrawn struct {
	Cards []uno.Card `json:"cards"`
}

// tygo:generate
type CardPlayed struct {
	Card        uno.PlayedCard `json:"card"`
	NextActor   uno.Actor      `json:"nextActor"`
	TopCard     uno.PlayedCard `json:"topCard"`
	ActorID     uno.Actor      `json:"actorId"`
	ActiveColor uno.Color      `json:"activeColor"`
}

// tygo:generate
type TurnChanged struct {
	NextActor uno.Actor `json:"nextActor"`
}

// tygo:generate
type IllegalMove struct {
	Card uno.Card `json:"card"`
}

// tygo:generate
type OpponentHandSize struct {
	Count int `json:"count"`
}

// tygo:generate
type OpponentDeclaredColor struct {
	Color uno.Color `json:"color"`
}

const (
	EndReasonWin     = "win"
	EndReasonForfeit = "forfeit"
)

// tygo:generate
type GameEnded struct {
	WinnerID uno.Actor       `json:"winnerId"`
	Reason   string          `json:"reason"`
	Card     *uno.PlayedCard `json:"card,omitempty"`
}

// tygo:generate
type ServerShutdown struct {
	Message string `json:"message"`
}

func (ErrorMessage) NotificationType() string          { return "error" }
func (Pong) NotificationType() string                  { return "pong" }
func (Welcome) NotificationType() string               { return "welcome" }
func (HostAssigned) NotificationType() string          { return "hostAssigned" }
func (Roster) NotificationType() string                { return "roster" }
func (PlayerJoined) NotificationType() string          { return "playerJoined" }
func (PlayerLeft) NotificationType() string            { return "playerLeft" }
func (GameStarted) NotificationType() string           { return "gameStarted" }
func (HandDealt) NotificationType() string             { return "handDealt" }
func (CardsDrawn) NotificationType() string            { return "cardsDrawn" }
func (CardPlayed) NotificationType() string            { return "cardPlayed" }
func (TurnChanged) NotificationType() string           { return "turnChanged" }
func (IllegalMove) NotificationType() string           { return "illegalMove" }
func (OpponentHandSize) NotificationType() string      { return "opponentHandSize" }
func (OpponentDeclaredColor) NotificationType() string { return "opponentDeclaredColor" }
func (GameEnded) NotificationType() string             { return "gameEnded" }
func (ServerShutdown) NotificationType() string        { return "serverShutdown" }
