package server

import (
	"errors"
	"strings"
)

var (
	ErrRoomNotFound     = errors.New("ROOM_NOT_FOUND: Room not found")
	ErrNotInRoom        = errors.New("NOT_IN_ROOM: No active room for this connection")
	ErrNotYourTurn      = errors.New("NOT_YOUR_TURN: It is not your turn")
	ErrIllegalMove      = errors.New("ILLEGAL_MOVE: Card cannot be played on the discard pile")
	ErrUnauthorizedHost = errors.New("UNAUTHORIZED_HOST_ACTION: Only the host can do that")
	ErrGameNotStarted   = errors.New("GAME_NOT_STARTED: Game hasn't started yet")
	ErrGameInProgress   = errors.New("GAME_IN_PROGRESS: Game is already in progress")
	ErrRoomFull         = errors.New("ROOM_FULL: Room is full")
	ErrNotEnoughPlayers = errors.New("NOT_ENOUGH_PLAYERS: At least two players are needed")
	ErrColorRequired    = errors.New("COLOR_REQUIRED: Wild cards need a declared color")
	ErrInvalidRoomID    = errors.New("INVALID_ROOM_ID: Room id must be 1-32 letters, digits, '-' or '_'")
	ErrNameInvalid      = errors.New("NAME_INVALID: Name must be 1-20 characters")
	ErrRateLimited      = errors.New("RATE_LIMITED: Too many messages, slow down")
	ErrInternal         = errors.New("INTERNAL_ERROR: Something went wrong in this room")
)

// errorCode extracts the CODE prefix of the innermost "CODE: message" error.
func errorCode(err error) string {
	for inner := errors.Unwrap(err); inner != nil; inner = errors.Unwrap(err) {
		err = inner
	}
	code, _, found := strings.Cut(err.Error(), ":")
	if !found || strings.ToUpper(code) != code || strings.ContainsAny(code, " ") {
		return ""
	}
	return code
}
