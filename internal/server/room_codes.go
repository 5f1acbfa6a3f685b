package server

import (
	"math/rand"
	"strings"
	"unicode/utf8"
)

const maxRoomIDLength = 32

// GenerateRoomCode returns a 4 letter code not present in usedCodes.
func GenerateRoomCode(usedCodes map[string]bool) string {
	for {
		code := make([]byte, 4)
		for i := range code {
			code[i] = 'A' + byte(rand.Intn(26))
		}
		roomCode := string(code)

		if !usedCodes[roomCode] {
			return roomCode
		}
	}
}

// ValidateRoomID accepts ids chosen by players as well as generated codes.
func ValidateRoomID(id string) error {
	if id == "" || len(id) > maxRoomIDLength {
		return ErrInvalidRoomID
	}

	for _, ch := range id {
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
		default:
			return ErrInvalidRoomID
		}
	}

	return nil
}

func NormalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ValidateName trims a display name and checks its length in characters.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 20 {
		return "", ErrNameInvalid
	}
	return name, nil
}
