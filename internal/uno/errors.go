package uno

import "errors"

var (
	ErrDeckExhausted = errors.New("DECK_EXHAUSTED: Not enough cards left in the deck")
	ErrInvalidCard   = errors.New("INVALID_CARD: Card is not part of the deck")
	ErrCardNotInHand = errors.New("CARD_NOT_IN_HAND: Card is not in the player's hand")
)
