package uno

import (
	"math/rand"
)

// DeckSize is the size of the canonical pool.
const DeckSize = 108

// Deck is a draw pile. The top of the pile is the end of Cards.
type Deck struct {
	Cards []Card `json:"cards"`
}

// NewDeck returns the canonical 108 card pool, unshuffled.
func NewDeck() *Deck {
	cards := make([]Card, 0, DeckSize)

	for _, color := range Colors {
		cards = append(cards, Card{color, Zero})
		for range 2 {
			for _, value := range numberValues[1:] {
				cards = append(cards, Card{color, value})
			}
			for _, value := range actionValues {
				cards = append(cards, Card{color, value})
			}
		}
	}

	for range 4 {
		cards = append(cards, Card{Wild, WildCard})
		cards = append(cards, Card{Wild, DrawFour})
	}

	return &Deck{cards}
}

// BuildDeck returns a freshly shuffled canonical deck.
func BuildDeck(rng *rand.Rand) *Deck {
	deck := NewDeck()
	deck.Shuffle(rng)
	return deck
}

func (deck Deck) Count() int {
	return len(deck.Cards)
}

// Draw removes the top n cards. Nothing is removed when fewer than n remain.
func (deck *Deck) Draw(n int) ([]Card, error) {
	if n > len(deck.Cards) {
		return nil, ErrDeckExhausted
	}

	cards := make([]Card, 0, n)
	for range n {
		card := deck.Cards[len(deck.Cards)-1]
		cards = append(cards, card)
		deck.Cards = deck.Cards[:len(deck.Cards)-1]
	}
	return cards, nil
}

// PutBottom places cards under the pile.
func (deck *Deck) PutBottom(cards ...Card) {
	deck.Cards = append(append(make([]Card, 0, len(deck.Cards)+len(cards)), cards...), deck.Cards...)
}

// Refill adds cards to the pile and reshuffles it.
func (deck *Deck) Refill(cards []Card, rng *rand.Rand) {
	deck.Cards = append(deck.Cards, cards...)
	deck.Shuffle(rng)
}

// Shuffle is a Fisher-Yates permutation driven by rng.
func (deck *Deck) Shuffle(rng *rand.Rand) {
	for i := len(deck.Cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		deck.Cards[i], deck.Cards[j] = deck.Cards[j], deck.Cards[i]
	}
}

// Hand is the multiset of cards one participant holds.
type Hand []Card

// Index finds a card by color and value.
func (h Hand) Index(card Card) int {
	for i, c := range h {
		if c.Color == card.Color && c.Value == card.Value {
			return i
		}
	}
	return -1
}

// Remove takes exactly one copy of card out of the hand.
func (h *Hand) Remove(card Card) error {
	i := h.Index(card)
	if i == -1 {
		return ErrCardNotInHand
	}
	*h = append((*h)[:i], (*h)[i+1:]...)
	return nil
}

// Playable returns the subset of the hand legal on top.
func (h Hand) Playable(top PlayedCard, activeColor Color) []Card {
	playable := make([]Card, 0, len(h))
	for _, card := range h {
		if IsPlayable(card, top, activeColor) {
			playable = append(playable, card)
		}
	}
	return playable
}
