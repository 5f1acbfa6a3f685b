package uno_test

import (
	"testing"

	"uno-server/internal/uno"

	"github.com/stretchr/testify/assert"
)

func distinctCards() []uno.Card {
	seen := make(map[uno.Card]bool)
	var cards []uno.Card
	for _, card := range uno.NewDeck().Cards {
		if !seen[card] {
			seen[card] = true
			cards = append(cards, card)
		}
	}
	return cards
}

func TestIsPlayableExhaustive(t *testing.T) {
	cards := distinctCards()
	assert.Len(t, cards, 54)

	checked := 0
	for _, card := range cards {
		for _, topCard := range cards {
			top := uno.PlayedCard{Card: topCard}
			for _, active := range uno.Colors {
				want := card.Color == uno.Wild || card.Color == active || card.Value == topCard.Value
				got := uno.IsPlayable(card, top, active)
				if got != want {
					t.Errorf("IsPlayable(%s, %s, %s) = %v, want %v", card, topCard, active, got, want)
				}
				checked++
			}
		}
	}
	assert.Equal(t, 54*54*4, checked)
}

func TestIsPlayableScenarios(t *testing.T) {
	tests := []struct {
		name   string
		card   uno.Card
		top    uno.PlayedCard
		active uno.Color
		want   bool
	}{
		{
			name:   "color match",
			card:   uno.Card{Color: uno.Red, Value: uno.Two},
			top:    uno.PlayedCard{Card: uno.Card{Color: uno.Red, Value: uno.Five}},
			active: uno.Red,
			want:   true,
		},
		{
			name:   "value match across colors",
			card:   uno.Card{Color: uno.Blue, Value: uno.Skip},
			top:    uno.PlayedCard{Card: uno.Card{Color: uno.Yellow, Value: uno.Skip}},
			active: uno.Yellow,
			want:   true,
		},
		{
			name:   "no match",
			card:   uno.Card{Color: uno.Blue, Value: uno.Seven},
			top:    uno.PlayedCard{Card: uno.Card{Color: uno.Red, Value: uno.Five}},
			active: uno.Red,
			want:   false,
		},
		{
			name:   "wild always",
			card:   uno.Card{Color: uno.Wild, Value: uno.DrawFour},
			top:    uno.PlayedCard{Card: uno.Card{Color: uno.Red, Value: uno.Five}},
			active: uno.Red,
			want:   true,
		},
		{
			name:   "declared color on wild top",
			card:   uno.Card{Color: uno.Green, Value: uno.Three},
			top:    uno.PlayedCard{Card: uno.Card{Color: uno.Wild, Value: uno.WildCard}, ChosenColor: uno.Green},
			active: uno.Green,
			want:   true,
		},
		{
			name:   "wild top color is not active",
			card:   uno.Card{Color: uno.Red, Value: uno.Three},
			top:    uno.PlayedCard{Card: uno.Card{Color: uno.Wild, Value: uno.WildCard}, ChosenColor: uno.Green},
			active: uno.Green,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uno.IsPlayable(tt.card, tt.top, tt.active))
		})
	}
}
