package uno_test

import (
	"testing"

	"uno-server/internal/uno"

	"github.com/stretchr/testify/assert"
)

func card(color uno.Color, value uno.Value) uno.Card {
	return uno.Card{Color: color, Value: value}
}

func top(color uno.Color, value uno.Value) uno.PlayedCard {
	return uno.PlayedCard{Card: card(color, value)}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		view uno.View
		want uno.Decision
	}{
		{
			name: "draws when nothing is playable",
			view: uno.View{
				ActiveColor:      uno.Red,
				Top:              top(uno.Red, uno.Five),
				Hand:             uno.Hand{card(uno.Blue, uno.One), card(uno.Green, uno.Two)},
				OpponentHandSize: 7,
			},
			want: uno.Decision{Draw: true},
		},
		{
			name: "plays +2 under pressure",
			view: uno.View{
				ActiveColor:      uno.Red,
				Top:              top(uno.Red, uno.Three),
				Hand:             uno.Hand{card(uno.Red, uno.Five), card(uno.Red, uno.DrawTwo)},
				OpponentHandSize: 2,
			},
			want: uno.Decision{Card: card(uno.Red, uno.DrawTwo)},
		},
		{
			name: "plays +4 under pressure with most held color",
			view: uno.View{
				ActiveColor: uno.Red,
				Top:         top(uno.Red, uno.Three),
				Hand: uno.Hand{
					card(uno.Red, uno.Five),
					card(uno.Blue, uno.One),
					card(uno.Blue, uno.Two),
					card(uno.Wild, uno.DrawFour),
				},
				OpponentHandSize: 3,
			},
			want: uno.Decision{Card: card(uno.Wild, uno.DrawFour), DeclaredColor: uno.Blue},
		},
		{
			name: "keeps +2 when opponent is comfortable",
			view: uno.View{
				ActiveColor:      uno.Red,
				Top:              top(uno.Red, uno.Three),
				Hand:             uno.Hand{card(uno.Red, uno.Five), card(uno.Red, uno.DrawTwo)},
				OpponentHandSize: 6,
			},
			want: uno.Decision{Card: card(uno.Red, uno.Five)},
		},
		{
			name: "plays wild when only wilds fit",
			view: uno.View{
				ActiveColor: uno.Red,
				Top:         top(uno.Red, uno.Three),
				Hand: uno.Hand{
					card(uno.Green, uno.One),
					card(uno.Green, uno.Seven),
					card(uno.Wild, uno.WildCard),
					card(uno.Wild, uno.DrawFour),
				},
				OpponentHandSize: 6,
			},
			want: uno.Decision{Card: card(uno.Wild, uno.WildCard), DeclaredColor: uno.Green},
		},
		{
			name: "prefers active color over value match",
			view: uno.View{
				ActiveColor: uno.Red,
				Top:         top(uno.Red, uno.Three),
				Hand: uno.Hand{
					card(uno.Blue, uno.Three),
					card(uno.Red, uno.Nine),
					card(uno.Wild, uno.WildCard),
				},
				OpponentHandSize: 6,
			},
			want: uno.Decision{Card: card(uno.Red, uno.Nine)},
		},
		{
			name: "falls back to value match",
			view: uno.View{
				ActiveColor: uno.Red,
				Top:         top(uno.Red, uno.Three),
				Hand: uno.Hand{
					card(uno.Wild, uno.WildCard),
					card(uno.Blue, uno.Three),
				},
				OpponentHandSize: 6,
			},
			want: uno.Decision{Card: card(uno.Blue, uno.Three)},
		},
		{
			name: "wild color tie goes to red",
			view: uno.View{
				ActiveColor:      uno.Yellow,
				Top:              top(uno.Yellow, uno.Three),
				Hand:             uno.Hand{card(uno.Wild, uno.WildCard)},
				OpponentHandSize: 6,
			},
			want: uno.Decision{Card: card(uno.Wild, uno.WildCard), DeclaredColor: uno.Red},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uno.Decide(tt.view))
		})
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	view := uno.View{
		ActiveColor: uno.Green,
		Top:         top(uno.Green, uno.One),
		Hand: uno.Hand{
			card(uno.Yellow, uno.One),
			card(uno.Blue, uno.Four),
			card(uno.Wild, uno.WildCard),
		},
		OpponentHandSize: 1,
	}

	first := uno.Decide(view)
	for range 100 {
		assert.Equal(t, first, uno.Decide(view))
	}
}

func TestMostHeldColor(t *testing.T) {
	hand := uno.Hand{
		card(uno.Yellow, uno.One),
		card(uno.Yellow, uno.Two),
		card(uno.Green, uno.Two),
		card(uno.Wild, uno.WildCard),
		card(uno.Wild, uno.DrawFour),
	}
	assert.Equal(t, uno.Yellow, uno.MostHeldColor(hand))
	assert.Equal(t, uno.Red, uno.MostHeldColor(nil))
}
