package uno

// PressureHandSize is the opposing hand size at which the opponent starts
// spending draw penalties.
const PressureHandSize = 3

// View is everything the scripted opponent is allowed to see.
type View struct {
	ActiveColor      Color
	Top              PlayedCard
	Hand             Hand
	OpponentHandSize int
}

// Decision is the scripted opponent's move. Draw is set when no card is
// playable; otherwise Card is played and, for wilds, DeclaredColor applies.
type Decision struct {
	Draw          bool
	Card          Card
	DeclaredColor Color
}

// Decide picks a move for the scripted opponent. It depends only on its input.
func Decide(v View) Decision {
	playable := v.Hand.Playable(v.Top, v.ActiveColor)
	if len(playable) == 0 {
		return Decision{Draw: true}
	}

	if v.OpponentHandSize <= PressureHandSize {
		for _, penalty := range []Value{DrawTwo, DrawFour} {
			for _, card := range playable {
				if card.Value == penalty {
					return play(card, v.Hand)
				}
			}
		}
	}

	allWild := true
	for _, card := range playable {
		if !card.IsWild() {
			allWild = false
			break
		}
	}
	if allWild {
		return play(playable[0], v.Hand)
	}

	for _, card := range playable {
		if card.Color == v.ActiveColor {
			return play(card, v.Hand)
		}
	}
	for _, card := range playable {
		if !card.IsWild() {
			return play(card, v.Hand)
		}
	}
	return play(playable[0], v.Hand)
}

func play(card Card, hand Hand) Decision {
	d := Decision{Card: card}
	if card.IsWild() {
		d.DeclaredColor = MostHeldColor(hand)
	}
	return d
}

// MostHeldColor returns the natural color with the most cards in hand. Ties
// go to the earliest color in Colors.
func MostHeldColor(hand Hand) Color {
	counts := CountColors(hand)
	best := Colors[0]
	for _, color := range Colors[1:] {
		if counts[color] > counts[best] {
			best = color
		}
	}
	return best
}
