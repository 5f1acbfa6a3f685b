package uno

import (
	"fmt"
)

type Color string

const (
	Red    Color = "red"
	Green  Color = "green"
	Blue   Color = "blue"
	Yellow Color = "yellow"
	Wild   Color = "wild"
)

// Colors lists the four natural colors in tie-break priority order.
var Colors = []Color{Red, Green, Blue, Yellow}

func (c Color) IsNatural() bool {
	return c == Red || c == Green || c == Blue || c == Yellow
}

type Value string

const (
	Zero     Value = "0"
	One      Value = "1"
	Two      Value = "2"
	Three    Value = "3"
	Four     Value = "4"
	Five     Value = "5"
	Six      Value = "6"
	Seven    Value = "7"
	Eight    Value = "8"
	Nine     Value = "9"
	Skip     Value = "skip"
	Reverse  Value = "reverse"
	DrawTwo  Value = "+2"
	WildCard Value = "wild"
	DrawFour Value = "+4"
)

var numberValues = []Value{Zero, One, Two, Three, Four, Five, Six, Seven, Eight, Nine}

var actionValues = []Value{Skip, Reverse, DrawTwo}

func (v Value) IsAction() bool {
	return v == Skip || v == Reverse || v == DrawTwo || v == DrawFour
}

// Penalty is the number of cards the next actor is forced to draw.
func (v Value) Penalty() int {
	switch v {
	case DrawTwo:
		return 2
	case DrawFour:
		return 4
	default:
		return 0
	}
}

type Card struct {
	Color Color `json:"color"`
	Value Value `json:"value"`
}

func (c Card) IsWild() bool {
	return c.Color == Wild
}

func (c Card) String() string {
	if c.IsWild() {
		if c.Value == DrawFour {
			return "Wild +4"
		}
		return "Wild"
	}
	return fmt.Sprintf("%s %s", c.Color, c.Value)
}

// Validate reports whether c belongs to the canonical pool.
func (c Card) Validate() error {
	if c.Color == Wild {
		if c.Value == WildCard || c.Value == DrawFour {
			return nil
		}
		return fmt.Errorf("%w: wild card with value %q", ErrInvalidCard, c.Value)
	}
	if !c.Color.IsNatural() {
		return fmt.Errorf("%w: unknown color %q", ErrInvalidCard, c.Color)
	}
	for _, v := range numberValues {
		if c.Value == v {
			return nil
		}
	}
	for _, v := range actionValues {
		if c.Value == v {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown value %q", ErrInvalidCard, c.Value)
}

// PlayedCard is a card on the discard pile. ChosenColor is only set for wilds.
type PlayedCard struct {
	Card
	ChosenColor Color `json:"chosenColor,omitempty"`
}

// EffectiveColor is the color legality is checked against.
func (p PlayedCard) EffectiveColor() Color {
	if p.IsWild() && p.ChosenColor != "" {
		return p.ChosenColor
	}
	return p.Color
}

// IsSafeStart reports whether a card may be revealed as the first discard.
func (c Card) IsSafeStart() bool {
	return !c.IsWild() && !c.Value.IsAction()
}

func CountColors(cards []Card) map[Color]int {
	counts := make(map[Color]int, len(Colors))
	for _, card := range cards {
		if card.IsWild() {
			continue
		}
		counts[card.Color]++
	}
	return counts
}
