package uno

// IsPlayable decides whether card may go on top. A value match is enough
// across colors, so any skip matches any other skip.
func IsPlayable(card Card, top PlayedCard, activeColor Color) bool {
	return card.Color == Wild ||
		card.Color == activeColor ||
		card.Value == top.Value
}
