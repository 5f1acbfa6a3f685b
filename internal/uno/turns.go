package uno

import (
	"encoding/json"
	"slices"
)

// ScriptedID is the wire identifier of the scripted opponent.
const ScriptedID = "AI"

// Actor is either a human participant, identified by its connection handle,
// or the scripted opponent.
type Actor struct {
	id       string
	scripted bool
}

// Scripted is the computer opponent.
var Scripted = Actor{id: ScriptedID, scripted: true}

func Human(id string) Actor {
	return Actor{id: id}
}

func (a Actor) IsScripted() bool { return a.scripted }

func (a Actor) IsZero() bool { return a == Actor{} }

func (a Actor) ID() string { return a.id }

func (a Actor) String() string { return a.id }

func (a Actor) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.id)
}

func (a *Actor) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	if id == ScriptedID {
		*a = Scripted
	} else {
		*a = Human(id)
	}
	return nil
}

// TurnSequence is the rotation order. The head is the current actor and the
// orientation of the list is the direction of play.
type TurnSequence struct {
	actors []Actor
}

func NewTurnSequence(actors ...Actor) *TurnSequence {
	ts := &TurnSequence{}
	for _, a := range actors {
		ts.Add(a)
	}
	return ts
}

func (ts *TurnSequence) Len() int { return len(ts.actors) }

func (ts *TurnSequence) Actors() []Actor { return slices.Clone(ts.actors) }

func (ts *TurnSequence) Contains(a Actor) bool { return slices.Contains(ts.actors, a) }

// Head returns the current actor, or the zero Actor when empty.
func (ts *TurnSequence) Head() Actor {
	if len(ts.actors) == 0 {
		return Actor{}
	}
	return ts.actors[0]
}

// Next returns the actor that would play after the head.
func (ts *TurnSequence) Next() Actor {
	if len(ts.actors) < 2 {
		return ts.Head()
	}
	return ts.actors[1]
}

// Add appends a at the back. Adding an existing actor is a no-op.
func (ts *TurnSequence) Add(a Actor) {
	if ts.Contains(a) {
		return
	}
	ts.actors = append(ts.actors, a)
}

// Remove excises a. Removing the head hands the turn to the following entry.
func (ts *TurnSequence) Remove(a Actor) {
	ts.actors = slices.DeleteFunc(ts.actors, func(x Actor) bool { return x == a })
}

// Advance rotates the head to the back.
func (ts *TurnSequence) Advance() {
	if len(ts.actors) < 2 {
		return
	}
	head := ts.actors[0]
	ts.actors = append(ts.actors[1:], head)
}

// Skip consumes the following actor's turn.
func (ts *TurnSequence) Skip() {
	ts.Advance()
	ts.Advance()
}

// Reverse inverts the direction of play while keeping the current head, so a
// following Advance moves to the actor that previously played before it.
// With two actors the order is unchanged.
func (ts *TurnSequence) Reverse() {
	if len(ts.actors) > 2 {
		slices.Reverse(ts.actors[1:])
	}
}

// AfterPlay moves the head past the actor who just played value. Draw
// penalties and skips consume the following turn, and a reverse between two
// actors counts as a skip.
func (ts *TurnSequence) AfterPlay(value Value) {
	switch {
	case value == Reverse && len(ts.actors) == 2:
		ts.Skip()
	case value == Reverse:
		ts.Reverse()
		ts.Advance()
	case value == Skip, value.Penalty() > 0:
		ts.Skip()
	default:
		ts.Advance()
	}
}
