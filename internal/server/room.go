package server

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"sync"
	"time"

	"uno-server/internal/uno"

	"k8s.io/klog/v2"
)

type RoomState string

const (
	StateLobby      RoomState = "lobby"
	StateInProgress RoomState = "in_progress"
	StateFinished   RoomState = "finished"
)

const (
	handSize = 7
	// dealAttempts bounds redeals when no safe card is left to reveal.
	dealAttempts = 10
)

type Participant struct {
	Actor    uno.Actor
	Name     string
	JoinedAt time.Time
}

// Room is one match. Every field is guarded by mu; methods on Room expect the
// caller to hold it.
type Room struct {
	mu sync.Mutex

	ID           string
	State        RoomState
	Host         uno.Actor
	Participants []Participant
	Deck         *uno.Deck
	Discard      []uno.PlayedCard
	Hands        map[uno.Actor]uno.Hand
	Turns        *uno.TurnSequence
	ActiveColor  uno.Color
	Winner       uno.Actor
	CreatedAt    time.Time
	UpdatedAt    time.Time

	rng *rand.Rand

	// ctx lives as long as the room is registered.
	ctx            context.Context
	cancel         context.CancelFunc
	cancelOpponent context.CancelFunc
	destroyed      bool
}

func newRoom(parent context.Context, id string, rng *rand.Rand) *Room {
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	return &Room{
		ID:        id,
		State:     StateLobby,
		Hands:     make(map[uno.Actor]uno.Hand),
		Turns:     uno.NewTurnSequence(),
		CreatedAt: now,
		UpdatedAt: now,
		rng:       rng,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (r *Room) participant(a uno.Actor) (Participant, bool) {
	for _, p := range r.Participants {
		if p.Actor == a {
			return p, true
		}
	}
	return Participant{}, false
}

func (r *Room) addParticipant(a uno.Actor, name string) {
	if _, ok := r.participant(a); ok {
		return
	}
	r.Participants = append(r.Participants, Participant{Actor: a, Name: name, JoinedAt: time.Now()})
	r.Turns.Add(a)
	if _, ok := r.Hands[a]; !ok {
		r.Hands[a] = uno.Hand{}
	}
}

// removeParticipant takes a out of the room. Cards it held go under the deck
// so the pool stays complete.
func (r *Room) removeParticipant(a uno.Actor) {
	r.Participants = slices.DeleteFunc(r.Participants, func(p Participant) bool { return p.Actor == a })
	r.Turns.Remove(a)
	if hand := r.Hands[a]; len(hand) > 0 && r.Deck != nil {
		r.Deck.PutBottom(hand...)
	}
	delete(r.Hands, a)
}

func (r *Room) humans() []uno.Actor {
	humans := make([]uno.Actor, 0, len(r.Participants))
	for _, p := range r.Participants {
		if !p.Actor.IsScripted() {
			humans = append(humans, p.Actor)
		}
	}
	return humans
}

func (r *Room) hasOpponent() bool {
	_, ok := r.participant(uno.Scripted)
	return ok
}

// nextHost is the earliest registered human other than the current host.
func (r *Room) nextHost() uno.Actor {
	for _, p := range r.Participants {
		if !p.Actor.IsScripted() && p.Actor != r.Host {
			return p.Actor
		}
	}
	return uno.Actor{}
}

func (r *Room) participantInfos() []ParticipantInfo {
	infos := make([]ParticipantInfo, 0, len(r.Participants))
	for _, p := range r.Participants {
		infos = append(infos, ParticipantInfo{ID: p.Actor, Name: p.Name, IsHost: p.Actor == r.Host})
	}
	return infos
}

func (r *Room) top() uno.PlayedCard {
	if len(r.Discard) == 0 {
		return uno.PlayedCard{}
	}
	return r.Discard[len(r.Discard)-1]
}

// deal builds a fresh deck, deals every participant a hand in turn order and
// reveals the first discard.
func (r *Room) deal() error {
	for range dealAttempts {
		r.Deck = uno.BuildDeck(r.rng)
		r.Discard = make([]uno.PlayedCard, 0, uno.DeckSize)

		for _, a := range r.Turns.Actors() {
			cards, err := r.Deck.Draw(handSize)
			if err != nil {
				return err
			}
			r.Hands[a] = uno.Hand(cards)
		}

		if first, ok := r.reveal(); ok {
			r.Discard = append(r.Discard, uno.PlayedCard{Card: first})
			r.ActiveColor = first.Color
			return nil
		}
		klog.Warningf("Room %s: no safe card left to reveal, redealing", r.ID)
	}
	return uno.ErrDeckExhausted
}

// reveal draws until a numbered card turns up. Rejected cards go under the
// deck, and every card is looked at no more than once.
func (r *Room) reveal() (uno.Card, bool) {
	for range r.Deck.Count() {
		cards, err := r.Deck.Draw(1)
		if err != nil {
			return uno.Card{}, false
		}
		if cards[0].IsSafeStart() {
			return cards[0], true
		}
		r.Deck.PutBottom(cards[0])
	}
	return uno.Card{}, false
}

// drawCards moves n cards from the deck into a's hand. When the deck runs
// short the discard pile below its top card is shuffled back in. If the whole
// pool still cannot cover n, a gets what is left.
func (r *Room) drawCards(a uno.Actor, n int) []uno.Card {
	cards, err := r.Deck.Draw(n)
	if errors.Is(err, uno.ErrDeckExhausted) {
		r.reshuffleDiscard()
		available := min(n, r.Deck.Count())
		if available < n {
			klog.Warningf("Room %s: deck exhausted, %s draws %d of %d cards", r.ID, a, available, n)
		}
		cards, _ = r.Deck.Draw(available)
	}
	r.Hands[a] = append(r.Hands[a], cards...)
	return cards
}

func (r *Room) reshuffleDiscard() {
	if len(r.Discard) <= 1 {
		return
	}
	top := r.top()
	returned := make([]uno.Card, 0, len(r.Discard)-1)
	for _, played := range r.Discard[:len(r.Discard)-1] {
		returned = append(returned, played.Card)
	}
	r.Discard = append(make([]uno.PlayedCard, 0, uno.DeckSize), top)
	r.Deck.Refill(returned, r.rng)
	klog.V(1).Infof("Room %s: reshuffled %d discarded cards into the deck", r.ID, len(returned))
}

// cardCount is the number of cards in play, deck and discard and hands.
func (r *Room) cardCount() int {
	total := len(r.Discard)
	if r.Deck != nil {
		total += r.Deck.Count()
	}
	for _, hand := range r.Hands {
		total += len(hand)
	}
	return total
}

// opponentView is what the scripted opponent may see. With several humans
// the smallest hand is the one it reacts to.
func (r *Room) opponentView() uno.View {
	smallest := -1
	for _, a := range r.humans() {
		if n := len(r.Hands[a]); smallest == -1 || n < smallest {
			smallest = n
		}
	}
	return uno.View{
		ActiveColor:      r.ActiveColor,
		Top:              r.top(),
		Hand:             slices.Clone(r.Hands[uno.Scripted]),
		OpponentHandSize: smallest,
	}
}

func (r *Room) stopOpponent() {
	if r.cancelOpponent != nil {
		r.cancelOpponent()
		r.cancelOpponent = nil
	}
}

// RoomSnapshot is a read-only copy of a room's public state.
type RoomSnapshot struct {
	RoomID       string            `json:"roomId"`
	State        RoomState         `json:"state"`
	Host         uno.Actor         `json:"host"`
	Participants []ParticipantInfo `json:"participants"`
	HandSizes    map[string]int    `json:"handSizes"`
	TopCard      *uno.PlayedCard   `json:"topCard,omitempty"`
	ActiveColor  uno.Color         `json:"activeColor,omitempty"`
	CurrentActor uno.Actor         `json:"currentActor"`
	DeckCount    int               `json:"deckCount"`
	DiscardCount int               `json:"discardCount"`
	Winner       uno.Actor         `json:"winner"`
}

func (r *Room) snapshot() RoomSnapshot {
	s := RoomSnapshot{
		RoomID:       r.ID,
		State:        r.State,
		Host:         r.Host,
		Participants: r.participantInfos(),
		HandSizes:    make(map[string]int, len(r.Hands)),
		ActiveColor:  r.ActiveColor,
		CurrentActor: r.Turns.Head(),
		DiscardCount: len(r.Discard),
		Winner:       r.Winner,
	}
	for a, hand := range r.Hands {
		s.HandSizes[a.ID()] = len(hand)
	}
	if len(r.Discard) > 0 {
		top := r.top()
		s.TopCard = &top
	}
	if r.Deck != nil {
		s.DeckCount = r.Deck.Count()
	}
	return s
}
