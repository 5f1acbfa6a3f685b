package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"uno-server/internal/uno"

	"k8s.io/klog/v2"
)

// Notifier delivers notifications to connections. Implementations must not
// block: the engine calls it while holding a room lock.
type Notifier interface {
	Notify(participantID string, n Notification)
	NotifyAll(n Notification)
}

type Options struct {
	OpponentDelay time.Duration
	// AutoStartPlayers starts a lobby once it holds this many participants.
	// Zero leaves starting to the host.
	AutoStartPlayers int
	MaxPlayers       int
	// Seed fixes the shuffles. Zero seeds from the clock.
	Seed int64
}

const opponentName = "Computer"

// GameManager owns every room and applies commands to them.
type GameManager struct {
	notifier Notifier
	opts     Options
	sessions *SessionManager

	rooms map[string]*Room
	mu    sync.RWMutex

	rng   *rand.Rand
	rngMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewGameManager(notifier Notifier, opts Options) *GameManager {
	if opts.MaxPlayers < 2 {
		opts.MaxPlayers = 10
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &GameManager{
		notifier: notifier,
		opts:     opts,
		sessions: NewSessionManager(),
		rooms:    make(map[string]*Room),
		rng:      rand.New(rand.NewSource(seed)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (gm *GameManager) Sessions() *SessionManager {
	return gm.sessions
}

// ============================================================================
// REGISTRY
// ============================================================================

func (gm *GameManager) room(roomID string) (*Room, bool) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	room, ok := gm.rooms[roomID]
	return room, ok
}

func (gm *GameManager) RoomExists(roomID string) bool {
	_, ok := gm.room(NormalizeRoomID(roomID))
	return ok
}

// roomOrCreate returns the registered room, creating it with host as its
// host when absent.
func (gm *GameManager) roomOrCreate(roomID string, host uno.Actor) *Room {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if roomID == "" {
		used := make(map[string]bool, len(gm.rooms))
		for id := range gm.rooms {
			used[id] = true
		}
		roomID = GenerateRoomCode(used)
	}
	if room, ok := gm.rooms[roomID]; ok {
		return room
	}

	room := newRoom(gm.ctx, roomID, gm.newRNG())
	room.Host = host
	gm.rooms[roomID] = room
	klog.Infof("Room %s created by %s", roomID, host)
	return room
}

func (gm *GameManager) newRNG() *rand.Rand {
	gm.rngMu.Lock()
	defer gm.rngMu.Unlock()
	return rand.New(rand.NewSource(gm.rng.Int63()))
}

// destroy unregisters the room and stops its tasks. Caller holds room.mu.
func (gm *GameManager) destroy(room *Room) {
	room.destroyed = true
	room.stopOpponent()
	room.cancel()

	gm.mu.Lock()
	if gm.rooms[room.ID] == room {
		delete(gm.rooms, room.ID)
	}
	gm.mu.Unlock()
	klog.Infof("Room %s destroyed", room.ID)
}

// locked runs fn with the room locked. A panic inside fn is contained to
// this room and reported as ErrInternal.
func (gm *GameManager) locked(room *Room, fn func(*Room) error) (err error) {
	room.mu.Lock()
	defer room.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			klog.Errorf("Room %s: recovered from panic: %v\n%s", room.ID, p, debug.Stack())
			err = ErrInternal
		}
	}()

	if room.destroyed {
		return ErrRoomNotFound
	}
	return fn(room)
}

func (gm *GameManager) withRoom(roomID string, fn func(*Room) error) error {
	room, ok := gm.room(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return gm.locked(room, fn)
}

// Roster maps every room to its participant count.
func (gm *GameManager) Roster() map[string]int {
	gm.mu.RLock()
	rooms := make([]*Room, 0, len(gm.rooms))
	for _, room := range gm.rooms {
		rooms = append(rooms, room)
	}
	gm.mu.RUnlock()

	roster := make(map[string]int, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		if !room.destroyed {
			roster[room.ID] = len(room.Participants)
		}
		room.mu.Unlock()
	}
	return roster
}

func (gm *GameManager) broadcastRoster() {
	gm.notifier.NotifyAll(Roster{Rooms: gm.Roster()})
}

func (gm *GameManager) Snapshot(roomID string) (RoomSnapshot, error) {
	var snapshot RoomSnapshot
	err := gm.withRoom(NormalizeRoomID(roomID), func(room *Room) error {
		snapshot = room.snapshot()
		return nil
	})
	return snapshot, err
}

// broadcast sends n to every human in the room.
func (gm *GameManager) broadcast(room *Room, n Notification) {
	for _, a := range room.humans() {
		gm.notifier.Notify(a.ID(), n)
	}
}

// member resolves participantID to an actor seated in room.
func member(room *Room, participantID string) (uno.Actor, error) {
	actor := uno.Human(participantID)
	if _, ok := room.participant(actor); !ok {
		return uno.Actor{}, ErrNotInRoom
	}
	return actor, nil
}

// ============================================================================
// COMMANDS
// ============================================================================

// Join seats the participant in req.RoomID, creating the room when needed,
// and returns the room id. Joining another room leaves the current one.
func (gm *GameManager) Join(participantID string, req JoinRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	actor := uno.Human(participantID)

	if session, err := gm.sessions.GetSession(participantID); err == nil && session.RoomID != req.RoomID {
		// A rejected join keeps the current seat. A missing room is created below.
		err := gm.withRoom(req.RoomID, func(room *Room) error {
			return gm.admits(room, actor, req)
		})
		if err != nil && !errors.Is(err, ErrRoomNotFound) {
			return "", fmt.Errorf("joining room %s: %w", req.RoomID, err)
		}
		if err := gm.Leave(participantID); err != nil && !errors.Is(err, ErrNotInRoom) {
			klog.Warningf("Participant %s: leaving room %s: %v", participantID, session.RoomID, err)
		}
	}

	var roomID string
	err := ErrRoomNotFound
	// A room can be destroyed between lookup and lock; try again with a fresh one.
	for attempt := 0; attempt < 3 && errors.Is(err, ErrRoomNotFound); attempt++ {
		room := gm.roomOrCreate(req.RoomID, actor)
		roomID = room.ID
		err = gm.locked(room, func(room *Room) error {
			return gm.join(room, actor, req)
		})
	}
	if err != nil {
		return "", fmt.Errorf("joining room %s: %w", roomID, err)
	}

	gm.broadcastRoster()
	return roomID, nil
}

// admits reports whether actor may take a new seat in room.
func (gm *GameManager) admits(room *Room, actor uno.Actor, req JoinRequest) error {
	if _, ok := room.participant(actor); ok {
		return nil
	}
	if room.State == StateInProgress {
		return ErrGameInProgress
	}
	seats := len(room.Participants) + 1
	if req.VsOpponent && !room.hasOpponent() {
		seats++
	}
	if seats > gm.opts.MaxPlayers {
		return ErrRoomFull
	}
	return nil
}

func (gm *GameManager) join(room *Room, actor uno.Actor, req JoinRequest) error {
	if _, ok := room.participant(actor); ok {
		gm.notifier.Notify(actor.ID(), HostAssigned{RoomID: room.ID, HostID: room.Host})
		return nil
	}
	if err := gm.admits(room, actor, req); err != nil {
		return err
	}

	addOpponent := req.VsOpponent && !room.hasOpponent()
	room.addParticipant(actor, req.Name)
	if addOpponent {
		room.addParticipant(uno.Scripted, opponentName)
	}
	room.UpdatedAt = time.Now()
	gm.sessions.StoreSession(SessionInfo{ParticipantID: actor.ID(), RoomID: room.ID, Name: req.Name})
	klog.Infof("Room %s: %s joined as %q (%d participants)", room.ID, actor, req.Name, len(room.Participants))

	gm.notifier.Notify(actor.ID(), HostAssigned{RoomID: room.ID, HostID: room.Host})
	p, _ := room.participant(actor)
	gm.broadcast(room, PlayerJoined{
		RoomID:       room.ID,
		Participant:  ParticipantInfo{ID: p.Actor, Name: p.Name, IsHost: p.Actor == room.Host},
		Participants: room.participantInfos(),
	})

	if gm.opts.AutoStartPlayers > 0 && room.State == StateLobby && len(room.Participants) >= gm.opts.AutoStartPlayers {
		klog.Infof("Room %s: %d participants, starting automatically", room.ID, len(room.Participants))
		return gm.startRoom(room)
	}
	return nil
}

// Start deals the first game of a lobby. Host only.
func (gm *GameManager) Start(participantID string, req RoomRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return gm.withRoom(req.RoomID, func(room *Room) error {
		actor, err := member(room, participantID)
		if err != nil {
			return err
		}
		if room.Host != actor {
			return ErrUnauthorizedHost
		}
		if room.State != StateLobby {
			return ErrGameInProgress
		}
		if len(room.Participants) < 2 {
			return ErrNotEnoughPlayers
		}
		return gm.startRoom(room)
	})
}

// Restart deals a new game regardless of the current state. Host only.
func (gm *GameManager) Restart(participantID string, req RoomRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return gm.withRoom(req.RoomID, func(room *Room) error {
		actor, err := member(room, participantID)
		if err != nil {
			return err
		}
		if room.Host != actor {
			return ErrUnauthorizedHost
		}
		if len(room.Participants) < 2 {
			return ErrNotEnoughPlayers
		}
		klog.Infof("Room %s: restarted by %s", room.ID, actor)
		return gm.startRoom(room)
	})
}

func (gm *GameManager) startRoom(room *Room) error {
	room.stopOpponent()

	actors := make([]uno.Actor, 0, len(room.Participants))
	for _, p := range room.Participants {
		actors = append(actors, p.Actor)
	}
	room.Turns = uno.NewTurnSequence(actors...)
	room.Winner = uno.Actor{}

	if err := room.deal(); err != nil {
		return fmt.Errorf("dealing room %s: %w", room.ID, err)
	}
	room.State = StateInProgress
	room.UpdatedAt = time.Now()
	klog.Infof("Room %s: game started with %d participants, top card %s", room.ID, len(actors), room.top())

	gm.broadcast(room, GameStarted{
		RoomID:       room.ID,
		TopCard:      room.top(),
		ActiveColor:  room.ActiveColor,
		Participants: room.participantInfos(),
	})
	for _, a := range room.humans() {
		gm.notifier.Notify(a.ID(), HandDealt{Cards: slices.Clone(room.Hands[a])})
	}
	if room.hasOpponent() {
		gm.broadcast(room, OpponentHandSize{Count: len(room.Hands[uno.Scripted])})
	}
	gm.broadcast(room, TurnChanged{NextActor: room.Turns.Head()})

	gm.scheduleOpponent(room)
	return nil
}

func (gm *GameManager) Play(participantID string, req PlayRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return gm.withRoom(req.RoomID, func(room *Room) error {
		actor, err := member(room, participantID)
		if err != nil {
			return err
		}
		if room.State != StateInProgress {
			return ErrGameNotStarted
		}
		return gm.playCard(room, actor, req.Card, req.DeclaredColor)
	})
}

// playCard validates and applies one play. Nothing changes unless the play
// is legal.
func (gm *GameManager) playCard(room *Room, actor uno.Actor, card uno.Card, declared uno.Color) error {
	if room.Turns.Head() != actor {
		return ErrNotYourTurn
	}
	if err := card.Validate(); err != nil {
		return err
	}
	if card.IsWild() && !declared.IsNatural() {
		return ErrColorRequired
	}
	if !uno.IsPlayable(card, room.top(), room.ActiveColor) {
		if !actor.IsScripted() {
			gm.notifier.Notify(actor.ID(), IllegalMove{Card: card})
		}
		return ErrIllegalMove
	}
	hand := room.Hands[actor]
	if hand.Index(card) < 0 {
		klog.V(1).Infof("Room %s: %s played %s which is not in hand", room.ID, actor, card)
		return uno.ErrCardNotInHand
	}

	if err := hand.Remove(card); err != nil {
		return err
	}
	room.Hands[actor] = hand

	played := uno.PlayedCard{Card: card}
	if card.IsWild() {
		played.ChosenColor = declared
	}
	room.Discard = append(room.Discard, played)
	room.ActiveColor = played.EffectiveColor()
	room.UpdatedAt = time.Now()

	target := room.Turns.Next()
	room.Turns.AfterPlay(card.Value)
	opponentChanged := actor.IsScripted()
	if penalty := card.Value.Penalty(); penalty > 0 && target != actor {
		drawn := room.drawCards(target, penalty)
		if target.IsScripted() {
			opponentChanged = true
		} else {
			gm.notifier.Notify(target.ID(), CardsDrawn{Cards: drawn})
		}
		klog.V(1).Infof("Room %s: %s draws %d from %s", room.ID, target, len(drawn), card)
	}

	if actor.IsScripted() && card.IsWild() {
		gm.broadcast(room, OpponentDeclaredColor{Color: declared})
	}

	if len(room.Hands[actor]) == 0 {
		gm.finish(room, actor, EndReasonWin, &played)
		return nil
	}

	gm.broadcast(room, CardPlayed{
		Card:        played,
		NextActor:   room.Turns.Head(),
		TopCard:     played,
		ActorID:     actor,
		ActiveColor: room.ActiveColor,
	})
	if opponentChanged {
		gm.broadcast(room, OpponentHandSize{Count: len(room.Hands[uno.Scripted])})
	}
	gm.scheduleOpponent(room)
	return nil
}

func (gm *GameManager) Draw(participantID string, req RoomRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return gm.withRoom(req.RoomID, func(room *Room) error {
		actor, err := member(room, participantID)
		if err != nil {
			return err
		}
		if room.State != StateInProgress {
			return ErrGameNotStarted
		}
		return gm.drawCard(room, actor)
	})
}

func (gm *GameManager) drawCard(room *Room, actor uno.Actor) error {
	if room.Turns.Head() != actor {
		return ErrNotYourTurn
	}

	drawn := room.drawCards(actor, 1)
	if actor.IsScripted() {
		gm.broadcast(room, OpponentHandSize{Count: len(room.Hands[actor])})
	} else {
		gm.notifier.Notify(actor.ID(), CardsDrawn{Cards: drawn})
	}
	room.Turns.Advance()
	room.UpdatedAt = time.Now()

	gm.broadcast(room, TurnChanged{NextActor: room.Turns.Head()})
	gm.scheduleOpponent(room)
	return nil
}

// Leave removes the participant from its room. The next human in join order
// becomes host, and the room goes away with its last human.
func (gm *GameManager) Leave(participantID string) error {
	session, err := gm.sessions.GetSession(participantID)
	if err != nil {
		return err
	}
	gm.sessions.RemoveSession(participantID, session.RoomID)

	err = gm.withRoom(session.RoomID, func(room *Room) error {
		return gm.leave(room, uno.Human(participantID))
	})
	if err != nil && !errors.Is(err, ErrRoomNotFound) {
		return fmt.Errorf("leaving room %s: %w", session.RoomID, err)
	}

	gm.broadcastRoster()
	return nil
}

func (gm *GameManager) leave(room *Room, actor uno.Actor) error {
	if _, ok := room.participant(actor); !ok {
		return nil
	}

	wasHead := room.Turns.Head() == actor
	var newHost uno.Actor
	if room.Host == actor {
		newHost = room.nextHost()
	}
	room.removeParticipant(actor)
	room.UpdatedAt = time.Now()
	klog.Infof("Room %s: %s left (%d participants)", room.ID, actor, len(room.Participants))

	gm.notifier.Notify(actor.ID(), PlayerLeft{RoomID: room.ID, ParticipantID: actor})
	if len(room.humans()) == 0 {
		gm.destroy(room)
		return nil
	}
	gm.broadcast(room, PlayerLeft{RoomID: room.ID, ParticipantID: actor})

	if !newHost.IsZero() {
		room.Host = newHost
		klog.Infof("Room %s: %s is now host", room.ID, newHost)
		gm.broadcast(room, HostAssigned{RoomID: room.ID, HostID: newHost})
	}

	if room.State != StateInProgress {
		return nil
	}
	if room.Turns.Len() == 1 {
		gm.finish(room, room.Turns.Head(), EndReasonForfeit, nil)
		return nil
	}
	if room.hasOpponent() {
		gm.broadcast(room, OpponentHandSize{Count: len(room.Hands[uno.Scripted])})
	}
	if wasHead {
		gm.broadcast(room, TurnChanged{NextActor: room.Turns.Head()})
		gm.scheduleOpponent(room)
	}
	return nil
}

func (gm *GameManager) finish(room *Room, winner uno.Actor, reason string, card *uno.PlayedCard) {
	room.State = StateFinished
	room.Winner = winner
	room.stopOpponent()
	klog.Infof("Room %s: %s wins (%s)", room.ID, winner, reason)
	gm.broadcast(room, GameEnded{WinnerID: winner, Reason: reason, Card: card})
}

// Shutdown stops every opponent task and tells connected players.
func (gm *GameManager) Shutdown() {
	gm.cancel()
	gm.notifier.NotifyAll(ServerShutdown{Message: "Server is shutting down"})
}
