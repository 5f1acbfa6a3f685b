package server

import (
	"context"
	"errors"
	"time"

	"uno-server/internal/uno"

	"k8s.io/klog/v2"
)

// scheduleOpponent arms the scripted opponent's turn if it is up next.
// Any earlier pending turn is cancelled first. Caller holds room.mu.
func (gm *GameManager) scheduleOpponent(room *Room) {
	room.stopOpponent()
	if room.State != StateInProgress || !room.Turns.Head().IsScripted() {
		return
	}

	ctx, cancel := context.WithCancel(room.ctx)
	room.cancelOpponent = cancel
	go gm.runOpponent(ctx, room, gm.opts.OpponentDelay)
}

func (gm *GameManager) runOpponent(ctx context.Context, room *Room, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	err := gm.locked(room, func(room *Room) error {
		// Cancellation happens under the room lock, so this check is final.
		if ctx.Err() != nil {
			return nil
		}
		room.stopOpponent()
		if room.State != StateInProgress || !room.Turns.Head().IsScripted() {
			return nil
		}
		return gm.opponentTurn(room)
	})
	if err != nil && !errors.Is(err, ErrRoomNotFound) {
		klog.Errorf("Room %s: opponent turn: %v", room.ID, err)
	}
}

func (gm *GameManager) opponentTurn(room *Room) error {
	decision := uno.Decide(room.opponentView())
	if decision.Draw {
		return gm.drawCard(room, uno.Scripted)
	}

	klog.V(1).Infof("Room %s: opponent plays %s", room.ID, decision.Card)
	if err := gm.playCard(room, uno.Scripted, decision.Card, decision.DeclaredColor); err != nil {
		klog.Errorf("Room %s: opponent chose %s: %v, drawing instead", room.ID, decision.Card, err)
		return gm.drawCard(room, uno.Scripted)
	}
	return nil
}
