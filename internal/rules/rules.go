// Package rules is the pure predicate layer gating user input. It has no side
// effects and never talks to the server; it only decides whether an intent is
// admissible right now and what kind of intent it is.
package rules

import (
	"errors"

	"github.com/robot-arena/arena-client/internal/game"
)

var ErrNotConnected = errors.New("not connected")
var ErrNotPlaying = errors.New("no match in progress")
var ErrNotYourTurn = errors.New("not your turn")
var ErrNoActionPoints = errors.New("no action points remaining")
var ErrNotAdjacent = errors.New("destination is not an adjacent cell")
var ErrOutOfBounds = errors.New("destination is outside the arena")
var ErrNoLocalPlayer = errors.New("local player not in snapshot")

// CanAct reports whether any action is currently permitted: the connection is
// open, a match is playing, it is the local player's turn and AP remain.
func CanAct(snap game.Snapshot, localID string, connOpen bool) bool {
	return connOpen &&
		snap.Status == game.StatusPlaying &&
		snap.TurnPlayerID == localID &&
		localID != "" &&
		snap.APRemaining > 0
}

// Gate returns the first failed precondition of CanAct as a sentinel error,
// or nil when acting is allowed.
func Gate(snap game.Snapshot, localID string, connOpen bool) error {
	switch {
	case !connOpen:
		return ErrNotConnected
	case snap.Status != game.StatusPlaying:
		return ErrNotPlaying
	case snap.TurnPlayerID != localID || localID == "":
		return ErrNotYourTurn
	case snap.APRemaining <= 0:
		return ErrNoActionPoints
	}
	return nil
}

type IntentKind string

const (
	IntentMove   IntentKind = "move"
	IntentAttack IntentKind = "attack"
)

// Intent is a locally admitted action, ready to be sent.
type Intent struct {
	Kind     IntentKind
	To       game.Pos // move destination
	TargetID string   // attack target
}

// ClassifyTarget validates a grid cell the player selected and decides whether
// it is a move or an attack. overlay, when non-nil, is the unacknowledged
// optimistic position and counts as the effective origin for adjacency.
// An adjacent cell occupied by the opponent is reinterpreted as an attack;
// everything beyond the 8 surrounding cells is rejected without contacting
// the server.
func ClassifyTarget(snap game.Snapshot, localID string, overlay *game.Pos, target game.Pos, connOpen bool) (Intent, error) {
	if err := Gate(snap, localID, connOpen); err != nil {
		return Intent{}, err
	}

	local := snap.Player(localID)
	if local == nil {
		return Intent{}, ErrNoLocalPlayer
	}

	if opp := snap.Opponent(localID); opp != nil && opp.Pos == target {
		return Intent{Kind: IntentAttack, TargetID: opp.PlayerID}, nil
	}

	if !target.InBounds() {
		return Intent{}, ErrOutOfBounds
	}

	origin := local.Pos
	if overlay != nil {
		origin = *overlay
	}
	if !origin.Adjacent(target) {
		return Intent{}, ErrNotAdjacent
	}
	return Intent{Kind: IntentMove, To: target}, nil
}
