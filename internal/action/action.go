// Package action applies speculative local effects for player actions so a
// move shows up before the server answers. The overlay is a display hint
// only: it never feeds back into legality checks beyond supplying the origin
// for the next move's adjacency, and it is discarded the moment any
// authoritative state arrives.
package action

import (
	"fmt"

	"github.com/robot-arena/arena-client/internal/clock"
	"github.com/robot-arena/arena-client/internal/game"
	"github.com/robot-arena/arena-client/internal/protocol"
	"github.com/robot-arena/arena-client/internal/rules"
	"github.com/robot-arena/arena-client/internal/store"
)

// SendFunc delivers one message to the server.
type SendFunc func(protocol.Message) error

type Layer struct {
	store   *store.Store
	send    SendFunc
	localID func() string
	open    func() bool
	clk     clock.Clock

	overlay *game.Pos
	seq     int
}

func NewLayer(st *store.Store, send SendFunc, localID func() string, open func() bool, clk clock.Clock) *Layer {
	return &Layer{store: st, send: send, localID: localID, open: open, clk: clk}
}

// Overlay returns the unacknowledged optimistic position for the local
// player, or nil when none is outstanding.
func (l *Layer) Overlay() *game.Pos {
	if l.overlay == nil {
		return nil
	}
	p := *l.overlay
	return &p
}

// Request classifies the selected cell and issues a move or attack. A new
// move while one is outstanding overwrites the previous guess and sends a new
// message; the server is the final arbiter of both.
func (l *Layer) Request(target game.Pos) error {
	snap, ok := l.store.Snapshot()
	if !ok {
		return rules.ErrNotPlaying
	}
	intent, err := rules.ClassifyTarget(snap, l.localID(), l.overlay, target, l.open())
	if err != nil {
		return err
	}
	switch intent.Kind {
	case rules.IntentAttack:
		return l.RequestAttack(intent.TargetID)
	default:
		return l.requestMove(intent.To)
	}
}

func (l *Layer) requestMove(to game.Pos) error {
	id := l.nextActionID()
	overlay := to
	l.overlay = &overlay
	return l.send(&protocol.ActionMove{ToX: to.X, ToY: to.Y, ClientActionID: id})
}

// RequestAttack has no optimistic visual effect; attacking does not move the
// attacker.
func (l *Layer) RequestAttack(targetID string) error {
	snap, ok := l.store.Snapshot()
	if !ok {
		return rules.ErrNotPlaying
	}
	if err := rules.Gate(snap, l.localID(), l.open()); err != nil {
		return err
	}
	return l.send(&protocol.ActionAttack{TargetPlayerID: targetID, ClientActionID: l.nextActionID()})
}

// HandleAuthoritative clears the overlay: the server's view supersedes any
// guess, regardless of elapsed time.
func (l *Layer) HandleAuthoritative() {
	l.overlay = nil
}

// HandleRejected rolls the optimistic guess back and snaps the local player
// to the authoritative position the server reported. Returns the user-facing
// reason.
func (l *Layer) HandleRejected(msg *protocol.ActionRejected) string {
	l.overlay = nil
	l.store.ForcePosition(l.localID(), msg.AuthoritativePos)
	return msg.Reason
}

func (l *Layer) nextActionID() string {
	l.seq++
	return fmt.Sprintf("action_%d_%d", l.clk.Now().UnixMilli(), l.seq)
}
