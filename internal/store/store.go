// Package store owns the single authoritative snapshot received from the
// server. Apply* methods are the only mutation points; each returns the
// derived events (damage, match end) for the notification collaborators,
// mirroring how the server side separates state from emitted events.
package store

import (
	"github.com/robot-arena/arena-client/internal/game"
	"github.com/robot-arena/arena-client/internal/protocol"
)

// TrapDamageThreshold splits the damage heuristic: the wire protocol does not
// carry a damage source, so a big hp drop is classified as a trap hit and a
// small one as a weapon hit. Replace once the server reports the true source.
const TrapDamageThreshold = 10

type DamageClass string

const (
	DamageTrap   DamageClass = "trap"
	DamageWeapon DamageClass = "weapon"
)

type Event interface{ isStoreEvent() }

// DamageEvent fires when a player's hp decreased between snapshots.
type DamageEvent struct {
	PlayerID string
	Amount   int
	Class    DamageClass
}

// MatchEndedEvent fires once on game_over.
type MatchEndedEvent struct {
	WinnerID   string
	WinnerName string
}

// ReturnedToLobbyEvent fires when a waiting lobby update supersedes a
// finished match, signaling that a new match is forming.
type ReturnedToLobbyEvent struct{}

func (DamageEvent) isStoreEvent()          {}
func (MatchEndedEvent) isStoreEvent()      {}
func (ReturnedToLobbyEvent) isStoreEvent() {}

type Store struct {
	snap    game.Snapshot
	hasSnap bool
	seed    *game.Seed
	traps   map[string]protocol.TrapRuntime
	prevHP  map[string]int
}

func New() *Store {
	return &Store{prevHP: map[string]int{}}
}

// Snapshot returns a copy of the current snapshot. The second return is false
// before any server state has arrived.
func (s *Store) Snapshot() (game.Snapshot, bool) {
	if !s.hasSnap {
		return game.Snapshot{}, false
	}
	return s.snap.Clone(), true
}

func (s *Store) Seed() *game.Seed { return s.seed }

func (s *Store) Traps() map[string]protocol.TrapRuntime { return s.traps }

func (s *Store) ApplySeed(msg *protocol.Seed) {
	s.seed = &game.Seed{Robots: msg.Robots, Weapons: msg.Weapons}
}

func (s *Store) ApplyTraps(traps map[string]protocol.TrapRuntime) {
	s.traps = traps
}

// ApplyLobbyState merges a partial lobby update. Outside of a running match
// the partial replaces status and players wholesale; during a match only the
// fields present are merged so a late lobby message cannot regress it.
// A waiting status arriving while the local match is finished authoritatively
// starts a new lobby phase.
func (s *Store) ApplyLobbyState(msg *protocol.LobbyState) []Event {
	var events []Event

	wasFinished := s.hasSnap && s.snap.Status == game.StatusFinished

	if !s.hasSnap || s.snap.Status != game.StatusPlaying {
		status := msg.Status
		if status == "" {
			status = game.StatusWaiting
		}
		s.snap = game.Snapshot{
			Status:   status,
			Players:  append([]game.PlayerView(nil), msg.Players...),
			CanStart: msg.CanStart,
		}
		s.hasSnap = true
	} else {
		if msg.Players != nil {
			s.snap.Players = append([]game.PlayerView(nil), msg.Players...)
		}
		if msg.Status != "" {
			s.snap.Status = msg.Status
		}
		s.snap.CanStart = msg.CanStart
	}

	if wasFinished && msg.Status == game.StatusWaiting {
		s.snap.Status = game.StatusWaiting
		events = append(events, ReturnedToLobbyEvent{})
	}
	return events
}

// ApplyGameState fully replaces the snapshot with the authoritative state and
// emits damage events from hp deltas against the last observed values.
func (s *Store) ApplyGameState(msg *protocol.GameState) []Event {
	var events []Event

	for _, p := range msg.Players {
		prev, seen := s.prevHP[p.PlayerID]
		if seen && prev > 0 && p.HP < prev {
			amount := prev - p.HP
			class := DamageWeapon
			if amount >= TrapDamageThreshold {
				class = DamageTrap
			}
			events = append(events, DamageEvent{PlayerID: p.PlayerID, Amount: amount, Class: class})
		}
		s.prevHP[p.PlayerID] = p.HP
	}

	s.snap = msg.Snapshot.Clone()
	s.hasSnap = true
	if msg.TrapsState != nil {
		s.traps = msg.TrapsState
	}
	return events
}

// ApplyGameOver marks the match finished, leaving player data in place for
// the end-of-match display. The hp history is match-scoped, so it is dropped:
// the next match's first snapshot is a fresh observation, not a delta.
func (s *Store) ApplyGameOver(msg *protocol.GameOver) []Event {
	s.prevHP = map[string]int{}
	if s.hasSnap {
		s.snap.Status = game.StatusFinished
		s.snap.WinnerID = msg.WinnerID
	} else {
		s.snap = game.Snapshot{Status: game.StatusFinished, WinnerID: msg.WinnerID}
		s.hasSnap = true
	}
	return []Event{MatchEndedEvent{WinnerID: msg.WinnerID, WinnerName: msg.WinnerName}}
}

// ForcePosition snaps a player's displayed position to an authoritative value
// the server sent alongside an action rejection.
func (s *Store) ForcePosition(playerID string, pos game.Pos) {
	if !s.hasSnap {
		return
	}
	if p := s.snap.Player(playerID); p != nil {
		p.Pos = pos
	}
}

// Reset discards all server state. Used when a mid-match disconnect
// terminates the session.
func (s *Store) Reset() {
	s.snap = game.Snapshot{}
	s.hasSnap = false
	s.traps = nil
	s.prevHP = map[string]int{}
}
