package client

import (
	"github.com/robot-arena/arena-client/internal/conn"
	"github.com/robot-arena/arena-client/internal/game"
)

// event is anything the dispatch loop consumes: user intents posted by the
// public API, timer firings, and transport events forwarded from the
// connection manager. All state transitions happen on delivery of one of
// these and run to completion before the next is processed.
type event interface{ isClientEvent() }

// user intents

type joinReq struct{ name string }
type resumeReq struct{}
type leaveReq struct{}
type readyReq struct{ ready bool }
type loadoutReq struct{ robotID, weaponID string }
type targetReq struct{ pos game.Pos }
type moveDirReq struct{ dx, dy int }
type endTurnReq struct{}
type canActReq struct{ reply chan bool }

// timer firings

type joinPollTick struct{}
type reconnectTick struct{}
type autoEndTurnTick struct{ turn int }

// transport events

type connEvent struct{ ev conn.Event }

func (joinReq) isClientEvent()         {}
func (resumeReq) isClientEvent()       {}
func (leaveReq) isClientEvent()        {}
func (readyReq) isClientEvent()        {}
func (loadoutReq) isClientEvent()      {}
func (targetReq) isClientEvent()       {}
func (moveDirReq) isClientEvent()      {}
func (endTurnReq) isClientEvent()      {}
func (canActReq) isClientEvent()       {}
func (joinPollTick) isClientEvent()    {}
func (reconnectTick) isClientEvent()   {}
func (autoEndTurnTick) isClientEvent() {}
func (connEvent) isClientEvent()       {}
