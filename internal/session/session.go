// Package session owns the client identity: player id, resume token and
// display name, plus their persistence across restarts. The join handshake is
// an explicit bounded retry machine ticked by the dispatch loop; there is no
// blocking wait anywhere.
package session

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/robot-arena/arena-client/internal/protocol"
	"github.com/robot-arena/arena-client/internal/storage"
)

const (
	// Join handshake poll: up to JoinPollAttempts ticks, JoinPollInterval apart.
	JoinPollInterval = 100 * time.Millisecond
	JoinPollAttempts = 50

	// Fixed delay before the single reconnect attempt while a token is held.
	ReconnectDelay = time.Second
)

// Sentinel texts double as the user-facing notification for a failed join.
var ErrEmptyName = errors.New("display name must not be empty")
var ErrJoinTimeout = errors.New("timed out connecting, please try again")
var ErrConnectionFailed = errors.New("connection failed, please try again")

type Controller struct {
	creds storage.Store
	log   *zap.Logger

	playerID string
	token    string
	name     string

	joinAttemptsLeft int // >0 while a join handshake is in flight
	resumePending    bool
}

func NewController(creds storage.Store, log *zap.Logger) *Controller {
	c := &Controller{creds: creds, log: log.Named("session")}
	c.token, _ = creds.Get(storage.KeyToken)
	c.playerID, _ = creds.Get(storage.KeyPlayerID)
	c.name, _ = creds.Get(storage.KeyPlayerName)
	return c
}

func (c *Controller) PlayerID() string { return c.playerID }
func (c *Controller) Name() string     { return c.name }
func (c *Controller) HasToken() bool   { return c.token != "" }

// SavedLoadout returns the convenience robot/weapon selection kept across
// sessions, empty strings when unset.
func (c *Controller) SavedLoadout() (robotID, weaponID string) {
	robotID, _ = c.creds.Get(storage.KeyRobotID)
	weaponID, _ = c.creds.Get(storage.KeyWeaponID)
	return robotID, weaponID
}

func (c *Controller) SaveLoadout(robotID, weaponID string) {
	_ = c.creds.Set(storage.KeyRobotID, robotID)
	_ = c.creds.Set(storage.KeyWeaponID, weaponID)
}

// BeginJoin starts a fresh join handshake. A new join always starts a fresh
// identity, so any stale token is discarded first. At most one handshake is
// in flight; starting a new one supersedes the previous poll.
func (c *Controller) BeginJoin(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	c.token = ""
	c.playerID = ""
	c.resumePending = false
	_ = c.creds.Delete(storage.KeyToken, storage.KeyPlayerID)

	c.name = name
	_ = c.creds.Set(storage.KeyPlayerName, name)
	c.joinAttemptsLeft = JoinPollAttempts
	return nil
}

func (c *Controller) JoinPending() bool { return c.joinAttemptsLeft > 0 }

// PollJoin consumes one poll tick. It returns ErrJoinTimeout once the attempt
// budget is exhausted, rolling the handshake back.
func (c *Controller) PollJoin() error {
	if c.joinAttemptsLeft <= 0 {
		return nil
	}
	c.joinAttemptsLeft--
	if c.joinAttemptsLeft == 0 {
		return ErrJoinTimeout
	}
	return nil
}

// AbortJoin cancels an in-flight handshake, e.g. when the socket closed
// before join_ok arrived.
func (c *Controller) AbortJoin() {
	c.joinAttemptsLeft = 0
}

// OnTransportOpen returns the single handshake message owed on a fresh
// transport: reconnect when a token is held, join when one is pending,
// nil otherwise. Never both.
func (c *Controller) OnTransportOpen() protocol.Message {
	if c.token != "" {
		c.resumePending = true
		return &protocol.Reconnect{Token: c.token}
	}
	if c.joinAttemptsLeft > 0 {
		return &protocol.Join{Name: c.name}
	}
	return nil
}

// HandleJoinOK stores and persists the fresh identity.
func (c *Controller) HandleJoinOK(msg *protocol.JoinOK) {
	c.playerID = msg.PlayerID
	c.token = msg.Token
	c.joinAttemptsLeft = 0
	_ = c.creds.Set(storage.KeyPlayerID, msg.PlayerID)
	_ = c.creds.Set(storage.KeyToken, msg.Token)
	c.log.Info("joined", zap.String("player_id", msg.PlayerID))
}

// HandleReconnectOK restores the player id for a resumed session.
func (c *Controller) HandleReconnectOK(msg *protocol.ReconnectOK) {
	c.playerID = msg.PlayerID
	c.resumePending = false
	_ = c.creds.Set(storage.KeyPlayerID, msg.PlayerID)
	c.log.Info("session resumed", zap.String("player_id", msg.PlayerID))
}

// HandleServerError reports whether the error invalidated a resume attempt;
// if so the stored token is cleared and the caller returns to the login state.
func (c *Controller) HandleServerError(msg *protocol.ServerError) bool {
	if !c.resumePending {
		return false
	}
	c.resumePending = false
	c.clearIdentity()
	c.log.Warn("resume rejected", zap.String("reason", msg.Message))
	return true
}

// Clear drops the session identity, both in memory and persisted. Display
// name and loadout selection are deliberately retained for the next join.
func (c *Controller) Clear() {
	c.joinAttemptsLeft = 0
	c.resumePending = false
	c.clearIdentity()
}

func (c *Controller) clearIdentity() {
	c.playerID = ""
	c.token = ""
	_ = c.creds.Delete(storage.KeyToken, storage.KeyPlayerID)
}
