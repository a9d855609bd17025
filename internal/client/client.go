// Package client wires the session, connection, store and action layers into
// a single dispatch loop. The loop is the only place any of them is mutated,
// so the whole runtime is single-threaded in the event-driven sense: user
// input, inbound messages and timer firings are all events in one inbox.
package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/robot-arena/arena-client/internal/action"
	"github.com/robot-arena/arena-client/internal/clock"
	"github.com/robot-arena/arena-client/internal/conn"
	"github.com/robot-arena/arena-client/internal/game"
	"github.com/robot-arena/arena-client/internal/protocol"
	"github.com/robot-arena/arena-client/internal/rules"
	"github.com/robot-arena/arena-client/internal/session"
	"github.com/robot-arena/arena-client/internal/storage"
	"github.com/robot-arena/arena-client/internal/store"
)

// AutoEndTurnDelay is how long the client waits after the local player's AP
// hits zero before emitting end_turn, so a just-issued action is sent first.
const AutoEndTurnDelay = 500 * time.Millisecond

type Client struct {
	inbox    chan event
	manager  *conn.Manager
	sess     *session.Controller
	store    *store.Store
	actions  *action.Layer
	clk      clock.Clock
	log      *zap.Logger
	renderer Renderer
	notifier Notifier

	screen           Screen
	autoEndTurnFor   int // turn number an end_turn is already scheduled for
	joinPollTimer    clock.Timer
	reconnectTimer   clock.Timer
	reconnectPending bool

	// ctx is owned by the dispatch goroutine; post must not read it.
	ctx  context.Context
	done chan struct{}
}

type Options struct {
	ServerOrigin string
	Creds        storage.Store
	Renderer     Renderer
	Notifier     Notifier
	Clock        clock.Clock
	Dial         conn.DialFunc // nil for the production websocket dialer
	Logger       *zap.Logger
}

func New(opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Renderer == nil {
		opts.Renderer = nopRenderer{}
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}

	manager, err := conn.NewManager(opts.ServerOrigin, opts.Dial, opts.Logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		inbox:    make(chan event, 64),
		done:     make(chan struct{}),
		manager:  manager,
		sess:     session.NewController(opts.Creds, opts.Logger),
		store:    store.New(),
		clk:      opts.Clock,
		log:      opts.Logger.Named("client"),
		renderer: opts.Renderer,
		notifier: opts.Notifier,
		screen:   ScreenLogin,
	}
	c.actions = action.NewLayer(
		c.store,
		func(m protocol.Message) error { return c.manager.Send(c.ctxOrBackground(), m) },
		c.sess.PlayerID,
		func() bool { return c.manager.State() == conn.Open },
		opts.Clock,
	)
	return c, nil
}

func (c *Client) ctxOrBackground() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

// Run drives the dispatch loop until ctx is cancelled. If a persisted resume
// token exists, a reconnect is attempted immediately.
func (c *Client) Run(ctx context.Context) error {
	c.ctx = ctx
	defer close(c.done)
	if c.sess.HasToken() {
		c.manager.Open(ctx)
	}
	c.publish()

	for {
		select {
		case <-ctx.Done():
			c.manager.Close()
			return ctx.Err()
		case ev := <-c.manager.Events():
			c.handle(connEvent{ev: ev})
		case ev := <-c.inbox:
			c.handle(ev)
		}
	}
}

// Public API: each method posts an event; the loop does the work.

func (c *Client) Join(name string)          { c.post(joinReq{name: name}) }
func (c *Client) Resume()                   { c.post(resumeReq{}) }
func (c *Client) Leave()                    { c.post(leaveReq{}) }
func (c *Client) SetReady(ready bool)       { c.post(readyReq{ready: ready}) }
func (c *Client) SelectLoadout(r, w string) { c.post(loadoutReq{robotID: r, weaponID: w}) }
func (c *Client) Target(pos game.Pos)       { c.post(targetReq{pos: pos}) }
func (c *Client) MoveDirection(dx, dy int)  { c.post(moveDirReq{dx: dx, dy: dy}) }
func (c *Client) EndTurn()                  { c.post(endTurnReq{}) }

func (c *Client) post(ev event) {
	select {
	case c.inbox <- ev:
	case <-c.done:
	}
}

func (c *Client) handle(ev event) {
	switch ev := ev.(type) {
	case joinReq:
		c.handleJoin(ev.name)
	case resumeReq:
		if c.sess.HasToken() {
			c.manager.Open(c.ctx)
		}
	case leaveReq:
		c.handleLeave()
	case readyReq:
		c.sendOrWarn(&protocol.SetReady{Ready: ev.ready})
	case loadoutReq:
		c.handleLoadout(ev.robotID, ev.weaponID)
	case targetReq:
		c.handleTarget(ev.pos)
	case moveDirReq:
		c.handleMoveDirection(ev.dx, ev.dy)
	case endTurnReq:
		c.sendOrWarn(&protocol.EndTurn{})
	case canActReq:
		// Pure query: answer and skip the republish below.
		ev.reply <- c.canAct()
		return
	case joinPollTick:
		c.handleJoinPoll()
	case reconnectTick:
		c.handleReconnectTick()
	case autoEndTurnTick:
		c.handleAutoEndTurn(ev.turn)
	case connEvent:
		c.handleConn(ev.ev)
	}
	c.publish()
}

func (c *Client) handleJoin(name string) {
	if err := c.sess.BeginJoin(name); err != nil {
		c.warn(err.Error())
		return
	}
	// A new join always starts on a fresh transport.
	c.stopTimers()
	c.manager.Close()
	c.manager.Open(c.ctx)
	c.joinPollTimer = c.clk.AfterFunc(session.JoinPollInterval, func() { c.post(joinPollTick{}) })
}

func (c *Client) handleLeave() {
	c.stopTimers()
	c.sess.Clear()
	c.store.Reset()
	c.actions.HandleAuthoritative()
	c.autoEndTurnFor = 0
	c.manager.Close()
	c.screen = ScreenLogin
}

func (c *Client) handleLoadout(robotID, weaponID string) {
	c.sess.SaveLoadout(robotID, weaponID)
	if robotID == "" || weaponID == "" {
		return
	}
	if c.manager.State() == conn.Open {
		// Idempotent: resending the same loadout is harmless.
		if err := c.manager.Send(c.ctx, &protocol.SelectLoadout{RobotID: robotID, WeaponID: weaponID}); err != nil {
			c.warn("not connected to the server")
		}
	}
}

func (c *Client) handleTarget(pos game.Pos) {
	if err := c.actions.Request(pos); err != nil {
		c.warn(err.Error())
	}
}

func (c *Client) handleMoveDirection(dx, dy int) {
	snap, ok := c.store.Snapshot()
	if !ok {
		return
	}
	local := snap.Player(c.sess.PlayerID())
	if local == nil {
		return
	}
	origin := local.Pos
	if o := c.actions.Overlay(); o != nil {
		origin = *o
	}
	target := game.Pos{X: clamp(origin.X+dx, 0, game.GridCols-1), Y: clamp(origin.Y+dy, 0, game.GridRows-1)}
	if target == origin {
		return // clamped at the arena edge, nothing to send
	}
	c.handleTarget(target)
}

func (c *Client) handleJoinPoll() {
	if !c.sess.JoinPending() {
		return
	}
	if err := c.sess.PollJoin(); err != nil {
		c.manager.Close()
		c.warn(err.Error())
		return
	}
	c.joinPollTimer = c.clk.AfterFunc(session.JoinPollInterval, func() { c.post(joinPollTick{}) })
}

func (c *Client) handleReconnectTick() {
	c.reconnectPending = false
	if c.sess.HasToken() {
		c.manager.Open(c.ctx)
	}
}

func (c *Client) handleAutoEndTurn(turn int) {
	snap, ok := c.store.Snapshot()
	if !ok || snap.Status != game.StatusPlaying {
		return
	}
	if snap.TurnNumber != turn || snap.TurnPlayerID != c.sess.PlayerID() {
		return
	}
	if err := c.manager.Send(c.ctx, &protocol.EndTurn{}); err != nil {
		c.log.Warn("auto end_turn failed", zap.Error(err))
	}
}

func (c *Client) handleConn(ev conn.Event) {
	switch ev := ev.(type) {
	case conn.Opened:
		if !c.manager.HandleOpened(c.ctx, ev) {
			return
		}
		// Exactly one of reconnect or join fires per successful open.
		if msg := c.sess.OnTransportOpen(); msg != nil {
			if err := c.manager.Send(c.ctx, msg); err != nil {
				c.log.Warn("handshake send failed", zap.Error(err))
			}
		}
	case conn.Inbound:
		if c.manager.HandleInbound(ev) {
			c.handleInbound(ev.Msg)
		}
	case conn.Errored:
		if c.manager.HandleErrored(ev) {
			c.warn("connection error")
		}
	case conn.Closed:
		if !c.manager.HandleClosed(ev) {
			return
		}
		c.handleClosed()
	}
}

func (c *Client) handleClosed() {
	if c.sess.JoinPending() {
		c.sess.AbortJoin()
		c.stopTimers()
		c.warn(session.ErrConnectionFailed.Error())
		return
	}

	snap, ok := c.store.Snapshot()
	if ok && snap.Status == game.StatusPlaying {
		// A disconnect mid-match forfeits continuity: the server cannot
		// safely resume mid-turn state, so the session is over.
		c.sess.Clear()
		c.store.Reset()
		c.actions.HandleAuthoritative()
		c.autoEndTurnFor = 0
		c.screen = ScreenLogin
		c.warn("connection lost, the match was terminated")
		return
	}

	if c.sess.HasToken() && !c.reconnectPending {
		c.manager.MarkReconnecting()
		c.reconnectPending = true
		c.reconnectTimer = c.clk.AfterFunc(session.ReconnectDelay, func() { c.post(reconnectTick{}) })
	}
}

func (c *Client) handleInbound(msg protocol.Message) {
	switch msg := msg.(type) {
	case *protocol.JoinOK:
		c.sess.HandleJoinOK(msg)
		c.stopJoinPoll()
		c.screen = ScreenLobby
	case *protocol.ReconnectOK:
		c.sess.HandleReconnectOK(msg)
		c.screen = ScreenLobby
	case *protocol.Seed:
		c.store.ApplySeed(msg)
		c.resendSavedLoadout()
	case *protocol.LobbyState:
		for _, ev := range c.store.ApplyLobbyState(msg) {
			if _, ok := ev.(store.ReturnedToLobbyEvent); ok {
				c.screen = ScreenLobby
				c.autoEndTurnFor = 0
			}
		}
	case *protocol.GameState:
		c.applyGameState(msg)
	case *protocol.ActionRejected:
		reason := c.actions.HandleRejected(msg)
		if reason == "" {
			reason = "action rejected"
		}
		c.warn(reason)
	case *protocol.TrapsState:
		c.store.ApplyTraps(msg.Traps)
	case *protocol.GameOver:
		// Turn numbers restart in the next match; the one-shot guard must not
		// carry over or the first exhausted turn there never auto-ends.
		c.autoEndTurnFor = 0
		for _, ev := range c.store.ApplyGameOver(msg) {
			if ended, ok := ev.(store.MatchEndedEvent); ok {
				c.notifyMatchEnded(ended)
			}
		}
	case *protocol.ServerError:
		c.handleServerError(msg)
	}
}

func (c *Client) applyGameState(msg *protocol.GameState) {
	events := c.store.ApplyGameState(msg)
	// The authoritative view supersedes any optimistic guess.
	c.actions.HandleAuthoritative()
	c.screen = ScreenGame

	for _, ev := range events {
		if dmg, ok := ev.(store.DamageEvent); ok {
			c.notifyDamage(dmg)
		}
	}

	snap, _ := c.store.Snapshot()
	if snap.Status == game.StatusPlaying &&
		snap.TurnPlayerID == c.sess.PlayerID() &&
		snap.APRemaining <= 0 &&
		c.autoEndTurnFor != snap.TurnNumber {
		turn := snap.TurnNumber
		c.autoEndTurnFor = turn
		c.clk.AfterFunc(AutoEndTurnDelay, func() { c.post(autoEndTurnTick{turn: turn}) })
	}
}

func (c *Client) handleServerError(msg *protocol.ServerError) {
	if c.sess.HandleServerError(msg) {
		// Resume rejected: the token is gone, back to login.
		c.manager.Close()
		c.store.Reset()
		c.screen = ScreenLogin
		c.warn(msg.Message)
		return
	}
	if c.sess.JoinPending() {
		c.sess.AbortJoin()
		c.stopJoinPoll()
	}
	c.warn(msg.Message)
}

// resendSavedLoadout restores the persisted loadout selection when entering
// the lobby. Skipped during a running match.
func (c *Client) resendSavedLoadout() {
	snap, ok := c.store.Snapshot()
	if ok && snap.Status == game.StatusPlaying {
		return
	}
	robotID, weaponID := c.sess.SavedLoadout()
	if robotID == "" || weaponID == "" {
		return
	}
	if err := c.manager.Send(c.ctx, &protocol.SelectLoadout{RobotID: robotID, WeaponID: weaponID}); err != nil {
		c.log.Debug("loadout resend skipped", zap.Error(err))
	}
}

// CanAct mirrors the turn gate for input collaborators that want to grey out
// controls. It is answered by the dispatch loop, so it is safe to call from
// any goroutine; it reports false once the loop has stopped.
func (c *Client) CanAct() bool {
	reply := make(chan bool, 1)
	c.post(canActReq{reply: reply})
	select {
	case v := <-reply:
		return v
	case <-c.done:
		return false
	}
}

func (c *Client) canAct() bool {
	snap, ok := c.store.Snapshot()
	if !ok {
		return false
	}
	return rules.CanAct(snap, c.sess.PlayerID(), c.manager.State() == conn.Open)
}

func (c *Client) sendOrWarn(msg protocol.Message) {
	if err := c.manager.Send(c.ctx, msg); err != nil {
		c.warn("not connected to the server")
	}
}

func (c *Client) stopJoinPoll() {
	if c.joinPollTimer != nil {
		c.joinPollTimer.Stop()
		c.joinPollTimer = nil
	}
}

func (c *Client) stopTimers() {
	c.stopJoinPoll()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnectPending = false
}

func (c *Client) publish() {
	snap, ok := c.store.Snapshot()
	v := View{
		Screen:      c.screen,
		ConnState:   c.manager.State(),
		LocalID:     c.sess.PlayerID(),
		Name:        c.sess.Name(),
		Snapshot:    snap,
		HasSnapshot: ok,
		Overlay:     c.actions.Overlay(),
		Seed:        c.store.Seed(),
		Traps:       c.store.Traps(),
	}
	defer c.recoverCollaborator("renderer")
	c.renderer.Render(v)
}

// Collaborator failures must never propagate into the core.

func (c *Client) warn(message string) {
	defer c.recoverCollaborator("notifier")
	c.notifier.Warning(message)
}

func (c *Client) notifyDamage(ev store.DamageEvent) {
	defer c.recoverCollaborator("notifier")
	c.notifier.Damage(ev.PlayerID, ev.Amount, ev.Class)
}

func (c *Client) notifyMatchEnded(ev store.MatchEndedEvent) {
	defer c.recoverCollaborator("notifier")
	c.notifier.MatchEnded(ev.WinnerID, ev.WinnerName)
}

func (c *Client) recoverCollaborator(name string) {
	if r := recover(); r != nil {
		c.log.Error("collaborator panicked", zap.String("collaborator", name), zap.Any("panic", r))
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
