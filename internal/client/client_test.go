package client

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robot-arena/arena-client/internal/clock"
	"github.com/robot-arena/arena-client/internal/conn"
	"github.com/robot-arena/arena-client/internal/game"
	"github.com/robot-arena/arena-client/internal/protocol"
	"github.com/robot-arena/arena-client/internal/storage"
	"github.com/robot-arena/arena-client/internal/store"
)

const waitFor = 2 * time.Second

// fakeTransport is a scripted connection: tests push server frames into in
// and read client frames from out.
type fakeTransport struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-t.in:
		return data, nil
	case <-t.closed:
		return nil, errors.New("transport closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) Write(ctx context.Context, data []byte) error {
	select {
	case <-t.closed:
		return errors.New("transport closed")
	case t.out <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

// push delivers a server frame.
func (t *fakeTransport) push(tt *testing.T, frame string) {
	tt.Helper()
	select {
	case t.in <- []byte(frame):
	case <-time.After(waitFor):
		tt.Fatalf("timed out pushing frame")
	}
}

// sent returns the next decoded client frame.
func (t *fakeTransport) sent(tt *testing.T) protocol.Message {
	tt.Helper()
	select {
	case data := <-t.out:
		msg, err := protocol.Decode(data)
		require.NoError(tt, err)
		return msg
	case <-time.After(waitFor):
		tt.Fatalf("timed out waiting for a client frame")
		return nil
	}
}

func (t *fakeTransport) expectNoSend(tt *testing.T, within time.Duration) {
	tt.Helper()
	select {
	case data := <-t.out:
		tt.Fatalf("expected no client frame, got: %s", data)
	case <-time.After(within):
	}
}

type fakeDialer struct {
	transports chan *fakeTransport
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{transports: make(chan *fakeTransport, 8)}
}

func (d *fakeDialer) dial(ctx context.Context, endpoint string) (conn.Transport, error) {
	tr := newFakeTransport()
	d.transports <- tr
	return tr, nil
}

// next returns the transport from the most recent dial.
func (d *fakeDialer) next(t *testing.T) *fakeTransport {
	t.Helper()
	select {
	case tr := <-d.transports:
		return tr
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for a dial")
		return nil
	}
}

func (d *fakeDialer) expectNoDial(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case <-d.transports:
		t.Fatalf("expected no dial attempt")
	case <-time.After(within):
	}
}

type recRenderer struct{ views chan View }

func (r *recRenderer) Render(v View) { r.views <- v }

type recNotifier struct {
	warnings chan string
	damages  chan store.DamageEvent
	ends     chan store.MatchEndedEvent
}

func (n *recNotifier) Warning(msg string) { n.warnings <- msg }
func (n *recNotifier) Damage(playerID string, amount int, class store.DamageClass) {
	n.damages <- store.DamageEvent{PlayerID: playerID, Amount: amount, Class: class}
}
func (n *recNotifier) MatchEnded(winnerID, winnerName string) {
	n.ends <- store.MatchEndedEvent{WinnerID: winnerID, WinnerName: winnerName}
}

type harness struct {
	cl       *Client
	clk      *clock.Fake
	dialer   *fakeDialer
	creds    *storage.MemStore
	views    chan View
	warnings chan string
	damages  chan store.DamageEvent
	ends     chan store.MatchEndedEvent
}

func newHarness(t *testing.T, seed func(*storage.MemStore)) *harness {
	t.Helper()

	h := &harness{
		clk:      clock.NewFake(),
		dialer:   newFakeDialer(),
		creds:    storage.NewMem(),
		views:    make(chan View, 256),
		warnings: make(chan string, 64),
		damages:  make(chan store.DamageEvent, 64),
		ends:     make(chan store.MatchEndedEvent, 64),
	}
	if seed != nil {
		seed(h.creds)
	}

	cl, err := New(Options{
		ServerOrigin: "http://arena.test",
		Creds:        h.creds,
		Renderer:     &recRenderer{views: h.views},
		Notifier:     &recNotifier{warnings: h.warnings, damages: h.damages, ends: h.ends},
		Clock:        h.clk,
		Dial:         h.dialer.dial,
	})
	require.NoError(t, err)
	h.cl = cl

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(waitFor):
			t.Errorf("dispatch loop did not stop")
		}
	})
	return h
}

// waitView drains published views until cond holds.
func (h *harness) waitView(t *testing.T, what string, cond func(View) bool) View {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case v := <-h.views:
			if cond(v) {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out waiting for view: %s", what)
			return View{}
		}
	}
}

func (h *harness) waitWarning(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case w := <-h.warnings:
			if w == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for warning %q", want)
			return
		}
	}
}

func gameStateFrame(turnPlayer string, ap, turnNumber int, players string) string {
	return fmt.Sprintf(`{"type":"game_state","status":"playing","players":[%s],"turn_player_id":"%s","ap_remaining":%d,"turn_number":%d}`,
		players, turnPlayer, ap, turnNumber)
}

const twoPlayersJSON = `{"player_id":"p1","name":"ada","hp":100,"pos":{"x":2,"y":3}},{"player_id":"p2","name":"bob","hp":100,"pos":{"x":15,"y":1}}`

// joinAndStart brings the harness into a running match with local player p1
// at (2,3), its turn, 3 AP.
func (h *harness) joinAndStart(t *testing.T) *fakeTransport {
	t.Helper()
	h.cl.Join("ada")
	tr := h.dialer.next(t)
	msg := tr.sent(t)
	require.IsType(t, &protocol.Join{}, msg)
	tr.push(t, `{"type":"join_ok","player_id":"p1","token":"tok-1"}`)
	h.waitView(t, "lobby after join_ok", func(v View) bool { return v.Screen == ScreenLobby })
	tr.push(t, gameStateFrame("p1", 3, 1, twoPlayersJSON))
	h.waitView(t, "game screen", func(v View) bool { return v.Screen == ScreenGame && v.HasSnapshot })
	return tr
}

func TestJoin_HandshakeSucceeds(t *testing.T) {
	h := newHarness(t, nil)

	h.cl.Join("ada")
	tr := h.dialer.next(t)

	msg := tr.sent(t)
	join, ok := msg.(*protocol.Join)
	require.True(t, ok, "expected join, got %T", msg)
	assert.Equal(t, "ada", join.Name)

	tr.push(t, `{"type":"join_ok","player_id":"p1","token":"tok-1"}`)
	v := h.waitView(t, "lobby screen", func(v View) bool { return v.Screen == ScreenLobby })
	assert.Equal(t, "p1", v.LocalID)

	tok, ok := h.creds.Get(storage.KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", tok)

	// Exactly one handshake message, never a second.
	tr.expectNoSend(t, 50*time.Millisecond)
}

func TestOpen_WithTokenSendsReconnectNotJoin(t *testing.T) {
	h := newHarness(t, func(c *storage.MemStore) {
		_ = c.Set(storage.KeyToken, "tok-9")
		_ = c.Set(storage.KeyPlayerID, "p1")
	})

	// Run auto-resumes when a token is persisted.
	tr := h.dialer.next(t)
	msg := tr.sent(t)
	rec, ok := msg.(*protocol.Reconnect)
	require.True(t, ok, "expected reconnect, got %T", msg)
	assert.Equal(t, "tok-9", rec.Token)

	tr.push(t, `{"type":"reconnect_ok","player_id":"p1"}`)
	h.waitView(t, "lobby after resume", func(v View) bool { return v.Screen == ScreenLobby })
	tr.expectNoSend(t, 50*time.Millisecond)
}

func TestJoin_TimesOutAfterPollBudget(t *testing.T) {
	h := newHarness(t, nil)

	h.cl.Join("ada")
	tr := h.dialer.next(t)
	_ = tr.sent(t) // join goes out, but the server never answers

	// Drive the poll clock until the attempt budget is gone.
	deadline := time.After(waitFor)
	for {
		select {
		case w := <-h.warnings:
			if w == "timed out connecting, please try again" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the join timeout")
		default:
			h.clk.Advance(100 * time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestJoin_SocketCloseAbortsHandshake(t *testing.T) {
	h := newHarness(t, nil)

	h.cl.Join("ada")
	tr := h.dialer.next(t)
	_ = tr.sent(t)

	_ = tr.Close()
	h.waitWarning(t, "connection failed, please try again")

	// No token was ever issued, so no reconnect is scheduled.
	h.clk.Advance(5 * time.Second)
	h.dialer.expectNoDial(t, 50*time.Millisecond)
}

func TestMove_OptimisticOverlayAndClearOnAuthority(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	h.cl.Target(game.Pos{X: 3, Y: 4})

	msg := tr.sent(t)
	mv, ok := msg.(*protocol.ActionMove)
	require.True(t, ok, "expected action_move, got %T", msg)
	assert.Equal(t, 3, mv.ToX)
	assert.Equal(t, 4, mv.ToY)
	assert.NotEmpty(t, mv.ClientActionID)

	v := h.waitView(t, "overlay set", func(v View) bool { return v.Overlay != nil })
	assert.Equal(t, game.Pos{X: 3, Y: 4}, *v.Overlay)

	// Any authoritative game_state clears the overlay unconditionally.
	players := `{"player_id":"p1","name":"ada","hp":100,"pos":{"x":3,"y":4}},{"player_id":"p2","name":"bob","hp":100,"pos":{"x":15,"y":1}}`
	tr.push(t, gameStateFrame("p1", 2, 1, players))
	v = h.waitView(t, "overlay cleared", func(v View) bool {
		return v.Overlay == nil && v.Snapshot.Player("p1").Pos == (game.Pos{X: 3, Y: 4})
	})
	assert.Equal(t, 2, v.Snapshot.APRemaining)
}

func TestMove_RejectionSnapsBack(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	h.cl.Target(game.Pos{X: 3, Y: 4})
	_ = tr.sent(t)
	h.waitView(t, "overlay set", func(v View) bool { return v.Overlay != nil })

	tr.push(t, `{"type":"action_rejected","reason":"blocked","authoritative_pos":{"x":1,"y":2}}`)

	v := h.waitView(t, "snap-back", func(v View) bool {
		return v.Overlay == nil && v.Snapshot.Player("p1").Pos == (game.Pos{X: 1, Y: 2})
	})
	assert.Nil(t, v.Overlay)
	h.waitWarning(t, "blocked")
}

func TestMove_NewRequestOverwritesOutstandingGuess(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	h.cl.Target(game.Pos{X: 3, Y: 4})
	first := tr.sent(t).(*protocol.ActionMove)

	// Second move is adjacent to the overlay, not the authoritative position.
	h.cl.Target(game.Pos{X: 4, Y: 5})
	second := tr.sent(t).(*protocol.ActionMove)

	assert.NotEqual(t, first.ClientActionID, second.ClientActionID)
	v := h.waitView(t, "overlay overwritten", func(v View) bool {
		return v.Overlay != nil && *v.Overlay == (game.Pos{X: 4, Y: 5})
	})
	_ = v
}

func TestMove_LocalValidationNeverContactsServer(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	// Two cells away: rejected locally.
	h.cl.Target(game.Pos{X: 5, Y: 3})
	h.waitWarning(t, "destination is not an adjacent cell")
	tr.expectNoSend(t, 50*time.Millisecond)

	// Not our turn.
	tr.push(t, gameStateFrame("p2", 3, 2, twoPlayersJSON))
	h.waitView(t, "opponent turn", func(v View) bool { return v.Snapshot.TurnPlayerID == "p2" })
	h.cl.Target(game.Pos{X: 3, Y: 4})
	h.waitWarning(t, "not your turn")
	tr.expectNoSend(t, 50*time.Millisecond)
}

func TestTarget_OpponentCellSendsAttack(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	h.cl.Target(game.Pos{X: 15, Y: 1})

	msg := tr.sent(t)
	atk, ok := msg.(*protocol.ActionAttack)
	require.True(t, ok, "expected action_attack, got %T", msg)
	assert.Equal(t, "p2", atk.TargetPlayerID)

	// Attacks have no optimistic visual effect.
	v := h.waitView(t, "view after attack", func(v View) bool { return true })
	assert.Nil(t, v.Overlay)
}

func TestMidMatchDisconnectForfeits(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	_ = tr.Close()

	h.waitView(t, "back to login", func(v View) bool {
		return v.Screen == ScreenLogin && !v.HasSnapshot
	})
	h.waitWarning(t, "connection lost, the match was terminated")

	_, hasToken := h.creds.Get(storage.KeyToken)
	assert.False(t, hasToken)

	// No reconnect is ever scheduled.
	h.clk.Advance(10 * time.Second)
	h.dialer.expectNoDial(t, 50*time.Millisecond)
}

func TestLobbyDisconnectReconnectsAfterFixedDelay(t *testing.T) {
	h := newHarness(t, func(c *storage.MemStore) {
		_ = c.Set(storage.KeyToken, "tok-9")
		_ = c.Set(storage.KeyPlayerID, "p1")
	})

	tr := h.dialer.next(t)
	_ = tr.sent(t) // reconnect
	tr.push(t, `{"type":"reconnect_ok","player_id":"p1"}`)
	h.waitView(t, "lobby", func(v View) bool { return v.Screen == ScreenLobby })

	_ = tr.Close()
	h.waitView(t, "reconnecting", func(v View) bool { return v.ConnState == conn.Reconnecting })

	// Not before the fixed delay.
	h.dialer.expectNoDial(t, 50*time.Millisecond)

	h.clk.Advance(time.Second)
	tr2 := h.dialer.next(t)
	msg := tr2.sent(t)
	assert.IsType(t, &protocol.Reconnect{}, msg)
}

func TestLeave_ClearsSessionAndStopsReconnect(t *testing.T) {
	h := newHarness(t, func(c *storage.MemStore) {
		_ = c.Set(storage.KeyToken, "tok-9")
		_ = c.Set(storage.KeyPlayerID, "p1")
	})

	tr := h.dialer.next(t)
	_ = tr.sent(t)
	tr.push(t, `{"type":"reconnect_ok","player_id":"p1"}`)
	h.waitView(t, "lobby", func(v View) bool { return v.Screen == ScreenLobby })

	h.cl.Leave()
	h.waitView(t, "login after leave", func(v View) bool { return v.Screen == ScreenLogin })

	_, hasToken := h.creds.Get(storage.KeyToken)
	assert.False(t, hasToken)

	// No token, no reconnect.
	h.clk.Advance(10 * time.Second)
	h.dialer.expectNoDial(t, 50*time.Millisecond)
}

func TestLeave_DropsFramesQueuedByTheOldTransport(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	// The frame may race the leave; whichever order the loop sees them in,
	// nothing from the replaced transport may surface after the login screen.
	tr.push(t, gameStateFrame("p1", 3, 2, twoPlayersJSON))
	h.cl.Leave()

	h.waitView(t, "login after leave", func(v View) bool { return v.Screen == ScreenLogin })
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case v := <-h.views:
			if v.Screen != ScreenLogin || v.HasSnapshot {
				t.Fatalf("stale state applied after leave: screen=%s hasSnapshot=%v", v.Screen, v.HasSnapshot)
			}
		case <-deadline:
			return
		}
	}
}

func TestCanAct_AnsweredByTheDispatchLoop(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	assert.True(t, h.cl.CanAct())

	tr.push(t, gameStateFrame("p2", 3, 2, twoPlayersJSON))
	h.waitView(t, "opponent turn", func(v View) bool { return v.Snapshot.TurnPlayerID == "p2" })
	assert.False(t, h.cl.CanAct())
}

func TestAutoEndTurn_FiresExactlyOncePerTurn(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	tr.push(t, gameStateFrame("p1", 0, 1, twoPlayersJSON))
	h.waitView(t, "ap exhausted", func(v View) bool { return v.Snapshot.APRemaining == 0 })

	// Nothing before the delay elapses.
	tr.expectNoSend(t, 50*time.Millisecond)

	h.clk.Advance(AutoEndTurnDelay)
	msg := tr.sent(t)
	assert.IsType(t, &protocol.EndTurn{}, msg)

	// A duplicate snapshot for the same turn does not schedule a second one.
	tr.push(t, gameStateFrame("p1", 0, 1, twoPlayersJSON))
	h.waitView(t, "same turn again", func(v View) bool { return v.Snapshot.APRemaining == 0 })
	h.clk.Advance(AutoEndTurnDelay)
	tr.expectNoSend(t, 50*time.Millisecond)
}

func TestAutoEndTurn_RearmsAfterMatchEnds(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	tr.push(t, gameStateFrame("p1", 0, 1, twoPlayersJSON))
	h.waitView(t, "match 1 ap exhausted", func(v View) bool { return v.Snapshot.APRemaining == 0 })
	h.clk.Advance(AutoEndTurnDelay)
	assert.IsType(t, &protocol.EndTurn{}, tr.sent(t))

	tr.push(t, `{"type":"game_over","winner_id":"p2","winner_name":"bob"}`)
	tr.push(t, fmt.Sprintf(`{"type":"lobby_state","status":"waiting","players":[%s]}`, twoPlayersJSON))
	h.waitView(t, "back in lobby", func(v View) bool { return v.Screen == ScreenLobby })

	// The next match restarts turn numbering; the exhausted first turn must
	// arm the auto end-turn again.
	tr.push(t, gameStateFrame("p1", 0, 1, twoPlayersJSON))
	h.waitView(t, "match 2 ap exhausted", func(v View) bool {
		return v.Screen == ScreenGame && v.Snapshot.Status == game.StatusPlaying && v.Snapshot.APRemaining == 0
	})
	h.clk.Advance(AutoEndTurnDelay)
	assert.IsType(t, &protocol.EndTurn{}, tr.sent(t))
}

func TestAutoEndTurn_SkippedWhenTurnMovedOn(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	tr.push(t, gameStateFrame("p1", 0, 1, twoPlayersJSON))
	h.waitView(t, "ap exhausted", func(v View) bool { return v.Snapshot.APRemaining == 0 })

	// The server already advanced the turn before the delay elapsed.
	tr.push(t, gameStateFrame("p2", 3, 2, twoPlayersJSON))
	h.waitView(t, "turn advanced", func(v View) bool { return v.Snapshot.TurnNumber == 2 })

	h.clk.Advance(AutoEndTurnDelay)
	tr.expectNoSend(t, 50*time.Millisecond)
}

func TestDamageNotificationsClassified(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	hurt := `{"player_id":"p1","name":"ada","hp":100,"pos":{"x":2,"y":3}},{"player_id":"p2","name":"bob","hp":94,"pos":{"x":15,"y":1}}`
	tr.push(t, gameStateFrame("p1", 2, 1, hurt))

	select {
	case dmg := <-h.damages:
		assert.Equal(t, "p2", dmg.PlayerID)
		assert.Equal(t, 6, dmg.Amount)
		assert.Equal(t, store.DamageWeapon, dmg.Class)
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for damage notification")
	}
}

func TestGameOverNotifiesMatchEnded(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	tr.push(t, `{"type":"game_over","winner_id":"p2","winner_name":"bob"}`)

	select {
	case ended := <-h.ends:
		assert.Equal(t, "p2", ended.WinnerID)
		assert.Equal(t, "bob", ended.WinnerName)
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for match end notification")
	}

	v := h.waitView(t, "finished", func(v View) bool { return v.Snapshot.Status == game.StatusFinished })
	assert.Equal(t, "p2", v.Snapshot.WinnerID)
}

func TestResumeRejectionReturnsToLogin(t *testing.T) {
	h := newHarness(t, func(c *storage.MemStore) {
		_ = c.Set(storage.KeyToken, "tok-stale")
	})

	tr := h.dialer.next(t)
	_ = tr.sent(t) // reconnect with the stale token
	tr.push(t, `{"type":"error","message":"invalid token"}`)

	h.waitView(t, "login after rejected resume", func(v View) bool { return v.Screen == ScreenLogin })
	h.waitWarning(t, "invalid token")

	_, hasToken := h.creds.Get(storage.KeyToken)
	assert.False(t, hasToken)
}

func TestSeedResendsSavedLoadout(t *testing.T) {
	h := newHarness(t, func(c *storage.MemStore) {
		_ = c.Set(storage.KeyRobotID, "robot-7")
		_ = c.Set(storage.KeyWeaponID, "laser")
	})

	h.cl.Join("ada")
	tr := h.dialer.next(t)
	_ = tr.sent(t)
	tr.push(t, `{"type":"join_ok","player_id":"p1","token":"tok-1"}`)
	tr.push(t, `{"type":"seed","robots":[{"id":"robot-7","name":"Crusher","hpMax":100}],"weapons":[{"id":"laser","name":"Laser","range":4,"damage":6}]}`)

	msg := tr.sent(t)
	sel, ok := msg.(*protocol.SelectLoadout)
	require.True(t, ok, "expected select_loadout, got %T", msg)
	assert.Equal(t, "robot-7", sel.RobotID)
	assert.Equal(t, "laser", sel.WeaponID)
}

func TestArrowMoveClampsAtEdgeWithoutSending(t *testing.T) {
	h := newHarness(t, nil)

	h.cl.Join("ada")
	tr := h.dialer.next(t)
	_ = tr.sent(t)
	tr.push(t, `{"type":"join_ok","player_id":"p1","token":"tok-1"}`)
	corner := `{"player_id":"p1","name":"ada","hp":100,"pos":{"x":0,"y":0}},{"player_id":"p2","name":"bob","hp":100,"pos":{"x":15,"y":1}}`
	tr.push(t, gameStateFrame("p1", 3, 1, corner))
	h.waitView(t, "game", func(v View) bool { return v.Screen == ScreenGame })

	h.cl.MoveDirection(-1, 0) // clamped: already at x=0
	tr.expectNoSend(t, 50*time.Millisecond)

	h.cl.MoveDirection(1, 0)
	msg := tr.sent(t)
	mv := msg.(*protocol.ActionMove)
	assert.Equal(t, 1, mv.ToX)
	assert.Equal(t, 0, mv.ToY)
}

func TestUnknownAndMalformedFramesAreIgnored(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.joinAndStart(t)

	tr.push(t, `{"type":"totally_new_thing","x":1}`)
	tr.push(t, `this is not json`)

	// The session is still alive and gated actions still work.
	h.cl.Target(game.Pos{X: 3, Y: 4})
	msg := tr.sent(t)
	assert.IsType(t, &protocol.ActionMove{}, msg)
}

func TestSendWhileDisconnectedIsReportedNotBuffered(t *testing.T) {
	h := newHarness(t, nil)

	h.cl.SetReady(true)
	h.waitWarning(t, "not connected to the server")
	h.dialer.expectNoDial(t, 50*time.Millisecond)
}
