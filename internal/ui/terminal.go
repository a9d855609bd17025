// Package ui is the reference rendering/input collaborator: a termbox
// terminal front end consuming published views and translating key presses
// into intents. The core never depends on it; it talks back only through the
// client's public API.
package ui

import (
	"context"
	"fmt"

	"github.com/mattn/go-runewidth"
	termbox "github.com/nsf/termbox-go"

	"github.com/robot-arena/arena-client/internal/client"
	"github.com/robot-arena/arena-client/internal/game"
	"github.com/robot-arena/arena-client/internal/store"
)

var playerColors = []termbox.Attribute{termbox.ColorBlue, termbox.ColorRed}

type Terminal struct {
	cl   *client.Client
	name string

	views   chan client.View
	notices chan string

	view   client.View
	notice string

	robotIdx  int
	weaponIdx int
}

func NewTerminal(name string) *Terminal {
	return &Terminal{
		name:    name,
		views:   make(chan client.View, 8),
		notices: make(chan string, 8),
	}
}

// Bind attaches the client the key handlers talk to. Must happen before Run.
func (t *Terminal) Bind(cl *client.Client) { t.cl = cl }

// Render implements client.Renderer. Stale views are dropped; only the
// latest matters to the screen.
func (t *Terminal) Render(v client.View) {
	for {
		select {
		case t.views <- v:
			return
		default:
			select {
			case <-t.views:
			default:
			}
		}
	}
}

// Notifier implementation. A real deployment would hook audio here; the
// terminal shows classified notices instead.

func (t *Terminal) Damage(playerID string, amount int, class store.DamageClass) {
	t.pushNotice(fmt.Sprintf("hit: -%d hp (%s)", amount, class))
}

func (t *Terminal) MatchEnded(winnerID, winnerName string) {
	t.pushNotice(fmt.Sprintf("match over, winner: %s", winnerName))
}

func (t *Terminal) Warning(message string) {
	t.pushNotice(message)
}

func (t *Terminal) pushNotice(msg string) {
	select {
	case t.notices <- msg:
	default:
	}
}

// Run owns the terminal until ctx is cancelled or the user quits.
func (t *Terminal) Run(ctx context.Context) error {
	if err := termbox.Init(); err != nil {
		return err
	}
	defer termbox.Close()

	keys := make(chan termbox.Event, 8)
	go func() {
		for {
			ev := termbox.PollEvent()
			if ev.Type == termbox.EventInterrupt {
				return
			}
			keys <- ev
		}
	}()
	defer termbox.Interrupt()

	t.draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v := <-t.views:
			t.view = v
			t.draw()
		case n := <-t.notices:
			t.notice = n
			t.draw()
		case ev := <-keys:
			if quit := t.handleKey(ev); quit {
				return nil
			}
		}
	}
}

func (t *Terminal) handleKey(ev termbox.Event) bool {
	if ev.Type != termbox.EventKey {
		return false
	}
	switch {
	case ev.Key == termbox.KeyEsc || ev.Ch == 'q':
		return true
	case ev.Key == termbox.KeyArrowUp:
		t.cl.MoveDirection(0, -1)
	case ev.Key == termbox.KeyArrowDown:
		t.cl.MoveDirection(0, 1)
	case ev.Key == termbox.KeyArrowLeft:
		t.cl.MoveDirection(-1, 0)
	case ev.Key == termbox.KeyArrowRight:
		t.cl.MoveDirection(1, 0)
	case ev.Key == termbox.KeyEnter:
		if t.view.Screen == client.ScreenLogin {
			t.cl.Join(t.name)
		}
	case ev.Ch == 'r':
		t.toggleReady()
	case ev.Ch == 'e':
		t.cl.EndTurn()
	case ev.Ch == 'l':
		t.cl.Leave()
	case ev.Key == termbox.KeyTab:
		t.cycleRobot()
	case ev.Ch == 'w':
		t.cycleWeapon()
	}
	return false
}

func (t *Terminal) toggleReady() {
	if me := t.view.Snapshot.Player(t.view.LocalID); me != nil {
		t.cl.SetReady(!me.Ready)
		return
	}
	t.cl.SetReady(true)
}

func (t *Terminal) cycleRobot() {
	if t.view.Seed == nil || len(t.view.Seed.Robots) == 0 {
		return
	}
	t.robotIdx = (t.robotIdx + 1) % len(t.view.Seed.Robots)
	t.sendLoadout()
}

func (t *Terminal) cycleWeapon() {
	if t.view.Seed == nil || len(t.view.Seed.Weapons) == 0 {
		return
	}
	t.weaponIdx = (t.weaponIdx + 1) % len(t.view.Seed.Weapons)
	t.sendLoadout()
}

func (t *Terminal) sendLoadout() {
	seed := t.view.Seed
	if seed == nil || len(seed.Robots) == 0 || len(seed.Weapons) == 0 {
		return
	}
	t.cl.SelectLoadout(seed.Robots[t.robotIdx].ID, seed.Weapons[t.weaponIdx].ID)
}

func (t *Terminal) draw() {
	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	switch t.view.Screen {
	case client.ScreenGame:
		t.drawGame()
	case client.ScreenLobby:
		t.drawLobby()
	default:
		t.drawLogin()
	}
	t.print(0, game.GridRows+5, t.notice, termbox.ColorYellow)
	_ = termbox.Flush()
}

func (t *Terminal) drawLogin() {
	t.print(0, 0, "ROBOT ARENA", termbox.ColorWhite|termbox.AttrBold)
	t.print(0, 2, fmt.Sprintf("name: %s", t.name), termbox.ColorDefault)
	t.print(0, 3, fmt.Sprintf("connection: %s", t.view.ConnState), termbox.ColorDefault)
	t.print(0, 5, "[enter] join   [q] quit", termbox.ColorCyan)
}

func (t *Terminal) drawLobby() {
	t.print(0, 0, "LOBBY", termbox.ColorWhite|termbox.AttrBold)
	y := 2
	for i, p := range t.view.Snapshot.Players {
		status := "waiting..."
		if p.Ready {
			status = "ready"
		}
		line := fmt.Sprintf("%s  [%s]", p.Name, status)
		if p.PlayerID == t.view.LocalID {
			line += "  (you)"
		}
		t.print(0, y+i, line, playerColors[i%len(playerColors)])
	}
	y += len(t.view.Snapshot.Players) + 1
	if seed := t.view.Seed; seed != nil && len(seed.Robots) > 0 && len(seed.Weapons) > 0 {
		r := seed.Robots[t.robotIdx%len(seed.Robots)]
		w := seed.Weapons[t.weaponIdx%len(seed.Weapons)]
		t.print(0, y, fmt.Sprintf("robot: %s (hp %d)   weapon: %s (range %d, dmg %d)",
			r.Name, r.HPMax, w.Name, w.Range, w.Damage), termbox.ColorDefault)
	}
	if t.view.Snapshot.CanStart {
		t.print(0, y+1, "everyone is ready, starting...", termbox.ColorGreen)
	}
	t.print(0, y+3, "[tab] robot  [w] weapon  [r] ready  [l] leave  [q] quit", termbox.ColorCyan)
}

func (t *Terminal) drawGame() {
	// Arena border.
	for x := 0; x <= game.GridCols+1; x++ {
		termbox.SetCell(x, 0, '─', termbox.ColorWhite, termbox.ColorDefault)
		termbox.SetCell(x, game.GridRows+1, '─', termbox.ColorWhite, termbox.ColorDefault)
	}
	for y := 0; y <= game.GridRows+1; y++ {
		termbox.SetCell(0, y, '│', termbox.ColorWhite, termbox.ColorDefault)
		termbox.SetCell(game.GridCols+1, y, '│', termbox.ColorWhite, termbox.ColorDefault)
	}

	// Active trap zones.
	for _, trap := range t.view.Traps {
		if trap.State != "active" && trap.State != "arming" {
			continue
		}
		ch := '░'
		if trap.State == "active" {
			ch = '▓'
		}
		for _, cell := range trap.Zone {
			termbox.SetCell(cell[0]+1, cell[1]+1, ch, termbox.ColorMagenta, termbox.ColorDefault)
		}
	}

	// Robots; the local player's optimistic overlay wins over the
	// authoritative position while it is outstanding.
	for i, p := range t.view.Snapshot.Players {
		pos := p.Pos
		if p.PlayerID == t.view.LocalID && t.view.Overlay != nil {
			pos = *t.view.Overlay
		}
		color := playerColors[i%len(playerColors)]
		if p.PlayerID == t.view.Snapshot.TurnPlayerID {
			color |= termbox.AttrBold
		}
		termbox.SetCell(pos.X+1, pos.Y+1, rune('A'+i), color, termbox.ColorDefault)
	}

	// Status panel.
	y := game.GridRows + 2
	for i, p := range t.view.Snapshot.Players {
		marker := "  "
		if p.PlayerID == t.view.Snapshot.TurnPlayerID {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s  hp %3d", marker, padName(p.Name, 12), p.HP)
		if t.view.Snapshot.Status == game.StatusFinished && p.PlayerID == t.view.Snapshot.WinnerID {
			line += "  WINNER"
		}
		t.print(0, y+i, line, playerColors[i%len(playerColors)])
	}
	if t.view.Snapshot.TurnPlayerID == t.view.LocalID {
		hint := fmt.Sprintf("your turn, ap: %d   [arrows] move/attack  [e] end turn", t.view.Snapshot.APRemaining)
		color := termbox.ColorGreen
		if !t.cl.CanAct() {
			// AP spent or the link is down: the hint stays but greyed out.
			color = termbox.ColorDefault
		}
		t.print(0, y+2, hint, color)
	} else {
		t.print(0, y+2, "opponent's turn", termbox.ColorDefault)
	}
}

func (t *Terminal) print(x, y int, s string, fg termbox.Attribute) {
	for _, r := range s {
		termbox.SetCell(x, y, r, fg, termbox.ColorDefault)
		x += runewidth.RuneWidth(r)
	}
}

func padName(s string, w int) string {
	if runewidth.StringWidth(s) > w {
		return runewidth.Truncate(s, w, "…")
	}
	return runewidth.FillRight(s, w)
}
