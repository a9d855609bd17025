package client

import (
	"github.com/robot-arena/arena-client/internal/conn"
	"github.com/robot-arena/arena-client/internal/game"
	"github.com/robot-arena/arena-client/internal/protocol"
	"github.com/robot-arena/arena-client/internal/store"
)

type Screen string

const (
	ScreenLogin Screen = "login"
	ScreenLobby Screen = "lobby"
	ScreenGame  Screen = "game"
)

// View is the published state the rendering collaborator draws from. It is a
// value: the renderer may keep it but must not expect later mutation.
type View struct {
	Screen      Screen
	ConnState   conn.State
	LocalID     string
	Name        string
	Snapshot    game.Snapshot
	HasSnapshot bool
	Overlay     *game.Pos // optimistic local position, nil when none
	Seed        *game.Seed
	Traps       map[string]protocol.TrapRuntime
}

// Renderer receives every published view and owns all drawing.
type Renderer interface {
	Render(v View)
}

// Notifier receives discrete side-effect events for the audio/notification
// collaborator. Implementations own playback entirely; their failures are
// contained and never reach the core.
type Notifier interface {
	Damage(playerID string, amount int, class store.DamageClass)
	MatchEnded(winnerID, winnerName string)
	Warning(message string)
}

type nopNotifier struct{}

func (nopNotifier) Damage(string, int, store.DamageClass) {}
func (nopNotifier) MatchEnded(string, string)             {}
func (nopNotifier) Warning(string)                        {}

type nopRenderer struct{}

func (nopRenderer) Render(View) {}
