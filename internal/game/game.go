package game

// Grid dimensions of the arena. The server enforces bounds; the client only
// uses these to clamp arrow-key movement so it never sends an out-of-bounds move.
const (
	GridCols = 18
	GridRows = 12
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Adjacent reports whether b is one of the 8 cells surrounding a.
// A zero-distance "move" is not adjacent.
func (a Pos) Adjacent(b Pos) bool {
	dx := abs(b.X - a.X)
	dy := abs(b.Y - a.Y)
	return dx <= 1 && dy <= 1 && (dx > 0 || dy > 0)
}

func (a Pos) InBounds() bool {
	return a.X >= 0 && a.X < GridCols && a.Y >= 0 && a.Y < GridRows
}

type PlayerView struct {
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Ready     bool   `json:"ready"`
	RobotID   string `json:"robot_id"`
	WeaponID  string `json:"weapon_id"`
	HP        int    `json:"hp"`
	Pos       Pos    `json:"pos"`
}

// Snapshot is the authoritative server-pushed state. Instances are treated as
// immutable once published; consumers receive copies, never shared pointers.
type Snapshot struct {
	Status       Status       `json:"status"`
	Players      []PlayerView `json:"players"`
	TurnPlayerID string       `json:"turn_player_id"`
	APRemaining  int          `json:"ap_remaining"`
	TurnNumber   int          `json:"turn_number"`
	WinnerID     string       `json:"winner_id,omitempty"`
	CanStart     bool         `json:"can_start,omitempty"`
}

// Player returns the view for id, or nil if id is not in the snapshot.
func (s *Snapshot) Player(id string) *PlayerView {
	for i := range s.Players {
		if s.Players[i].PlayerID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// Opponent returns the first player that is not id.
func (s *Snapshot) Opponent(id string) *PlayerView {
	for i := range s.Players {
		if s.Players[i].PlayerID != id {
			return &s.Players[i]
		}
	}
	return nil
}

// Clone deep-copies the snapshot so published state can never be mutated
// through an aliased players slice.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Players = make([]PlayerView, len(s.Players))
	copy(out.Players, s.Players)
	return out
}

// Robot and Weapon come from the seed catalogue the server sends after a
// successful join or reconnect.
type Robot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	HPMax int    `json:"hpMax"`
}

type Weapon struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Range  int    `json:"range"`
	Damage int    `json:"damage"`
}

type Seed struct {
	Robots  []Robot  `json:"robots"`
	Weapons []Weapon `json:"weapons"`
}

func (s *Seed) Robot(id string) *Robot {
	for i := range s.Robots {
		if s.Robots[i].ID == id {
			return &s.Robots[i]
		}
	}
	return nil
}

func (s *Seed) Weapon(id string) *Weapon {
	for i := range s.Weapons {
		if s.Weapons[i].ID == id {
			return &s.Weapons[i]
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
