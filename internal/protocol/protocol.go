// Package protocol defines the tagged-union wire messages exchanged with the
// arena server and the JSON codec for them. It carries no game logic.
package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/robot-arena/arena-client/internal/game"
)

// Message discriminator values. The union is closed on the client side;
// anything else decodes to *Unrecognized so newer servers don't break us.
const (
	TypeJoin           = "join"
	TypeReconnect      = "reconnect"
	TypeSelectLoadout  = "select_loadout"
	TypeSetReady       = "set_ready"
	TypeEndTurn        = "end_turn"
	TypeActionMove     = "action_move"
	TypeActionAttack   = "action_attack"
	TypeJoinOK         = "join_ok"
	TypeReconnectOK    = "reconnect_ok"
	TypeSeed           = "seed"
	TypeLobbyState     = "lobby_state"
	TypeGameState      = "game_state"
	TypeActionRejected = "action_rejected"
	TypeTrapsState     = "traps_state"
	TypeGameOver       = "game_over"
	TypeError          = "error"
)

type Message interface{ isMessage() }

// Client -> Server

type Join struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type Reconnect struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type SelectLoadout struct {
	Type     string `json:"type"`
	RobotID  string `json:"robot_id"`
	WeaponID string `json:"weapon_id"`
}

type SetReady struct {
	Type  string `json:"type"`
	Ready bool   `json:"ready"`
}

type EndTurn struct {
	Type string `json:"type"`
}

type ActionMove struct {
	Type           string `json:"type"`
	ToX            int    `json:"to_x"`
	ToY            int    `json:"to_y"`
	ClientActionID string `json:"client_action_id"`
}

type ActionAttack struct {
	Type           string `json:"type"`
	TargetPlayerID string `json:"target_player_id"`
	ClientActionID string `json:"client_action_id"`
}

// Server -> Client

type JoinOK struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Token    string `json:"token"`
}

type ReconnectOK struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

type Seed struct {
	Type    string        `json:"type"`
	Robots  []game.Robot  `json:"robots"`
	Weapons []game.Weapon `json:"weapons"`
}

type LobbyState struct {
	Type     string            `json:"type"`
	Status   game.Status       `json:"status"`
	Players  []game.PlayerView `json:"players"`
	CanStart bool              `json:"can_start"`
}

// GameState spreads the snapshot fields at the top level of the wire object,
// plus the trap runtime the server piggybacks on every broadcast.
type GameState struct {
	Type string `json:"type"`
	game.Snapshot
	TrapsState map[string]TrapRuntime `json:"traps_state,omitempty"`
}

type TrapRuntime struct {
	State                string   `json:"state"`
	Damage               int      `json:"damage"`
	ArmingTurnsRemaining int      `json:"armingTurnsRemaining"`
	RemainingActiveTurns int      `json:"remainingActiveTurns"`
	Zone                 [][2]int `json:"zone"`
}

type ActionRejected struct {
	Type             string   `json:"type"`
	ClientActionID   string   `json:"client_action_id"`
	Reason           string   `json:"reason"`
	AuthoritativePos game.Pos `json:"authoritative_pos"`
}

type TrapsState struct {
	Type  string                 `json:"type"`
	Traps map[string]TrapRuntime `json:"traps_state"`
}

type GameOver struct {
	Type       string `json:"type"`
	WinnerID   string `json:"winner_id"`
	WinnerName string `json:"winner_name"`
}

type ServerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Unrecognized holds any inbound message whose type the client does not know.
type Unrecognized struct {
	Type string
	Raw  json.RawMessage
}

func (*Join) isMessage()           {}
func (*Reconnect) isMessage()      {}
func (*SelectLoadout) isMessage()  {}
func (*SetReady) isMessage()       {}
func (*EndTurn) isMessage()        {}
func (*ActionMove) isMessage()     {}
func (*ActionAttack) isMessage()   {}
func (*JoinOK) isMessage()         {}
func (*ReconnectOK) isMessage()    {}
func (*Seed) isMessage()           {}
func (*LobbyState) isMessage()     {}
func (*GameState) isMessage()      {}
func (*ActionRejected) isMessage() {}
func (*TrapsState) isMessage()     {}
func (*GameOver) isMessage()       {}
func (*ServerError) isMessage()    {}
func (*Unrecognized) isMessage()   {}

var ErrUnencodable = errors.New("message type cannot be sent to the server")

// Encode stamps the type discriminator and marshals the message. Only
// client-originated messages are encodable.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case *Join:
		v.Type = TypeJoin
	case *Reconnect:
		v.Type = TypeReconnect
	case *SelectLoadout:
		v.Type = TypeSelectLoadout
	case *SetReady:
		v.Type = TypeSetReady
	case *EndTurn:
		v.Type = TypeEndTurn
	case *ActionMove:
		v.Type = TypeActionMove
	case *ActionAttack:
		v.Type = TypeActionAttack
	default:
		return nil, ErrUnencodable
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "encode message")
	}
	return data, nil
}

// Decode parses an inbound frame. Malformed JSON or a missing discriminator is
// an error; an unknown discriminator is not (forward compatibility).
func Decode(data []byte) (Message, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Wrap(err, "decode message")
	}
	if envelope.Type == "" {
		return nil, errors.New("decode message: missing type")
	}

	var msg Message
	switch envelope.Type {
	case TypeJoinOK:
		msg = &JoinOK{}
	case TypeReconnectOK:
		msg = &ReconnectOK{}
	case TypeSeed:
		msg = &Seed{}
	case TypeLobbyState:
		msg = &LobbyState{}
	case TypeGameState:
		msg = &GameState{}
	case TypeActionRejected:
		msg = &ActionRejected{}
	case TypeTrapsState:
		msg = &TrapsState{}
	case TypeGameOver:
		msg = &GameOver{}
	case TypeError:
		msg = &ServerError{}
	case TypeJoin:
		msg = &Join{}
	case TypeReconnect:
		msg = &Reconnect{}
	case TypeSelectLoadout:
		msg = &SelectLoadout{}
	case TypeSetReady:
		msg = &SetReady{}
	case TypeEndTurn:
		msg = &EndTurn{}
	case TypeActionMove:
		msg = &ActionMove{}
	case TypeActionAttack:
		msg = &ActionAttack{}
	default:
		return &Unrecognized{Type: envelope.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, errors.Wrapf(err, "decode %s", envelope.Type)
	}
	return msg, nil
}
