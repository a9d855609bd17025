// Package conn owns the websocket transport lifecycle. It never interprets
// game semantics: decoded messages and lifecycle transitions are delivered as
// events on a channel, and all Manager state is mutated only from the
// goroutine draining that channel (the client dispatch loop). The dial and
// read goroutines communicate exclusively by posting events.
package conn

import (
	"context"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/robot-arena/arena-client/internal/protocol"
)

type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Open         State = "open"
	Reconnecting State = "reconnecting"
)

var ErrNotConnected = errors.New("not connected to the server")

const writeTimeout = 3 * time.Second

// Transport is the minimal connection surface, satisfied by a live websocket
// and by the fake transport in tests.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

type DialFunc func(ctx context.Context, endpoint string) (Transport, error)

// Event is delivered on Manager.Events for the dispatch loop to consume.
type Event interface{ isConnEvent() }

// Opened reports a successful dial. The transport is attached by the
// dispatch loop via HandleOpened, never by the dial goroutine itself.
type Opened struct {
	gen       int
	transport Transport
}

// Inbound carries one decoded server message.
type Inbound struct {
	gen int
	Msg protocol.Message
}

// Errored surfaces a transport fault as a warning. It does not change the
// connection state; the Closed event that follows drives the transition.
type Errored struct {
	gen int
	Err error
}

// Closed reports that the transport is gone (dial failure or read error).
type Closed struct {
	gen int
	Err error
}

func (Opened) isConnEvent()  {}
func (Inbound) isConnEvent() {}
func (Errored) isConnEvent() {}
func (Closed) isConnEvent()  {}

type Manager struct {
	endpoint  string
	dial      DialFunc
	events    chan Event
	log       *zap.Logger
	state     State
	transport Transport
	gen       int
}

func NewManager(origin string, dial DialFunc, log *zap.Logger) (*Manager, error) {
	endpoint, err := Endpoint(origin)
	if err != nil {
		return nil, err
	}
	if dial == nil {
		dial = DialWebsocket
	}
	return &Manager{
		endpoint: endpoint,
		dial:     dial,
		events:   make(chan Event, 64),
		log:      log.Named("conn"),
		state:    Disconnected,
	}, nil
}

// Endpoint derives the websocket URL from the server origin, upgrading the
// scheme for secure pages.
func Endpoint(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", errors.Wrap(err, "parse server origin")
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported origin scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}

func (m *Manager) State() State         { return m.state }
func (m *Manager) Events() <-chan Event { return m.events }

// Open dials a new transport. No-op while a dial is in flight or a
// connection is already open.
func (m *Manager) Open(ctx context.Context) {
	if m.state == Connecting || m.state == Open {
		return
	}
	m.state = Connecting
	m.gen++
	gen := m.gen

	go func() {
		t, err := m.dial(ctx, m.endpoint)
		if err != nil {
			m.events <- Closed{gen: gen, Err: errors.Wrap(err, "dial")}
			return
		}
		m.events <- Opened{gen: gen, transport: t}
	}()
}

// HandleOpened attaches the dialed transport and starts its read loop.
// Returns false for a stale dial (superseded by Close or a newer Open).
func (m *Manager) HandleOpened(ctx context.Context, ev Opened) bool {
	if ev.gen != m.gen || m.state != Connecting {
		_ = ev.transport.Close()
		return false
	}
	m.transport = ev.transport
	m.state = Open
	go m.readLoop(ctx, ev.transport, ev.gen)
	return true
}

// HandleInbound reports whether the frame arrived over the current transport.
// A superseded read loop may still have frames queued when the connection is
// replaced or torn down; applying them would resurrect discarded state.
func (m *Manager) HandleInbound(ev Inbound) bool {
	return ev.gen == m.gen
}

// HandleErrored reports whether the fault belongs to the current connection;
// stale faults from replaced transports are not worth a user warning.
func (m *Manager) HandleErrored(ev Errored) bool {
	return ev.gen == m.gen
}

// HandleClosed records the loss of the transport. Returns false for stale
// events from a connection that was already replaced.
func (m *Manager) HandleClosed(ev Closed) bool {
	if ev.gen != m.gen {
		return false
	}
	m.transport = nil
	m.state = Disconnected
	return true
}

// MarkReconnecting flags that a reconnect attempt has been scheduled.
func (m *Manager) MarkReconnecting() {
	if m.state == Disconnected {
		m.state = Reconnecting
	}
}

// Send encodes and writes one message. There is no outbound queue: outside
// the Open state the caller gets ErrNotConnected and decides what to do.
func (m *Manager) Send(ctx context.Context, msg protocol.Message) error {
	if m.state != Open || m.transport == nil {
		return ErrNotConnected
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return m.transport.Write(wctx, data)
}

// Close tears the transport down without emitting further events for it.
func (m *Manager) Close() {
	m.gen++ // invalidate in-flight dials and the read loop
	if m.transport != nil {
		_ = m.transport.Close()
		m.transport = nil
	}
	m.state = Disconnected
}

func (m *Manager) readLoop(ctx context.Context, t Transport, gen int) {
	for {
		data, err := t.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				// clean shutdown, no warning
			default:
				m.events <- Errored{gen: gen, Err: err}
			}
			m.events <- Closed{gen: gen, Err: err}
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			// Protocol fault: log and keep the session alive.
			m.log.Warn("dropping malformed message", zap.Error(err))
			continue
		}
		if u, ok := msg.(*protocol.Unrecognized); ok {
			m.log.Debug("ignoring unrecognized message", zap.String("type", u.Type))
			continue
		}
		m.events <- Inbound{gen: gen, Msg: msg}
	}
}

// DialWebsocket is the production DialFunc.
func DialWebsocket(ctx context.Context, endpoint string) (Transport, error) {
	c, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: c}, nil
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	return data, err
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "bye")
}
