package gamesock

import (
	"context"

	"chessline/internal/protocol"
)

// State is the transport-level connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

type EventCallback func(ev protocol.Event)

type StateCallback func(state State)

// TokenProvider supplies the auth token presented to the server once per
// physical connection, before any game events flow.
type TokenProvider func() string

// Channel is the abstract duplex event stream the session consumes.
// Implementations own the reconnection policy; event order is guaranteed
// only within one physical connection.
type Channel interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, env protocol.Envelope) error
	OnEvent(cb EventCallback) int
	RemoveEventCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	// Resync deliberately drops the transport so the reconnect loop and
	// the server's state re-sync produce a fresh authoritative snapshot.
	Resync()
	Close(ctx context.Context) error
}
