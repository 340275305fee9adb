// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package waconn

import "github.com/waconnect/waconnect-go/internal/binary"

// State is one position in the connection's lifecycle state machine
// (spec §4.5): Closed -> Connecting -> Handshaking -> Open -> Closing ->
// Closed, with Closed reachable from any state on error.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateHandshaking
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// EventKind discriminates the typed Event union the manager delivers over
// its event channel (spec §9 design note: a single typed enum per
// component, not a generic event emitter).
type EventKind int

const (
	EventStateChange EventKind = iota
	EventHandshakeComplete
	EventNodeReceived
	EventNodeSent
	EventWSClose
)

func (k EventKind) String() string {
	switch k {
	case EventStateChange:
		return "state.change"
	case EventHandshakeComplete:
		return "handshake.complete"
	case EventNodeReceived:
		return "node.received"
	case EventNodeSent:
		return "node.sent"
	case EventWSClose:
		return "ws.close"
	default:
		return "unknown"
	}
}

// Event is the manager's single outbound notification type; only the
// field(s) relevant to Kind are populated.
type Event struct {
	Kind EventKind

	State State // EventStateChange
	Cause error // EventStateChange, EventWSClose

	Node *binary.Node // EventNodeReceived, EventNodeSent

	CloseCode   int    // EventWSClose
	CloseReason string // EventWSClose
}
