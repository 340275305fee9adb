// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

// Package auth implements the authenticator state machine sitting above
// the connection manager: the pair-device QR flow, pair-success identity
// exchange, login success/failure handling, and the initial ClientPayload
// the connection manager asks for mid-handshake (spec §3.5, §4.6).
package auth

import "github.com/waconnect/waconnect-go/internal/binary"

// State is the authenticator's position in its own, smaller lifecycle,
// separate from the connection manager's transport-level State:
// Idle->Handshaking->AwaitingQR->QRShown->AwaitingPairSuccess->
// Authenticated/Failed. QRShown's retry count isn't carried on the enum
// value itself — it's Authenticator.qrRetry, updated in place each time
// a ref is refreshed, so the state stays QRShown across refreshes.
type State int

const (
	StateIdle State = iota
	StateHandshaking
	StateAwaitingQR
	StateQRShown
	StateAwaitingPairSuccess
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHandshaking:
		return "handshaking"
	case StateAwaitingQR:
		return "awaiting-qr"
	case StateQRShown:
		return "qr-shown"
	case StateAwaitingPairSuccess:
		return "awaiting-pair-success"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventKind discriminates the typed Event union the authenticator emits,
// mirroring the shape waconn.Event already establishes (spec §9 design
// note: one typed enum per component).
type EventKind int

const (
	// EventConnectionUpdate carries everything the host/UI layer cares
	// about: a fresh QR string, a login/logout transition, or a terminal
	// error. Only the fields relevant to the update are populated.
	EventConnectionUpdate EventKind = iota
	// EventCredsUpdate signals the caller should persist Creds, typically
	// by calling the owning authstate.Provider.SaveCreds().
	EventCredsUpdate
	// EventSendNode asks the wiring layer to push Node out over the
	// connection manager (waconn.Manager.SendNode).
	EventSendNode
	// EventCloseConnection asks the wiring layer to tear the connection
	// down (waconn.Manager.Close), optionally carrying the reason.
	EventCloseConnection
)

func (k EventKind) String() string {
	switch k {
	case EventConnectionUpdate:
		return "connection.update"
	case EventCredsUpdate:
		return "creds.update"
	case EventSendNode:
		return "_internal.sendNode"
	case EventCloseConnection:
		return "_internal.closeConnection"
	default:
		return "unknown"
	}
}

// Event is the authenticator's single outbound notification type.
type Event struct {
	Kind EventKind

	// EventConnectionUpdate
	QR          string // non-empty when a fresh QR string was generated
	Connection  string // "open" or "close", when the login state changed
	IsNewLogin  bool
	Err         error

	// EventSendNode
	Node *binary.Node

	// EventCloseConnection
	Cause error
}
