// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package waconn

import "context"

// TransportEventKind discriminates the byte-transport's own event union
// (spec §6.1): open, message, error, close.
type TransportEventKind int

const (
	TransportOpen TransportEventKind = iota
	TransportMessage
	TransportError
	TransportClose
)

// TransportEvent is one notification from the underlying duplex byte
// channel. Message boundaries from the transport are not assumed to align
// with frame boundaries — the frame handler re-synchronises them.
type TransportEvent struct {
	Kind TransportEventKind

	Data []byte // TransportMessage

	Err error // TransportError

	CloseCode   int    // TransportClose
	CloseReason string // TransportClose
}

// Transport is the external byte channel the connection manager drives
// (spec §6.1): connect, send, close, with events delivered over a channel
// rather than callbacks so the manager can select() alongside its timers.
type Transport interface {
	// Connect dials the endpoint and returns a channel of subsequent
	// events (the Open event itself is not delivered here; a successful
	// return implies the transport is open).
	Connect(ctx context.Context) (<-chan TransportEvent, error)

	// Send writes one whole binary message.
	Send(ctx context.Context, data []byte) error

	// Close closes the transport with a WebSocket-style status code and
	// human-readable reason. Idempotent.
	Close(code int, reason string) error
}
