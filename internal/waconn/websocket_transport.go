// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package waconn

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Default WhatsApp web endpoint (spec §6.1).
const (
	DefaultURL    = "wss://web.whatsapp.com/ws/chat"
	DefaultOrigin = "https://web.whatsapp.com"
)

// WebSocketTransport is the one concrete Transport: a thin adapter over
// nhooyr.io/websocket, grounded on the teacher's Connect/receiveLoop pair in
// internal/core/connection.go.
type WebSocketTransport struct {
	URL    string
	Origin string
	Logger *zap.SugaredLogger

	mu       sync.Mutex
	conn     *websocket.Conn
	closed   bool
	events   chan TransportEvent
	cancelRL context.CancelFunc
}

// NewWebSocketTransport builds a transport pointed at url/origin, defaulting
// to the WhatsApp web endpoint when either is empty.
func NewWebSocketTransport(url, origin string, logger *zap.SugaredLogger) *WebSocketTransport {
	if url == "" {
		url = DefaultURL
	}
	if origin == "" {
		origin = DefaultOrigin
	}
	return &WebSocketTransport{URL: url, Origin: origin, Logger: logger}
}

func (t *WebSocketTransport) Connect(ctx context.Context) (<-chan TransportEvent, error) {
	opts := &websocket.DialOptions{
		HTTPHeader: map[string][]string{"Origin": {t.Origin}},
	}
	conn, _, err := websocket.Dial(ctx, t.URL, opts)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.conn = conn
	t.events = make(chan TransportEvent, 64)
	rlCtx, cancel := context.WithCancel(context.Background())
	t.cancelRL = cancel
	t.mu.Unlock()

	go t.receiveLoop(rlCtx)
	return t.events, nil
}

func (t *WebSocketTransport) receiveLoop(ctx context.Context) {
	defer close(t.events)
	for {
		_, data, err := t.conn.Read(ctx)
		if err != nil {
			select {
			case t.events <- TransportEvent{Kind: TransportError, Err: err}:
			default:
				if t.Logger != nil {
					t.Logger.Warnf("websocket transport: event channel full, dropping error %v", err)
				}
			}
			return
		}
		select {
		case t.events <- TransportEvent{Kind: TransportMessage, Data: data}:
		case <-ctx.Done():
			return
		}
	}
}

func (t *WebSocketTransport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return context.Canceled
	}
	return conn.Write(ctx, websocket.MessageBinary, data)
}

func (t *WebSocketTransport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.cancelRL != nil {
		t.cancelRL()
	}
	if t.conn == nil {
		return nil
	}
	return t.conn.Close(websocket.StatusCode(code), reason)
}
