// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

// Package waconn owns the byte transport, drives the Noise handshake,
// dispatches decrypted frames as stanzas, emits lifecycle events, and runs
// keep-alive (spec §4.5). It is the orchestration layer sitting on top of
// internal/noise and internal/framing.
package waconn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/waconnect/waconnect-go/internal/binary"
	"github.com/waconnect/waconnect-go/internal/crypto"
	"github.com/waconnect/waconnect-go/internal/framing"
	"github.com/waconnect/waconnect-go/internal/noise"
)

// ClientPayloadBuilder supplies the serialised login-or-register
// ClientPayload the authenticator builds (spec §4.6); the connection
// manager needs it mid-handshake to construct ClientFinish.
type ClientPayloadBuilder interface {
	BuildClientPayload() ([]byte, error)
}

// Config configures a Manager.
type Config struct {
	StaticKey      crypto.KeyPair
	Routing        []byte // opaque routing-info blob replayed in the preamble
	PayloadBuilder ClientPayloadBuilder

	ConnectTimeout    time.Duration // default 20s
	KeepAliveInterval time.Duration // 0 selects the 25s default; negative disables (spec §9)

	Logger *zap.SugaredLogger
}

func (c *Config) setDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 20 * time.Second
	}
	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = 25 * time.Second
	}
}

// Manager implements the connection state machine described in spec §4.5.
type Manager struct {
	config    Config
	transport Transport
	noiseProc *noise.Processor
	frames    *framing.Handler

	mu    sync.Mutex
	state State

	sendMu sync.Mutex // serialises outbound writes

	lastInbound time.Time

	events chan Event

	keepAliveStop chan struct{}
	keepAliveDone chan struct{}
}

// New constructs a Manager bound to transport, in StateClosed.
func New(transport Transport, config Config) *Manager {
	config.setDefaults()
	return &Manager{
		config:    config,
		transport: transport,
		frames:    framing.New(noise.Prologue, config.Routing),
		events:    make(chan Event, 64),
	}
}

// Events returns the channel of lifecycle/stanza events.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.emit(Event{Kind: EventStateChange, State: s})
}

func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	default:
		if m.config.Logger != nil {
			m.config.Logger.Warnf("waconn: event channel full, dropping %s", e.Kind)
		}
	}
}

// Connect dials the transport, starts the handshake, and returns once the
// initial ClientHello has been written (not once the handshake completes —
// callers should watch Events() for EventHandshakeComplete).
func (m *Manager) Connect(ctx context.Context) error {
	if m.State() != StateClosed {
		return fmt.Errorf("waconn: Connect called in state %s", m.State())
	}

	m.setState(StateConnecting)

	noiseProc, err := noise.New(m.config.StaticKey)
	if err != nil {
		m.setState(StateClosed)
		return err
	}
	m.noiseProc = noiseProc

	dialCtx, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	defer cancel()
	transportEvents, err := m.transport.Connect(dialCtx)
	if err != nil {
		m.setState(StateClosed)
		return fmt.Errorf("waconn: transport connect failed: %w", err)
	}

	m.lastInbound = time.Now()
	m.setState(StateHandshaking)
	go m.run(transportEvents)
	m.startKeepAlive()

	hello := m.noiseProc.BuildClientHello()
	wire, err := m.pushAndSend(ctx, hello)
	if err != nil {
		m.Close(fmt.Errorf("waconn: sending ClientHello: %w", err))
		return err
	}
	_ = wire
	return nil
}

func (m *Manager) pushAndSend(ctx context.Context, payload []byte) ([]byte, error) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()
	wire, err := m.frames.Push(payload)
	if err != nil {
		return nil, err
	}
	if err := m.transport.Send(ctx, wire); err != nil {
		return nil, err
	}
	return wire, nil
}

func (m *Manager) run(transportEvents <-chan TransportEvent) {
	for ev := range transportEvents {
		m.handleTransportEvent(ev)
	}
}

func (m *Manager) handleTransportEvent(ev TransportEvent) {
	switch ev.Kind {
	case TransportMessage:
		m.mu.Lock()
		m.lastInbound = time.Now()
		m.mu.Unlock()
		m.handleInbound(ev.Data)
	case TransportError:
		m.Close(fmt.Errorf("waconn: transport error: %w", ev.Err))
	case TransportClose:
		m.Close(fmt.Errorf("waconn: transport closed: code=%d reason=%s", ev.CloseCode, ev.CloseReason))
	}
}

func (m *Manager) handleInbound(data []byte) {
	frames, err := m.frames.Pull(data)
	if err != nil {
		m.Close(fmt.Errorf("waconn: framing error: %w", err))
		return
	}
	for _, frame := range frames {
		m.handleFrame(frame)
	}
}

func (m *Manager) handleFrame(frame []byte) {
	switch m.State() {
	case StateHandshaking:
		m.completeHandshake(frame)
	case StateOpen:
		m.dispatchStanza(frame)
	default:
		if m.config.Logger != nil {
			m.config.Logger.Warnf("waconn: frame received in state %s, ignoring", m.State())
		}
	}
}

func (m *Manager) completeHandshake(serverHello []byte) {
	if err := m.noiseProc.ConsumeServerHello(serverHello); err != nil {
		m.Close(fmt.Errorf("waconn: ServerHello: %w", err))
		return
	}

	var payload []byte
	if m.config.PayloadBuilder != nil {
		p, err := m.config.PayloadBuilder.BuildClientPayload()
		if err != nil {
			m.Close(fmt.Errorf("waconn: building client payload: %w", err))
			return
		}
		payload = p
	}

	clientFinish, err := m.noiseProc.BuildClientFinish(payload)
	if err != nil {
		m.Close(fmt.Errorf("waconn: ClientFinish: %w", err))
		return
	}

	if _, err := m.pushAndSend(context.Background(), clientFinish); err != nil {
		m.Close(fmt.Errorf("waconn: sending ClientFinish: %w", err))
		return
	}

	// Handshake is complete only after ClientFinish is sent, per spec §9.
	if err := m.noiseProc.Finalize(); err != nil {
		m.Close(fmt.Errorf("waconn: finalize: %w", err))
		return
	}

	m.setState(StateOpen)
	m.emit(Event{Kind: EventHandshakeComplete})
}

func (m *Manager) dispatchStanza(frame []byte) {
	plaintext, err := m.noiseProc.DecryptTransport(frame)
	if err != nil {
		// An AEAD authentication failure during the transport phase is
		// fatal per spec §4.3/§7, unlike a codec decode failure below.
		m.Close(fmt.Errorf("waconn: transport decrypt failed: %w", err))
		return
	}

	node, err := binary.Decode(plaintext)
	if err != nil {
		if m.config.Logger != nil {
			m.config.Logger.Warnf("waconn: stanza decode error: %v", err)
		}
		return
	}
	m.emit(Event{Kind: EventNodeReceived, Node: node})
}

// SendNode encodes, encrypts, frames and writes n. Only valid in StateOpen.
func (m *Manager) SendNode(ctx context.Context, n *binary.Node) error {
	if m.State() != StateOpen {
		return fmt.Errorf("waconn: SendNode called in state %s", m.State())
	}

	encoded, err := binary.Encode(n)
	if err != nil {
		return err
	}
	encrypted, err := m.noiseProc.EncryptTransport(encoded)
	if err != nil {
		return err
	}
	if _, err := m.pushAndSend(ctx, encrypted); err != nil {
		return err
	}
	m.emit(Event{Kind: EventNodeSent, Node: n})
	return nil
}

func (m *Manager) startKeepAlive() {
	if m.config.KeepAliveInterval <= 0 {
		return
	}
	m.keepAliveStop = make(chan struct{})
	m.keepAliveDone = make(chan struct{})
	go func() {
		defer close(m.keepAliveDone)
		ticker := time.NewTicker(m.config.KeepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.keepAliveStop:
				return
			case <-ticker.C:
				m.checkKeepAlive()
			}
		}
	}()
}

// checkKeepAlive closes the connection with a timeout error if no inbound
// byte has been seen within KeepAliveInterval+5s, otherwise pings the
// server (spec §4.5 / §8.3.6).
func (m *Manager) checkKeepAlive() {
	m.mu.Lock()
	idle := time.Since(m.lastInbound)
	m.mu.Unlock()

	if idle > m.config.KeepAliveInterval+5*time.Second {
		m.Close(fmt.Errorf("waconn: keep-alive timed out after %s of silence", idle))
		return
	}

	ping := &binary.Node{
		Tag:     "iq",
		Attrs:   map[string]string{"xmlns": "w:p", "type": "get", "to": binary.ServerUser},
		Content: []*binary.Node{{Tag: "ping"}},
	}
	if err := m.SendNode(context.Background(), ping); err != nil && m.config.Logger != nil {
		m.config.Logger.Warnf("waconn: keep-alive ping failed: %v", err)
	}
}

// Close tears the connection down. Idempotent: subsequent calls are no-ops.
// err, if non-nil, is the cause and is carried on the final StateChange and
// WSClose events; a clean close (err == nil) uses WebSocket status 1000, an
// error close uses 1011.
func (m *Manager) Close(err error) error {
	m.mu.Lock()
	if m.state == StateClosed || m.state == StateClosing {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosing
	m.mu.Unlock()
	m.emit(Event{Kind: EventStateChange, State: StateClosing, Cause: err})

	if m.keepAliveStop != nil {
		close(m.keepAliveStop)
		<-m.keepAliveDone
	}

	code, reason := 1000, "closing"
	if err != nil {
		code, reason = 1011, err.Error()
	}
	closeErr := m.transport.Close(code, reason)

	m.mu.Lock()
	m.state = StateClosed
	m.mu.Unlock()

	m.emit(Event{Kind: EventWSClose, CloseCode: code, CloseReason: reason, Cause: err})
	if err != nil {
		m.emit(Event{Kind: EventStateChange, State: StateClosed, Cause: err})
	} else {
		m.emit(Event{Kind: EventStateChange, State: StateClosed})
	}

	if closeErr != nil {
		return closeErr
	}
	return nil
}
