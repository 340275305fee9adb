package client

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/waconnect/waconnect-go/internal/auth"
	"github.com/waconnect/waconnect-go/internal/authstate"
	"github.com/waconnect/waconnect-go/internal/waconn"
)

// Session status constants
type SessionStatus string

const (
	StatusInitializing SessionStatus = "INITIALIZING"
	StatusConnecting   SessionStatus = "CONNECTING"
	StatusQRReady       SessionStatus = "QR_READY"
	StatusReady         SessionStatus = "READY"
	StatusDisconnected  SessionStatus = "DISCONNECTED"
)

// Common errors
var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConnected    = errors.New("not connected")
)

// WAClient owns one device session: its persisted credentials, the
// authenticator state machine, and the connection manager that drives
// the Noise handshake and stanza transport over it (spec §4.5/§4.6/§4.7).
type WAClient struct {
	ID             string
	status         SessionStatus
	connectedAt    *time.Time
	lastActivityAt time.Time

	mu      sync.RWMutex
	logger  *zap.SugaredLogger
	qrCode  string

	provider      *authstate.Provider
	authenticator *auth.Authenticator
	manager       *waconn.Manager
	cancel        context.CancelFunc
}

// NewWAClient opens (or initialises) the session's persisted credentials
// in sessionDir and wires an Authenticator against them. No
// network I/O happens until Connect is called.
func NewWAClient(sessionID string, logger *zap.SugaredLogger, sessionDir string) (*WAClient, error) {
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, err
	}

	store, err := authstate.OpenPebbleStore(sessionDir)
	if err != nil {
		return nil, err
	}
	provider, err := authstate.NewProvider(store)
	if err != nil {
		return nil, err
	}

	return &WAClient{
		ID:             sessionID,
		status:         StatusInitializing,
		lastActivityAt: time.Now(),
		logger:         logger,
		provider:       provider,
		authenticator:  auth.New(auth.Config{Provider: provider, Logger: logger}),
	}, nil
}

// Connect dials the WhatsApp web endpoint and starts the handshake. It
// returns once the dial succeeds; pairing/login progress is reported
// asynchronously via the session's status and QR code fields.
func (c *WAClient) Connect() error {
	c.mu.Lock()
	c.status = StatusConnecting
	c.mu.Unlock()

	c.logger.Infof("Connecting session %s...", c.ID)

	transport := waconn.NewWebSocketTransport("", "", c.logger)
	manager := waconn.New(transport, waconn.Config{
		StaticKey:      c.provider.Creds.NoiseKey,
		PayloadBuilder: c.authenticator,
		Logger:         c.logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.manager = manager
	c.cancel = cancel
	c.mu.Unlock()

	go c.pumpManagerEvents(manager)
	go c.pumpAuthEvents(manager)

	if err := manager.Connect(ctx); err != nil {
		c.mu.Lock()
		c.status = StatusDisconnected
		c.mu.Unlock()
		return err
	}
	return nil
}

// pumpManagerEvents feeds decrypted stanzas to the authenticator and
// tracks transport-level lifecycle changes.
func (c *WAClient) pumpManagerEvents(manager *waconn.Manager) {
	for ev := range manager.Events() {
		switch ev.Kind {
		case waconn.EventNodeReceived:
			c.authenticator.HandleNode(ev.Node)
		case waconn.EventStateChange:
			if ev.State == waconn.StateClosed {
				c.mu.Lock()
				c.status = StatusDisconnected
				c.mu.Unlock()
			}
		}
	}
}

// pumpAuthEvents applies the authenticator's outbound requests against
// the connection manager and the session's visible state (spec §4.6).
func (c *WAClient) pumpAuthEvents(manager *waconn.Manager) {
	for ev := range c.authenticator.Events() {
		switch ev.Kind {
		case auth.EventConnectionUpdate:
			c.applyConnectionUpdate(ev)
		case auth.EventCredsUpdate:
			if err := c.provider.SaveCreds(); err != nil {
				c.logger.Errorf("session %s: saving creds: %v", c.ID, err)
			}
		case auth.EventSendNode:
			if err := manager.SendNode(context.Background(), ev.Node); err != nil {
				c.logger.Errorf("session %s: sending node: %v", c.ID, err)
			}
		case auth.EventCloseConnection:
			if err := manager.Close(ev.Cause); err != nil {
				c.logger.Errorf("session %s: closing connection: %v", c.ID, err)
			}
		}
	}
}

func (c *WAClient) applyConnectionUpdate(ev auth.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.QR != "" {
		c.status = StatusQRReady
		c.qrCode = ev.QR
		c.lastActivityAt = time.Now()
		c.logger.Infof("QR code ready for session %s", c.ID)
	}

	switch ev.Connection {
	case "open":
		now := time.Now()
		c.status = StatusReady
		c.connectedAt = &now
		c.lastActivityAt = now
		c.logger.Infof("Session %s connected!", c.ID)
	case "close":
		c.status = StatusDisconnected
		if ev.Err != nil {
			c.logger.Warnf("Session %s closed: %v", c.ID, ev.Err)
		}
	}
}

// Disconnect tears down the connection, if any, and marks the session
// disconnected.
func (c *WAClient) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	manager := c.manager
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if manager != nil {
		_ = manager.Close(nil)
	}

	c.mu.Lock()
	c.status = StatusDisconnected
	c.qrCode = ""
	c.mu.Unlock()

	c.logger.Infof("Session %s disconnected", c.ID)
}

// GetStatus returns the current session status.
func (c *WAClient) GetStatus() SessionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// GetQRCode returns the current pairing QR string, if any.
func (c *WAClient) GetQRCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.qrCode
}

// GetPhoneNumber returns the paired account's user id, once registered.
func (c *WAClient) GetPhoneNumber() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.provider.Creds.Me == nil {
		return ""
	}
	return c.provider.Creds.Me.ID.User
}

// GetSession returns a snapshot of the session's visible state.
func (c *WAClient) GetSession() SessionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return SessionInfo{
		ID:             c.ID,
		Status:         c.status,
		PhoneNumber:    c.phoneNumberLocked(),
		ConnectedAt:    c.connectedAt,
		LastActivityAt: c.lastActivityAt,
	}
}

func (c *WAClient) phoneNumberLocked() string {
	if c.provider.Creds.Me == nil {
		return ""
	}
	return c.provider.Creds.Me.ID.User
}

// SessionInfo holds session information exposed over the API.
type SessionInfo struct {
	ID             string        `json:"id"`
	Status         SessionStatus `json:"status"`
	PhoneNumber    string        `json:"phoneNumber,omitempty"`
	ConnectedAt    *time.Time    `json:"connectedAt,omitempty"`
	LastActivityAt time.Time     `json:"lastActivityAt"`
}
