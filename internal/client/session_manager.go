package client

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

// sessionIDPattern bounds what CreateSession/LoadPersistedSessions will
// accept as a session ID, since the ID is joined straight into a
// filesystem path for the session's pebble store directory.
var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ErrInvalidSessionID is returned when a caller-supplied session ID
// doesn't match sessionIDPattern.
var ErrInvalidSessionID = errors.New("invalid session id")

// SessionManager is the host-level registry of WAClient instances: one
// per paired (or pairing) device, each with its own pebble-backed
// authstate.Provider, auth.Authenticator, and waconn.Manager (spec
// §4.5-§4.7). It owns session lifecycle (create/load/delete/disconnect)
// but never touches the authenticator or noise handshake directly.
type SessionManager struct {
	sessions map[string]*WAClient
	mu       sync.RWMutex
	logger   *zap.SugaredLogger
	dataDir  string
}

// NewSessionManager creates a session manager rooted at $SESSION_DIR
// (default ./sessions). Each session gets its own subdirectory holding
// that device's pebble store.
func NewSessionManager(logger *zap.SugaredLogger) *SessionManager {
	dataDir := os.Getenv("SESSION_DIR")
	if dataDir == "" {
		dataDir = "./sessions"
	}
	os.MkdirAll(dataDir, 0755)

	return &SessionManager{
		sessions: make(map[string]*WAClient),
		logger:   logger,
		dataDir:  dataDir,
	}
}

// CreateSession opens (or initialises) a device session's pebble store
// and starts its connection in the background; the caller observes
// pairing/login progress through the returned client's status and QR
// code rather than by blocking here.
func (sm *SessionManager) CreateSession(sessionID string) (*WAClient, error) {
	if !sessionIDPattern.MatchString(sessionID) {
		return nil, ErrInvalidSessionID
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; exists {
		return nil, ErrSessionExists
	}

	wac, err := NewWAClient(sessionID, sm.logger, filepath.Join(sm.dataDir, sessionID))
	if err != nil {
		return nil, err
	}
	sm.sessions[sessionID] = wac

	go func() {
		if err := wac.Connect(); err != nil {
			sm.logger.Errorf("session %s: connect failed: %v", sessionID, err)
		}
	}()

	return wac, nil
}

// GetSession looks up a registered session by ID.
func (sm *SessionManager) GetSession(sessionID string) (*WAClient, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	wac, exists := sm.sessions[sessionID]
	return wac, exists
}

// DeleteSession disconnects a session and wipes its persisted pebble
// store from disk, permanently forgetting its pairing.
func (sm *SessionManager) DeleteSession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	wac, exists := sm.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}

	wac.Disconnect()
	delete(sm.sessions, sessionID)

	os.RemoveAll(filepath.Join(sm.dataDir, sessionID))
	return nil
}

// GetAllSessions returns every registered session, in no particular
// order.
func (sm *SessionManager) GetAllSessions() []*WAClient {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*WAClient, 0, len(sm.sessions))
	for _, wac := range sm.sessions {
		sessions = append(sessions, wac)
	}
	return sessions
}

// GetStats summarises the registry by connection status.
func (sm *SessionManager) GetStats() SessionStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	stats := SessionStats{Total: len(sm.sessions)}
	for _, wac := range sm.sessions {
		switch wac.GetStatus() {
		case StatusReady:
			stats.Ready++
			stats.Active++
		case StatusConnecting, StatusQRReady:
			stats.Initializing++
		case StatusDisconnected:
			// not counted as active
		}
	}
	return stats
}

// LoadPersistedSessions resumes every session directory under dataDir
// that already carries a pebble store (a CURRENT file), reconnecting
// each in the background. Directories that don't look like a valid
// session ID, or that were never opened as a pebble store, are skipped.
func (sm *SessionManager) LoadPersistedSessions() error {
	entries, err := os.ReadDir(sm.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() || !sessionIDPattern.MatchString(entry.Name()) {
			continue
		}

		sessionID := entry.Name()
		// A pebble store directory always carries a CURRENT file once
		// opened at least once; an empty/missing one means there's
		// nothing to resume.
		currentPath := filepath.Join(sm.dataDir, sessionID, "CURRENT")
		if _, err := os.Stat(currentPath); err == nil {
			sm.logger.Infof("resuming persisted session: %s", sessionID)
			if _, err := sm.CreateSession(sessionID); err != nil {
				sm.logger.Warnf("failed to resume session %s: %v", sessionID, err)
			}
		}
	}

	return nil
}

// DisconnectAll tears down every registered session's connection
// without removing their persisted state.
func (sm *SessionManager) DisconnectAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, wac := range sm.sessions {
		wac.Disconnect()
	}
}

// SessionStats holds aggregate counts across the registry.
type SessionStats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Ready        int `json:"ready"`
	Initializing int `json:"initializing"`
}
