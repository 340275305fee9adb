// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package authstate

import (
	"fmt"
	"sync"
)

// credsRecordID is the single fixed id the creds record is stored under.
const credsRecordID = "creds"

// Provider is IAuthStateProvider from spec §4.7: owns the long-lived Creds,
// the Signal Keys store, and serialises SaveCreds against a concurrent
// ClearData.
type Provider struct {
	mu      sync.Mutex
	backing Store

	Creds *AuthenticationCreds
	Keys  *KeyStore
}

// NewProvider loads Creds from backing, or initialises and persists a
// fresh canonical set if none exists yet.
func NewProvider(backing Store) (*Provider, error) {
	p := &Provider{backing: backing, Keys: NewKeyStore(backing)}

	raw, ok, err := backing.Get(kindAuthCreds, credsRecordID)
	if err != nil {
		return nil, fmt.Errorf("authstate: loading creds: %w", err)
	}
	if ok {
		creds, err := DecodeCreds(raw)
		if err != nil {
			return nil, fmt.Errorf("authstate: decoding stored creds: %w", err)
		}
		p.Creds = creds
		return p, nil
	}

	creds, err := NewAuthenticationCreds()
	if err != nil {
		return nil, fmt.Errorf("authstate: initialising fresh creds: %w", err)
	}
	p.Creds = creds
	if err := p.SaveCreds(); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveCreds persists the current Creds. Overlapping calls are serialised
// by mu, and the call only returns once the backing store has durably
// accepted the bytes (spec §4.7).
func (p *Provider) SaveCreds() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backing.Set(kindAuthCreds, credsRecordID, EncodeCreds(p.Creds))
}

// ClearData wipes every Signal key collection and the creds record, then
// resets Creds via a fresh canonical initializer and persists it.
func (p *Provider) ClearData() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, kind := range signalKinds {
		if err := p.backing.Clear(kind); err != nil {
			return fmt.Errorf("authstate: clearing %s: %w", kind, err)
		}
	}
	if err := p.backing.Clear(kindAuthCreds); err != nil {
		return fmt.Errorf("authstate: clearing creds: %w", err)
	}

	creds, err := NewAuthenticationCreds()
	if err != nil {
		return fmt.Errorf("authstate: re-initialising creds: %w", err)
	}
	p.Creds = creds
	return p.backing.Set(kindAuthCreds, credsRecordID, EncodeCreds(p.Creds))
}
