// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

// Package authstate holds the long-lived pairing/login material
// (AuthenticationCreds), the Signal-style key store, and the persistence
// adapters that back both (spec §3.1/§3.2/§4.7).
package authstate

import (
	"fmt"

	"github.com/waconnect/waconnect-go/internal/binary"
	"github.com/waconnect/waconnect-go/internal/crypto"
)

// SignedPreKey is a medium-lived key pair signed by the long-term identity
// key, used by Signal-style session setup.
type SignedPreKey struct {
	KeyPair   crypto.KeyPair
	Signature []byte // 64 bytes
	KeyID     uint32
}

// signedPreKeyMessage returns the bytes the identity key signs: a fixed
// version prefix concatenated with the pre-key's public key.
func signedPreKeyMessage(pub []byte) []byte {
	return append([]byte{0x05}, pub...)
}

// NewSignedPreKey generates a fresh pre-key pair of keyID and signs its
// public key with identityPriv.
func NewSignedPreKey(identityPriv []byte, keyID uint32) (SignedPreKey, error) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return SignedPreKey{}, err
	}
	sig, err := crypto.Sign(identityPriv, signedPreKeyMessage(kp.Public))
	if err != nil {
		return SignedPreKey{}, err
	}
	return SignedPreKey{KeyPair: kp, Signature: sig, KeyID: keyID}, nil
}

// VerifySignature checks the pre-key's signature against identityPub.
func (spk SignedPreKey) VerifySignature(identityPub []byte) bool {
	return crypto.Verify(identityPub, signedPreKeyMessage(spk.KeyPair.Public), spk.Signature)
}

// SignalIdentity is one counterparty identity binding: a (jid, device)
// pair and the Curve25519 public key asserted for it.
type SignalIdentity struct {
	Name          string // JID.String() of the owning account
	DeviceID      uint16
	IdentifierKey []byte
}

// Me identifies the local device once pairing has completed.
type Me struct {
	ID   binary.JID
	Name string
}

// AuthenticationCreds is the long-lived, mutable, persisted credential set
// a session is built around (spec §3.1).
type AuthenticationCreds struct {
	NoiseKey                crypto.KeyPair
	PairingEphemeralKeyPair crypto.KeyPair
	SignedIdentityKey       crypto.KeyPair
	SignedPreKey            SignedPreKey
	RegistrationID          uint16 // 14-bit: 0..16383
	AdvSecretKey            []byte // 32 random bytes

	Me      *Me
	Account []byte // opaque signed-device-identity blob, augmented with our device signature

	SignalIdentities []SignalIdentity // append-only

	Platform   string
	Registered bool

	NextPreKeyID            uint32
	FirstUnuploadedPreKeyID uint32
	AccountSyncCounter      uint32
	AccountSettings         []byte
	RoutingInfo             []byte
}

// NewAuthenticationCreds is the canonical initializer: it generates every
// long-lived key material field fresh. Registered starts false; Me and
// Account start nil, matching the "registered iff account and me present"
// invariant (spec §3.1).
func NewAuthenticationCreds() (*AuthenticationCreds, error) {
	noiseKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("authstate: generating noise key: %w", err)
	}
	pairingEphemeral, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("authstate: generating pairing ephemeral key: %w", err)
	}
	identity, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("authstate: generating identity key: %w", err)
	}
	signedPreKey, err := NewSignedPreKey(identity.Private, 1)
	if err != nil {
		return nil, fmt.Errorf("authstate: generating signed pre-key: %w", err)
	}
	regIDBytes, err := crypto.RandomBytes(2)
	if err != nil {
		return nil, fmt.Errorf("authstate: generating registration id: %w", err)
	}
	registrationID := (uint16(regIDBytes[0])<<8 | uint16(regIDBytes[1])) & 0x3FFF // 14 bits
	advSecret, err := crypto.RandomBytes(32)
	if err != nil {
		return nil, fmt.Errorf("authstate: generating adv secret: %w", err)
	}

	return &AuthenticationCreds{
		NoiseKey:                noiseKey,
		PairingEphemeralKeyPair: pairingEphemeral,
		SignedIdentityKey:       identity,
		SignedPreKey:            signedPreKey,
		RegistrationID:          registrationID,
		AdvSecretKey:            advSecret,
		NextPreKeyID:            1,
		FirstUnuploadedPreKeyID: 1,
	}, nil
}

// IsRegistered reports the invariant that Registered holds iff both Account
// and Me are present.
func (c *AuthenticationCreds) IsRegistered() bool {
	return c.Registered && c.Account != nil && c.Me != nil
}
