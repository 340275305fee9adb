// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package authstate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waconnect/waconnect-go/internal/binary"
	"github.com/waconnect/waconnect-go/internal/crypto"
)

func TestCredsEncodeDecodeRoundTrip(t *testing.T) {
	creds, err := NewAuthenticationCreds()
	require.NoError(t, err)

	creds.Me = &Me{ID: binary.JID{User: "15551234567", Server: binary.ServerUser}, Name: "Test Device"}
	creds.Account = []byte("opaque-account-blob")
	creds.SignalIdentities = append(creds.SignalIdentities, SignalIdentity{
		Name: "15551234567@s.whatsapp.net", DeviceID: 0, IdentifierKey: []byte("identifier-key-bytes"),
	})
	creds.Platform = "android"
	creds.Registered = true
	creds.NextPreKeyID = 42
	creds.FirstUnuploadedPreKeyID = 10
	creds.AccountSyncCounter = 3
	creds.AccountSettings = []byte{0x01, 0x02}
	creds.RoutingInfo = []byte{0xAA, 0xBB, 0xCC}

	encoded := EncodeCreds(creds)
	decoded, err := DecodeCreds(encoded)
	require.NoError(t, err)

	require.Equal(t, creds.NoiseKey, decoded.NoiseKey)
	require.Equal(t, creds.SignedIdentityKey, decoded.SignedIdentityKey)
	require.Equal(t, creds.SignedPreKey, decoded.SignedPreKey)
	require.Equal(t, creds.RegistrationID, decoded.RegistrationID)
	require.Equal(t, creds.AdvSecretKey, decoded.AdvSecretKey)
	require.Equal(t, *creds.Me, *decoded.Me)
	require.Equal(t, creds.Account, decoded.Account)
	require.Equal(t, creds.SignalIdentities, decoded.SignalIdentities)
	require.Equal(t, creds.Platform, decoded.Platform)
	require.True(t, decoded.Registered)
	require.Equal(t, creds.NextPreKeyID, decoded.NextPreKeyID)
	require.Equal(t, creds.RoutingInfo, decoded.RoutingInfo)
}

func TestCredsDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := DecodeCreds([]byte{0xFF, 0x00})
	require.Error(t, err)
}

func TestIsRegisteredInvariant(t *testing.T) {
	creds, err := NewAuthenticationCreds()
	require.NoError(t, err)
	require.False(t, creds.IsRegistered(), "fresh creds must not be registered")

	creds.Registered = true
	require.False(t, creds.IsRegistered(), "registered alone isn't enough without account+me")

	creds.Account = []byte("x")
	creds.Me = &Me{ID: binary.JID{User: "1", Server: binary.ServerUser}}
	require.True(t, creds.IsRegistered())
}

func TestMemStoreGetSetDelete(t *testing.T) {
	store := NewMemStore()

	require.NoError(t, store.Set(KindSession, "a@s.whatsapp.net:0", []byte("session-bytes")))
	v, ok, err := store.Get(KindSession, "a@s.whatsapp.net:0")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("session-bytes"), v)

	require.NoError(t, store.Set(KindSession, "a@s.whatsapp.net:0", nil))
	_, ok, err = store.Get(KindSession, "a@s.whatsapp.net:0")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeyStoreTypedRoundTripAndMalformedOmission(t *testing.T) {
	store := NewMemStore()
	ks := NewKeyStore(store)

	kp, err := newTestKeyPair()
	require.NoError(t, err)

	require.NoError(t, ks.Set(map[DataKind]map[string]any{
		KindPreKey: {"1": kp},
	}))

	// Corrupt a second id's raw bytes directly via the backing store so
	// Get must omit it rather than error.
	require.NoError(t, store.Set(KindPreKey, "2", []byte{0x01, 0x02}))

	values, malformed, err := ks.Get(KindPreKey, []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Equal(t, kp, values["1"])
	require.Contains(t, malformed, "2")
	require.NotContains(t, values, "2")
	require.NotContains(t, values, "3") // never set, simply absent
}

func TestKeyStoreGetAllSessionsForUser(t *testing.T) {
	store := NewMemStore()
	ks := NewKeyStore(store)

	require.NoError(t, ks.Set(map[DataKind]map[string]any{
		KindSession: {
			"15551234567@s.whatsapp.net:0": []byte("session-a"),
			"15551234567@s.whatsapp.net:1": []byte("session-b"),
			"99999999999@s.whatsapp.net:0": []byte("unrelated"),
		},
	}))

	sessions, err := ks.GetAllSessionsForUser("15551234567@s.whatsapp.net")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, []byte("session-a"), sessions["15551234567@s.whatsapp.net:0"])
}

func TestProviderInitializesFreshCredsAndPersists(t *testing.T) {
	store := NewMemStore()

	p1, err := NewProvider(store)
	require.NoError(t, err)
	require.NotNil(t, p1.Creds)
	require.False(t, p1.Creds.IsRegistered())

	p2, err := NewProvider(store)
	require.NoError(t, err)
	require.Equal(t, p1.Creds.NoiseKey, p2.Creds.NoiseKey, "reopening must load the same persisted creds")
}

func TestProviderSaveCredsRoundTrip(t *testing.T) {
	store := NewMemStore()
	p, err := NewProvider(store)
	require.NoError(t, err)

	p.Creds.Registered = true
	p.Creds.Account = []byte("acct")
	p.Creds.Me = &Me{ID: binary.JID{User: "1", Server: binary.ServerUser}}
	require.NoError(t, p.SaveCreds())

	reloaded, err := NewProvider(store)
	require.NoError(t, err)
	require.True(t, reloaded.Creds.IsRegistered())
}

func TestProviderClearDataResetsCredsAndWipesKeys(t *testing.T) {
	store := NewMemStore()
	p, err := NewProvider(store)
	require.NoError(t, err)

	kp, err := newTestKeyPair()
	require.NoError(t, err)
	require.NoError(t, p.Keys.Set(map[DataKind]map[string]any{KindPreKey: {"1": kp}}))

	oldNoiseKey := p.Creds.NoiseKey
	require.NoError(t, p.ClearData())

	require.NotEqual(t, oldNoiseKey, p.Creds.NoiseKey, "ClearData must generate fresh key material")

	values, _, err := p.Keys.Get(KindPreKey, []string{"1"})
	require.NoError(t, err)
	require.Empty(t, values, "ClearData must wipe existing key-store entries")
}

func newTestKeyPair() (crypto.KeyPair, error) {
	return crypto.GenerateKeyPair()
}
