// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package authstate

import "strings"

// DataKind discriminates the typed collections the Signal key store holds
// (spec §3.2).
type DataKind int

const (
	KindPreKey DataKind = iota
	KindSession
	KindSignedIdentityKey
	KindSignedPreKey
	KindSenderKey
	KindPeerIdentityKey
	kindAuthCreds // internal: Provider's own persisted creds record
)

func (k DataKind) String() string {
	switch k {
	case KindPreKey:
		return "pre-key"
	case KindSession:
		return "session"
	case KindSignedIdentityKey:
		return "signed-identity-key"
	case KindSignedPreKey:
		return "signed-pre-key"
	case KindSenderKey:
		return "sender-key"
	case KindPeerIdentityKey:
		return "peer-identity-key"
	case kindAuthCreds:
		return "auth-creds"
	default:
		return "unknown"
	}
}

// signalKinds lists the kinds ClearData wipes — every kind except the
// internal auth-creds record, which ClearData resets separately via a
// fresh canonical initializer (spec §4.7).
var signalKinds = []DataKind{
	KindPreKey, KindSession, KindSignedIdentityKey,
	KindSignedPreKey, KindSenderKey, KindPeerIdentityKey,
}

// sessionIDPrefix returns the key-id prefix under which all of a user's
// sessions are stored, e.g. "1234567890:" so GetAllSessionsForUser can
// enumerate them via ListIDs.
func sessionIDPrefix(userJID string) string {
	return userJID + ":"
}

func hasUserPrefix(id, userJID string) bool {
	return strings.HasPrefix(id, sessionIDPrefix(userJID))
}

// Store is the durable byte-level backend: raw bytes in, raw bytes out,
// keyed by (kind, id). A nil value passed to Set/SetBatch deletes the
// entry. It is the pluggable seam spec §6.4 calls "external/pluggable" —
// KeyStore and Provider build the typed contract on top of it.
type Store interface {
	Get(kind DataKind, id string) ([]byte, bool, error)
	GetBatch(kind DataKind, ids []string) (map[string][]byte, error)
	Set(kind DataKind, id string, value []byte) error
	SetBatch(kind DataKind, values map[string][]byte) error
	ListIDs(kind DataKind) ([]string, error)
	Clear(kind DataKind) error
}
