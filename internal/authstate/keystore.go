// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package authstate

import (
	"fmt"

	appcrypto "github.com/waconnect/waconnect-go/internal/crypto"
)

// KeyStore is the Signal-style key store spec §3.2/§4.7 describes:
// get/set/list-sessions over typed kinds, backed by a byte-level Store.
// Malformed stored values are logged and omitted on read rather than
// propagated as decode errors, matching the contract's fail-soft read
// path; logging is the caller's responsibility (Get returns the offending
// ids in its malformed slice so callers can log with their own logger
// without this package importing one).
type KeyStore struct {
	store Store
}

// NewKeyStore wraps backing as a KeyStore.
func NewKeyStore(backing Store) *KeyStore {
	return &KeyStore{store: backing}
}

// Get fetches ids of the given kind, decoding typed kinds (pre-key,
// signed-identity-key, peer-identity-key, signed-pre-key) and passing
// session/sender-key through as opaque bytes. Only ids that were found
// and decoded successfully are present in the result; malformed entries
// are reported via malformed, not returned as an error.
func (ks *KeyStore) Get(kind DataKind, ids []string) (values map[string]any, malformed []string, err error) {
	raw, err := ks.store.GetBatch(kind, ids)
	if err != nil {
		return nil, nil, err
	}
	values = make(map[string]any, len(raw))
	for id, b := range raw {
		v, decodeErr := decodeKeyStoreValue(kind, b)
		if decodeErr != nil {
			malformed = append(malformed, id)
			continue
		}
		values[id] = v
	}
	return values, malformed, nil
}

// Set accepts a nested kind -> id -> value map. A nil value deletes that
// id. Values must match the kind's expected Go type (KeyPair, SignedPreKey,
// or []byte) or Set returns an error without applying any of the batch for
// that kind.
func (ks *KeyStore) Set(data map[DataKind]map[string]any) error {
	for kind, values := range data {
		encoded := make(map[string][]byte, len(values))
		for id, v := range values {
			if v == nil {
				encoded[id] = nil
				continue
			}
			b, err := encodeKeyStoreValue(kind, v)
			if err != nil {
				return fmt.Errorf("authstate: encoding %s/%s: %w", kind, id, err)
			}
			encoded[id] = b
		}
		if err := ks.store.SetBatch(kind, encoded); err != nil {
			return err
		}
	}
	return nil
}

// GetAllSessionsForUser returns every session record stored under jid's
// prefix, keyed by the session's full id (jid:deviceSuffix).
func (ks *KeyStore) GetAllSessionsForUser(jid string) (map[string][]byte, error) {
	ids, err := ks.store.ListIDs(KindSession)
	if err != nil {
		return nil, err
	}
	var matching []string
	for _, id := range ids {
		if hasUserPrefix(id, jid) {
			matching = append(matching, id)
		}
	}
	return ks.store.GetBatch(KindSession, matching)
}

func encodeKeyStoreValue(kind DataKind, v any) ([]byte, error) {
	switch kind {
	case KindPreKey, KindSignedIdentityKey, KindPeerIdentityKey:
		kp, ok := v.(appcrypto.KeyPair)
		if !ok {
			return nil, fmt.Errorf("expected a KeyPair value")
		}
		w := &recordWriter{}
		writeKeyPair(w, kp)
		return w.buf.Bytes(), nil
	case KindSignedPreKey:
		spk, ok := v.(SignedPreKey)
		if !ok {
			return nil, fmt.Errorf("expected a SignedPreKey value")
		}
		w := &recordWriter{}
		writeSignedPreKey(w, spk)
		return w.buf.Bytes(), nil
	case KindSession, KindSenderKey:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected a []byte value")
		}
		return b, nil
	default:
		return nil, fmt.Errorf("authstate: unsupported kind %s", kind)
	}
}

func decodeKeyStoreValue(kind DataKind, b []byte) (any, error) {
	switch kind {
	case KindPreKey, KindSignedIdentityKey, KindPeerIdentityKey:
		r := &recordReader{buf: b}
		return readKeyPair(r)
	case KindSignedPreKey:
		r := &recordReader{buf: b}
		return readSignedPreKey(r)
	case KindSession, KindSenderKey:
		return b, nil
	default:
		return nil, fmt.Errorf("authstate: unsupported kind %s", kind)
	}
}
