// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package authstate

import (
	"bytes"
	"encoding/binary"
	"fmt"

	wabinary "github.com/waconnect/waconnect-go/internal/binary"
	appcrypto "github.com/waconnect/waconnect-go/internal/crypto"
)

// credsRecordVersion is the leading byte of every serialised
// AuthenticationCreds record. Bumping it is how a future field addition
// stays readable against older stores (spec §9: a versioned binary
// encoding replaces the source's tag-based JSON revival scheme).
const credsRecordVersion = 1

type recordWriter struct{ buf bytes.Buffer }

func (w *recordWriter) bytes(b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	w.buf.Write(lenBuf[:])
	w.buf.Write(b)
}

func (w *recordWriter) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *recordWriter) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *recordWriter) bool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

type recordReader struct {
	buf []byte
	off int
}

func (r *recordReader) bytes() ([]byte, error) {
	if r.off+4 > len(r.buf) {
		return nil, fmt.Errorf("authstate: truncated record (length prefix)")
	}
	n := int(binary.BigEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	if n < 0 || r.off+n > len(r.buf) {
		return nil, fmt.Errorf("authstate: truncated record (body of length %d)", n)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *recordReader) u16() (uint16, error) {
	if r.off+2 > len(r.buf) {
		return 0, fmt.Errorf("authstate: truncated record (u16)")
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *recordReader) u32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, fmt.Errorf("authstate: truncated record (u32)")
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *recordReader) bool() (bool, error) {
	if r.off+1 > len(r.buf) {
		return false, fmt.Errorf("authstate: truncated record (bool)")
	}
	v := r.buf[r.off] != 0
	r.off++
	return v, nil
}

func writeKeyPair(w *recordWriter, kp appcrypto.KeyPair) {
	w.bytes(kp.Public)
	w.bytes(kp.Private)
}

func readKeyPair(r *recordReader) (appcrypto.KeyPair, error) {
	pub, err := r.bytes()
	if err != nil {
		return appcrypto.KeyPair{}, err
	}
	priv, err := r.bytes()
	if err != nil {
		return appcrypto.KeyPair{}, err
	}
	return appcrypto.KeyPair{Public: pub, Private: priv}, nil
}

func writeSignedPreKey(w *recordWriter, spk SignedPreKey) {
	writeKeyPair(w, spk.KeyPair)
	w.bytes(spk.Signature)
	w.u32(spk.KeyID)
}

func readSignedPreKey(r *recordReader) (SignedPreKey, error) {
	kp, err := readKeyPair(r)
	if err != nil {
		return SignedPreKey{}, err
	}
	sig, err := r.bytes()
	if err != nil {
		return SignedPreKey{}, err
	}
	keyID, err := r.u32()
	if err != nil {
		return SignedPreKey{}, err
	}
	return SignedPreKey{KeyPair: kp, Signature: sig, KeyID: keyID}, nil
}

// EncodeCreds serialises creds into the versioned binary record persisted
// under kindAuthCreds.
func EncodeCreds(creds *AuthenticationCreds) []byte {
	w := &recordWriter{}
	w.buf.WriteByte(credsRecordVersion)

	writeKeyPair(w, creds.NoiseKey)
	writeKeyPair(w, creds.PairingEphemeralKeyPair)
	writeKeyPair(w, creds.SignedIdentityKey)
	writeSignedPreKey(w, creds.SignedPreKey)
	w.u16(creds.RegistrationID)
	w.bytes(creds.AdvSecretKey)

	if creds.Me != nil {
		w.bool(true)
		w.bytes([]byte(creds.Me.ID.String()))
		w.bytes([]byte(creds.Me.Name))
	} else {
		w.bool(false)
	}
	w.bytes(creds.Account)

	w.u32(uint32(len(creds.SignalIdentities)))
	for _, id := range creds.SignalIdentities {
		w.bytes([]byte(id.Name))
		w.u16(id.DeviceID)
		w.bytes(id.IdentifierKey)
	}

	w.bytes([]byte(creds.Platform))
	w.bool(creds.Registered)
	w.u32(creds.NextPreKeyID)
	w.u32(creds.FirstUnuploadedPreKeyID)
	w.u32(creds.AccountSyncCounter)
	w.bytes(creds.AccountSettings)
	w.bytes(creds.RoutingInfo)

	return w.buf.Bytes()
}

// DecodeCreds parses a record produced by EncodeCreds.
func DecodeCreds(data []byte) (*AuthenticationCreds, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("authstate: empty creds record")
	}
	if data[0] != credsRecordVersion {
		return nil, fmt.Errorf("authstate: unsupported creds record version %d", data[0])
	}
	r := &recordReader{buf: data, off: 1}

	creds := &AuthenticationCreds{}
	var err error
	if creds.NoiseKey, err = readKeyPair(r); err != nil {
		return nil, err
	}
	if creds.PairingEphemeralKeyPair, err = readKeyPair(r); err != nil {
		return nil, err
	}
	if creds.SignedIdentityKey, err = readKeyPair(r); err != nil {
		return nil, err
	}
	if creds.SignedPreKey, err = readSignedPreKey(r); err != nil {
		return nil, err
	}
	if creds.RegistrationID, err = r.u16(); err != nil {
		return nil, err
	}
	if creds.AdvSecretKey, err = r.bytes(); err != nil {
		return nil, err
	}

	hasMe, err := r.bool()
	if err != nil {
		return nil, err
	}
	if hasMe {
		idBytes, err := r.bytes()
		if err != nil {
			return nil, err
		}
		nameBytes, err := r.bytes()
		if err != nil {
			return nil, err
		}
		jid, ok := wabinary.ParseJID(string(idBytes))
		if !ok {
			return nil, fmt.Errorf("authstate: stored me.id %q is not a valid JID", idBytes)
		}
		creds.Me = &Me{ID: jid, Name: string(nameBytes)}
	}
	if creds.Account, err = r.bytes(); err != nil {
		return nil, err
	}

	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	creds.SignalIdentities = make([]SignalIdentity, 0, count)
	for i := uint32(0); i < count; i++ {
		nameBytes, err := r.bytes()
		if err != nil {
			return nil, err
		}
		deviceID, err := r.u16()
		if err != nil {
			return nil, err
		}
		key, err := r.bytes()
		if err != nil {
			return nil, err
		}
		creds.SignalIdentities = append(creds.SignalIdentities, SignalIdentity{
			Name: string(nameBytes), DeviceID: deviceID, IdentifierKey: key,
		})
	}

	platform, err := r.bytes()
	if err != nil {
		return nil, err
	}
	creds.Platform = string(platform)
	if creds.Registered, err = r.bool(); err != nil {
		return nil, err
	}
	if creds.NextPreKeyID, err = r.u32(); err != nil {
		return nil, err
	}
	if creds.FirstUnuploadedPreKeyID, err = r.u32(); err != nil {
		return nil, err
	}
	if creds.AccountSyncCounter, err = r.u32(); err != nil {
		return nil, err
	}
	if creds.AccountSettings, err = r.bytes(); err != nil {
		return nil, err
	}
	if creds.RoutingInfo, err = r.bytes(); err != nil {
		return nil, err
	}

	return creds, nil
}
