// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

// Package noise implements the Noise_XX_25519_AESGCM_SHA256 handshake and
// the post-handshake transport cipher. It owns the handshake hash, chaining
// key, symmetric keys and per-direction counters; framing (length prefixes,
// the routing/prologue preamble) is a separate concern, see internal/framing.
package noise

import (
	"encoding/binary"
	"fmt"

	"github.com/waconnect/waconnect-go/internal/crypto"
)

// protocolName is the Noise handshake identifier, zero-padded to 32 bytes
// to form the initial h/ck (a name longer than 32 bytes would be hashed
// instead) per the Noise spec.
const protocolName = "Noise_XX_25519_AESGCM_SHA256"

// Prologue is the fixed 4-byte tag mixed into the handshake hash before any
// key material, and the same bytes the frame handler prepends once as the
// on-wire preamble (spec §6.2).
var Prologue = []byte{'W', 'A', 0x06, 0x02}

// Processor drives one Noise XX handshake and, after finalisation, encrypts
// and decrypts the transport stream. Not safe for concurrent use — the
// connection manager serialises access to it.
type Processor struct {
	ephemeral crypto.KeyPair
	static    crypto.KeyPair

	serverEphemeral []byte

	h  []byte // handshake hash, cleared after finalisation
	ck []byte // chaining key / salt

	// Handshake-phase symmetric state: one key, one counter shared by
	// both encrypt and decrypt until finalisation (spec §9 design note —
	// do NOT split into two counters before finalisation).
	handshakeKey     []byte
	handshakeCounter uint32

	// Transport-phase symmetric state, independent per direction.
	encKey       []byte
	decKey       []byte
	writeCounter uint64
	readCounter  uint64

	finished bool
}

// New starts a fresh handshake using the given static (long-lived) Noise key
// pair, generating a new ephemeral key pair and initialising h/ck.
func New(static crypto.KeyPair) (*Processor, error) {
	ephemeral, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("noise: generate ephemeral key: %w", err)
	}
	p := &Processor{ephemeral: ephemeral, static: static}
	p.initState()
	return p, nil
}

func (p *Processor) initState() {
	name := []byte(protocolName)
	if len(name) <= 32 {
		p.h = make([]byte, 32)
		copy(p.h, name)
	} else {
		p.h = crypto.SHA256(name)
	}
	p.ck = p.h
	p.handshakeKey = p.h
	p.handshakeCounter = 0

	p.mixHash(Prologue)
	p.mixHash(p.static.Public)
}

func (p *Processor) mixHash(data []byte) {
	buf := make([]byte, 0, len(p.h)+len(data))
	buf = append(buf, p.h...)
	buf = append(buf, data...)
	p.h = crypto.SHA256(buf)
}

// mixKey derives a new chaining key and handshake key from ikm via
// HKDF-SHA256(salt=ck), resetting the shared handshake counter to zero.
func (p *Processor) mixKey(ikm []byte) error {
	okm, err := crypto.HKDFSHA256(ikm, 64, p.ck, nil)
	if err != nil {
		return fmt.Errorf("noise: mixKey: %w", err)
	}
	p.ck = okm[:32]
	p.handshakeKey = okm[32:]
	p.handshakeCounter = 0
	return nil
}

func handshakeIV(counter uint32) []byte {
	iv := make([]byte, 12)
	binary.BigEndian.PutUint32(iv[8:], counter)
	return iv
}

// encryptHandshake seals pt under the current handshake key, advancing the
// shared counter, and mixes the ciphertext into h.
func (p *Processor) encryptHandshake(pt []byte) ([]byte, error) {
	iv := handshakeIV(p.handshakeCounter)
	ct, err := crypto.AESGCMSeal(p.handshakeKey, iv, p.h, pt)
	if err != nil {
		return nil, fmt.Errorf("noise: handshake encrypt: %w", err)
	}
	p.handshakeCounter++
	p.mixHash(ct)
	return ct, nil
}

// decryptHandshake opens ct under the current handshake key. Per spec §9,
// during the handshake phase decrypt also advances the shared counter (there
// is no independent read counter until finalisation).
func (p *Processor) decryptHandshake(ct []byte) ([]byte, error) {
	iv := handshakeIV(p.handshakeCounter)
	pt, err := crypto.AESGCMOpen(p.handshakeKey, iv, p.h, ct)
	if err != nil {
		return nil, fmt.Errorf("noise: handshake decrypt: %w", err)
	}
	p.handshakeCounter++
	p.mixHash(ct)
	return pt, nil
}

func (p *Processor) dh(priv, pub []byte) ([]byte, error) {
	return crypto.SharedSecret(priv, pub)
}

// BuildClientHello returns the protobuf-encoded HandshakeMessage carrying our
// ephemeral public key. Per spec §4.3 step 1, the encoder mixes the
// ephemeral key into h before sending so both sides stay in sync.
func (p *Processor) BuildClientHello() []byte {
	p.mixHash(p.ephemeral.Public)
	return encodeClientHello(p.ephemeral.Public)
}

// ConsumeServerHello processes the server's e, ee, s, es handshake message:
// mixes in the server ephemeral, performs DH1/DH2, decrypts the server's
// static key and payload, and verifies the certificate chain within.
func (p *Processor) ConsumeServerHello(data []byte) error {
	sh, err := decodeServerHello(data)
	if err != nil {
		return err
	}
	if len(sh.ephemeral) != 32 {
		return fmt.Errorf("noise: ServerHello ephemeral key must be 32 bytes, got %d", len(sh.ephemeral))
	}
	p.serverEphemeral = sh.ephemeral
	p.mixHash(sh.ephemeral)

	shared1, err := p.dh(p.ephemeral.Private, sh.ephemeral)
	if err != nil {
		return fmt.Errorf("noise: DH1 (ee) failed: %w", err)
	}
	if err := p.mixKey(shared1); err != nil {
		return err
	}

	serverStatic, err := p.decryptHandshake(sh.static)
	if err != nil {
		return fmt.Errorf("noise: decrypting server static key: %w", err)
	}
	shared2, err := p.dh(p.ephemeral.Private, serverStatic)
	if err != nil {
		return fmt.Errorf("noise: DH2 (es) failed: %w", err)
	}
	if err := p.mixKey(shared2); err != nil {
		return err
	}

	payload, err := p.decryptHandshake(sh.payload)
	if err != nil {
		return fmt.Errorf("noise: decrypting server payload: %w", err)
	}
	if err := verifyCertChain(payload); err != nil {
		return err
	}

	return nil
}

// BuildClientFinish encrypts our static key and the given client payload,
// performs the final DH, and returns the protobuf-encoded HandshakeMessage.
// Call Finalize once this message has been sent.
func (p *Processor) BuildClientFinish(clientPayload []byte) ([]byte, error) {
	encStatic, err := p.encryptHandshake(p.static.Public)
	if err != nil {
		return nil, err
	}

	shared3, err := p.dh(p.static.Private, p.serverEphemeral)
	if err != nil {
		return nil, fmt.Errorf("noise: DH3 (se) failed: %w", err)
	}
	if err := p.mixKey(shared3); err != nil {
		return nil, err
	}

	var encPayload []byte
	if len(clientPayload) > 0 {
		encPayload, err = p.encryptHandshake(clientPayload)
		if err != nil {
			return nil, err
		}
	}

	return encodeClientFinish(encStatic, encPayload), nil
}

// Finalize derives the independent transport encryption/decryption keys,
// clears the handshake hash, and resets both transport counters to zero.
// Call this once BuildClientFinish's message has been sent (spec §9: the
// handshake is complete only after ClientFinish is sent, not processed).
func (p *Processor) Finalize() error {
	okm, err := crypto.HKDFSHA256(nil, 64, p.ck, nil)
	if err != nil {
		return fmt.Errorf("noise: finalize: %w", err)
	}
	p.encKey = okm[:32]
	p.decKey = okm[32:]
	p.h = nil
	p.ck = nil
	p.handshakeKey = nil
	p.writeCounter = 0
	p.readCounter = 0
	p.finished = true
	return nil
}

// IsFinished reports whether the handshake has completed.
func (p *Processor) IsFinished() bool {
	return p.finished
}

func transportIV(counter uint64) []byte {
	iv := make([]byte, 12)
	binary.BigEndian.PutUint32(iv[8:], uint32(counter))
	return iv
}

// EncryptTransport seals pt under the transport encryption key with empty
// AAD, advancing the write counter. Valid only after Finalize.
func (p *Processor) EncryptTransport(pt []byte) ([]byte, error) {
	if !p.finished {
		return nil, fmt.Errorf("noise: EncryptTransport called before handshake finished")
	}
	ct, err := crypto.AESGCMSeal(p.encKey, transportIV(p.writeCounter), nil, pt)
	if err != nil {
		return nil, fmt.Errorf("noise: transport encrypt: %w", err)
	}
	p.writeCounter++
	return ct, nil
}

// DecryptTransport opens ct under the transport decryption key with empty
// AAD, advancing the read counter. Valid only after Finalize. An AEAD
// authentication failure here is fatal per spec §4.3/§7.
func (p *Processor) DecryptTransport(ct []byte) ([]byte, error) {
	if !p.finished {
		return nil, fmt.Errorf("noise: DecryptTransport called before handshake finished")
	}
	pt, err := crypto.AESGCMOpen(p.decKey, transportIV(p.readCounter), nil, ct)
	if err != nil {
		return nil, fmt.Errorf("noise: transport decrypt: %w", err)
	}
	p.readCounter++
	return pt, nil
}

// WriteCounter and ReadCounter expose the current transport counters, used
// by tests asserting counter-uniqueness (spec §8.1/§8.2).
func (p *Processor) WriteCounter() uint64 { return p.writeCounter }
func (p *Processor) ReadCounter() uint64  { return p.readCounter }

// EphemeralPublic returns our ephemeral public key.
func (p *Processor) EphemeralPublic() []byte { return p.ephemeral.Public }

// StaticPublic returns our static Noise public key.
func (p *Processor) StaticPublic() []byte { return p.static.Public }
