// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

// Package crypto holds the cryptographic primitives the Noise handshake,
// stanza authenticator and auth-state store build on: X25519 key
// agreement, XEdDSA signing over Curve25519 keys, HMAC/HKDF-SHA256,
// AES-256-GCM and AES-256-CBC, and a CSPRNG helper.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// KeyPair is a 32-byte Curve25519 public/private pair. Never log Private.
type KeyPair struct {
	Public  []byte
	Private []byte
}

var (
	ErrInvalidKeyLength = errors.New("crypto: key must be 32 bytes (or 33 with 0x05 prefix)")
	ErrInvalidIVLength  = errors.New("crypto: iv must be 12 bytes (gcm) or 16 bytes (cbc)")
)

// GenerateKeyPair produces a fresh Curve25519 key pair using a CSPRNG.
func GenerateKeyPair() (KeyPair, error) {
	priv := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, priv); err != nil {
		return KeyPair{}, err
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Public: pub, Private: priv}, nil
}

// SharedSecret computes the X25519 ECDH shared secret. If pub carries the
// 0x05 version-byte prefix WhatsApp sometimes attaches to public keys, it
// is stripped first; any other length fails closed.
func SharedSecret(priv, pub []byte) ([]byte, error) {
	if len(pub) == 33 && pub[0] == 0x05 {
		pub = pub[1:]
	}
	if len(pub) != 32 || len(priv) != 32 {
		return nil, ErrInvalidKeyLength
	}
	return curve25519.X25519(priv, pub)
}

// HMACSHA256 computes HMAC-SHA256(key, msg).
func HMACSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// HKDFSHA256 expands ikm into length bytes of output keying material using
// HKDF-SHA256 with the given salt and info.
func HKDFSHA256(ikm []byte, length int, salt, info []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SHA256 hashes data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// AESGCMSeal seals data with AES-256-GCM under key/iv/aad. iv must be 12 bytes.
func AESGCMSeal(key, iv, aad, data []byte) ([]byte, error) {
	if len(iv) != 12 {
		return nil, ErrInvalidIVLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, iv, data, aad), nil
}

// AESGCMOpen authenticates and decrypts ciphertext. Authentication failure
// is reported as an error value, never a panic or timing-sensitive branch;
// cipher.NewGCM's Open is constant-time in the tag comparison.
func AESGCMOpen(key, iv, aad, data []byte) ([]byte, error) {
	if len(iv) != 12 {
		return nil, ErrInvalidIVLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, iv, data, aad)
}

// AESCBCEncrypt encrypts data (which must already be padded to a multiple
// of the AES block size) with AES-256-CBC under key/iv. iv must be 16 bytes.
func AESCBCEncrypt(key, iv, data []byte) ([]byte, error) {
	if len(iv) != aes.BlockSize {
		return nil, ErrInvalidIVLength
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, errors.New("crypto: cbc plaintext must be block-aligned")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// AESCBCDecrypt decrypts data with AES-256-CBC under key/iv, returning the
// still-padded plaintext; callers strip PKCS#7 padding themselves.
func AESCBCDecrypt(key, iv, data []byte) ([]byte, error) {
	if len(iv) != aes.BlockSize {
		return nil, ErrInvalidIVLength
	}
	if len(data)%aes.BlockSize != 0 || len(data) == 0 {
		return nil, errors.New("crypto: cbc ciphertext must be non-empty and block-aligned")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}
