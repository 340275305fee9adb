package noise

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/waconnect/waconnect-go/internal/crypto"
)

func TestInitialStateMixesPrologueThenStatic(t *testing.T) {
	static, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	p, err := New(static)
	require.NoError(t, err)

	h0 := make([]byte, 32)
	copy(h0, protocolName)
	h1 := crypto.SHA256(append(append([]byte{}, h0...), Prologue...))
	want := crypto.SHA256(append(append([]byte{}, h1...), static.Public...))

	require.Equal(t, want, p.h)
	require.Equal(t, h0, p.ck)
}

func TestMixHashChaining(t *testing.T) {
	static, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	p, err := New(static)
	require.NoError(t, err)

	prev := append([]byte(nil), p.h...)
	data := []byte("some-frame-bytes")
	p.mixHash(data)

	want := crypto.SHA256(append(append([]byte{}, prev...), data...))
	require.Equal(t, want, p.h)
}

func TestMixKeyResetsSharedCounter(t *testing.T) {
	static, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	p, err := New(static)
	require.NoError(t, err)

	_, err = p.encryptHandshake([]byte("x"))
	require.NoError(t, err)
	require.EqualValues(t, 1, p.handshakeCounter)

	require.NoError(t, p.mixKey([]byte("ikm")))
	require.EqualValues(t, 0, p.handshakeCounter)
}

func TestMixKeyMatchesHKDF(t *testing.T) {
	static, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	p, err := New(static)
	require.NoError(t, err)

	ikm := []byte("shared-secret-material")
	prevCk := append([]byte(nil), p.ck...)
	want, err := crypto.HKDFSHA256(ikm, 64, prevCk, nil)
	require.NoError(t, err)

	require.NoError(t, p.mixKey(ikm))
	require.Equal(t, want[:32], p.ck)
	require.Equal(t, want[32:], p.handshakeKey)
}

// TestHandshakeCounterIsSharedBetweenEncryptAndDecrypt exercises the
// explicit design note: during the handshake, encrypt and decrypt advance
// the same counter rather than independent read/write counters.
func TestHandshakeCounterIsSharedBetweenEncryptAndDecrypt(t *testing.T) {
	static, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	p, err := New(static)
	require.NoError(t, err)

	pt := []byte("inbound at counter 0")
	ct, err := crypto.AESGCMSeal(p.handshakeKey, handshakeIV(0), p.h, pt)
	require.NoError(t, err)

	got, err := p.decryptHandshake(ct)
	require.NoError(t, err)
	require.Equal(t, pt, got)
	require.EqualValues(t, 1, p.handshakeCounter)

	_, err = p.encryptHandshake([]byte("outbound at counter 1"))
	require.NoError(t, err)
	require.EqualValues(t, 2, p.handshakeCounter)
}

func TestFinalizeDerivesIndependentTransportState(t *testing.T) {
	static, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	p, err := New(static)
	require.NoError(t, err)

	ck, err := crypto.RandomBytes(32)
	require.NoError(t, err)
	p.ck = ck

	require.NoError(t, p.Finalize())
	require.True(t, p.IsFinished())
	require.Nil(t, p.h)
	require.NotEqual(t, p.encKey, p.decKey)

	ct, err := p.EncryptTransport([]byte("payload"))
	require.NoError(t, err)
	require.EqualValues(t, 1, p.WriteCounter())
	require.EqualValues(t, 0, p.ReadCounter())

	_, err = p.DecryptTransport(ct)
	require.Error(t, err, "different keys per direction must fail closed, not cross-decrypt")
}

func TestTransportCountersIncrementMonotonically(t *testing.T) {
	static, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	p, err := New(static)
	require.NoError(t, err)

	ck, err := crypto.RandomBytes(32)
	require.NoError(t, err)
	p.ck = ck
	require.NoError(t, p.Finalize())

	for i := 0; i < 5; i++ {
		_, err := p.EncryptTransport([]byte("m"))
		require.NoError(t, err)
	}
	require.EqualValues(t, 5, p.WriteCounter())
}

func TestEncodeClientHelloWireFormat(t *testing.T) {
	eph := make([]byte, 32)
	for i := range eph {
		eph[i] = byte(i)
	}
	msg := encodeClientHello(eph)

	inner, ok := findBytesField(msg, fieldClientHello)
	require.True(t, ok)
	got, ok := findBytesField(inner, fieldEphemeral)
	require.True(t, ok)
	require.Equal(t, eph, got)
}

func TestEncodeClientFinishWireFormat(t *testing.T) {
	static := []byte("static-key-ciphertext")
	payload := []byte("client-payload-ciphertext")
	msg := encodeClientFinish(static, payload)

	inner, ok := findBytesField(msg, fieldClientFinish)
	require.True(t, ok)
	gotStatic, ok := findBytesField(inner, fieldStatic)
	require.True(t, ok)
	require.Equal(t, static, gotStatic)
	gotPayload, ok := findBytesField(inner, fieldPayload)
	require.True(t, ok)
	require.Equal(t, payload, gotPayload)
}

func TestDecodeServerHelloWrappedAndBare(t *testing.T) {
	eph := make([]byte, 32)
	for i := range eph {
		eph[i] = byte(i)
	}
	static := []byte("encrypted-static")

	inner := appendBytesField(nil, fieldEphemeral, eph)
	inner = appendBytesField(inner, fieldStatic, static)
	wrapped := appendBytesField(nil, fieldServerHello, inner)

	sh, err := decodeServerHello(wrapped)
	require.NoError(t, err)
	require.Equal(t, eph, sh.ephemeral)
	require.Equal(t, static, sh.static)

	bare, err := decodeServerHello(inner)
	require.NoError(t, err)
	require.Equal(t, eph, bare.ephemeral)
}

func TestDecodeServerHelloRejectsMissingEphemeral(t *testing.T) {
	inner := appendBytesField(nil, fieldStatic, []byte("x"))
	_, err := decodeServerHello(inner)
	require.Error(t, err)
}

func buildCertChain(issuerSerial uint64) []byte {
	details := protowire.AppendTag(nil, 1, protowire.VarintType)
	details = protowire.AppendVarint(details, 7)
	details = protowire.AppendTag(details, certDetailsFieldIssuerSerial, protowire.VarintType)
	details = protowire.AppendVarint(details, issuerSerial)

	intermediate := appendBytesField(nil, certFieldDetails, details)
	leaf := appendBytesField(nil, certFieldDetails, details)

	chain := appendBytesField(nil, certFieldLeaf, leaf)
	chain = appendBytesField(chain, certFieldIntermediate, intermediate)
	return chain
}

func TestVerifyCertChainAcceptsExpectedIssuerSerial(t *testing.T) {
	chain := buildCertChain(ExpectedIntermediateIssuerSerial)
	require.NoError(t, verifyCertChain(chain))
}

func TestVerifyCertChainRejectsWrongIssuerSerial(t *testing.T) {
	chain := buildCertChain(99)
	require.Error(t, verifyCertChain(chain))
}

func TestVerifyCertChainRejectsMissingIntermediate(t *testing.T) {
	leaf := appendBytesField(nil, certFieldDetails, []byte("x"))
	chain := appendBytesField(nil, certFieldLeaf, leaf)
	require.Error(t, verifyCertChain(chain))
}
