// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package auth

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waconnect/waconnect-go/internal/authstate"
	"github.com/waconnect/waconnect-go/internal/binary"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	provider, err := authstate.NewProvider(authstate.NewMemStore())
	require.NoError(t, err)
	return New(Config{Provider: provider})
}

func pairDeviceNode(id string, refs ...string) *binary.Node {
	var children []*binary.Node
	for _, r := range refs {
		children = append(children, &binary.Node{Tag: "ref", Content: []byte(r)})
	}
	return &binary.Node{
		Tag:   "iq",
		Attrs: map[string]string{"id": id, "type": "set"},
		Content: []*binary.Node{{
			Tag:     "pair-device",
			Content: children,
		}},
	}
}

// spec §8.3 scenario #4: a pair-device IQ with refs [R0, R1, R2] emits
// exactly one QR after the first ack, containing R0 followed by the
// base64 of the noise/identity/adv-secret keys.
func TestHandlePairDeviceAcksAndEmitsFirstQR(t *testing.T) {
	a := newTestAuthenticator(t)
	defer func() {
		a.mu.Lock()
		if a.qrTimer != nil {
			a.qrTimer.Stop()
		}
		a.mu.Unlock()
	}()

	a.HandleNode(pairDeviceNode("1", "R0", "R1", "R2"))

	ack := <-a.Events()
	require.Equal(t, EventSendNode, ack.Kind)
	require.Equal(t, "iq", ack.Node.Tag)
	require.Equal(t, "result", ack.Node.Attrs["type"])
	require.Equal(t, "1", ack.Node.Attrs["id"])

	qr := <-a.Events()
	require.Equal(t, EventConnectionUpdate, qr.Kind)
	require.True(t, strings.HasPrefix(qr.QR, "R0,"))

	creds := a.config.Provider.Creds
	wantSuffix := strings.Join([]string{
		base64.StdEncoding.EncodeToString(creds.NoiseKey.Public),
		base64.StdEncoding.EncodeToString(creds.SignedIdentityKey.Public),
		base64.StdEncoding.EncodeToString(creds.AdvSecretKey),
	}, ",")
	require.Equal(t, "R0,"+wantSuffix, qr.QR)
	require.Equal(t, StateQRShown, a.State())
}

// Ref timeouts advance through the list one at a time; exhausting the
// list without a scan is fatal and closes the connection.
func TestQRTimeoutAdvancesThenExhaustionIsFatal(t *testing.T) {
	a := newTestAuthenticator(t)
	a.HandleNode(pairDeviceNode("1", "R0", "R1"))
	<-a.Events() // ack
	first := <-a.Events()
	require.True(t, strings.HasPrefix(first.QR, "R0,"))

	a.onQRTimeout()
	second := <-a.Events()
	require.Equal(t, EventConnectionUpdate, second.Kind)
	require.True(t, strings.HasPrefix(second.QR, "R1,"))
	require.Equal(t, StateQRShown, a.State())

	a.onQRTimeout()
	closeUpdate := <-a.Events()
	require.Equal(t, EventConnectionUpdate, closeUpdate.Kind)
	require.Equal(t, "close", closeUpdate.Connection)
	require.Error(t, closeUpdate.Err)

	closeReq := <-a.Events()
	require.Equal(t, EventCloseConnection, closeReq.Kind)
	require.Equal(t, StateFailed, a.State())
}

func encodeHMACEnvelope(details, hmacValue []byte) []byte {
	var out []byte
	out = appendBytesField(out, fieldHMACDetails, details)
	out = appendBytesField(out, fieldHMACValue, hmacValue)
	return out
}

// spec §8.3 scenario #5: a pair-success whose device-identity HMAC does
// not match AdvSecretKey must not produce a reply stanza nor mutate
// creds, and must close the connection.
func TestPairSuccessHMACMismatchRejected(t *testing.T) {
	a := newTestAuthenticator(t)

	envelope := encodeHMACEnvelope([]byte("fake-details"), []byte("not-the-real-hmac-value-000000000"))
	n := &binary.Node{
		Tag:   "iq",
		Attrs: map[string]string{"id": "2", "type": "result"},
		Content: []*binary.Node{{
			Tag: "pair-success",
			Content: []*binary.Node{
				{Tag: "device-identity", Attrs: map[string]string{"key-index": "1"}, Content: envelope},
				{Tag: "platform", Attrs: map[string]string{"name": "android"}},
				{Tag: "device", Attrs: map[string]string{"jid": "15551234567@s.whatsapp.net"}},
			},
		}},
	}

	a.HandleNode(n)

	update := <-a.Events()
	require.Equal(t, EventConnectionUpdate, update.Kind)
	require.Equal(t, "close", update.Connection)
	require.Error(t, update.Err)

	closeReq := <-a.Events()
	require.Equal(t, EventCloseConnection, closeReq.Kind)

	select {
	case ev := <-a.Events():
		t.Fatalf("expected no further events, got %s", ev.Kind)
	default:
	}

	creds := a.config.Provider.Creds
	require.False(t, creds.Registered)
	require.Nil(t, creds.Me)
	require.Nil(t, creds.Account)
	require.Equal(t, StateFailed, a.State())
}

func TestBuildClientPayloadChoosesLoginVsRegister(t *testing.T) {
	a := newTestAuthenticator(t)

	registerPayload, err := a.BuildClientPayload()
	require.NoError(t, err)
	require.NotEmpty(t, registerPayload)

	creds := a.config.Provider.Creds
	creds.Registered = true
	creds.Account = []byte("acct")
	creds.Me = &authstate.Me{ID: mustJID(t, "15551234567@s.whatsapp.net")}

	loginPayload, err := a.BuildClientPayload()
	require.NoError(t, err)
	require.NotEmpty(t, loginPayload)
	require.NotEqual(t, registerPayload, loginPayload)
}

// A <success/> on an already-registered session reconciles platform and
// pushname into creds and reports the connection open (spec §4.6).
func TestHandleLoginSuccessReconcilesCreds(t *testing.T) {
	a := newTestAuthenticator(t)
	creds := a.config.Provider.Creds
	creds.Me = &authstate.Me{ID: mustJID(t, "15551234567@s.whatsapp.net")}

	a.HandleNode(&binary.Node{
		Tag:   "success",
		Attrs: map[string]string{"platform": "android", "pushname": "Ada"},
	})

	credsUpdate := <-a.Events()
	require.Equal(t, EventCredsUpdate, credsUpdate.Kind)

	connUpdate := <-a.Events()
	require.Equal(t, EventConnectionUpdate, connUpdate.Kind)
	require.Equal(t, "open", connUpdate.Connection)

	require.Equal(t, "android", creds.Platform)
	require.Equal(t, "Ada", creds.Me.Name)
	require.True(t, creds.Registered)
	require.Equal(t, StateAuthenticated, a.State())
}

// spec §4.6/§6.3: the server reports a failed login as <fail reason=.../>,
// not <failure .../>. HandleNode must dispatch on the real tag.
func TestHandleNodeDispatchesFailTag(t *testing.T) {
	a := newTestAuthenticator(t)

	a.HandleNode(&binary.Node{
		Tag:   "fail",
		Attrs: map[string]string{"reason": "401"},
	})

	update := <-a.Events()
	require.Equal(t, EventConnectionUpdate, update.Kind)
	require.Equal(t, "close", update.Connection)
	require.ErrorContains(t, update.Err, "401")

	closeReq := <-a.Events()
	require.Equal(t, EventCloseConnection, closeReq.Kind)
	require.Equal(t, StateFailed, a.State())
}

// A <fail/> with no reason attribute defaults to 401.
func TestHandleLoginFailureDefaultsReason(t *testing.T) {
	a := newTestAuthenticator(t)

	a.HandleNode(&binary.Node{Tag: "fail"})

	update := <-a.Events()
	require.ErrorContains(t, update.Err, "401")
	<-a.Events() // EventCloseConnection
	require.Equal(t, StateFailed, a.State())
}

func mustJID(t *testing.T, s string) binary.JID {
	t.Helper()
	jid, ok := binary.ParseJID(s)
	require.True(t, ok)
	return jid
}
