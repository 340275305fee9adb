// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package auth

import (
	"crypto/hmac"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/waconnect/waconnect-go/internal/authstate"
	"github.com/waconnect/waconnect-go/internal/binary"
	"github.com/waconnect/waconnect-go/internal/crypto"
)

// firstQRTimeout/refreshQRTimeout are the per-ref display windows spec
// §4.6/§8.3's QR scenario name: the first ref gets a longer window since
// it's the one a human has to scan, later refreshes cycle faster.
const (
	firstQRTimeout   = 60 * time.Second
	refreshQRTimeout = 20 * time.Second
)

// Config configures an Authenticator.
type Config struct {
	Provider *authstate.Provider
	Logger   *zap.SugaredLogger
	// VersionParts is the client version reported in devicePairingData's
	// buildHash (e.g. {"2", "3000", "0"}).
	VersionParts []string
}

func (c *Config) setDefaults() {
	if c.VersionParts == nil {
		c.VersionParts = []string{"2", "3000", "0"}
	}
}

// Authenticator drives the authenticator half of spec §3.5/§4.6: the
// pair-device QR flow, pair-success identity exchange, and login
// success/failure handling. It never touches the transport directly —
// outbound stanzas and connection teardown requests are surfaced as
// events for the wiring layer to apply against a waconn.Manager.
type Authenticator struct {
	config Config

	mu    sync.Mutex
	state State

	refs     []string
	refIndex int
	qrRetry  int
	qrTimer  *time.Timer

	processingPairSuccess bool

	events chan Event
}

// New constructs an Authenticator bound to provider's credentials.
func New(config Config) *Authenticator {
	config.setDefaults()
	return &Authenticator{
		config: config,
		state:  StateIdle,
		events: make(chan Event, 32),
	}
}

func (a *Authenticator) Events() <-chan Event { return a.events }

func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Authenticator) emit(e Event) {
	select {
	case a.events <- e:
	default:
		if a.config.Logger != nil {
			a.config.Logger.Warnf("auth: event channel full, dropping %s", e.Kind)
		}
	}
}

func (a *Authenticator) log() *zap.SugaredLogger { return a.config.Logger }

// fail moves the authenticator to StateFailed, reports err to the host,
// and asks the wiring layer to tear the connection down. Callers must
// hold a.mu.
func (a *Authenticator) fail(err error) {
	a.state = StateFailed
	a.emit(Event{Kind: EventConnectionUpdate, Connection: "close", Err: err})
	a.emit(Event{Kind: EventCloseConnection, Cause: err})
}

// HandleNode dispatches an inbound stanza to the relevant handler. Nodes
// outside the authenticator's vocabulary are ignored; everything else
// (message delivery, presence, receipts...) is out of scope per spec.md's
// Non-goals and is the concern of a higher layer this package doesn't own.
func (a *Authenticator) HandleNode(n *binary.Node) {
	if n == nil {
		return
	}
	switch {
	case n.Tag == "iq" && childByTag(n, "pair-device") != nil:
		a.handlePairDevice(n)
	case n.Tag == "iq" && childByTag(n, "pair-success") != nil:
		a.handlePairSuccess(n)
	case n.Tag == "success":
		a.handleLoginSuccess(n)
	case n.Tag == "fail":
		a.handleLoginFailure(n)
	}
}

// handlePairDevice processes the server's initial <iq type="set"><pair-device>
// offer: acknowledge it, capture the ordered ref list, and start emitting
// QR strings (spec §4.6, §8.3 scenario #4).
func (a *Authenticator) handlePairDevice(n *binary.Node) {
	a.emit(Event{Kind: EventSendNode, Node: &binary.Node{
		Tag:   "iq",
		Attrs: map[string]string{"id": attr(n, "id"), "type": "result"},
	}})

	pairDevice := childByTag(n, "pair-device")
	var refs []string
	for _, c := range childNodes(pairDevice) {
		if c.Tag == "ref" {
			refs = append(refs, string(contentBytes(c)))
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.refs = refs
	a.refIndex = 0
	a.qrRetry = 0
	a.state = StateAwaitingQR
	a.emitNextQRLocked(true)
}

// emitNextQRLocked emits the QR string for the current ref and arms the
// timeout that advances to the next ref. Exhausting the ref list without
// a scan is fatal (spec §4.6). Callers must hold a.mu.
func (a *Authenticator) emitNextQRLocked(first bool) {
	if a.refIndex >= len(a.refs) {
		a.fail(fmt.Errorf("auth: exhausted pairing refs without a scan"))
		return
	}
	creds := a.config.Provider.Creds
	ref := a.refs[a.refIndex]
	qr := strings.Join([]string{
		ref,
		base64.StdEncoding.EncodeToString(creds.NoiseKey.Public),
		base64.StdEncoding.EncodeToString(creds.SignedIdentityKey.Public),
		base64.StdEncoding.EncodeToString(creds.AdvSecretKey),
	}, ",")
	a.emit(Event{Kind: EventConnectionUpdate, QR: qr})

	a.state = StateQRShown

	timeout := refreshQRTimeout
	if first {
		timeout = firstQRTimeout
	}
	if a.qrTimer != nil {
		a.qrTimer.Stop()
	}
	a.qrTimer = time.AfterFunc(timeout, a.onQRTimeout)
}

func (a *Authenticator) onQRTimeout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateQRShown {
		return
	}
	a.qrRetry++
	a.refIndex++
	a.emitNextQRLocked(false)
}

// handlePairSuccess verifies the server's signed identity bundle and
// counter-signs it, completing the pairing exchange (spec §4.6, §8.1's
// universal invariant that a verification failure here must neither send
// a reply nor mutate creds, and §8.3 scenario #5).
func (a *Authenticator) handlePairSuccess(n *binary.Node) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.processingPairSuccess {
		return
	}
	a.processingPairSuccess = true

	if a.qrTimer != nil {
		a.qrTimer.Stop()
	}
	a.state = StateAwaitingPairSuccess

	pairSuccess := childByTag(n, "pair-success")
	deviceIdentityNode := childByTag(pairSuccess, "device-identity")
	platform := attr(childByTag(pairSuccess, "platform"), "name")
	jidStr := attr(childByTag(pairSuccess, "device"), "jid")
	bizName := attr(childByTag(pairSuccess, "biz"), "name")
	keyIndex := attr(deviceIdentityNode, "key-index")

	creds := a.config.Provider.Creds

	envelope, err := decodeSignedDeviceIdentityHMAC(contentBytes(deviceIdentityNode))
	if err != nil {
		a.fail(fmt.Errorf("auth: pair-success device-identity: %w", err))
		return
	}

	expectedHMAC := crypto.HMACSHA256(creds.AdvSecretKey, envelope.details)
	if !hmac.Equal(expectedHMAC, envelope.hmac) {
		a.fail(fmt.Errorf("auth: pair-success HMAC mismatch"))
		return
	}

	identity, err := decodeSignedDeviceIdentity(envelope.details)
	if err != nil {
		a.fail(fmt.Errorf("auth: pair-success signed identity: %w", err))
		return
	}

	accountMsg := signedIdentityMessage(0x00, identity.details, creds.SignedIdentityKey.Public)
	if !crypto.Verify(identity.accountSignatureKey, accountMsg, identity.accountSignature) {
		a.fail(fmt.Errorf("auth: pair-success account signature verification failed"))
		return
	}

	jid, ok := binary.ParseJID(jidStr)
	if !ok {
		a.fail(fmt.Errorf("auth: pair-success device jid %q is invalid", jidStr))
		return
	}

	deviceMsg := signedIdentityMessage(0x01, identity.details, creds.SignedIdentityKey.Public, identity.accountSignatureKey)
	deviceSignature, err := crypto.Sign(creds.SignedIdentityKey.Private, deviceMsg)
	if err != nil {
		a.fail(fmt.Errorf("auth: signing device identity: %w", err))
		return
	}
	identity.deviceSignature = deviceSignature

	creds.Me = &authstate.Me{ID: jid, Name: bizName}
	creds.SignalIdentities = append(creds.SignalIdentities, authstate.SignalIdentity{
		Name: jid.String(), DeviceID: 0, IdentifierKey: identity.accountSignatureKey,
	})
	creds.Platform = platform
	creds.Registered = true
	creds.Account = encodeSignedDeviceIdentity(identity, false)

	reply := &binary.Node{
		Tag:   "iq",
		Attrs: map[string]string{"id": attr(n, "id"), "type": "result"},
		Content: []*binary.Node{{
			Tag: "pair-device-sign",
			Content: []*binary.Node{{
				Tag:     "device-identity",
				Attrs:   map[string]string{"key-index": keyIndex},
				Content: encodeSignedDeviceIdentity(identity, true),
			}},
		}},
	}

	a.state = StateAuthenticated
	a.emit(Event{Kind: EventSendNode, Node: reply})
	a.emit(Event{Kind: EventCredsUpdate})
	a.emit(Event{Kind: EventConnectionUpdate, Connection: "open", IsNewLogin: true})
}

// signedIdentityMessage builds the byte string XEdDSA signs/verifies over
// for the pair-success exchange: a one-byte message type, a one-byte
// direction tag, and the concatenated parts.
func signedIdentityMessage(direction byte, parts ...[]byte) []byte {
	msg := []byte{0x06, direction}
	for _, p := range parts {
		msg = append(msg, p...)
	}
	return msg
}

// handleLoginSuccess processes the server's <success/> after a resumed
// (already-registered) connection (spec §4.6).
func (a *Authenticator) handleLoginSuccess(n *binary.Node) {
	a.mu.Lock()
	defer a.mu.Unlock()

	creds := a.config.Provider.Creds
	if platform := attr(n, "platform"); platform != "" {
		creds.Platform = platform
	}
	if pushname := attr(n, "pushname"); pushname != "" && creds.Me != nil {
		creds.Me.Name = pushname
	}
	creds.Registered = true

	a.state = StateAuthenticated
	a.emit(Event{Kind: EventCredsUpdate})
	a.emit(Event{Kind: EventConnectionUpdate, Connection: "open"})
}

// handleLoginFailure processes the server's <fail reason=.../>.
func (a *Authenticator) handleLoginFailure(n *binary.Node) {
	a.mu.Lock()
	defer a.mu.Unlock()

	code := 401
	if reason := attr(n, "reason"); reason != "" {
		if parsed, err := strconv.Atoi(reason); err == nil {
			code = parsed
		}
	}
	a.fail(fmt.Errorf("auth: login failed with reason %d", code))
}

// BuildClientPayload implements waconn.ClientPayloadBuilder: it encodes
// the login or register ClientPayload depending on whether Creds already
// represents a registered account (spec §4.6 "sending the initial client
// payload").
func (a *Authenticator) BuildClientPayload() ([]byte, error) {
	a.mu.Lock()
	if a.state == StateIdle {
		a.state = StateHandshaking
	}
	a.mu.Unlock()

	creds := a.config.Provider.Creds
	if creds.IsRegistered() {
		username, err := strconv.ParseUint(creds.Me.ID.User, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("auth: me.id user %q is not numeric: %w", creds.Me.ID.User, err)
		}
		return buildLoginPayload(username, creds.Me.ID.Device), nil
	}
	return buildRegisterPayload(a.config.VersionParts, creds.RegistrationID, creds.SignedIdentityKey.Public, creds.SignedPreKey), nil
}
