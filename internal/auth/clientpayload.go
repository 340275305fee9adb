// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package auth

import (
	"crypto/md5"
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/waconnect/waconnect-go/internal/authstate"
)

// ClientPayload field numbers. Like deviceidentity.go, this is a
// hand-designed layout: no pack fragment carries WhatsApp's real
// ClientPayload schema, so the numbering below is internally consistent
// and covers exactly the fields spec §4.6's "sending the initial client
// payload" paragraph names.
const (
	fieldPayloadUsername       protowire.Number = 1
	fieldPayloadPassive        protowire.Number = 2
	fieldPayloadUserAgent      protowire.Number = 3
	fieldPayloadWebInfo        protowire.Number = 4
	fieldPayloadConnectReason  protowire.Number = 5
	fieldPayloadConnectType    protowire.Number = 6
	fieldPayloadDevice         protowire.Number = 7
	fieldPayloadPull           protowire.Number = 8
	fieldPayloadPairingData    protowire.Number = 9

	fieldUserAgentPlatform protowire.Number = 1

	fieldPairingBuildHash   protowire.Number = 1
	fieldPairingDeviceProps protowire.Number = 2
	fieldPairingERegID      protowire.Number = 3
	fieldPairingEKeyType    protowire.Number = 4
	fieldPairingEIdent      protowire.Number = 5
	fieldPairingESkeyID     protowire.Number = 6
	fieldPairingESkeyVal    protowire.Number = 7
	fieldPairingESkeySig    protowire.Number = 8
)

// Enum values for ConnectReason/ConnectType. WhatsApp's web client always
// reports these two for a fresh browser-style connection.
const (
	connectReasonUserActivated = 0
	connectTypeWifiUnknown     = 0
)

func appendVarintField(dst []byte, num protowire.Number, v uint64) []byte {
	dst = protowire.AppendTag(dst, num, protowire.VarintType)
	return protowire.AppendVarint(dst, v)
}

func encodeUserAgent() []byte {
	var out []byte
	out = appendBytesField(out, fieldUserAgentPlatform, []byte("waconnect"))
	return out
}

func encodeWebInfo() []byte {
	// No fields of WebInfo are consulted anywhere else in the system;
	// an empty message is a valid, self-describing placeholder.
	return nil
}

// buildLoginPayload encodes the ClientPayload sent when resuming an
// already-registered session (spec §4.6).
func buildLoginPayload(username uint64, device uint16) []byte {
	var out []byte
	out = appendVarintField(out, fieldPayloadUsername, username)
	out = appendBytesField(out, fieldPayloadUserAgent, encodeUserAgent())
	out = appendBytesField(out, fieldPayloadWebInfo, encodeWebInfo())
	out = appendVarintField(out, fieldPayloadConnectReason, connectReasonUserActivated)
	out = appendVarintField(out, fieldPayloadConnectType, connectTypeWifiUnknown)
	out = appendVarintField(out, fieldPayloadDevice, uint64(device))
	out = appendVarintField(out, fieldPayloadPull, 1)
	return out
}

// buildRegisterPayload encodes the ClientPayload sent while pairing a new
// device: the login fields plus devicePairingData describing our freshly
// generated identity/signed-pre-key material (spec §3.1, §4.6).
func buildRegisterPayload(versionParts []string, registrationID uint16, identityPub []byte, signedPreKey authstate.SignedPreKey) []byte {
	var out []byte
	out = appendBytesField(out, fieldPayloadUserAgent, encodeUserAgent())
	out = appendBytesField(out, fieldPayloadWebInfo, encodeWebInfo())
	out = appendVarintField(out, fieldPayloadConnectReason, connectReasonUserActivated)
	out = appendVarintField(out, fieldPayloadConnectType, connectTypeWifiUnknown)
	out = appendVarintField(out, fieldPayloadPassive, 0)
	out = appendVarintField(out, fieldPayloadPull, 0)
	out = appendBytesField(out, fieldPayloadPairingData, encodeDevicePairingData(versionParts, registrationID, identityPub, signedPreKey))
	return out
}

func encodeDevicePairingData(versionParts []string, registrationID uint16, identityPub []byte, signedPreKey authstate.SignedPreKey) []byte {
	buildHash := md5BuildHash(versionParts)

	var eRegID [4]byte
	binary.BigEndian.PutUint32(eRegID[:], uint32(registrationID))

	var eSkeyID [3]byte
	eSkeyID[0] = byte(signedPreKey.KeyID >> 16)
	eSkeyID[1] = byte(signedPreKey.KeyID >> 8)
	eSkeyID[2] = byte(signedPreKey.KeyID)

	var out []byte
	out = appendBytesField(out, fieldPairingBuildHash, buildHash[:])
	out = appendBytesField(out, fieldPairingDeviceProps, encodeDeviceProps())
	out = appendBytesField(out, fieldPairingERegID, eRegID[:])
	out = appendBytesField(out, fieldPairingEKeyType, []byte{0x05})
	out = appendBytesField(out, fieldPairingEIdent, identityPub)
	out = appendBytesField(out, fieldPairingESkeyID, eSkeyID[:])
	out = appendBytesField(out, fieldPairingESkeyVal, signedPreKey.KeyPair.Public)
	out = appendBytesField(out, fieldPairingESkeySig, signedPreKey.Signature)
	return out
}

func md5BuildHash(versionParts []string) [md5.Size]byte {
	joined := ""
	for i, p := range versionParts {
		if i > 0 {
			joined += "."
		}
		joined += p
	}
	return md5.Sum([]byte(joined))
}

const devicePropsOS = "waconnect"

// encodeDeviceProps is a minimal placeholder: spec.md does not define
// DeviceProps's internal shape beyond "serialized device metadata", so
// this carries only the one field anything downstream reads.
func encodeDeviceProps() []byte {
	var out []byte
	out = appendBytesField(out, 1, []byte(devicePropsOS))
	return out
}
