// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package auth

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// ADVSignedDeviceIdentityHMAC/ADVSignedDeviceIdentity field numbers. No
// reference fragment in the pack carries WhatsApp's real ADV* schema, so
// this is a minimal, internally-consistent layout covering exactly the
// fields spec §4.6's pair-success flow names (opaque details blob, the
// account's signature and signing key, our own counter-signature).
const (
	fieldHMACDetails protowire.Number = 1
	fieldHMACValue   protowire.Number = 2

	fieldIdentityDetails         protowire.Number = 1
	fieldIdentityAccountSigKey   protowire.Number = 2
	fieldIdentityAccountSig      protowire.Number = 3
	fieldIdentityDeviceSignature protowire.Number = 4
)

type signedDeviceIdentityHMAC struct {
	details []byte
	hmac    []byte
}

func decodeSignedDeviceIdentityHMAC(data []byte) (signedDeviceIdentityHMAC, error) {
	var out signedDeviceIdentityHMAC
	out.details, _ = findBytesField(data, fieldHMACDetails)
	out.hmac, _ = findBytesField(data, fieldHMACValue)
	if len(out.details) == 0 || len(out.hmac) == 0 {
		return out, errors.New("auth: malformed device-identity HMAC envelope")
	}
	return out, nil
}

type signedDeviceIdentity struct {
	details             []byte
	accountSignatureKey []byte
	accountSignature    []byte
	deviceSignature      []byte
}

func decodeSignedDeviceIdentity(data []byte) (signedDeviceIdentity, error) {
	var out signedDeviceIdentity
	out.details, _ = findBytesField(data, fieldIdentityDetails)
	out.accountSignatureKey, _ = findBytesField(data, fieldIdentityAccountSigKey)
	out.accountSignature, _ = findBytesField(data, fieldIdentityAccountSig)
	out.deviceSignature, _ = findBytesField(data, fieldIdentityDeviceSignature)
	if len(out.details) == 0 || len(out.accountSignatureKey) == 0 || len(out.accountSignature) == 0 {
		return out, errors.New("auth: malformed signed device identity")
	}
	return out, nil
}

// encodeSignedDeviceIdentity re-serialises id. When omitAccountKey is set
// the accountSignatureKey field is dropped, matching the pair-device-sign
// reply the server expects (it already holds that key).
func encodeSignedDeviceIdentity(id signedDeviceIdentity, omitAccountKey bool) []byte {
	var out []byte
	out = appendBytesField(out, fieldIdentityDetails, id.details)
	if !omitAccountKey {
		out = appendBytesField(out, fieldIdentityAccountSigKey, id.accountSignatureKey)
	}
	out = appendBytesField(out, fieldIdentityAccountSig, id.accountSignature)
	out = appendBytesField(out, fieldIdentityDeviceSignature, id.deviceSignature)
	return out
}

func appendBytesField(dst []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return dst
	}
	dst = protowire.AppendTag(dst, num, protowire.BytesType)
	return protowire.AppendBytes(dst, v)
}

// findBytesField scans a flat protobuf message for the first
// length-delimited field with the given number, skipping everything else.
// Duplicated from internal/noise/protobuf.go's unexported helper of the
// same name rather than shared, since the two packages encode unrelated
// message families and importing noise from auth (or vice versa) would
// introduce a dependency neither package otherwise needs.
func findBytesField(data []byte, target protowire.Number) ([]byte, bool) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, false
		}
		data = data[n:]
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, false
			}
			data = data[n:]
			if num == target {
				return v, true
			}
		case protowire.VarintType:
			_, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, false
			}
			data = data[n:]
		case protowire.Fixed32Type:
			_, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return nil, false
			}
			data = data[n:]
		case protowire.Fixed64Type:
			_, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, false
			}
			data = data[n:]
		default:
			return nil, false
		}
	}
	return nil, false
}
