// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package noise

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// HandshakeMessage field numbers.
const (
	fieldClientHello  protowire.Number = 2
	fieldServerHello  protowire.Number = 3
	fieldClientFinish protowire.Number = 4
)

// ClientHello/ServerHello/ClientFinish inner message field numbers.
const (
	fieldEphemeral protowire.Number = 1
	fieldStatic    protowire.Number = 2
	fieldPayload   protowire.Number = 3
)

func appendBytesField(dst []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return dst
	}
	dst = protowire.AppendTag(dst, num, protowire.BytesType)
	return protowire.AppendBytes(dst, v)
}

// encodeClientHello wraps an ephemeral public key as HandshakeMessage.ClientHello.
func encodeClientHello(ephemeral []byte) []byte {
	inner := appendBytesField(nil, fieldEphemeral, ephemeral)
	return appendBytesField(nil, fieldClientHello, inner)
}

// encodeClientFinish wraps the encrypted static key and payload as
// HandshakeMessage.ClientFinish.
func encodeClientFinish(encryptedStatic, encryptedPayload []byte) []byte {
	var inner []byte
	inner = appendBytesField(inner, fieldStatic, encryptedStatic)
	inner = appendBytesField(inner, fieldPayload, encryptedPayload)
	return appendBytesField(nil, fieldClientFinish, inner)
}

type serverHello struct {
	ephemeral []byte
	static    []byte
	payload   []byte
}

// decodeServerHello extracts the ServerHello fields from a HandshakeMessage.
// The server is free to send the ServerHello either wrapped in the
// HandshakeMessage envelope or bare; both are accepted.
func decodeServerHello(data []byte) (serverHello, error) {
	body, ok := findBytesField(data, fieldServerHello)
	if !ok {
		body = data
	}
	var out serverHello
	out.ephemeral, _ = findBytesField(body, fieldEphemeral)
	out.static, _ = findBytesField(body, fieldStatic)
	out.payload, _ = findBytesField(body, fieldPayload)
	if len(out.ephemeral) == 0 {
		return out, errors.New("noise: ServerHello missing ephemeral key")
	}
	return out, nil
}

// findBytesField scans a flat protobuf message for the first length-delimited
// field with the given number, skipping over everything else.
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

// findVarintField scans a flat protobuf message for the first varint field
// with the given number.
func findVarintField(data []byte, target protowire.Number) (uint64, bool) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return 0, false
		}
		data = data[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return 0, false
			}
			data = data[n:]
			if num == target {
				return v, true
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return 0, false
			}
			data = data[n:]
			_ = v
		case protowire.Fixed32Type:
			_, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return 0, false
			}
			data = data[n:]
		case protowire.Fixed64Type:
			_, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return 0, false
			}
			data = data[n:]
		default:
			return 0, false
		}
	}
	return 0, false
}
