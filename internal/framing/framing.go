// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

// Package framing implements the 3-byte length-prefixed frame transport with
// its one-time routing/prologue preamble. It is deliberately independent of
// the Noise processor (spec §2 draws these as separate components): it knows
// nothing about encryption, only byte boundaries.
package framing

import (
	"encoding/binary"
	"fmt"
)

// MaxFrameSize is the largest payload the 3-byte length prefix can address
// (2^24 - 1 bytes); anything above this is rejected (spec §8.2).
const MaxFrameSize = 1<<24 - 1

// Handler pushes outbound frames and pulls inbound frames over a byte
// transport, prepending the one-time preamble on the very first write and
// buffering partial reads until a full frame is available.
type Handler struct {
	prologue []byte
	routing  []byte

	hasSentPreamble bool
	buf             []byte
}

// New creates a frame handler that prepends prologue as the handshake
// prologue tag, optionally preceded by a routing-info header when routing is
// non-empty (spec §4.4 outbound preamble).
func New(prologue, routing []byte) *Handler {
	return &Handler{prologue: prologue, routing: routing}
}

// Push returns the bytes to write to the transport for one outbound
// payload: the preamble (only on the first call), then a 3-byte big-endian
// length prefix, then payload itself.
func (h *Handler) Push(payload []byte) ([]byte, error) {
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("framing: payload of %d bytes exceeds max frame size %d", len(payload), MaxFrameSize)
	}

	var out []byte
	if !h.hasSentPreamble {
		out = append(out, h.preambleBytes()...)
		h.hasSentPreamble = true
	}

	var lenPrefix [3]byte
	lenPrefix[0] = byte(len(payload) >> 16)
	binary.BigEndian.PutUint16(lenPrefix[1:], uint16(len(payload)&0xFFFF))

	out = append(out, lenPrefix[:]...)
	out = append(out, payload...)
	return out, nil
}

// preambleBytes builds the one-time preamble: routing header (if any) then
// the prologue, per spec §4.4.
func (h *Handler) preambleBytes() []byte {
	if len(h.routing) == 0 {
		return h.prologue
	}
	// "ED" 0x00 0x01 len_be_u24(|routing|), then routing, then prologue.
	out := make([]byte, 0, 7+len(h.routing)+len(h.prologue))
	out = append(out, 'E', 'D', 0x00, 0x01)
	out = append(out, byte(len(h.routing)>>16), byte(len(h.routing)>>8), byte(len(h.routing)))
	out = append(out, h.routing...)
	out = append(out, h.prologue...)
	return out
}

// Pull appends newly received bytes to the internal buffer and extracts as
// many complete frames as are now available. Each returned slice is a fresh
// copy, safe to retain past the next Pull call.
func (h *Handler) Pull(data []byte) ([][]byte, error) {
	h.buf = append(h.buf, data...)

	var frames [][]byte
	for {
		if len(h.buf) < 3 {
			break
		}
		size := int(h.buf[0])<<16 | int(binary.BigEndian.Uint16(h.buf[1:3]))
		if size > MaxFrameSize {
			return frames, fmt.Errorf("framing: advertised frame size %d exceeds max %d", size, MaxFrameSize)
		}
		if len(h.buf) < 3+size {
			break
		}

		frame := make([]byte, size)
		copy(frame, h.buf[3:3+size])
		frames = append(frames, frame)

		h.buf = h.buf[3+size:]
	}
	return frames, nil
}

// HasSentPreamble reports whether the first outbound frame (and its
// preamble) has already been written.
func (h *Handler) HasSentPreamble() bool {
	return h.hasSentPreamble
}

// Pending returns the number of bytes currently buffered awaiting a
// complete frame.
func (h *Handler) Pending() int {
	return len(h.buf)
}
