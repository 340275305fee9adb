package framing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var testPrologue = []byte{'W', 'A', 0x06, 0x02}

func TestPushPrependsPreambleOnlyOnce(t *testing.T) {
	h := New(testPrologue, nil)

	first, err := h.Push([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, testPrologue, first[:len(testPrologue)])
	require.True(t, h.HasSentPreamble())

	second, err := h.Push([]byte("world"))
	require.NoError(t, err)
	require.NotEqual(t, testPrologue, second[:min(len(testPrologue), len(second))])
}

func TestPushWithRoutingInfoHeader(t *testing.T) {
	routing := []byte("route-me")
	h := New(testPrologue, routing)

	frame, err := h.Push([]byte("p"))
	require.NoError(t, err)

	require.Equal(t, byte('E'), frame[0])
	require.Equal(t, byte('D'), frame[1])
	require.Equal(t, byte(0x00), frame[2])
	require.Equal(t, byte(0x01), frame[3])
	length := int(frame[4])<<16 | int(frame[5])<<8 | int(frame[6])
	require.Equal(t, len(routing), length)
	require.Equal(t, routing, frame[7:7+len(routing)])
	require.Equal(t, testPrologue, frame[7+len(routing):7+len(routing)+len(testPrologue)])
}

func TestPushRejectsOversizedFrame(t *testing.T) {
	h := New(testPrologue, nil)
	_, err := h.Push(make([]byte, MaxFrameSize+1))
	require.Error(t, err)
}

func TestPullRoundTripSingleFrame(t *testing.T) {
	h := New(testPrologue, nil)
	payload := []byte("a complete stanza frame")
	wire, err := h.Push(payload)
	require.NoError(t, err)

	// Strip the preamble: it is only ever written outbound, so the inbound
	// side never sees one.
	wire = wire[len(testPrologue):]

	frames, err := h.Pull(wire)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, payload, frames[0])
	require.Equal(t, 0, h.Pending())
}

func TestPullBuffersPartialFrames(t *testing.T) {
	h := New(testPrologue, nil)
	payload := []byte("split across multiple reads")
	var lenPrefix [3]byte
	lenPrefix[0] = byte(len(payload) >> 16)
	lenPrefix[1] = byte(len(payload) >> 8)
	lenPrefix[2] = byte(len(payload))
	wire := append(lenPrefix[:], payload...)

	// Feed it back one byte at a time; no frame should emit until the
	// last byte arrives.
	var all [][]byte
	for i := 0; i < len(wire); i++ {
		frames, err := h.Pull(wire[i : i+1])
		require.NoError(t, err)
		all = append(all, frames...)
	}
	require.Len(t, all, 1)
	require.Equal(t, payload, all[0])
}

func TestPullHandlesZeroAndOneByteFrames(t *testing.T) {
	h := New(testPrologue, nil)
	empty := []byte{0x00, 0x00, 0x00}
	single := []byte{0x00, 0x00, 0x01, 'x'}
	wire := append(append([]byte{}, empty...), single...)

	frames, err := h.Pull(wire)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, []byte{}, frames[0])
	require.Equal(t, []byte("x"), frames[1])
}

func TestPushAcceptsPayloadAtMaxFrameSize(t *testing.T) {
	h := New(testPrologue, nil)
	// MaxFrameSize is the largest length the 3-byte prefix can carry,
	// 2^24 - 1; a payload of exactly that size is accepted.
	require.Equal(t, 1<<24-1, MaxFrameSize)
	_, err := h.Push(make([]byte, MaxFrameSize))
	require.NoError(t, err)
}

func TestFrameByteFidelityAcrossArbitraryChunking(t *testing.T) {
	h := New(testPrologue, nil)
	payloads := [][]byte{
		[]byte("first"),
		{},
		[]byte("third is a bit longer than the others"),
		make([]byte, 300),
	}

	var wire []byte
	for i, p := range payloads {
		frame, err := h.Push(p)
		require.NoError(t, err)
		if i == 0 {
			frame = frame[len(testPrologue):]
		}
		wire = append(wire, frame...)
	}

	// Feed the concatenated wire bytes in uneven chunk sizes.
	puller := New(testPrologue, nil)
	var got [][]byte
	chunkSizes := []int{1, 2, 3, 5, 7, 11}
	pos := 0
	i := 0
	for pos < len(wire) {
		size := chunkSizes[i%len(chunkSizes)]
		i++
		if pos+size > len(wire) {
			size = len(wire) - pos
		}
		frames, err := puller.Pull(wire[pos : pos+size])
		require.NoError(t, err)
		got = append(got, frames...)
		pos += size
	}

	require.Len(t, got, len(payloads))
	for i, p := range payloads {
		require.Equal(t, p, got[i])
	}
}
