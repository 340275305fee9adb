package binary

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, n *Node) *Node {
	t.Helper()
	encoded, err := Encode(n)
	require.NoError(t, err)
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	return decoded
}

func requireNodeEqual(t *testing.T, want, got *Node) {
	t.Helper()
	require.Equal(t, want.Tag, got.Tag)
	if len(want.Attrs) == 0 {
		require.Empty(t, got.Attrs)
	} else {
		require.Equal(t, want.Attrs, got.Attrs)
	}
	switch wc := want.Content.(type) {
	case nil:
		require.Nil(t, got.Content)
	case string:
		require.Equal(t, wc, got.Content)
	case []byte:
		require.Equal(t, wc, got.Content)
	case []*Node:
		gc, ok := got.Content.([]*Node)
		require.True(t, ok)
		require.Len(t, gc, len(wc))
		for i := range wc {
			requireNodeEqual(t, wc[i], gc[i])
		}
	default:
		t.Fatalf("unexpected content type %T", wc)
	}
}

func TestEmptyNodeRoundTrip(t *testing.T) {
	// Literal scenario from spec §8.3.1 / §8.3.3.1
	n := &Node{
		Tag: "iq",
		Attrs: map[string]string{
			"to":   "@s.whatsapp.net",
			"type": "result",
			"id":   "1678549119",
		},
	}
	got := roundTrip(t, n)
	requireNodeEqual(t, n, got)
}

func TestNodeWithChildrenRoundTrip(t *testing.T) {
	n := &Node{
		Tag:   "iq",
		Attrs: map[string]string{"type": "set", "id": "abc123", "to": ServerUser},
		Content: []*Node{
			{Tag: "pair-device", Content: []*Node{
				{Tag: "ref", Content: []byte("R0")},
				{Tag: "ref", Content: []byte("R1")},
			}},
		},
	}
	got := roundTrip(t, n)
	requireNodeEqual(t, n, got)
}

func TestNodeWithJIDContent(t *testing.T) {
	n := &Node{
		Tag:     "message",
		Attrs:   map[string]string{"from": "12345:1@s.whatsapp.net"},
		Content: "98765@g.us",
	}
	got := roundTrip(t, n)
	requireNodeEqual(t, n, got)
}

func TestNodeWithBinaryContent(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i)
	}
	n := &Node{Tag: "device-identity", Content: data}
	got := roundTrip(t, n)
	requireNodeEqual(t, n, got)
}

func TestListSizeBoundaries(t *testing.T) {
	sizes := []int{0, 1, 255, 256, 65535}
	for _, size := range sizes {
		children := make([]*Node, size)
		for i := range children {
			children[i] = &Node{Tag: "item"}
		}
		n := &Node{Tag: "list", Content: children}
		got := roundTrip(t, n)
		requireNodeEqual(t, n, got)
	}
}

func TestByteLengthBoundaries(t *testing.T) {
	lengths := []int{255, 256, (1 << 20) - 1, 1 << 20}
	for _, l := range lengths {
		data := make([]byte, l)
		n := &Node{Tag: "blob", Content: data}
		got := roundTrip(t, n)
		requireNodeEqual(t, n, got)
	}
}

func TestDecodeRejectsMissingFrameMarker(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02})
	require.Error(t, err)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, 0, derr.Offset)
}

func TestDecodeRejectsTruncatedStream(t *testing.T) {
	n := &Node{Tag: "iq", Attrs: map[string]string{"id": "1"}}
	encoded, err := Encode(n)
	require.NoError(t, err)
	_, err = Decode(encoded[:len(encoded)-1])
	require.Error(t, err)
}

func TestDecodeRejectsUnknownDictionaryIndex(t *testing.T) {
	encoded := []byte{tagListEmpty, tagList8, 0x01, tagDictionary0, 0xFF}
	_, err := Decode(encoded)
	require.Error(t, err)
}

func TestParseJIDRejectsNonJID(t *testing.T) {
	_, ok := ParseJID("not-a-jid")
	require.False(t, ok)
}

func TestADJIDRoundTrip(t *testing.T) {
	n := &Node{
		Tag:     "receipt",
		Attrs:   map[string]string{"from": "5551234.1:7@lid"},
		Content: nil,
	}
	got := roundTrip(t, n)
	requireNodeEqual(t, n, got)
}
