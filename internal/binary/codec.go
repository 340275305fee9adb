// Package binary implements WhatsApp's compact, XML-like binary stanza
// codec: a framing byte, list/string/byte length prefixes, a token
// dictionary, and JID packing. See spec §3.4, §4.2.
package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// Node is a tagged, attributed tree node — the application-layer stanza.
// Content is exactly one of nil, []*Node, string, or []byte.
type Node struct {
	Tag     string
	Attrs   map[string]string
	Content any
}

var (
	singleByteIndex = map[string]byte{}
	doubleByteIndex = map[string]struct {
		table byte
		index byte
	}{}
)

func init() {
	for i, s := range singleByteTokens {
		if s == "" {
			continue
		}
		singleByteIndex[s] = byte(i)
	}
	for t := 0; t < 4; t++ {
		for i, s := range doubleByteTables[t] {
			if s == "" {
				continue
			}
			doubleByteIndex[s] = struct {
				table byte
				index byte
			}{byte(t), byte(i)}
		}
	}
}

// Encode serialises a Node into the wire format, including the leading
// 0x00 frame marker.
func Encode(n *Node) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte(tagListEmpty)
	if err := encodeNodeBody(buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a single wire-format Node, including its leading 0x00
// frame marker.
func Decode(data []byte) (*Node, error) {
	r := bytes.NewReader(data)
	b, err := r.ReadByte()
	if err != nil {
		return nil, decodeErr(0, "empty input")
	}
	if b != tagListEmpty {
		return nil, decodeErr(0, "expected frame marker 0x00, got 0x%02x", b)
	}
	return decodeNodeBody(r, data)
}

func encodeNodeBody(buf *bytes.Buffer, n *Node) error {
	numAttrs := len(n.Attrs)
	hasContent := n.Content != nil

	size := 1 + 2*numAttrs
	if hasContent {
		size++
	}
	writeListStart(buf, size)

	if err := writeString(buf, n.Tag); err != nil {
		return err
	}

	keys := make([]string, 0, numAttrs)
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writeString(buf, k); err != nil {
			return err
		}
		if err := writeString(buf, n.Attrs[k]); err != nil {
			return err
		}
	}

	if !hasContent {
		return nil
	}

	switch content := n.Content.(type) {
	case []*Node:
		writeListStart(buf, len(content))
		for _, child := range content {
			if err := encodeNodeBody(buf, child); err != nil {
				return err
			}
		}
	case string:
		return writeContentString(buf, content)
	case []byte:
		writeBytes(buf, content)
	default:
		return fmt.Errorf("binary: unsupported content type %T", content)
	}
	return nil
}

func offset(data []byte, r *bytes.Reader) int {
	return len(data) - r.Len()
}

func decodeNodeBody(r *bytes.Reader, data []byte) (*Node, error) {
	size, err := readListStart(r, data)
	if err != nil {
		return nil, err
	}
	if size < 1 {
		return nil, decodeErr(offset(data, r), "node body list size %d has no tag", size)
	}

	tag, err := readString(r, data)
	if err != nil {
		return nil, err
	}

	numAttrs := (size - 1) / 2
	hasContent := size%2 == 0

	attrs := make(map[string]string, numAttrs)
	for i := 0; i < numAttrs; i++ {
		key, err := readString(r, data)
		if err != nil {
			return nil, err
		}
		val, err := readString(r, data)
		if err != nil {
			return nil, err
		}
		attrs[key] = val
	}

	node := &Node{Tag: tag, Attrs: attrs}

	if hasContent {
		content, err := readContent(r, data)
		if err != nil {
			return nil, err
		}
		node.Content = content
	}

	return node, nil
}

// readContent dispatches on the next tag byte: a list-start tag means
// nested child nodes, HEX_8/NIBBLE_8 mean a packed string, a byte-length
// tag means raw bytes, anything else is decoded as a dictionary/JID string.
func readContent(r *bytes.Reader, data []byte) (any, error) {
	peekOffset := offset(data, r)
	b, err := r.ReadByte()
	if err != nil {
		return nil, decodeErr(peekOffset, "truncated stream reading content tag")
	}
	if err := r.UnreadByte(); err != nil {
		return nil, err
	}

	switch b {
	case tagListEmpty, tagList8, tagList16:
		count, err := readListStart(r, data)
		if err != nil {
			return nil, err
		}
		children := make([]*Node, count)
		for i := range children {
			child, err := decodeNodeBody(r, data)
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		return children, nil
	case tagHex8, tagNibble8:
		return readPackedString(r, data)
	case tagBinary8, tagBinary20, tagBinary32:
		return readBytes(r, data)
	default:
		return readString(r, data)
	}
}

func writeListStart(buf *bytes.Buffer, size int) {
	switch {
	case size == 0:
		buf.WriteByte(tagListEmpty)
	case size < 256:
		buf.WriteByte(tagList8)
		buf.WriteByte(byte(size))
	default:
		buf.WriteByte(tagList16)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(size))
		buf.Write(b[:])
	}
}

func readListStart(r *bytes.Reader, data []byte) (int, error) {
	start := offset(data, r)
	b, err := r.ReadByte()
	if err != nil {
		return 0, decodeErr(start, "truncated stream reading list tag")
	}
	switch b {
	case tagListEmpty:
		return 0, nil
	case tagList8:
		n, err := r.ReadByte()
		if err != nil {
			return 0, decodeErr(offset(data, r), "truncated LIST_8 size")
		}
		return int(n), nil
	case tagList16:
		var buf [2]byte
		if _, err := readFull(r, buf[:]); err != nil {
			return 0, decodeErr(offset(data, r), "truncated LIST_16 size")
		}
		return int(binary.BigEndian.Uint16(buf[:])), nil
	default:
		return 0, decodeErr(start, "unexpected list tag byte 0x%02x", b)
	}
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	n := len(data)
	switch {
	case n < 256:
		buf.WriteByte(tagBinary8)
		buf.WriteByte(byte(n))
	case n < (1 << 20):
		buf.WriteByte(tagBinary20)
		buf.WriteByte(byte((n >> 16) & 0x0F))
		buf.WriteByte(byte((n >> 8) & 0xFF))
		buf.WriteByte(byte(n & 0xFF))
	default:
		buf.WriteByte(tagBinary32)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		buf.Write(b[:])
	}
	buf.Write(data)
}

func readBytes(r *bytes.Reader, data []byte) ([]byte, error) {
	start := offset(data, r)
	b, err := r.ReadByte()
	if err != nil {
		return nil, decodeErr(start, "truncated stream reading byte-length tag")
	}

	var length int
	switch b {
	case tagBinary8:
		n, err := r.ReadByte()
		if err != nil {
			return nil, decodeErr(offset(data, r), "truncated BINARY_8 length")
		}
		length = int(n)
	case tagBinary20:
		var buf [3]byte
		if _, err := readFull(r, buf[:]); err != nil {
			return nil, decodeErr(offset(data, r), "truncated BINARY_20 length")
		}
		length = int(buf[0]&0x0F)<<16 | int(buf[1])<<8 | int(buf[2])
	case tagBinary32:
		var buf [4]byte
		if _, err := readFull(r, buf[:]); err != nil {
			return nil, decodeErr(offset(data, r), "truncated BINARY_32 length")
		}
		length = int(binary.BigEndian.Uint32(buf[:]))
	default:
		return nil, decodeErr(start, "unexpected byte-length tag 0x%02x", b)
	}

	if length < 0 {
		return nil, decodeErr(start, "negative byte length %d", length)
	}
	out := make([]byte, length)
	if _, err := readFull(r, out); err != nil {
		return nil, decodeErr(offset(data, r), "truncated byte payload, want %d bytes", length)
	}
	return out, nil
}

func readFull(r *bytes.Reader, out []byte) (int, error) {
	n, err := r.Read(out)
	if err != nil {
		return n, err
	}
	for n < len(out) {
		m, err := r.Read(out[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, errors.New("binary: short read")
		}
	}
	return n, nil
}
