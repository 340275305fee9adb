// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/waconnect/waconnect-go

package auth

import "github.com/waconnect/waconnect-go/internal/binary"

// childNodes returns n's children, or nil if n has no []*Node content.
func childNodes(n *binary.Node) []*binary.Node {
	if n == nil {
		return nil
	}
	children, _ := n.Content.([]*binary.Node)
	return children
}

// childByTag returns the first direct child of n tagged tag.
func childByTag(n *binary.Node, tag string) *binary.Node {
	for _, c := range childNodes(n) {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// contentBytes returns n's content as bytes, accepting both []byte and
// string content (the codec may hand back either depending on the
// packed-string path taken on the wire).
func contentBytes(n *binary.Node) []byte {
	if n == nil {
		return nil
	}
	switch v := n.Content.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

func attr(n *binary.Node, key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}
