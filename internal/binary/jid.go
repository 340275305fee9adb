package binary

import (
	"strconv"
	"strings"
)

// JID server constants, per the glossary.
const (
	ServerUser      = "s.whatsapp.net"
	ServerGroup     = "g.us"
	ServerBroadcast = "broadcast"
	ServerLID       = "lid"
	ServerNewsletter = "newsletter"
)

// JID is a WhatsApp identifier: user[.agent][:device]@server.
type JID struct {
	User   string
	Agent  uint8
	Device uint16
	Server string
}

// ParseJID parses s as a JID. It returns false for anything that isn't of
// the form user[.agent][:device]@server with a non-empty server.
func ParseJID(s string) (JID, bool) {
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return JID{}, false
	}
	server := s[at+1:]
	left := s[:at]
	if server == "" {
		return JID{}, false
	}

	user := left
	var device uint16
	if idx := strings.IndexByte(left, ':'); idx >= 0 {
		user = left[:idx]
		d, err := strconv.ParseUint(left[idx+1:], 10, 16)
		if err != nil {
			return JID{}, false
		}
		device = uint16(d)
	}

	var agent uint8
	if idx := strings.IndexByte(user, '.'); idx >= 0 {
		if a, err := strconv.ParseUint(user[idx+1:], 10, 8); err == nil {
			agent = uint8(a)
			user = user[:idx]
		}
	}

	return JID{User: user, Agent: agent, Device: device, Server: server}, true
}

// NeedsADEncoding reports whether this JID must use the AD_JID wire form
// (agent+device+user) rather than the simpler JID_PAIR form.
func (j JID) NeedsADEncoding() bool {
	return j.Device != 0 || j.Agent != 0 || j.Server == ServerLID
}

// String renders the canonical user[.agent][:device]@server form.
func (j JID) String() string {
	var b strings.Builder
	b.WriteString(j.User)
	if j.Agent != 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(int(j.Agent)))
	}
	if j.Device != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(j.Device)))
	}
	b.WriteByte('@')
	b.WriteString(j.Server)
	return b.String()
}
