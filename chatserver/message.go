package chatserver

import (
	"net"
	"strings"
)

// Message is one relayed line together with the identity of its sender.
type Message struct {
	Sender string
	Text   string
}

// String renders the message in its wire form, "sender: text".
func (m Message) String() string {
	return m.Sender + ": " + m.Text
}

// IdentityFromAddr derives a client identity from a remote address string:
// the host part of host:port with a leading '/' marker removed. Addresses
// that do not split into host and port are used whole.
func IdentityFromAddr(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		host = addr
	}

	return strings.TrimPrefix(host, "/")
}
