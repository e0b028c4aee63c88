// Package chatserver implements a line-oriented text relay over TCP.
//
// Each accepted connection becomes a Session running its own read loop. Every
// line a session reads is handed to the Broadcaster, which sends it, prefixed
// with the sender's identity, to every live session in the Registry
// (including the sender) and writes one event line to the log Sink.
// Sessions remove themselves from the Registry when their stream ends.
package chatserver
