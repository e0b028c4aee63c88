package chatserver

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("connection reset by peer")

// recordSink keeps every line it receives.
type recordSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordSink) LogLine(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func (s *recordSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *recordSink) Count(line string) int {
	n := 0
	for _, l := range s.Lines() {
		if l == line {
			n++
		}
	}
	return n
}

func (s *recordSink) waitFor(t *testing.T, line string) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Count(line) > 0 },
		2*time.Second, 5*time.Millisecond, "sink never logged %q; got %v", line, s.Lines())
}

// fakeCoordinator records broadcasts and removals.
type fakeCoordinator struct {
	mu      sync.Mutex
	msgs    []Message
	removed []*Session
}

func (f *fakeCoordinator) Broadcast(msg Message) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return 0
}

func (f *fakeCoordinator) Remove(s *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, s)
}

func (f *fakeCoordinator) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.msgs...)
}

func (f *fakeCoordinator) Removed() []*Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Session(nil), f.removed...)
}

// faultyConn fails reads and/or writes with errInjected.
type faultyConn struct {
	net.Conn
	failRead  bool
	failWrite bool
}

func (c *faultyConn) Read(p []byte) (int, error) {
	if c.failRead {
		return 0, errInjected
	}
	return c.Conn.Read(p)
}

func (c *faultyConn) Write(p []byte) (int, error) {
	if c.failWrite {
		return 0, errInjected
	}
	return c.Conn.Write(p)
}

// pipePeer is the client side of a net.Pipe whose received lines are collected.
type pipePeer struct {
	conn  net.Conn
	lines chan string
}

// newPipeSession returns a session over one end of a net.Pipe and a peer
// draining the other end.
func newPipeSession(t *testing.T, id uint32, cfg SessionConfig) (*Session, *pipePeer) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	peer := &pipePeer{conn: client, lines: make(chan string, 64)}
	go func() {
		r := bufio.NewReader(client)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			peer.lines <- strings.TrimSuffix(line, "\n")
		}
	}()

	return NewSession(id, server, cfg), peer
}

func (p *pipePeer) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-p.lines:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}
