package chatclient

import (
	"bufio"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer accepts one connection and writes back every line prefixed with "echo: ".
func echoServer(t *testing.T) (addr string, accepted <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	ch := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		ch <- conn

		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			_, _ = io.WriteString(conn, "echo: "+line)
		}
	}()

	return ln.Addr().String(), ch
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "Disconnected", Disconnected.String())
	assert.Equal(t, "Connecting", Connecting.String())
	assert.Equal(t, "Connected", Connected.String())
	assert.Equal(t, "Closed", Closed.String())
	assert.Equal(t, "Unknown", ConnectionState(42).String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("localhost:2000")
	assert.Equal(t, "localhost:2000", cfg.Address)
	assert.Equal(t, 10*time.Second, cfg.ConnectionTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
}

func TestClient_SendReceive(t *testing.T) {
	addr, _ := echoServer(t)
	c := New(DefaultConfig(addr))

	lines := make(chan string, 4)
	c.OnLine(func(e LineEvent) { lines <- e.Line })

	var mu sync.Mutex
	var states []ConnectionState
	c.OnConnectionState(func(e ConnectionStateEvent) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, e.State)
	})

	require.NoError(t, c.Connect())
	assert.True(t, c.IsConnected())
	assert.NotEmpty(t, c.LocalAddr())

	require.NoError(t, c.Send("one"))
	require.NoError(t, c.Send("two"))

	for _, want := range []string{"echo: one", "echo: two"} {
		select {
		case got := <-lines:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, Closed, c.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []ConnectionState{Connecting, Connected, Closed}, states)
}

func TestClient_ServerClose(t *testing.T) {
	addr, accepted := echoServer(t)
	c := New(DefaultConfig(addr))

	events := make(chan ConnectionStateEvent, 4)
	c.OnConnectionState(func(e ConnectionStateEvent) { events <- e })
	require.NoError(t, c.Connect())

	conn := <-accepted
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return c.State() == Disconnected }, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, c.Send("late"), ErrNotConnected)
	require.NoError(t, c.Close())
}

func TestClient_Errors(t *testing.T) {
	t.Run("send before connect", func(t *testing.T) {
		c := New(DefaultConfig("127.0.0.1:1"))
		assert.ErrorIs(t, c.Send("x"), ErrNotConnected)
	})

	t.Run("dial failure", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		c := New(DefaultConfig(addr))
		assert.Error(t, c.Connect())
		assert.Equal(t, Disconnected, c.State())
	})

	t.Run("connect after close", func(t *testing.T) {
		c := New(DefaultConfig("127.0.0.1:1"))
		require.NoError(t, c.Close())
		assert.ErrorIs(t, c.Connect(), ErrClosed)
	})

	t.Run("double connect", func(t *testing.T) {
		addr, _ := echoServer(t)
		c := New(DefaultConfig(addr))
		require.NoError(t, c.Connect())
		defer c.Close()
		assert.Error(t, c.Connect())
	})
}
