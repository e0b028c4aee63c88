// Package chatclient provides a line-oriented TCP client for the chat relay.
// Callers register handlers for connection state changes and received
// lines, then Connect. Lines are delivered in the order they arrive.
package chatclient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

var (
	// ErrClosed is returned when using a client after Close.
	ErrClosed = errors.New("client is closed")
	// ErrNotConnected is returned by Send when there is no live connection.
	ErrNotConnected = errors.New("not connected")
)

// ConnectionState represents the current state of the client.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected
	Connecting                          // Dial in progress
	Connected                           // Connection established
	Closed                              // Client closed; it cannot be reused
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ConnectionStateEvent is emitted when the connection state changes.
type ConnectionStateEvent struct {
	State     ConnectionState
	Address   string
	Timestamp time.Time
	Error     error // set when the change was caused by a failure
}

// LineEvent is emitted for every complete line received from the server.
type LineEvent struct {
	Line      string // without the trailing newline
	Timestamp time.Time
}

// ConnectionStateHandler is called on state changes.
type ConnectionStateHandler func(event ConnectionStateEvent)

// LineHandler is called for each received line. It runs on the client's read
// goroutine, so lines are seen in arrival order; a slow handler delays reads.
type LineHandler func(event LineEvent)

// Config holds the client settings.
type Config struct {
	// Address is the "host:port" of the server.
	Address string
	// ConnectionTimeout bounds the dial; 0 means no timeout.
	ConnectionTimeout time.Duration
	// WriteTimeout bounds a single Send; 0 means no timeout.
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config for address with a 10s dial timeout and a
// 10s write timeout.
func DefaultConfig(address string) Config {
	return Config{
		Address:           address,
		ConnectionTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Client is a chat relay client. It is safe for concurrent use.
type Client struct {
	config Config

	mu      sync.RWMutex
	conn    net.Conn
	state   ConnectionState
	closed  bool
	onState ConnectionStateHandler
	onLine  LineHandler

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// New creates a client in the Disconnected state.
func New(config Config) *Client {
	return &Client{config: config, state: Disconnected}
}

// OnConnectionState registers the state handler, replacing any previous one.
func (c *Client) OnConnectionState(handler ConnectionStateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
}

// OnLine registers the line handler, replacing any previous one.
func (c *Client) OnLine(handler LineHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLine = handler
}

// Connect dials the server and starts the read goroutine.
//
// Returns:
//   - ErrClosed after Close, an error if already connected, or the dial error
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if c.state == Connected || c.state == Connecting {
		c.mu.Unlock()
		return fmt.Errorf("already connected or connecting")
	}
	c.mu.Unlock()

	c.setState(Connecting, nil)

	dialer := net.Dialer{Timeout: c.config.ConnectionTimeout}
	conn, err := dialer.Dial("tcp", c.config.Address)
	if err != nil {
		c.setState(Disconnected, err)
		return fmt.Errorf("dial %s: %w", c.config.Address, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(Connected, nil)

	c.wg.Add(1)
	go c.readLoop(conn)
	return nil
}

// Send writes line followed by a newline.
func (c *Client) Send(line string) error {
	c.mu.RLock()
	conn, state := c.conn, c.state
	c.mu.RUnlock()

	if state != Connected || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}
	}

	_, err := io.WriteString(conn, line+"\n")
	return err
}

// LocalAddr returns the local address of the live connection, or "".
func (c *Client) LocalAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return ""
	}

	return c.conn.LocalAddr().String()
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the client is in the Connected state.
func (c *Client) IsConnected() bool {
	return c.State() == Connected
}

// Close closes the connection with a normal shutdown and waits for the read
// goroutine. Idempotent.
func (c *Client) Close() error {
	return c.shutdown(false)
}

// Abort closes the connection with a reset instead of a normal shutdown, so
// the server observes a failed read rather than end of stream.
func (c *Client) Abort() error {
	return c.shutdown(true)
}

func (c *Client) shutdown(reset bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	var err error
	if conn != nil {
		if tcp, ok := conn.(*net.TCPConn); ok && reset {
			_ = tcp.SetLinger(0)
		}
		err = conn.Close()
	}

	c.wg.Wait()
	c.setState(Closed, nil)
	return err
}

func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if c.isClosed() {
				return
			}

			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			_ = conn.Close()

			if errors.Is(err, io.EOF) {
				err = nil
			}
			c.setState(Disconnected, err)
			return
		}

		c.emitLine(strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"))
	}
}

func (c *Client) setState(state ConnectionState, err error) {
	c.mu.Lock()
	c.state = state
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(ConnectionStateEvent{
			State:     state,
			Address:   c.config.Address,
			Timestamp: time.Now(),
			Error:     err,
		})
	}
}

func (c *Client) emitLine(line string) {
	c.mu.RLock()
	handler := c.onLine
	c.mu.RUnlock()

	if handler != nil {
		handler(LineEvent{Line: line, Timestamp: time.Now()})
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
