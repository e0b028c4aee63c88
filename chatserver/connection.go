package chatserver

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

// Connection wraps an accepted stream with a line reader and a line writer.
// It is owned by exactly one Session. ReadLine must only be called from a
// single goroutine; WriteLine and Close are safe for concurrent use.
type Connection struct {
	conn         net.Conn
	reader       *bufio.Reader
	writeTimeout time.Duration

	writeMu sync.Mutex
	writer  *bufio.Writer

	closeOnce sync.Once
	closeErr  error
}

// Open wraps conn for line-oriented I/O.
//
// Parameters:
//   - conn: The accepted stream
//   - writeTimeout: Upper bound for a single WriteLine; 0 disables the deadline
//
// Returns:
//   - The Connection, or ErrNilConn if conn is nil
func Open(conn net.Conn, writeTimeout time.Duration) (*Connection, error) {
	if conn == nil {
		return nil, ErrNilConn
	}

	return &Connection{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		writer:       bufio.NewWriter(conn),
		writeTimeout: writeTimeout,
	}, nil
}

// RemoteAddr returns the peer address as a string, or "" when unknown.
func (c *Connection) RemoteAddr() string {
	if c == nil || c.conn.RemoteAddr() == nil {
		return ""
	}

	return c.conn.RemoteAddr().String()
}

// ReadLine blocks until a full line is available and returns it without its
// terminator ("\n" or "\r\n"). At end of stream it returns io.EOF; bytes of an
// unterminated trailing line are discarded.
func (c *Connection) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}

		return "", err
	}

	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// WriteLine writes line followed by a newline and flushes it to the peer.
func (c *Connection) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	if _, err := c.writer.WriteString(line + "\n"); err != nil {
		return err
	}

	return c.writer.Flush()
}

// Close releases the underlying socket. It may be called any number of times,
// on a nil Connection, or on a socket the peer already closed; only the
// first call closes the stream.
func (c *Connection) Close() error {
	if c == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.closeErr = err
		}
	})

	return c.closeErr
}
