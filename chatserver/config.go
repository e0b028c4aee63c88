package chatserver

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultPort is the listening port used when none is configured.
const DefaultPort = 2000

var (
	// ErrNilConn is returned when a session is set up without a connection.
	ErrNilConn = errors.New("connection is nil")
	// ErrSessionClosed is returned by Send on a terminated session.
	ErrSessionClosed = errors.New("session is closed")
	// ErrServerRunning is returned by Start on a server that is already running.
	ErrServerRunning = errors.New("server already running")
	// ErrServerStopped is returned by Start on a server that has been stopped.
	ErrServerStopped = errors.New("server stopped")
)

// Config holds the server settings.
type Config struct {
	// Name labels the server in structured logs.
	Name string
	// Host is the interface to bind; empty means all interfaces.
	Host string
	// Port is the TCP port to listen on; 0 picks an ephemeral port.
	Port int
	// WriteTimeout bounds a single send to one client; 0 means no timeout.
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config listening on DefaultPort on all interfaces
// with no write timeout.
func DefaultConfig() Config {
	return Config{
		Name: "chatserver",
		Port: DefaultPort,
	}
}

// Addr returns the host:port string to listen on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports whether the configuration can be used to start a server.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 0-65535", c.Port)
	}

	if c.WriteTimeout < 0 {
		return fmt.Errorf("write timeout %s must not be negative", c.WriteTimeout)
	}

	return nil
}
