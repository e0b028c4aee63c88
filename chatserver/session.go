package chatserver

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/chatrelay/logger"
)

// Coordinator is the capability a Session holds on the component that owns
// the broadcast set. The session uses it to publish the lines it reads and to
// drop itself once terminated; it never owns the coordinator.
type Coordinator interface {
	// Broadcast relays msg to every eligible session and returns the number
	// of sessions it was delivered to.
	Broadcast(msg Message) int

	// Remove drops s from the broadcast set. Removing an absent session is a no-op.
	Remove(s *Session)
}

// SessionConfig carries the collaborators of a Session.
type SessionConfig struct {
	Coordinator  Coordinator
	Sink         logger.Sink
	Logger       logger.Logger
	WriteTimeout time.Duration
}

type disconnectKind int

const (
	disconnectClean disconnectKind = iota
	disconnectAbrupt
)

// Session serves one client: Run reads lines and hands them to the
// Coordinator until the stream ends, and Send delivers relayed lines back.
type Session struct {
	id       uint32
	identity string
	conn     *Connection
	setupErr error

	coord  Coordinator
	sink   logger.Sink
	logger logger.Logger

	alive     atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewSession sets up I/O on conn. A setup failure is kept and surfaces as an
// immediate disconnect when Run is called.
//
// Parameters:
//   - id: Numeric id, used in structured logs
//   - conn: The accepted stream; the session takes ownership of it
//   - cfg: Collaborators; nil Sink and Logger are replaced with no-ops
//
// Returns:
//   - The session, alive and not yet running
func NewSession(id uint32, conn net.Conn, cfg SessionConfig) *Session {
	if cfg.Sink == nil {
		cfg.Sink = logger.NopSink()
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}

	s := &Session{
		id:    id,
		coord: cfg.Coordinator,
		sink:  cfg.Sink,
		done:  make(chan struct{}),
	}

	s.conn, s.setupErr = Open(conn, cfg.WriteTimeout)
	s.identity = "unknown"
	if addr := s.conn.RemoteAddr(); addr != "" {
		s.identity = IdentityFromAddr(addr)
	}

	s.logger = cfg.Logger.With(
		logger.Field{Key: "session", Value: id},
		logger.Field{Key: "client", Value: s.identity},
	)
	s.alive.Store(true)
	return s
}

// ID returns the numeric session id.
func (s *Session) ID() uint32 {
	return s.id
}

// Identity returns the address-derived name used to attribute messages.
func (s *Session) Identity() string {
	return s.identity
}

// IsAlive reports whether the session has not yet been torn down.
func (s *Session) IsAlive() bool {
	return s.alive.Load()
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run is the session's read loop. Each line read is broadcast in order; the
// loop ends on end of stream (clean disconnect), on a read error (abrupt
// disconnect) or when the session is closed, and then tears the session down.
func (s *Session) Run() {
	defer close(s.done)

	if s.setupErr != nil {
		s.logger.Error("could not set up I/O", logger.Field{Key: "error", Value: s.setupErr})
		s.terminate(disconnectClean, s.setupErr)
		return
	}

	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.terminate(disconnectClean, nil)
			} else {
				s.terminate(disconnectAbrupt, err)
			}

			return
		}

		if s.coord != nil {
			s.coord.Broadcast(Message{Sender: s.identity, Text: line})
		}
	}
}

// Send writes msg to the client as "sender: text". It never panics; on a
// terminated session it returns ErrSessionClosed, and a failed write tears
// the session down before the error is returned.
func (s *Session) Send(msg Message) error {
	if !s.alive.Load() || s.conn == nil {
		return ErrSessionClosed
	}

	if err := s.conn.WriteLine(msg.String()); err != nil {
		s.terminate(disconnectAbrupt, err)
		return fmt.Errorf("send to %s: %w", s.identity, err)
	}

	return nil
}

// Close tears the session down as a clean disconnect. Safe to call repeatedly
// and concurrently with Run.
func (s *Session) Close() error {
	s.terminate(disconnectClean, nil)
	return nil
}

// terminate runs the teardown exactly once: mark dead, close the stream,
// leave the broadcast set and report the disconnect. Later calls are no-ops.
func (s *Session) terminate(kind disconnectKind, cause error) {
	s.closeOnce.Do(func() {
		s.alive.Store(false)

		if err := s.conn.Close(); err != nil {
			s.logger.Warn("could not close connection", logger.Field{Key: "error", Value: err})
		}

		if s.coord != nil {
			s.coord.Remove(s)
		}

		switch kind {
		case disconnectAbrupt:
			s.sink.LogLine(fmt.Sprintf("Client %s brutally disconnected.", s.identity))
			s.logger.Warn("client disconnected abruptly", logger.Field{Key: "error", Value: cause})
		default:
			s.sink.LogLine(fmt.Sprintf("Client %s disconnected.", s.identity))
			s.logger.Info("client disconnected")
		}
	})
}
