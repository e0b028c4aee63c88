package chatserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/chatrelay/logger"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Server accepts TCP connections and runs a Session for each. Several
// servers may run side by side in one process; each owns its own Registry.
type Server struct {
	config      Config
	logger      logger.Logger
	sink        logger.Sink
	registry    *Registry
	broadcaster *Broadcaster

	mu         sync.Mutex
	listener   net.Listener
	stopped    bool
	running    atomic.Bool
	acceptDone chan struct{}

	nextID   atomic.Uint32
	sessions sync.WaitGroup
}

// NewServer builds a Server from cfg. A nil Logger or Sink is replaced by a no-op.
func NewServer(cfg Config, l logger.Logger, sink logger.Sink) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}

	if sink == nil {
		sink = logger.NopSink()
	}

	if cfg.Name == "" {
		cfg.Name = DefaultConfig().Name
	}

	l = l.With(logger.Field{Key: "server", Value: cfg.Name})
	registry := NewRegistry()
	return &Server{
		config:      cfg,
		logger:      l,
		sink:        sink,
		registry:    registry,
		broadcaster: NewBroadcaster(registry, sink, l),
	}
}

// Start binds the listening socket and runs the accept loop in a goroutine.
//
// Returns:
//   - ErrServerRunning or ErrServerStopped when called in the wrong state
//   - The wrapped bind error if the port cannot be listened on
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrServerStopped
	}

	if s.running.Load() {
		return ErrServerRunning
	}

	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("server %s: %w", s.config.Name, err)
	}

	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		s.logger.Error("server failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("server %s failed to listen on %s: %w", s.config.Name, s.config.Addr(), err)
	}

	s.listener = ln
	s.acceptDone = make(chan struct{})
	s.running.Store(true)

	s.logger.Info("server started", logger.Field{Key: "addr", Value: ln.Addr().String()})
	s.sink.LogLine("Ready for clients!")
	go s.acceptLoop(ln, s.acceptDone)

	return nil
}

// Run starts the server and serves until ctx is cancelled, then stops it.
// It returns early only if Start fails.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop closes the listener, closes every live session and waits for their
// read loops to return. A stopped server cannot be started again.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped || !s.running.Load() {
		s.stopped = true
		s.mu.Unlock()
		return
	}

	s.stopped = true
	s.running.Store(false)
	_ = s.listener.Close()
	acceptDone := s.acceptDone
	s.mu.Unlock()

	<-acceptDone
	for _, sess := range s.registry.Snapshot() {
		_ = sess.Close()
	}

	s.sessions.Wait()
	s.logger.Info("server stopped")
}

// Addr returns the bound listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Sessions returns a snapshot of the registered sessions.
func (s *Server) Sessions() []*Session {
	return s.registry.Snapshot()
}

// Broadcaster returns the server's Broadcaster.
func (s *Server) Broadcaster() *Broadcaster {
	return s.broadcaster
}

func (s *Server) acceptLoop(ln net.Listener, done chan<- struct{}) {
	defer close(done)

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}

			backoff = nextBackoff(backoff)
			s.logger.Warn("accept error",
				logger.Field{Key: "error", Value: err},
				logger.Field{Key: "retry_in", Value: backoff.String()},
			)
			time.Sleep(backoff)
			continue
		}

		backoff = 0
		s.serve(conn)
	}
}

// serve registers a session for conn and starts its read loop without
// blocking the accept loop.
func (s *Server) serve(conn net.Conn) {
	sess := NewSession(s.nextID.Add(1), conn, SessionConfig{
		Coordinator:  s.broadcaster,
		Sink:         s.sink,
		Logger:       s.logger,
		WriteTimeout: s.config.WriteTimeout,
	})

	s.sink.LogLine(fmt.Sprintf("Client %s connected", sess.Identity()))
	s.logger.Info("client connected",
		logger.Field{Key: "session", Value: sess.ID()},
		logger.Field{Key: "client", Value: sess.Identity()},
	)

	s.registry.Add(sess)
	s.sessions.Add(1)
	go func() {
		defer s.sessions.Done()
		sess.Run()
	}()
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}

	d *= 2
	if d > maxAcceptBackoff {
		return maxAcceptBackoff
	}

	return d
}
