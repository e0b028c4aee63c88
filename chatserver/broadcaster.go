package chatserver

import (
	"github.com/cyberinferno/chatrelay/logger"
)

// Broadcaster relays messages to every session of a Registry. It implements
// Coordinator for the sessions it serves.
type Broadcaster struct {
	registry *Registry
	sink     logger.Sink
	logger   logger.Logger
}

// NewBroadcaster returns a Broadcaster over registry. Each broadcast writes
// one "sender: text" line to sink.
func NewBroadcaster(registry *Registry, sink logger.Sink, l logger.Logger) *Broadcaster {
	if sink == nil {
		sink = logger.NopSink()
	}

	if l == nil {
		l = logger.NewNopLogger()
	}

	return &Broadcaster{registry: registry, sink: sink, logger: l}
}

// Broadcast sends msg to every session in a snapshot of the registry,
// the sender's own session included. Dead sessions are removed instead of
// sent to, and a failing recipient is removed without affecting delivery to
// the others.
//
// Parameters:
//   - msg: The line and its sender identity
//
// Returns:
//   - The number of sessions the message was written to
func (b *Broadcaster) Broadcast(msg Message) int {
	delivered := 0
	for _, s := range b.registry.Snapshot() {
		if !s.IsAlive() {
			b.registry.Remove(s)
			continue
		}

		if err := s.Send(msg); err != nil {
			b.logger.Debug("dropping recipient",
				logger.Field{Key: "session", Value: s.ID()},
				logger.Field{Key: "error", Value: err},
			)
			b.registry.Remove(s)
			continue
		}

		delivered++
	}

	b.sink.LogLine(msg.String())
	return delivered
}

// Remove implements Coordinator.
func (b *Broadcaster) Remove(s *Session) {
	b.registry.Remove(s)
}
