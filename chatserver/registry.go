package chatserver

import "github.com/cyberinferno/chatrelay/safeset"

// Registry is the set of sessions eligible to receive broadcasts. It holds
// references only; sessions own their connections and goroutines. All
// methods are safe for concurrent use.
type Registry struct {
	sessions *safeset.SafeSet[*Session]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: safeset.NewSafeSet[*Session]()}
}

// Add registers s. Sessions already torn down are refused so that a dead
// session cannot become eligible again.
//
// Returns:
//   - true if s was inserted, false if it was present or no longer alive
func (r *Registry) Add(s *Session) bool {
	if s == nil || !s.IsAlive() {
		return false
	}

	return r.sessions.Add(s)
}

// Remove unregisters s. Removing an absent session is a no-op.
//
// Returns:
//   - true if s was registered
func (r *Registry) Remove(s *Session) bool {
	return r.sessions.Remove(s)
}

// Contains reports whether s is registered.
func (r *Registry) Contains(s *Session) bool {
	return r.sessions.Contains(s)
}

// Snapshot returns the registered sessions at this instant. The slice can be
// iterated while other goroutines add or remove sessions and never holds a
// session twice.
func (r *Registry) Snapshot() []*Session {
	return r.sessions.Snapshot()
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	return r.sessions.Size()
}
