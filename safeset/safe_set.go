// Package safeset provides a generic set guarded by a read/write mutex.
package safeset

import "sync"

// SafeSet is a thread-safe set of unique elements of comparable type T. It is
// safe for concurrent use by multiple goroutines.
type SafeSet[T comparable] struct {
	m map[T]struct{}
	sync.RWMutex
}

// NewSafeSet creates and returns a new empty SafeSet.
func NewSafeSet[T comparable]() *SafeSet[T] {
	return &SafeSet[T]{m: make(map[T]struct{})}
}

// Add inserts value into the set.
//
// Parameters:
//   - value: The element to add
//
// Returns:
//   - true if value was inserted, false if it was already present
func (s *SafeSet[T]) Add(value T) bool {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.m[value]; ok {
		return false
	}

	s.m[value] = struct{}{}
	return true
}

// Remove deletes value from the set. Removing an absent element is a no-op.
//
// Parameters:
//   - value: The element to remove
//
// Returns:
//   - true if value was present and has been removed
func (s *SafeSet[T]) Remove(value T) bool {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.m[value]; !ok {
		return false
	}

	delete(s.m, value)
	return true
}

// Contains reports whether the set contains the given element.
func (s *SafeSet[T]) Contains(value T) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.m[value]
	return ok
}

// Size returns the number of elements in the set.
func (s *SafeSet[T]) Size() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.m)
}

// Snapshot copies the elements into a new slice under the read lock. The
// slice is a point-in-time view: later Add or Remove calls do not affect it,
// and it may be iterated while other goroutines mutate the set.
//
// Returns:
//   - A slice holding every element exactly once, in no particular order
func (s *SafeSet[T]) Snapshot() []T {
	s.RLock()
	defer s.RUnlock()
	out := make([]T, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}

	return out
}

// Reset removes all elements from the set.
//
// Returns:
//   - The elements that were present before the reset
func (s *SafeSet[T]) Reset() []T {
	s.Lock()
	defer s.Unlock()
	out := make([]T, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}

	s.m = make(map[T]struct{})
	return out
}

// Range calls f for each element of a snapshot of the set. Iteration stops if
// f returns false. Because f runs on a copy, it may safely modify the set.
//
// Parameters:
//   - f: Function called for each element; return false to stop iteration
func (s *SafeSet[T]) Range(f func(value T) bool) {
	for _, v := range s.Snapshot() {
		if !f(v) {
			return
		}
	}
}
