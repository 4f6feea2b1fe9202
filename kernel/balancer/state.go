package balancer

import "sync"

// state owns the mutable backend list and the round-robin cursor. It is
// shared between the control handler and the proxy loop and is only ever
// touched through these accessors.
type state struct {
	mu       sync.Mutex
	backends []string
	next     int
}

// replace swaps the backend list atomically and rewinds the cursor.
func (s *state) replace(hosts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backends = append([]string(nil), hosts...)
	s.next = 0
}

// snapshot returns a copy of the current backend list.
func (s *state) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.backends...)
}

// pick returns the next backend by strict round robin, or false when no
// backend is configured.
func (s *state) pick() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.backends) == 0 {
		return "", false
	}
	backend := s.backends[s.next]
	s.next = (s.next + 1) % len(s.backends)
	return backend, true
}
