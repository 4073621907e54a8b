package realtime

import "sync"

// connSet is the live connection set. It is the only shared mutable state
// of the hub and every access goes through its lock.
type connSet struct {
	mu    sync.RWMutex
	conns map[*Client]struct{}
}

func newConnSet() *connSet {
	return &connSet{conns: make(map[*Client]struct{})}
}

// add inserts c and returns the new size
func (s *connSet) add(c *Client) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
	return len(s.conns)
}

// remove deletes c. It reports whether c was present and the new size.
func (s *connSet) remove(c *Client) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conns[c]
	delete(s.conns, c)
	return ok, len(s.conns)
}

// forEachExcept calls fn for every member other than except (which may be
// nil). fn runs under the read lock and must not block or touch the set.
func (s *connSet) forEachExcept(except *Client, fn func(*Client)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.conns {
		if c != except {
			fn(c)
		}
	}
}

func (s *connSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *connSet) snapshot() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}
