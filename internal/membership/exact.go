package membership

import (
	"encoding/json"
	"sync"

	"swarmsentry/internal/protocol"
)

// ExactSet is the default membership backend: a map-backed set with
// exact answers. Guarded by its own lock so serialization never holds
// the gate's lock.
type ExactSet struct {
	mu      sync.RWMutex
	entries map[string]struct{}
	version uint64
}

// NewExactSet creates an empty exact-set.
func NewExactSet() *ExactSet {
	return &ExactSet{
		entries: make(map[string]struct{}),
	}
}

// Add inserts an address. Membership is idempotent but the version
// counter advances on every call, duplicates included.
func (s *ExactSet) Add(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[address] = struct{}{}
	s.version++
}

// Contains reports whether an address is a member.
func (s *ExactSet) Contains(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[address]
	return ok
}

// Len returns the number of distinct members.
func (s *ExactSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Version returns the current version counter.
func (s *ExactSet) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Serialize returns the snapshot payload for transport. Entry order is
// map iteration order and not part of the contract.
func (s *ExactSet) Serialize() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := protocol.Snapshot{
		Version: s.version,
		Count:   len(s.entries),
	}
	for addr := range s.entries {
		snap.Entries = append(snap.Entries, addr)
	}

	return json.Marshal(snap)
}
