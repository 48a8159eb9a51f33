package membership

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"swarmsentry/internal/protocol"
)

const (
	// DefaultBloomCapacity is the expected member count the filter is
	// sized for when config does not say otherwise.
	DefaultBloomCapacity = 100000

	// DefaultBloomFalsePositiveRate bounds false positives at the
	// sized capacity. No false negatives in either case.
	DefaultBloomFalsePositiveRate = 0.001
)

// BloomSet is the probabilistic membership backend. The snapshot payload
// stays bounded regardless of member count and does not reveal the
// member list to snapshot holders, at the cost of a tunable
// false-positive rate. Capacity and rate are fixed at construction.
type BloomSet struct {
	mu      sync.RWMutex
	filter  *bloom.BloomFilter
	count   int
	version uint64
}

// NewBloomSet creates an empty Bloom-backed set sized for the given
// expected capacity and false-positive rate.
func NewBloomSet(capacity uint, fpRate float64) *BloomSet {
	return &BloomSet{
		filter: bloom.NewWithEstimates(capacity, fpRate),
	}
}

// Add inserts an address. The count only advances when the filter did
// not already report the address, so Len stays close to the distinct
// member count; the version advances on every call.
func (s *BloomSet) Add(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.filter.TestAndAddString(address) {
		s.count++
	}
	s.version++
}

// Contains reports whether an address might be a member. False
// positives are possible at the configured rate; false negatives are not.
func (s *BloomSet) Contains(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.TestString(address)
}

// Len returns the approximate number of distinct members.
func (s *BloomSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Version returns the current version counter.
func (s *BloomSet) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Serialize returns the snapshot payload with the encoded filter bits
// in place of an entry list.
func (s *BloomSet) Serialize() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var buf bytes.Buffer
	if _, err := s.filter.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}

	return json.Marshal(protocol.Snapshot{
		Version:       s.version,
		Count:         s.count,
		Probabilistic: true,
		Filter:        buf.Bytes(),
	})
}
