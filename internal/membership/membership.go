// Package membership holds the published consensus blacklist. The set
// is append-only: addresses are added after gate admission and never
// removed. Two backends implement the same interface: an exact map-backed
// set (the default, exact answers, payload grows with membership) and a
// Bloom-filter set (bounded payload, tunable false-positive rate, no
// false negatives).
package membership

// Set is the pluggable membership structure behind the consensus store.
// Version increments on every Add, including duplicate inserts; a
// probabilistic backend cannot reliably detect duplicates, so the
// contract is the same for both.
type Set interface {
	Add(address string)
	Contains(address string) bool
	Len() int
	Version() uint64
	Serialize() ([]byte, error)
}

// Backend names accepted by config.
const (
	BackendExact = "exact"
	BackendBloom = "bloom"
)
