package protocol

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the versioned consensus payload pushed to subscribers.
// Entries carries the full member list for exact-set backends; for
// probabilistic backends Entries is empty and Filter holds the encoded
// filter bits instead. Entry order is not part of the contract.
type Snapshot struct {
	Version       uint64   `json:"version"`
	Count         int      `json:"count"`
	Entries       []string `json:"entries,omitempty"`
	Probabilistic bool     `json:"probabilistic,omitempty"`
	Filter        []byte   `json:"filter,omitempty"`
}

// DecodeSnapshot deserializes a snapshot payload.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}
