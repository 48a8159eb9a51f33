package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// IOCReport is a single anonymous Indicator-of-Compromise observation
// submitted by a reporting agent. SourceID is an opaque hash supplied by
// the boundary layer; the engine never sees agent identity.
type IOCReport struct {
	Address    string    `json:"address"`
	Selector   string    `json:"selector,omitempty"`
	ChainID    int       `json:"chain_id"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	SourceID   string    `json:"source_id"`
}

// Validate checks the fields the boundary layer is responsible for
// rejecting before a report reaches the engine.
func (r *IOCReport) Validate() error {
	if r.Address == "" {
		return fmt.Errorf("address is required")
	}
	if r.SourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %f", r.Confidence)
	}
	return nil
}

// DecodeReport deserializes a report from JSON.
func DecodeReport(data []byte) (*IOCReport, error) {
	var r IOCReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// Encode serializes a report to JSON.
func (r *IOCReport) Encode() ([]byte, error) {
	return json.Marshal(r)
}
