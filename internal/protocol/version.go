package protocol

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// Protocol versioning constants
const (
	CurrentVersion       = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)

// CompatChecker validates subscriber-reported protocol versions against
// the minimum this engine still serves.
type CompatChecker struct {
	current *version.Version
	min     *version.Version
}

// NewCompatChecker creates a checker for the built-in version constants.
func NewCompatChecker() (*CompatChecker, error) {
	current, err := version.NewVersion(CurrentVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid current version: %w", err)
	}

	min, err := version.NewVersion(MinCompatibleVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid min version: %w", err)
	}

	return &CompatChecker{current: current, min: min}, nil
}

// IsCompatible checks whether a subscriber-reported version is still served.
// An empty version is treated as compatible: old clients never sent one.
func (c *CompatChecker) IsCompatible(clientVersion string) (bool, error) {
	if clientVersion == "" {
		return true, nil
	}

	v, err := version.NewVersion(clientVersion)
	if err != nil {
		return false, fmt.Errorf("invalid version string: %w", err)
	}

	return !v.LessThan(c.min), nil
}
