package protocol

// EngineStatus is the health payload exposed by the boundary layer,
// built from the engine's read-only accessors.
type EngineStatus struct {
	Status          string `json:"status"`
	FilterSize      int    `json:"filter_size"`
	FilterVersion   uint64 `json:"filter_version"`
	Subscribers     int    `json:"subscribers"`
	TrackedAddrs    int    `json:"tracked_addresses"`
	ProtocolVersion string `json:"protocol_version"`
}
