// Package gate implements the time-weighted corroboration gate that
// decides when a reported address has enough independent, multi-source
// support to enter the consensus blacklist. An address must be reported
// by multiple distinct sources over a minimum time span before it is
// trusted; this is the Sybil-resistance boundary of the engine.
package gate

import (
	"sync"
	"time"

	"swarmsentry/internal/protocol"
)

const (
	// Default thresholds for admission
	DefaultMinReportCount     = 3
	DefaultMinTimeSpanSeconds = 3600.0 // 1 hour
	DefaultMinDistinctSources = 2
)

// Config holds the admission thresholds. All three must hold
// simultaneously: report count alone is defeatable by a single noisy
// source, time span alone by a patient lone attacker, and source count
// alone by colluding identities bursting within one window.
type Config struct {
	// MinReportCount is the minimum number of reports required before
	// an address is eligible for the consensus set.
	MinReportCount int

	// MinTimeSpanSeconds is the minimum span (in seconds) between the
	// first and last report. Defends against burst-reporting.
	MinTimeSpanSeconds float64

	// MinDistinctSources is the minimum number of distinct source IDs
	// that must have reported the address.
	MinDistinctSources int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinReportCount:     DefaultMinReportCount,
		MinTimeSpanSeconds: DefaultMinTimeSpanSeconds,
		MinDistinctSources: DefaultMinDistinctSources,
	}
}

// record accumulates the evidence for a single candidate address.
// Records are never deleted, even after admission, so re-reports of an
// admitted address keep accumulating instead of being rejected.
type record struct {
	reports   []protocol.IOCReport
	sources   map[string]struct{}
	firstSeen time.Time
	lastSeen  time.Time
}

// Gate tracks per-address evidence under a single read/write lock.
// A full ingestion for one address is serialized against all others;
// sharding the map by address hash would preserve the per-address
// ordering invariant if this lock ever becomes a bottleneck.
type Gate struct {
	mu      sync.RWMutex
	config  Config
	records map[string]*record
}

// New creates a Gate with the given thresholds.
func New(config Config) *Gate {
	return &Gate{
		config:  config,
		records: make(map[string]*record),
	}
}

// Record adds a report to the evidence for an address. The first report
// for an address fixes firstSeen; lastSeen always takes the timestamp of
// the most recently recorded report, even if it is earlier than a
// previous one. Reports are kept in arrival order, never re-sorted.
func (g *Gate) Record(address string, report protocol.IOCReport) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[address]
	if !ok {
		rec = &record{
			sources:   make(map[string]struct{}),
			firstSeen: report.Timestamp,
		}
		g.records[address] = rec
	}

	rec.reports = append(rec.reports, report)
	rec.sources[report.SourceID] = struct{}{}
	rec.lastSeen = report.Timestamp
}

// MeetsThreshold reports whether an address has accumulated enough
// independent evidence for admission. Unknown addresses never pass.
func (g *Gate) MeetsThreshold(address string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rec, ok := g.records[address]
	if !ok {
		return false
	}

	if len(rec.reports) < g.config.MinReportCount {
		return false
	}

	if rec.lastSeen.Sub(rec.firstSeen).Seconds() < g.config.MinTimeSpanSeconds {
		return false
	}

	if len(rec.sources) < g.config.MinDistinctSources {
		return false
	}

	return true
}

// Evidence returns the accumulated counts for an address: number of
// reports, number of distinct sources, and the span between the first
// and last report. ok is false when the address has never been reported.
func (g *Gate) Evidence(address string) (reports, sources int, span time.Duration, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rec, found := g.records[address]
	if !found {
		return 0, 0, 0, false
	}
	return len(rec.reports), len(rec.sources), rec.lastSeen.Sub(rec.firstSeen), true
}

// Tracked returns the number of candidate addresses with evidence.
func (g *Gate) Tracked() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}
