// Package swarm is the consensus engine root: it owns one corroboration
// gate and one membership set, orchestrates ingestion through gating to
// publication, and fans the resulting snapshots out to subscriber
// mailboxes. It is the only component aware of subscribers.
package swarm

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"swarmsentry/internal/gate"
	"swarmsentry/internal/membership"
	"swarmsentry/internal/protocol"
)

// DefaultMailboxCapacity bounds each subscriber's pending snapshots.
// A full mailbox sheds the current broadcast for that subscriber.
const DefaultMailboxCapacity = 16

// Config assembles an Aggregator. Zero values fall back to an exact-set
// membership backend, the default mailbox capacity, and no metrics.
type Config struct {
	Gate            gate.Config
	Set             membership.Set
	MailboxCapacity int
	Metrics         *Metrics
}

// Aggregator ingests IOC reports, admits corroborated addresses into the
// consensus set, and pushes serialized snapshots to all subscribers.
// Safe for unbounded concurrent producers.
type Aggregator struct {
	// mu serializes a full ingestion (record + evaluate + admit)
	// against all others. Subscriber state has its own lock so
	// broadcasts never contend with subscribe/unsubscribe more than
	// necessary, and neither lock is held across channel sends.
	mu   sync.Mutex
	gate *gate.Gate
	set  membership.Set

	subMu       sync.RWMutex
	subscribers map[string]chan []byte
	closed      bool

	mailboxCap int
	metrics    *Metrics
	log        *logrus.Entry
}

// New creates an aggregator from the given config.
func New(cfg Config) *Aggregator {
	set := cfg.Set
	if set == nil {
		set = membership.NewExactSet()
	}
	mailboxCap := cfg.MailboxCapacity
	if mailboxCap <= 0 {
		mailboxCap = DefaultMailboxCapacity
	}

	return &Aggregator{
		gate:        gate.New(cfg.Gate),
		set:         set,
		subscribers: make(map[string]chan []byte),
		mailboxCap:  mailboxCap,
		metrics:     cfg.Metrics,
		log:         logrus.WithField("component", "swarm"),
	}
}

// IngestReport records a report and evaluates the corroboration gate for
// its address. When the threshold holds, the address is added to the
// consensus set and the new snapshot is broadcast to all subscribers;
// the return value says whether the threshold held on this call. The
// same path runs whether the address is newly or already admitted:
// membership is idempotent, the set version is not.
func (a *Aggregator) IngestReport(report protocol.IOCReport) bool {
	start := time.Now()

	a.mu.Lock()
	a.gate.Record(report.Address, report)

	admitted := a.gate.MeetsThreshold(report.Address)
	if admitted {
		a.set.Add(report.Address)
	}
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.ReportsIngested.Inc()
		a.metrics.IngestLatency.Observe(time.Since(start).Seconds())
		if admitted {
			a.metrics.AddressesAdmitted.Inc()
			a.metrics.MemberCount.Set(float64(a.set.Len()))
		}
	}

	if admitted {
		a.broadcast()
	}

	return admitted
}

// Subscribe registers a bounded mailbox for id and returns it. An
// existing registration under the same id is closed and replaced.
// Subscribing to a closed aggregator yields an already-closed mailbox.
func (a *Aggregator) Subscribe(id string) <-chan []byte {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	ch := make(chan []byte, a.mailboxCap)
	if a.closed {
		close(ch)
		return ch
	}

	if old, ok := a.subscribers[id]; ok {
		close(old)
	}
	a.subscribers[id] = ch

	if a.metrics != nil {
		a.metrics.SubscriberCount.Set(float64(len(a.subscribers)))
	}
	return ch
}

// Unsubscribe closes and removes the mailbox for id. Unknown ids are a
// no-op.
func (a *Aggregator) Unsubscribe(id string) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	if ch, ok := a.subscribers[id]; ok {
		close(ch)
		delete(a.subscribers, id)
		if a.metrics != nil {
			a.metrics.SubscriberCount.Set(float64(len(a.subscribers)))
		}
	}
}

// Release removes the registration for id only when it still owns the
// given mailbox. Boundary handlers use this on disconnect so that a
// client re-subscribing under the same id is not torn down by the old
// connection's cleanup.
func (a *Aggregator) Release(id string, mailbox <-chan []byte) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	ch, ok := a.subscribers[id]
	if !ok || (<-chan []byte)(ch) != mailbox {
		return
	}
	close(ch)
	delete(a.subscribers, id)
	if a.metrics != nil {
		a.metrics.SubscriberCount.Set(float64(len(a.subscribers)))
	}
}

// Close tears the subscriber registry down: every mailbox is closed and
// removed so boundary goroutines draining them terminate. Ingestion
// still records evidence afterwards but broadcasts reach nobody.
func (a *Aggregator) Close() {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	if a.closed {
		return
	}
	a.closed = true

	for id, ch := range a.subscribers {
		close(ch)
		delete(a.subscribers, id)
	}
	if a.metrics != nil {
		a.metrics.SubscriberCount.Set(0)
	}
}

// broadcast serializes the consensus set once and attempts non-blocking
// delivery to every mailbox. A subscriber whose mailbox is full misses
// this round and catches up on the next successful broadcast; producers
// never block on subscriber slowness.
func (a *Aggregator) broadcast() {
	data, err := a.set.Serialize()
	if err != nil {
		a.log.WithError(err).Error("Failed to serialize consensus snapshot, skipping broadcast")
		if a.metrics != nil {
			a.metrics.SerializeFailures.Inc()
		}
		return
	}

	a.subMu.RLock()
	defer a.subMu.RUnlock()

	if a.metrics != nil {
		a.metrics.Broadcasts.Inc()
	}

	for id, ch := range a.subscribers {
		select {
		case ch <- data:
		default:
			a.log.WithField("subscriber", id).Warn("Subscriber mailbox full, skipping push")
			if a.metrics != nil {
				a.metrics.BroadcastDrops.Inc()
			}
		}
	}
}

// Snapshot serializes the current consensus set. The boundary uses this
// to send a subscriber its first payload on connect.
func (a *Aggregator) Snapshot() ([]byte, error) {
	return a.set.Serialize()
}

// Contains reports whether an address is in the published consensus set.
func (a *Aggregator) Contains(address string) bool {
	return a.set.Contains(address)
}

// MemberCount returns the consensus set size.
func (a *Aggregator) MemberCount() int {
	return a.set.Len()
}

// SnapshotVersion returns the consensus set version counter.
func (a *Aggregator) SnapshotVersion() uint64 {
	return a.set.Version()
}

// TrackedAddresses returns how many candidate addresses hold evidence.
func (a *Aggregator) TrackedAddresses() int {
	return a.gate.Tracked()
}

// SubscriberCount returns the number of registered subscribers.
func (a *Aggregator) SubscriberCount() int {
	a.subMu.RLock()
	defer a.subMu.RUnlock()
	return len(a.subscribers)
}

// Status builds the health payload from the engine accessors.
func (a *Aggregator) Status() protocol.EngineStatus {
	return protocol.EngineStatus{
		Status:          "ok",
		FilterSize:      a.MemberCount(),
		FilterVersion:   a.SnapshotVersion(),
		Subscribers:     a.SubscriberCount(),
		TrackedAddrs:    a.TrackedAddresses(),
		ProtocolVersion: protocol.CurrentVersion,
	}
}
