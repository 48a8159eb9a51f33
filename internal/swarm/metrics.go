package swarm

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the aggregator
type Metrics struct {
	ReportsIngested   prometheus.Counter
	AddressesAdmitted prometheus.Counter
	Broadcasts        prometheus.Counter
	BroadcastDrops    prometheus.Counter
	SerializeFailures prometheus.Counter
	SubscriberCount   prometheus.Gauge
	MemberCount       prometheus.Gauge
	IngestLatency     prometheus.Histogram
}

// NewMetrics creates and registers all aggregator metrics on the default
// registry.
func NewMetrics() *Metrics {
	return NewMetricsOn(prometheus.DefaultRegisterer)
}

// NewMetricsOn creates all aggregator metrics and registers them on the
// given registerer. Tests use a private registry.
func NewMetricsOn(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReportsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmsentry_reports_ingested_total",
			Help: "Total IOC reports ingested",
		}),
		AddressesAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmsentry_addresses_admitted_total",
			Help: "Ingestions whose address met the corroboration threshold",
		}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmsentry_broadcasts_total",
			Help: "Snapshot broadcasts attempted",
		}),
		BroadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmsentry_broadcast_drops_total",
			Help: "Snapshot deliveries skipped because a subscriber mailbox was full",
		}),
		SerializeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmsentry_serialize_failures_total",
			Help: "Snapshot serialization failures",
		}),
		SubscriberCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmsentry_subscriber_count",
			Help: "Number of registered subscribers",
		}),
		MemberCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmsentry_member_count",
			Help: "Number of addresses in the consensus set",
		}),
		IngestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "swarmsentry_ingest_latency_seconds",
			Help:    "Latency of a full ingest (record, evaluate, admit)",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.ReportsIngested,
		m.AddressesAdmitted,
		m.Broadcasts,
		m.BroadcastDrops,
		m.SerializeFailures,
		m.SubscriberCount,
		m.MemberCount,
		m.IngestLatency,
	)

	return m
}

// Close unregisters all metrics from the default registry.
func (m *Metrics) Close() {
	prometheus.Unregister(m.ReportsIngested)
	prometheus.Unregister(m.AddressesAdmitted)
	prometheus.Unregister(m.Broadcasts)
	prometheus.Unregister(m.BroadcastDrops)
	prometheus.Unregister(m.SerializeFailures)
	prometheus.Unregister(m.SubscriberCount)
	prometheus.Unregister(m.MemberCount)
	prometheus.Unregister(m.IngestLatency)
}
