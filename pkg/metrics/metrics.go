package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ringnode_nodes_total",
			Help: "Total number of known cluster members by state",
		},
		[]string{"state"},
	)

	RingSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ringnode_ring_size",
			Help: "Number of nodes participating in the token ring",
		},
	)

	// Query metrics
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringnode_queries_total",
			Help: "Total number of queries processed by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ringnode_query_duration_seconds",
			Help:    "Query execution duration in seconds by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Coordinator metrics
	CoordinatorReplicaSuccess = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ringnode_coordinator_replica_success_total",
			Help: "Total number of replica requests that returned successfully",
		},
	)

	CoordinatorReplicaFailure = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ringnode_coordinator_replica_failure_total",
			Help: "Total number of replica requests that failed or timed out",
		},
	)

	ReadRepairsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ringnode_read_repairs_total",
			Help: "Total number of rows repaired on stale replicas after a read",
		},
	)

	// Hinted handoff metrics
	HintsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ringnode_hints_pending",
			Help: "Total number of undelivered hints across all target nodes",
		},
	)

	HintsStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ringnode_hints_stored_total",
			Help: "Total number of hints appended for a down replica",
		},
	)

	HintsReplayedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ringnode_hints_replayed_total",
			Help: "Total number of hints successfully replayed",
		},
	)

	// Gossip metrics
	GossipRoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringnode_gossip_rounds_total",
			Help: "Total number of gossip rounds by outcome",
		},
		[]string{"outcome"},
	)

	// Storage metrics
	RowsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ringnode_rows_total",
			Help: "Total number of rows stored, including tombstones, by keyspace and table",
		},
		[]string{"keyspace", "table"},
	)

	// Client protocol metrics
	ConnectionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ringnode_client_connections_total",
			Help: "Total number of open client connections",
		},
	)

	FramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ringnode_frames_total",
			Help: "Total number of wire frames processed by opcode",
		},
		[]string{"opcode"},
	)
)

func init() {
	prometheus.MustRegister(
		NodesTotal,
		RingSize,
		QueriesTotal,
		QueryDuration,
		CoordinatorReplicaSuccess,
		CoordinatorReplicaFailure,
		ReadRepairsTotal,
		HintsPending,
		HintsStoredTotal,
		HintsReplayedTotal,
		GossipRoundsTotal,
		RowsTotal,
		ConnectionsTotal,
		FramesTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
