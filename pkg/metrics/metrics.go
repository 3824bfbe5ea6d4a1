package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Membership metrics
	MembersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coordinator_members_total",
			Help: "Total number of members by type and status",
		},
		[]string{"type", "status"},
	)

	ResourcesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coordinator_resources_total",
			Help: "Total number of registered resources by kind",
		},
		[]string{"kind"},
	)

	// Raft metrics, one observation per cluster (global or per-resource)
	RaftLeader = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coordinator_raft_is_leader",
			Help: "Whether this node is the Raft leader for a cluster (1 = leader, 0 = follower)",
		},
		[]string{"cluster_id"},
	)

	RaftPeers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coordinator_raft_peers_total",
			Help: "Total number of Raft peers in a cluster",
		},
		[]string{"cluster_id"},
	)

	RaftApplyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coordinator_raft_apply_duration_seconds",
			Help:    "Time taken to apply a Raft log entry",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cluster_id"},
	)

	RaftCommitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_raft_commits_total",
			Help: "Total number of COMMIT operations by outcome",
		},
		[]string{"cluster_id", "outcome"},
	)

	// Router / transport metrics
	RouterRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_router_requests_total",
			Help: "Total number of requests routed by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	RouterRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coordinator_router_request_duration_seconds",
			Help:    "Routed request duration by topic",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	// Admin API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_api_requests_total",
			Help: "Total number of admin API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coordinator_api_request_duration_seconds",
			Help:    "Admin API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(MembersTotal)
	prometheus.MustRegister(ResourcesTotal)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(RaftCommitTotal)
	prometheus.MustRegister(RouterRequestsTotal)
	prometheus.MustRegister(RouterRequestDuration)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
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
