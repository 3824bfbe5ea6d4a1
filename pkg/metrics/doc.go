/*
Package metrics provides Prometheus metrics collection and exposition for
the coordinator.

The metrics package defines and registers coordinator metrics using the
Prometheus client library, giving observability into membership,
per-cluster Raft leadership and peer counts, resource counts, and admin
API request counts and latency. The router metrics and the Raft
apply-duration and commit metrics are declared and registered, but
nothing in this module updates them. Metrics are exposed via an HTTP
endpoint for scraping.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  Prometheus Registry (global, MustRegister at init)      │
	│       │                                                    │
	│  Metric Categories:                                        │
	│    Membership: coordinator_members_total                  │
	│    Resources:  coordinator_resources_total                │
	│    Raft:       coordinator_raft_is_leader,                │
	│                coordinator_raft_peers_total,               │
	│                coordinator_raft_apply_duration_seconds,    │
	│                coordinator_raft_commits_total              │
	│    Router:     coordinator_router_requests_total,          │
	│                coordinator_router_request_duration_seconds │
	│    Admin API:  coordinator_api_requests_total,              │
	│                coordinator_api_request_duration_seconds     │
	│       │                                                    │
	│  Collector (pkg/metrics.Collector) polls a Source          │
	│  (implemented by pkg/coordinator) every 15s and sets        │
	│  the membership/resource/Raft gauges.                       │
	│       │                                                    │
	│  HTTP: metrics.Handler() on /metrics                       │
	└────────────────────────────────────────────────────────────┘

Raft metrics are per-cluster: the coordinator runs one global Raft group
plus one group per registered resource, so the Raft gauges and histograms all
carry a cluster_id label rather than being single scalars.

# Usage

	http.Handle("/metrics", metrics.Handler())

	timer := metrics.NewTimer()
	resp, err := handle(req)
	timer.ObserveDurationVec(metrics.APIRequestDuration, method)

	collector := metrics.NewCollector(coord) // coord implements Source
	collector.Start()
	defer collector.Stop()

# Design

Package-init registration, like the rest of the stack: metrics are
declared and MustRegister'd at package init so they're ready before any
caller touches them. The Collector depends on the narrow Source
interface rather than importing pkg/coordinator, keeping metrics a leaf
package.

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics
