package metrics

import "time"

// ClusterStat is one cluster's (global or per-resource) observable Raft
// state, as reported by whatever owns it.
type ClusterStat struct {
	ClusterID string
	IsLeader  bool
	Peers     int
}

// MemberStat counts members sharing a type and status.
type MemberStat struct {
	Type   string
	Status string
	Count  int
}

// Source is implemented by the coordinator: Collector depends on this
// narrow interface instead of importing pkg/coordinator directly, so
// metrics stays a leaf package the way it is in the teacher's layout.
type Source interface {
	ClusterStats() []ClusterStat
	MemberStats() []MemberStat
	ResourceCounts() map[string]int
}

// Collector periodically samples a Source and updates the package's
// gauges, mirroring the teacher's own polling collector.
type Collector struct {
	source Source
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector over source.
func NewCollector(source Source) *Collector {
	return &Collector{source: source, stopCh: make(chan struct{})}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectMemberMetrics()
	c.collectResourceMetrics()
	c.collectRaftMetrics()
}

func (c *Collector) collectMemberMetrics() {
	for _, m := range c.source.MemberStats() {
		MembersTotal.WithLabelValues(m.Type, m.Status).Set(float64(m.Count))
	}
}

func (c *Collector) collectResourceMetrics() {
	for kind, count := range c.source.ResourceCounts() {
		ResourcesTotal.WithLabelValues(kind).Set(float64(count))
	}
}

func (c *Collector) collectRaftMetrics() {
	for _, stat := range c.source.ClusterStats() {
		if stat.IsLeader {
			RaftLeader.WithLabelValues(stat.ClusterID).Set(1)
		} else {
			RaftLeader.WithLabelValues(stat.ClusterID).Set(0)
		}
		RaftPeers.WithLabelValues(stat.ClusterID).Set(float64(stat.Peers))
	}
}
