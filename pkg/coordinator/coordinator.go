// Package coordinator implements the Coordinator: the per-node object that
// owns the global membership cluster, the member endpoints every cluster
// routes through, and the set of open resource holders. It is the thing a
// process constructs once, opens, and closes; everything else in this
// module exists to serve one of those three operations.
package coordinator

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/raft"
	"github.com/rs/zerolog"

	"github.com/cuemby/raftcoord/pkg/cluster"
	"github.com/cuemby/raftcoord/pkg/config"
	"github.com/cuemby/raftcoord/pkg/engine"
	"github.com/cuemby/raftcoord/pkg/log"
	"github.com/cuemby/raftcoord/pkg/member"
	"github.com/cuemby/raftcoord/pkg/metrics"
	"github.com/cuemby/raftcoord/pkg/resource"
	"github.com/cuemby/raftcoord/pkg/router"
)

// globalClusterID names the membership cluster; every resource cluster's
// id is derived from its name instead (see resourceClusterID).
const globalClusterID = "0"

// noopApplier backs the global cluster's Raft log. The global cluster
// exists to run leader election over the member set, not to replicate
// application state, so raft.FSM.Apply/Snapshot/Restore have nothing to
// do; membership itself is carried in Raft's own configuration, mutated
// through AddVoter/RemoveServer rather than through the log.
type noopApplier struct{}

func (noopApplier) Apply(cmd []byte) ([]byte, error) { return nil, nil }
func (noopApplier) Query(req []byte) ([]byte, error) { return nil, nil }
func (noopApplier) Snapshot() ([]byte, error)        { return nil, nil }
func (noopApplier) Restore(snapshot []byte) error    { return nil }

// resourceEntry is the coordinator's Resource Holder: the resource, the
// cluster replicating it, and the Raft context backing that cluster,
// addressed as one unit once get_resource builds it.
type resourceEntry struct {
	name     string
	holder   *resource.Holder
	rc       *engine.RaftContext
	cluster  *cluster.Manager
	replicas []string

	mu           sync.Mutex
	bootstrapped bool
}

// Coordinator is the top-level object described in §4.4: construction
// deep-copies its config, builds the local and remote member endpoints for
// the global cluster, and builds the global cluster manager. Construction
// already starts each endpoint's executor and the global Raft instance;
// the listener, the global cluster's routes and the bootstrap wait for
// Open.
type Coordinator struct {
	cfg      *config.Config
	registry *member.Registry
	global   *cluster.Manager
	globalRC *engine.RaftContext

	listenerHandle int
	hasListener    bool

	mu        sync.Mutex
	resources map[string]*resourceEntry

	open   atomic.Bool
	logger zerolog.Logger
}

// New constructs a Coordinator from cfg. cfg is deep-copied immediately;
// later mutation of the caller's cfg has no effect on the coordinator.
func New(cfg *config.Config) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cloned := cfg.Clone()

	registry := member.NewRegistry(cloned.LocalMember)
	if cloned.IsActiveMember(cloned.LocalMember) {
		registry.SetLocalType(member.Active)
	} else {
		registry.SetLocalType(member.Passive)
	}
	for _, uri := range cloned.Members {
		if uri == cloned.LocalMember {
			continue
		}
		registry.Join(member.Info{URI: uri, Type: member.Active, Status: member.Alive})
	}

	rt := router.New(registry.LocalEndpoint(), peerResolver(registry))

	rc, err := openRaft(cloned, globalClusterID, cloned.LocalMember, noopApplier{})
	if err != nil {
		return nil, fmt.Errorf("coordinator: open global raft context: %w", err)
	}

	global := cluster.New(globalClusterID, cloned.LocalMember, rc, rt)

	return &Coordinator{
		cfg:       cloned,
		registry:  registry,
		global:    global,
		globalRC:  rc,
		resources: make(map[string]*resourceEntry),
		logger:    log.WithComponent("coordinator"),
	}, nil
}

// peerResolver closes over registry to satisfy router.PeerResolver. Every
// cluster this coordinator owns (the global cluster and every resource
// cluster) shares the same registry: one physical connection per peer uri,
// reused across all of them, is what lets a single transport surface carry
// every cluster's Raft traffic.
func peerResolver(registry *member.Registry) router.PeerResolver {
	return func(uri string) (router.Peer, bool) {
		return registry.Member(uri)
	}
}

// openRaft starts the Raft instance for a cluster, choosing durable
// boltdb-backed stores when cfg.DataDir is set and in-memory stores
// otherwise.
func openRaft(cfg *config.Config, clusterID, localAddr string, applier engine.Applier) (*engine.RaftContext, error) {
	if cfg.DataDir == "" {
		return engine.Open(clusterID, localAddr, localAddr, applier, engine.InMemoryStores())
	}
	st, err := engine.OpenStores(cfg.DataDir, clusterID, 2)
	if err != nil {
		return nil, err
	}
	return engine.Open(clusterID, localAddr, localAddr, applier, st)
}

// resourceClusterID derives a cluster id from a resource name, mirroring
// spec §4.4's "cluster manager with id = hash(name)".
func resourceClusterID(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	return fmt.Sprintf("r-%08x", h.Sum32())
}

// resourceProtocolID derives a protocol id distinct from raftproto's fixed
// wire constant, so a resource's router can claim its own (topic, protoID)
// slot on the member endpoint the global cluster (and every other open
// resource) already shares, instead of colliding with it.
func resourceProtocolID(clusterID string) uint16 {
	h := fnv.New32a()
	h.Write([]byte(clusterID))
	id := uint16(h.Sum32())
	if id == 0 || id == 1 {
		id = 2
	}
	return id
}

// Open brings the coordinator up: member endpoints, then the global
// cluster, then the global Raft context, in that order, matching §5's
// ordering guarantee. Calling Open on an already-open coordinator is a
// no-op.
func (c *Coordinator) Open() error {
	if c.open.Load() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open.Load() {
		return nil
	}

	// Member endpoints' executors are already running: the local endpoint
	// opens at registry construction, and every remote endpoint opens as
	// soon as New's registry.Join call for it returns. Open still needs to
	// establish the transport itself: start accepting inbound connections.
	if err := c.registry.Listen(c.cfg.LocalMember); err != nil {
		return fmt.Errorf("coordinator: listen on %s: %w", c.cfg.LocalMember, err)
	}

	c.listenerHandle = c.global.AddMembershipListener(c.onMembershipEvent)
	c.hasListener = true

	if err := c.global.Open(); err != nil {
		c.global.RemoveMembershipListener(c.listenerHandle)
		c.hasListener = false
		return fmt.Errorf("coordinator: open global cluster: %w", err)
	}

	servers := []raft.Server{{ID: raft.ServerID(c.cfg.LocalMember), Address: raft.ServerAddress(c.cfg.LocalMember)}}
	for _, uri := range c.cfg.Members {
		if uri == c.cfg.LocalMember {
			continue
		}
		servers = append(servers, raft.Server{ID: raft.ServerID(uri), Address: raft.ServerAddress(uri)})
	}
	if err := c.globalRC.Bootstrap(servers); err != nil {
		c.logger.Debug().Err(err).Msg("global cluster bootstrap skipped (already bootstrapped or not founding member)")
	}

	// The configured member set only ever reaches the registry at New; it
	// never goes through AddMember, so nothing populates the cluster
	// manager's own membership view for it. Seed it here so Member/Members
	// reflect every configured member, local included, as soon as Open
	// returns, matching what's already in the registry.
	c.global.Seed([]member.Info{c.registry.LocalEndpoint().Info()})
	c.global.Seed(c.registry.Members())

	c.open.Store(true)
	c.logger.Info().Str("local_member", c.cfg.LocalMember).Msg("coordinator open")
	return nil
}

// Close tears the coordinator down: the open flag drops first so new
// operations fail fast, then every open resource holder closes
// concurrently, then the global context and cluster close, matching §5's
// ordering guarantee for close. Calling Close on an already-closed
// coordinator is a no-op.
func (c *Coordinator) Close() error {
	if !c.open.Load() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open.Load() {
		return nil
	}
	c.open.Store(false)

	if err := c.closeResources(); err != nil {
		c.logger.Warn().Err(err).Msg("error closing resources during coordinator close")
	}

	if c.hasListener {
		c.global.RemoveMembershipListener(c.listenerHandle)
		c.hasListener = false
	}

	var firstErr error
	if err := c.global.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("coordinator: close global cluster: %w", err)
	}

	c.registry.Close()

	c.logger.Info().Msg("coordinator closed")
	return firstErr
}

// closeResources fans in a concurrent close of every open resource holder
// (spec §4.4's close_resources): each holder's cluster closes independently
// and the composite completes once all of them have.
func (c *Coordinator) closeResources() error {
	var wg sync.WaitGroup
	errs := make([]error, len(c.resources))
	i := 0
	for _, entry := range c.resources {
		wg.Add(1)
		idx, e := i, entry
		i++
		go func() {
			defer wg.Done()
			if e.cluster.IsOpen() {
				if err := e.cluster.Close(); err != nil {
					errs[idx] = fmt.Errorf("coordinator: close resource %s: %w", e.name, err)
				}
			}
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// IsOpen reports whether the coordinator is currently open.
func (c *Coordinator) IsOpen() bool { return c.open.Load() }

// onMembershipEvent relays a JOIN/LEAVE observed on the global cluster into
// the coordinator's own member endpoint set (spec §4.4's membership
// handling). JOIN installs a new endpoint if one doesn't already exist for
// that uri; LEAVE tears its endpoint down. Pending sends to a departed uri
// fail naturally through raftproto.InvalidMemberError once it's gone.
func (c *Coordinator) onMembershipEvent(ev cluster.MembershipEvent) {
	if ev.Joined {
		c.registry.Join(ev.Member)
		c.logger.Info().Str("member_uri", ev.Member.URI).Msg("member joined")
	} else {
		c.registry.Leave(ev.Member.URI)
		c.logger.Info().Str("member_uri", ev.Member.URI).Msg("member left")
	}
}

// JoinMember admits a new voting member into the global cluster. The
// membership listener registered in Open propagates the resulting JOIN
// event into the coordinator's own member set.
func (c *Coordinator) JoinMember(uri string) error {
	if !c.open.Load() {
		return ErrNotOpen
	}
	return c.global.AddMember(member.Info{URI: uri, Type: member.Active, Status: member.Alive})
}

// LeaveMember evicts a member from the global cluster.
func (c *Coordinator) LeaveMember(uri string) error {
	if !c.open.Load() {
		return ErrNotOpen
	}
	return c.global.RemoveMember(uri)
}

// Member returns what the coordinator currently knows about uri's
// membership in the global cluster.
func (c *Coordinator) Member(uri string) (member.Info, bool) {
	return c.global.Member(uri)
}

// Members returns a snapshot of the global cluster's current membership.
func (c *Coordinator) Members() []member.Info {
	return c.global.Members()
}

// GetResource implements compute-if-absent: the first call for name builds
// a fresh Raft context, cluster manager, and concrete Resource from rcfg
// and wraps them as a Holder; later calls for the same name return the
// same Holder. Fails with ConfigurationError if rcfg.Kind can't be
// instantiated, or if rcfg.Replicas isn't a subset of the coordinator's
// members.
func (c *Coordinator) GetResource(name string, rcfg config.ResourceConfig) (*resource.Holder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.resources[name]; ok {
		return entry.holder, nil
	}

	if err := c.validateReplicas(rcfg.Replicas); err != nil {
		return nil, err
	}

	res, err := resource.NewResource(rcfg.Kind, name)
	if err != nil {
		return nil, err
	}
	holder := resource.NewHolder(res)

	clusterID := resourceClusterID(name)
	rc, err := openRaft(c.cfg, clusterID, c.cfg.LocalMember, holder)
	if err != nil {
		return nil, fmt.Errorf("coordinator: open raft context for resource %q: %w", name, err)
	}

	rt := router.NewWithProtocol(c.registry.LocalEndpoint(), peerResolver(c.registry), resourceProtocolID(clusterID))
	mgr := cluster.New(clusterID, c.cfg.LocalMember, rc, rt)

	entry := &resourceEntry{
		name:     name,
		holder:   holder,
		rc:       rc,
		cluster:  mgr,
		replicas: append([]string(nil), rcfg.Replicas...),
	}
	c.resources[name] = entry
	c.logger.Info().Str("resource", name).Str("kind", string(rcfg.Kind)).Msg("resource registered")
	return holder, nil
}

func (c *Coordinator) validateReplicas(replicas []string) error {
	if len(replicas) == 0 {
		return nil
	}
	known := map[string]bool{c.cfg.LocalMember: true}
	for _, uri := range c.cfg.Members {
		known[uri] = true
	}
	for _, uri := range replicas {
		if !known[uri] {
			return &resource.ConfigurationError{Reason: fmt.Sprintf("replica %q is not a configured member", uri)}
		}
	}
	return nil
}

// AcquireResource opens name's cluster and Raft state if they're currently
// closed; a resource already open is left alone. Fails with ErrNotOpen if
// the coordinator itself isn't open, or UnknownResourceError if name was
// never registered via GetResource.
func (c *Coordinator) AcquireResource(name string) error {
	if !c.open.Load() {
		return ErrNotOpen
	}
	c.mu.Lock()
	entry, ok := c.resources[name]
	c.mu.Unlock()
	if !ok {
		return &UnknownResourceError{Name: name}
	}
	if entry.cluster.IsOpen() {
		return nil
	}
	if err := entry.cluster.Open(); err != nil {
		return fmt.Errorf("coordinator: acquire %q: %w", name, err)
	}
	if err := entry.openState(c.cfg.LocalMember); err != nil {
		return fmt.Errorf("coordinator: acquire %q: %w", name, err)
	}
	return nil
}

// ReleaseResource closes name's cluster (and the Raft state it owns) if
// currently open; a resource already closed is left alone. Fails with
// UnknownResourceError if name was never registered.
func (c *Coordinator) ReleaseResource(name string) error {
	c.mu.Lock()
	entry, ok := c.resources[name]
	c.mu.Unlock()
	if !ok {
		return &UnknownResourceError{Name: name}
	}
	if !entry.cluster.IsOpen() {
		return nil
	}
	if err := entry.cluster.Close(); err != nil {
		return fmt.Errorf("coordinator: release %q: %w", name, err)
	}
	return nil
}

// openState bootstraps the resource's Raft configuration exactly once,
// the first time it's acquired: later acquire/release/acquire cycles just
// reopen routing over the cluster that's already part of Raft's own log.
func (e *resourceEntry) openState(localURI string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bootstrapped {
		return nil
	}
	var servers []raft.Server
	if len(e.replicas) == 0 {
		servers = []raft.Server{{ID: raft.ServerID(localURI), Address: raft.ServerAddress(localURI)}}
	} else {
		for _, uri := range e.replicas {
			servers = append(servers, raft.Server{ID: raft.ServerID(uri), Address: raft.ServerAddress(uri)})
		}
	}
	if err := e.rc.Bootstrap(servers); err != nil {
		return fmt.Errorf("bootstrap resource %s: %w", e.name, err)
	}
	e.bootstrapped = true
	return nil
}

// ClusterStats implements metrics.Source.
func (c *Coordinator) ClusterStats() []metrics.ClusterStat {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := make([]metrics.ClusterStat, 0, len(c.resources)+1)
	stats = append(stats, metrics.ClusterStat{
		ClusterID: globalClusterID,
		IsLeader:  c.global.IsLeader(),
		Peers:     len(c.global.Members()),
	})
	for _, entry := range c.resources {
		stats = append(stats, metrics.ClusterStat{
			ClusterID: entry.cluster.ID(),
			IsLeader:  entry.cluster.IsLeader(),
			Peers:     len(entry.replicas),
		})
	}
	return stats
}

// MemberStats implements metrics.Source.
func (c *Coordinator) MemberStats() []metrics.MemberStat {
	counts := make(map[[2]string]int)
	for _, info := range c.global.Members() {
		counts[[2]string{string(info.Type), string(info.Status)}]++
	}
	out := make([]metrics.MemberStat, 0, len(counts))
	for k, n := range counts {
		out = append(out, metrics.MemberStat{Type: k[0], Status: k[1], Count: n})
	}
	return out
}

// ResourceCounts implements metrics.Source.
func (c *Coordinator) ResourceCounts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int)
	for _, entry := range c.resources {
		counts[string(entry.holder.Resource().Kind())]++
	}
	return counts
}

// Commit and Query expose the global cluster's replicated command surface
// directly, for callers that need to drive the membership cluster's own
// Raft log rather than a resource's.
func (c *Coordinator) Commit(ctx context.Context, cmd []byte) ([]byte, error) {
	return c.global.Commit(ctx, cmd)
}

func (c *Coordinator) Query(ctx context.Context, req []byte) ([]byte, error) {
	return c.global.Query(ctx, req)
}

// IsLeader reports whether this node is the global cluster's leader.
func (c *Coordinator) IsLeader() bool { return c.global.IsLeader() }

// LeaderAddr returns the global cluster's current leader, if known.
func (c *Coordinator) LeaderAddr() string { return c.global.LeaderAddr() }

// LocalMember returns this node's own configured uri.
func (c *Coordinator) LocalMember() string { return c.cfg.LocalMember }
