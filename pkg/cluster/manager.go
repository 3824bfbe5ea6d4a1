// Package cluster implements the Cluster Manager: the component that
// owns one Raft Context and Resource Router pair (the global membership
// cluster, or one per resource) and exposes membership changes to
// listeners above it. Its AddMember/RemoveMember/Members surface mirrors
// the precondition-driven cluster contract other Raft-backed cluster
// libraries expose, generalized to the fixed six-topic wire this module
// uses instead of an HTTP/gRPC transport.
package cluster

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/raftcoord/pkg/engine"
	"github.com/cuemby/raftcoord/pkg/member"
	"github.com/cuemby/raftcoord/pkg/raftproto"
	"github.com/cuemby/raftcoord/pkg/router"
)

// MembershipEvent is published to listeners whenever a member joins or
// leaves this cluster.
type MembershipEvent struct {
	Member member.Info
	Joined bool
}

// Listener receives membership events. Registered and unregistered
// through AddMembershipListener/RemoveMembershipListener.
type Listener func(MembershipEvent)

// Manager binds a RaftContext and Router together as one cluster and
// tracks who is currently a member of it.
type Manager struct {
	id       string
	localURI string

	rc     *engine.RaftContext
	router *router.Router

	mu        sync.RWMutex
	members   map[string]member.Info
	listeners map[int]Listener
	nextID    int

	open bool
}

// New builds a cluster manager for a cluster identified by id ("0" for
// the global cluster, a per-resource id for everything else).
func New(id, localURI string, rc *engine.RaftContext, rt *router.Router) *Manager {
	return &Manager{
		id:        id,
		localURI:  localURI,
		rc:        rc,
		router:    rt,
		members:   make(map[string]member.Info),
		listeners: make(map[int]Listener),
	}
}

// Open wires the cluster's RaftContext onto its Router's six topics.
// Must be called before the cluster can send or receive anything.
func (m *Manager) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return fmt.Errorf("cluster: %s is already open", m.id)
	}
	if err := m.router.CreateRoutes(m.rc); err != nil {
		return fmt.Errorf("cluster: open %s: %w", m.id, err)
	}
	m.open = true
	return nil
}

// Close shuts the cluster's RaftContext down, then tears down routing.
// The context must stop first: DestroyRoutes leaves the router with no
// outbound functions to call, so closing it first would strand any
// in-flight Raft RPC with nowhere to deliver its reply.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil
	}
	err := m.rc.Close()
	m.router.DestroyRoutes()
	m.open = false
	return err
}

func (m *Manager) ID() string { return m.id }

// IsOpen reports whether routes are currently wired onto this cluster's
// router. The coordinator consults this to make acquire/release idempotent.
func (m *Manager) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

func (m *Manager) IsLeader() bool { return m.rc.IsLeader() }

func (m *Manager) LeaderAddr() string { return m.rc.LeaderAddr() }

// Commit replicates cmd through this cluster's Raft log.
func (m *Manager) Commit(ctx context.Context, cmd []byte) ([]byte, error) {
	return m.rc.Commit(ctx, cmd)
}

// Query answers a read-only command from this cluster's replicated
// state.
func (m *Manager) Query(ctx context.Context, req []byte) ([]byte, error) {
	return m.rc.Query(ctx, req)
}

// AddMember admits info as a voting member: first into this cluster's
// Raft configuration, then into the local membership view, only then
// notifying listeners. A failed AddVoter leaves membership untouched.
func (m *Manager) AddMember(info member.Info) error {
	if err := m.rc.AddVoter(info.URI, info.URI); err != nil {
		return fmt.Errorf("cluster: add member %s: %w", info.URI, err)
	}
	m.mu.Lock()
	m.members[info.URI] = info
	listeners := m.snapshotListeners()
	m.mu.Unlock()
	m.notify(listeners, MembershipEvent{Member: info, Joined: true})
	return nil
}

// RemoveMember evicts uri from this cluster's Raft configuration and
// membership view, notifying listeners last.
func (m *Manager) RemoveMember(uri string) error {
	if err := m.rc.RemoveServer(uri); err != nil {
		return fmt.Errorf("cluster: remove member %s: %w", uri, err)
	}
	m.mu.Lock()
	info, ok := m.members[uri]
	delete(m.members, uri)
	listeners := m.snapshotListeners()
	m.mu.Unlock()
	if ok {
		m.notify(listeners, MembershipEvent{Member: info, Joined: false})
	}
	return nil
}

// Seed populates the cluster's membership view from infos without
// touching Raft configuration or notifying listeners. The coordinator
// calls this once at Open, after the cluster's Raft servers have been
// established by Bootstrap (or already exist from a prior run): it
// makes the in-memory view match the configured member set immediately,
// rather than waiting on AddMember calls that will never come for
// statically configured peers. An entry already present is left alone,
// so a late Seed after dynamic joins have started can't roll one back.
func (m *Manager) Seed(infos []member.Info) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range infos {
		if _, ok := m.members[info.URI]; !ok {
			m.members[info.URI] = info
		}
	}
}

// Member returns what this node knows about uri's membership.
func (m *Manager) Member(uri string) (member.Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.members[uri]
	return info, ok
}

// LocalMember returns this node's own Info within this cluster.
func (m *Manager) LocalMember() member.Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if info, ok := m.members[m.localURI]; ok {
		return info
	}
	return member.Local(m.localURI, member.Active)
}

// Members returns a snapshot of every member this node currently knows
// about.
func (m *Manager) Members() []member.Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]member.Info, 0, len(m.members))
	for _, info := range m.members {
		out = append(out, info)
	}
	return out
}

// AddMembershipListener registers fn and returns a handle for later
// removal.
func (m *Manager) AddMembershipListener(fn Listener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return id
}

// RemoveMembershipListener unregisters the listener handle returned by
// AddMembershipListener.
func (m *Manager) RemoveMembershipListener(handle int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, handle)
}

func (m *Manager) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		out = append(out, fn)
	}
	return out
}

func (m *Manager) notify(listeners []Listener, ev MembershipEvent) {
	for _, fn := range listeners {
		fn(ev)
	}
}

// Protocol exposes the cluster's RaftContext for callers (the
// coordinator) that need to bootstrap it directly.
func (m *Manager) Protocol() raftproto.Protocol { return m.rc }

func (m *Manager) Raft() *engine.RaftContext { return m.rc }
