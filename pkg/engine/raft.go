// Package engine implements the Raft Context: the component that owns a
// genuine *raft.Raft per cluster (the global membership cluster and one
// per resource) and exposes it to the rest of the coordinator as a
// raftproto.Protocol, so the Resource Router can bind it to a member
// endpoint without knowing anything about Raft itself.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/raft"

	"github.com/cuemby/raftcoord/pkg/raftproto"
)

// ErrNoLeader is returned when a QUERY or COMMIT arrives and this cluster
// has no leader to forward to.
var ErrNoLeader = errors.New("engine: no known leader")

// LeaderChangeEvent is published whenever this cluster's leadership
// changes, including transitions where this node becomes or stops being
// leader. Generalizes the teacher's events.Broker to a single, typed
// event rather than a free-form Event{Type, Metadata} bag.
type LeaderChangeEvent struct {
	ClusterID string
	Leader    string
	IsLeader  bool
}

const applyTimeout = 5 * time.Second

// RaftContext wraps one *raft.Raft and the transport it runs over. It
// satisfies raftproto.Protocol: APPEND/VOTE/SYNC/POLL are delegated to
// the wrapped raft.Transport, while QUERY/COMMIT are answered directly,
// either by applying/reading local state (when this node is leader) or
// by forwarding to whoever is.
type RaftContext struct {
	clusterID string
	localAddr string

	raft  *raft.Raft
	trans *transport
	fsm   *fsm

	queryOut  raftproto.OutboundFunc
	commitOut raftproto.OutboundFunc

	subs   map[chan LeaderChangeEvent]bool
	subsMu sync.Mutex
	stopCh chan struct{}
}

// Open constructs and starts a *raft.Raft for clusterID. applier backs
// the cluster's replicated state; st supplies its log/stable/snapshot
// stores (see OpenStores and inmemStores).
func Open(clusterID, localID, localAddr string, applier Applier, st *stores) (*RaftContext, error) {
	cfg := raft.DefaultConfig()
	cfg.LocalID = raft.ServerID(localID)
	cfg.HeartbeatTimeout = 500 * time.Millisecond
	cfg.ElectionTimeout = 500 * time.Millisecond
	cfg.CommitTimeout = 50 * time.Millisecond
	cfg.LeaderLeaseTimeout = 250 * time.Millisecond

	trans := newTransport(raft.ServerAddress(localAddr))
	fsmAdapter := newFSM(applier)

	r, err := raft.NewRaft(cfg, fsmAdapter, st.log, st.stable, st.snapshot, trans)
	if err != nil {
		return nil, fmt.Errorf("engine: start raft for cluster %s: %w", clusterID, err)
	}

	rc := &RaftContext{
		clusterID: clusterID,
		localAddr: localAddr,
		raft:      r,
		trans:     trans,
		fsm:       fsmAdapter,
		subs:      make(map[chan LeaderChangeEvent]bool),
		stopCh:    make(chan struct{}),
	}
	go rc.watchLeadership()
	return rc, nil
}

// Bootstrap seeds this cluster's initial configuration. Call it exactly
// once, on exactly one of the founding members, before any other member
// joins.
func (rc *RaftContext) Bootstrap(servers []raft.Server) error {
	return rc.raft.BootstrapCluster(raft.Configuration{Servers: servers}).Error()
}

// AddVoter admits id/addr as a voting member of this cluster.
func (rc *RaftContext) AddVoter(id, addr string) error {
	return rc.raft.AddVoter(raft.ServerID(id), raft.ServerAddress(addr), 0, 0).Error()
}

// RemoveServer evicts id from this cluster's configuration.
func (rc *RaftContext) RemoveServer(id string) error {
	return rc.raft.RemoveServer(raft.ServerID(id), 0, 0).Error()
}

func (rc *RaftContext) IsLeader() bool { return rc.raft.State() == raft.Leader }

func (rc *RaftContext) LeaderAddr() string { return string(rc.raft.Leader()) }

// Close shuts this cluster's raft instance down and stops the
// leadership watcher.
func (rc *RaftContext) Close() error {
	close(rc.stopCh)
	return rc.raft.Shutdown().Error()
}

// Commit applies cmd to this cluster's replicated state, forwarding to
// the leader first if this node isn't it.
func (rc *RaftContext) Commit(ctx context.Context, cmd []byte) ([]byte, error) {
	if rc.IsLeader() {
		future := rc.raft.Apply(cmd, applyTimeout)
		if err := future.Error(); err != nil {
			return nil, fmt.Errorf("engine: apply: %w", err)
		}
		res, _ := future.Response().(fsmResult)
		return res.value, res.err
	}
	leader := rc.LeaderAddr()
	if leader == "" {
		return nil, ErrNoLeader
	}
	if rc.commitOut == nil {
		return nil, fmt.Errorf("engine: no commit route installed")
	}
	resp, err := rc.commitOut(ctx, raftproto.Envelope{URI: leader, Payload: cmd})
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// Query reads this cluster's replicated state, forwarding to the leader
// first if this node isn't it. Reads are served from the leader's local
// state rather than through the Raft log, the same tradeoff the spec's
// own QUERY topic makes explicit.
func (rc *RaftContext) Query(ctx context.Context, req []byte) ([]byte, error) {
	if rc.IsLeader() {
		return rc.fsm.applier.Query(req)
	}
	leader := rc.LeaderAddr()
	if leader == "" {
		return nil, ErrNoLeader
	}
	if rc.queryOut == nil {
		return nil, fmt.Errorf("engine: no query route installed")
	}
	resp, err := rc.queryOut(ctx, raftproto.Envelope{URI: leader, Payload: req})
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// Subscribe registers a channel for this cluster's leadership events.
// Delivery is non-blocking: a slow subscriber misses events rather than
// stalling the watcher, mirroring the teacher's Broker.Publish semantics.
func (rc *RaftContext) Subscribe() chan LeaderChangeEvent {
	ch := make(chan LeaderChangeEvent, 8)
	rc.subsMu.Lock()
	rc.subs[ch] = true
	rc.subsMu.Unlock()
	return ch
}

func (rc *RaftContext) Unsubscribe(ch chan LeaderChangeEvent) {
	rc.subsMu.Lock()
	delete(rc.subs, ch)
	rc.subsMu.Unlock()
}

func (rc *RaftContext) watchLeadership() {
	for {
		select {
		case isLeader, ok := <-rc.raft.LeaderCh():
			if !ok {
				return
			}
			ev := LeaderChangeEvent{ClusterID: rc.clusterID, Leader: rc.LeaderAddr(), IsLeader: isLeader}
			rc.subsMu.Lock()
			for ch := range rc.subs {
				select {
				case ch <- ev:
				default:
				}
			}
			rc.subsMu.Unlock()
		case <-rc.stopCh:
			return
		}
	}
}

// Protocol implementation: APPEND/VOTE/SYNC/POLL delegate to the
// wrapped raft.Transport; QUERY/COMMIT are answered here directly.

func (rc *RaftContext) Inbound(topic raftproto.Topic) raftproto.Handler {
	switch topic {
	case raftproto.Append:
		return rc.trans.inboundHandler(func() interface{} { return &raft.AppendEntriesRequest{} })
	case raftproto.Vote:
		return rc.trans.inboundHandler(func() interface{} { return &raft.RequestVoteRequest{} })
	case raftproto.Sync:
		return rc.trans.inboundSnapshotHandler()
	case raftproto.Poll:
		return rc.trans.inboundHandler(func() interface{} { return &raft.TimeoutNowRequest{} })
	case raftproto.Query:
		return func(ctx context.Context, req raftproto.Envelope) (raftproto.Envelope, error) {
			b, err := rc.Query(ctx, req.Payload)
			return raftproto.Envelope{Payload: b}, err
		}
	case raftproto.Commit:
		return func(ctx context.Context, req raftproto.Envelope) (raftproto.Envelope, error) {
			b, err := rc.Commit(ctx, req.Payload)
			return raftproto.Envelope{Payload: b}, err
		}
	default:
		return func(ctx context.Context, req raftproto.Envelope) (raftproto.Envelope, error) {
			return raftproto.Envelope{}, fmt.Errorf("engine: unsupported topic %s", topic)
		}
	}
}

func (rc *RaftContext) SetOutbound(topic raftproto.Topic, fn raftproto.OutboundFunc) {
	switch topic {
	case raftproto.Append, raftproto.Vote, raftproto.Sync, raftproto.Poll:
		rc.trans.bindOutbound(topic, fn)
	case raftproto.Query:
		rc.queryOut = fn
	case raftproto.Commit:
		rc.commitOut = fn
	}
}

func (rc *RaftContext) ClearOutbound(topic raftproto.Topic) {
	switch topic {
	case raftproto.Append, raftproto.Vote, raftproto.Sync, raftproto.Poll:
		rc.trans.clearOutbound(topic)
	case raftproto.Query:
		rc.queryOut = nil
	case raftproto.Commit:
		rc.commitOut = nil
	}
}
