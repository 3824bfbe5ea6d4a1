// Package router implements the Resource Router: the thing that binds a
// Raft protocol engine's six fixed topics onto a Member Endpoint so the
// engine can send and receive without ever touching a connection itself.
package router

import (
	"context"
	"fmt"

	"github.com/cuemby/raftcoord/pkg/member"
	"github.com/cuemby/raftcoord/pkg/raftproto"
)

// Peer is the subset of member.Endpoint the router needs to reach a
// remote node: the registry's per-peer Endpoint already satisfies this.
type Peer interface {
	Send(ctx context.Context, topic raftproto.Topic, protoID uint16, req raftproto.Envelope) (raftproto.Envelope, error)
}

// PeerResolver finds the Peer a given uri should be sent to, typically a
// lookup in the coordinator's member registry.
type PeerResolver func(uri string) (Peer, bool)

// Router installs a Protocol's inbound handlers on a local member
// endpoint and its outbound functions against a peer resolver, covering
// all six fixed topics as one atomic unit.
type Router struct {
	local    *member.Endpoint
	resolve  PeerResolver
	protoID  uint16
	bound    raftproto.Protocol
}

// New builds a router bound to local (the node's own endpoint, the one
// inbound requests are dispatched against) and resolve (how to find the
// Peer for an outbound request's target uri), under the fixed wire
// protocol id.
func New(local *member.Endpoint, resolve PeerResolver) *Router {
	return NewWithProtocol(local, resolve, raftproto.ProtocolID)
}

// NewWithProtocol builds a router the same way New does, but under protoID
// instead of the fixed wire constant. The coordinator needs this for
// resource clusters: every cluster shares one member endpoint per peer
// (one physical connection, reused by the global cluster and every open
// resource), so each cluster's router must claim its own (topic, protoID)
// slot in that endpoint's handler table rather than colliding with
// raftproto.ProtocolID on the same topic.
func NewWithProtocol(local *member.Endpoint, resolve PeerResolver, protoID uint16) *Router {
	return &Router{local: local, resolve: resolve, protoID: protoID}
}

// CreateRoutes binds proto's inbound handlers and outbound senders onto
// all six fixed topics. It must be called before the protocol engine is
// opened: a protocol that starts sending before its routes exist has
// nowhere for those sends to go.
func (r *Router) CreateRoutes(proto raftproto.Protocol) error {
	if r.bound != nil {
		return fmt.Errorf("router: a protocol is already bound")
	}
	for _, topic := range raftproto.Topics() {
		r.local.RegisterHandler(topic, r.protoID, proto.Inbound(topic))
		t := topic
		proto.SetOutbound(topic, func(ctx context.Context, req raftproto.Envelope) (raftproto.Envelope, error) {
			return r.send(ctx, t, req)
		})
	}
	r.bound = proto
	return nil
}

// DestroyRoutes tears down every binding CreateRoutes installed. It must
// be called after the protocol engine is closed, so no late-arriving send
// races a handler table that has already been emptied.
func (r *Router) DestroyRoutes() {
	if r.bound == nil {
		return
	}
	for _, topic := range raftproto.Topics() {
		r.local.UnregisterHandler(topic, r.protoID)
		r.bound.ClearOutbound(topic)
	}
	r.bound = nil
}

func (r *Router) send(ctx context.Context, topic raftproto.Topic, req raftproto.Envelope) (raftproto.Envelope, error) {
	peer, ok := r.resolve(req.URI)
	if !ok {
		return raftproto.Envelope{}, &raftproto.InvalidMemberError{URI: req.URI}
	}
	return peer.Send(ctx, topic, r.protoID, req)
}
