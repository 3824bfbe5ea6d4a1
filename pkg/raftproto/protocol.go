package raftproto

import "context"

// Envelope is the generic request/response shape carried on every topic.
// Every request names a target URI (spec §6: "every request carries a
// target uri") so the router can resolve it to a member endpoint on the
// outbound path.
type Envelope struct {
	URI     string
	Payload []byte
}

// Handler answers an inbound request received on one of the six topics.
type Handler func(ctx context.Context, req Envelope) (Envelope, error)

// OutboundFunc is installed by the router as a protocol's means of
// emitting a request on one of the six topics; the protocol engine calls
// it whenever it needs to talk to a peer and knows nothing about how the
// bytes actually travel.
type OutboundFunc func(ctx context.Context, req Envelope) (Envelope, error)

// Protocol is the external Raft protocol surface a Resource Router binds
// to a member endpoint. A concrete implementation (package engine) is an
// opaque protocol engine from the router's point of view: the router
// never inspects payloads, it only shuttles Envelopes between the six
// topics and the protocol's inbound/outbound slots.
type Protocol interface {
	// Inbound returns the handler that answers requests arriving on topic.
	// It must never return nil; unsupported topics should still return a
	// handler that fails fast so the router's six bindings stay uniform.
	Inbound(topic Topic) Handler

	// SetOutbound installs fn as the function the protocol engine calls to
	// emit requests on topic. Called by the router during CreateRoutes.
	SetOutbound(topic Topic, fn OutboundFunc)

	// ClearOutbound removes whatever outbound function is installed for
	// topic, returning the protocol to a state where it cannot emit on
	// that topic. Called by the router during DestroyRoutes.
	ClearOutbound(topic Topic)
}
