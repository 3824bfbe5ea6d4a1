package member

import (
	"fmt"
	"net"
	"sync"

	"github.com/cuemby/raftcoord/pkg/wire"
)

// Registry tracks the set of members known to this node and owns the
// listener that accepts inbound connections from them. It is the thing a
// Resource Router's peer resolver consults to find the endpoint for a uri.
type Registry struct {
	localURI string
	local    *Endpoint

	mu        sync.RWMutex
	endpoints map[string]*Endpoint

	ln net.Listener
}

// NewRegistry builds a registry for a node whose own address is localURI.
// The registry's local endpoint is opened immediately: it owns the
// handler table every inbound connection, regardless of which peer sent
// it, ultimately dispatches against.
func NewRegistry(localURI string) *Registry {
	local := NewEndpoint(Local(localURI, Active), localURI)
	local.Open()
	return &Registry{
		localURI:  localURI,
		local:     local,
		endpoints: make(map[string]*Endpoint),
	}
}

// LocalEndpoint returns the endpoint representing this node, the one a
// Resource Router binds a Protocol's handlers to.
func (r *Registry) LocalEndpoint() *Endpoint { return r.local }

// SetLocalType marks this node's own member record ACTIVE or PASSIVE. The
// coordinator calls this at construction once it knows whether the local
// uri appears in the configured member set.
func (r *Registry) SetLocalType(t Type) { r.local.SetType(t) }

// Listen opens a TCP listener on addr and starts accepting peer
// connections in the background. Each accepted connection is served by
// the local endpoint (see serveConn), whichever peer dialed in.
func (r *Registry) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("member: listen %s: %w", addr, err)
	}
	r.ln = ln
	go r.acceptLoop(ln)
	return nil
}

func (r *Registry) acceptLoop(ln net.Listener) {
	for {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		go r.serveConn(raw)
	}
}

// serveConn handles one inbound connection. Every request on it, no
// matter which peer dialed in, is answered by the registry's local
// endpoint: that's where the Resource Router installed the active
// Protocol's handlers.
func (r *Registry) serveConn(raw net.Conn) {
	c := wire.NewConn(raw, wire.Default)
	r.local.adopt(c)
}

// Join adds uri to the registry (if not already present) and returns its
// Endpoint, open and ready to send/receive. Calling Join for a uri already
// registered just returns the existing Endpoint.
func (r *Registry) Join(info Info) *Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ep, ok := r.endpoints[info.URI]; ok {
		return ep
	}
	ep := NewEndpoint(info, r.localURI)
	ep.Open()
	r.endpoints[info.URI] = ep
	return ep
}

// Leave removes uri from the registry and closes its endpoint.
func (r *Registry) Leave(uri string) {
	r.mu.Lock()
	ep, ok := r.endpoints[uri]
	delete(r.endpoints, uri)
	r.mu.Unlock()
	if ok {
		ep.Close()
	}
}

// Member returns the endpoint for uri, if known.
func (r *Registry) Member(uri string) (*Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[uri]
	return ep, ok
}

// Members returns a snapshot of every known member's Info.
func (r *Registry) Members() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		out = append(out, ep.Info())
	}
	return out
}

// LocalURI returns this node's own address.
func (r *Registry) LocalURI() string { return r.localURI }

// Close stops accepting connections and closes every known endpoint.
func (r *Registry) Close() error {
	if r.ln != nil {
		r.ln.Close()
	}
	r.mu.Lock()
	endpoints := r.endpoints
	r.endpoints = make(map[string]*Endpoint)
	r.mu.Unlock()
	for _, ep := range endpoints {
		ep.Close()
	}
	r.local.Close()
	return nil
}
