package member

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cuemby/raftcoord/pkg/raftproto"
	"github.com/cuemby/raftcoord/pkg/wire"
)

// handlerKey names a single (topic, protocol-id) binding. At most one
// handler may occupy a key at a time: that's the "one protocol engine
// bound per topic" invariant enforced at the router layer, not here.
type handlerKey struct {
	topic   raftproto.Topic
	protoID uint16
}

// Endpoint is the send/receive surface for exactly one peer. All outbound
// sends bound to an Endpoint are serialized through its own goroutine, so a
// slow peer never blocks sends addressed to another. Inbound dispatch runs
// on whichever endpoint adopted the connection; the Registry gives every
// inbound connection to its local endpoint, so all inbound handlers share
// that one goroutine.
type Endpoint struct {
	info Info

	mu       sync.RWMutex
	handlers map[handlerKey]raftproto.Handler

	jobs   chan func()
	done   chan struct{}
	dialer func(ctx context.Context, uri string) (net.Conn, error)
	ser    wire.Serializer

	connMu sync.Mutex
	conn   *wire.Conn

	localURI string
}

// NewEndpoint builds an Endpoint representing the peer described by info.
// localURI is this node's own uri, stamped onto every outbound frame as
// SourceURI so the peer can attribute inbound traffic back to us.
func NewEndpoint(info Info, localURI string) *Endpoint {
	return &Endpoint{
		info:     info,
		handlers: make(map[handlerKey]raftproto.Handler),
		jobs:     make(chan func(), 64),
		done:     make(chan struct{}),
		dialer:   dialTCP,
		ser:      wire.Default,
		localURI: localURI,
	}
}

func dialTCP(ctx context.Context, uri string) (net.Conn, error) {
	d := net.Dialer{Timeout: 5 * time.Second}
	return d.DialContext(ctx, "tcp", uri)
}

// Open starts the endpoint's executor goroutine, reopening the endpoint if
// it was closed. It keeps no record of a running executor: calling Open
// again on an open endpoint starts a second executor goroutine.
func (e *Endpoint) Open() {
	select {
	case <-e.done:
		e.done = make(chan struct{})
	default:
	}
	go e.run()
}

func (e *Endpoint) run() {
	for {
		select {
		case job := <-e.jobs:
			job()
		case <-e.done:
			return
		}
	}
}

// Close stops the executor and drops any live connection to the peer.
func (e *Endpoint) Close() error {
	close(e.done)
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn != nil {
		err := e.conn.Close()
		e.conn = nil
		return err
	}
	return nil
}

func (e *Endpoint) Info() Info { return e.info }

// SetStatus updates the liveness this node attributes to the peer.
func (e *Endpoint) SetStatus(s Status) {
	e.mu.Lock()
	e.info.Status = s
	e.mu.Unlock()
}

// SetType updates the voting role this node attributes to the peer. Used
// by the coordinator at construction to mark the local endpoint ACTIVE or
// PASSIVE depending on whether the local uri is in the configured member
// set.
func (e *Endpoint) SetType(t Type) {
	e.mu.Lock()
	e.info.Type = t
	e.mu.Unlock()
}

// RegisterHandler installs fn as the inbound handler for (topic, protoID).
// Installing over an existing binding replaces it; callers (the router)
// are responsible for not doing that across two live protocol engines.
func (e *Endpoint) RegisterHandler(topic raftproto.Topic, protoID uint16, fn raftproto.Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[handlerKey{topic, protoID}] = fn
}

// UnregisterHandler removes whatever handler occupies (topic, protoID).
func (e *Endpoint) UnregisterHandler(topic raftproto.Topic, protoID uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handlers, handlerKey{topic, protoID})
}

func (e *Endpoint) handler(topic raftproto.Topic, protoID uint16) (raftproto.Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.handlers[handlerKey{topic, protoID}]
	return fn, ok
}

// Send delivers req on topic to this endpoint's peer and returns its
// reply. The call is queued on the endpoint's executor so concurrent
// callers never interleave writes on the underlying connection.
func (e *Endpoint) Send(ctx context.Context, topic raftproto.Topic, protoID uint16, req raftproto.Envelope) (raftproto.Envelope, error) {
	type result struct {
		env raftproto.Envelope
		err error
	}
	resCh := make(chan result, 1)
	job := func() {
		env, err := e.sendNow(ctx, topic, protoID, req)
		resCh <- result{env, err}
	}
	select {
	case e.jobs <- job:
	case <-ctx.Done():
		return raftproto.Envelope{}, ctx.Err()
	case <-e.done:
		return raftproto.Envelope{}, fmt.Errorf("member: endpoint %s is closed", e.info.URI)
	}
	select {
	case r := <-resCh:
		return r.env, r.err
	case <-ctx.Done():
		return raftproto.Envelope{}, ctx.Err()
	}
}

func (e *Endpoint) sendNow(ctx context.Context, topic raftproto.Topic, protoID uint16, req raftproto.Envelope) (raftproto.Envelope, error) {
	c, err := e.connect(ctx)
	if err != nil {
		return raftproto.Envelope{}, err
	}
	f, err := c.Request(topic, protoID, e.localURI, encodeEnvelope(req))
	if err != nil {
		e.dropConn()
		return raftproto.Envelope{}, &raftproto.TransportError{URI: e.info.URI, Err: err}
	}
	if f.Kind == wire.KindError {
		return raftproto.Envelope{}, fmt.Errorf("member: %s rejected %s: %s", e.info.URI, topic, string(f.Payload))
	}
	return decodeEnvelope(f.Payload)
}

func (e *Endpoint) connect(ctx context.Context) (*wire.Conn, error) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn != nil {
		return e.conn, nil
	}
	raw, err := e.dialer(ctx, e.info.URI)
	if err != nil {
		return nil, &raftproto.TransportError{URI: e.info.URI, Err: err}
	}
	e.conn = wire.NewConn(raw, e.ser)
	return e.conn, nil
}

func (e *Endpoint) dropConn() {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
}

// adopt attaches an already-accepted inbound connection to this endpoint
// and serves requests from it until it errors or closes. The registry's
// listener calls it on the local endpoint for every accepted connection.
func (e *Endpoint) adopt(c *wire.Conn) {
	for {
		f, err := c.Recv()
		if err != nil {
			return
		}
		fn, ok := e.handler(f.Topic, f.ProtoID)
		if !ok {
			c.Send(wire.Frame{
				Kind:    wire.KindError,
				Topic:   f.Topic,
				ProtoID: f.ProtoID,
				Payload: []byte(fmt.Sprintf("no handler for topic %s", f.Topic)),
			})
			continue
		}
		req, err := decodeEnvelope(f.Payload)
		if err != nil {
			c.Send(wire.Frame{Kind: wire.KindError, Topic: f.Topic, ProtoID: f.ProtoID, Payload: []byte(err.Error())})
			continue
		}
		job := func() { e.dispatch(c, f, fn, req) }
		select {
		case e.jobs <- job:
		case <-e.done:
			return
		}
	}
}

func (e *Endpoint) dispatch(c *wire.Conn, f wire.Frame, fn raftproto.Handler, req raftproto.Envelope) {
	resp, err := fn(context.Background(), req)
	if err != nil {
		c.Send(wire.Frame{Kind: wire.KindError, Topic: f.Topic, ProtoID: f.ProtoID, Payload: []byte(err.Error())})
		return
	}
	c.Send(wire.Frame{Kind: wire.KindResponse, Topic: f.Topic, ProtoID: f.ProtoID, Payload: encodeEnvelope(resp)})
}

func encodeEnvelope(env raftproto.Envelope) []byte {
	b, err := wire.Default.Serialize(env)
	if err != nil {
		return nil
	}
	return b
}

func decodeEnvelope(b []byte) (raftproto.Envelope, error) {
	var env raftproto.Envelope
	if err := wire.Default.Deserialize(b, &env); err != nil {
		return raftproto.Envelope{}, err
	}
	return env, nil
}
