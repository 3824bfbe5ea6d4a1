package router

import (
	"context"
	"testing"

	"github.com/cuemby/raftcoord/pkg/member"
	"github.com/cuemby/raftcoord/pkg/raftproto"
	"github.com/stretchr/testify/require"
)

type fakeProtocol struct {
	inbound  map[raftproto.Topic]raftproto.Handler
	outbound map[raftproto.Topic]raftproto.OutboundFunc
}

func newFakeProtocol() *fakeProtocol {
	return &fakeProtocol{
		inbound:  make(map[raftproto.Topic]raftproto.Handler),
		outbound: make(map[raftproto.Topic]raftproto.OutboundFunc),
	}
}

func (f *fakeProtocol) Inbound(topic raftproto.Topic) raftproto.Handler {
	return func(ctx context.Context, req raftproto.Envelope) (raftproto.Envelope, error) {
		return raftproto.Envelope{Payload: []byte(string(topic) + ":" + string(req.Payload))}, nil
	}
}

func (f *fakeProtocol) SetOutbound(topic raftproto.Topic, fn raftproto.OutboundFunc) {
	f.outbound[topic] = fn
}

func (f *fakeProtocol) ClearOutbound(topic raftproto.Topic) {
	delete(f.outbound, topic)
}

type fakePeer struct {
	lastTopic raftproto.Topic
	reply     raftproto.Envelope
}

func (p *fakePeer) Send(ctx context.Context, topic raftproto.Topic, protoID uint16, req raftproto.Envelope) (raftproto.Envelope, error) {
	p.lastTopic = topic
	return p.reply, nil
}

func TestCreateRoutesBindsAllSixTopics(t *testing.T) {
	reg := member.NewRegistry("127.0.0.1:0")
	defer reg.Close()

	peer := &fakePeer{reply: raftproto.Envelope{Payload: []byte("ok")}}
	r := New(reg.LocalEndpoint(), func(uri string) (Peer, bool) { return peer, true })

	proto := newFakeProtocol()
	require.NoError(t, r.CreateRoutes(proto))
	require.Len(t, proto.outbound, len(raftproto.Topics()))

	for _, topic := range raftproto.Topics() {
		resp, err := proto.outbound[topic](context.Background(), raftproto.Envelope{URI: "x", Payload: []byte("p")})
		require.NoError(t, err)
		require.Equal(t, "ok", string(resp.Payload))
		require.Equal(t, topic, peer.lastTopic)
	}
}

func TestCreateRoutesTwiceFails(t *testing.T) {
	reg := member.NewRegistry("127.0.0.1:0")
	defer reg.Close()
	r := New(reg.LocalEndpoint(), func(uri string) (Peer, bool) { return nil, false })
	require.NoError(t, r.CreateRoutes(newFakeProtocol()))
	require.Error(t, r.CreateRoutes(newFakeProtocol()))
}

func TestDestroyRoutesClearsOutbound(t *testing.T) {
	reg := member.NewRegistry("127.0.0.1:0")
	defer reg.Close()
	r := New(reg.LocalEndpoint(), func(uri string) (Peer, bool) { return nil, false })
	proto := newFakeProtocol()
	require.NoError(t, r.CreateRoutes(proto))
	r.DestroyRoutes()
	require.Empty(t, proto.outbound)
}

func TestSendFailsWithNoRoute(t *testing.T) {
	reg := member.NewRegistry("127.0.0.1:0")
	defer reg.Close()
	r := New(reg.LocalEndpoint(), func(uri string) (Peer, bool) { return nil, false })
	_, err := r.send(context.Background(), raftproto.Vote, raftproto.Envelope{URI: "nowhere"})
	require.Error(t, err)
}
