package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/raft"

	"github.com/cuemby/raftcoord/pkg/raftproto"
	"github.com/cuemby/raftcoord/pkg/wire"
)

// snapshotEnvelope bundles an InstallSnapshotRequest with the snapshot
// bytes it describes, since raft.Transport streams the latter separately
// as an io.Reader but our wire only carries one payload per frame.
type snapshotEnvelope struct {
	Args *raft.InstallSnapshotRequest
	Data []byte
}

// transport adapts the six-topic member wire onto raft.Transport, so a
// genuine *raft.Raft drives leader election and log replication over the
// same connections the coordinator's other topics (QUERY, COMMIT) share.
// It is the one place in this module that talks hashicorp/raft's wire
// types directly; everything above it only sees raftproto.Protocol.
type transport struct {
	localAddr raft.ServerAddress
	consumer  chan raft.RPC
	heartbeat func(raft.RPC)

	outbound map[raftproto.Topic]raftproto.OutboundFunc
}

func newTransport(localAddr raft.ServerAddress) *transport {
	return &transport{
		localAddr: localAddr,
		consumer:  make(chan raft.RPC, 64),
		outbound:  make(map[raftproto.Topic]raftproto.OutboundFunc),
	}
}

func (t *transport) Consumer() <-chan raft.RPC { return t.consumer }

func (t *transport) LocalAddr() raft.ServerAddress { return t.localAddr }

func (t *transport) EncodePeer(id raft.ServerID, addr raft.ServerAddress) []byte { return []byte(addr) }

func (t *transport) DecodePeer(buf []byte) raft.ServerAddress { return raft.ServerAddress(buf) }

// SetHeartbeatHandler is satisfied but never exercised: we always route
// AppendEntries through Consumer rather than fast-pathing heartbeats, so
// raft's heartbeat optimization is simply unused here, not broken.
func (t *transport) SetHeartbeatHandler(cb func(rpc raft.RPC)) { t.heartbeat = cb }

func (t *transport) AppendEntriesPipeline(id raft.ServerID, target raft.ServerAddress) (raft.AppendPipeline, error) {
	return nil, raft.ErrPipelineReplicationNotSupported
}

func (t *transport) AppendEntries(id raft.ServerID, target raft.ServerAddress, args *raft.AppendEntriesRequest, resp *raft.AppendEntriesResponse) error {
	return t.roundTrip(raftproto.Append, target, args, resp)
}

func (t *transport) RequestVote(id raft.ServerID, target raft.ServerAddress, args *raft.RequestVoteRequest, resp *raft.RequestVoteResponse) error {
	return t.roundTrip(raftproto.Vote, target, args, resp)
}

func (t *transport) InstallSnapshot(id raft.ServerID, target raft.ServerAddress, args *raft.InstallSnapshotRequest, resp *raft.InstallSnapshotResponse, data io.Reader) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("engine: read snapshot body: %w", err)
	}
	fn, ok := t.outbound[raftproto.Sync]
	if !ok {
		return fmt.Errorf("engine: no outbound route installed for %s", raftproto.Sync)
	}
	payload, err := wire.Default.Serialize(snapshotEnvelope{Args: args, Data: buf})
	if err != nil {
		return fmt.Errorf("engine: encode snapshot request: %w", err)
	}
	reply, err := fn(context.Background(), raftproto.Envelope{URI: string(target), Payload: payload})
	if err != nil {
		return err
	}
	return wire.Default.Deserialize(reply.Payload, resp)
}

func (t *transport) TimeoutNow(id raft.ServerID, target raft.ServerAddress, args *raft.TimeoutNowRequest, resp *raft.TimeoutNowResponse) error {
	return t.roundTrip(raftproto.Poll, target, args, resp)
}

// roundTrip gob-encodes args, sends it on topic via whatever outbound
// function the router installed, and decodes the reply into resp.
func (t *transport) roundTrip(topic raftproto.Topic, target raft.ServerAddress, args, resp interface{}) error {
	fn, ok := t.outbound[topic]
	if !ok {
		return fmt.Errorf("engine: no outbound route installed for %s", topic)
	}
	payload, err := wire.Default.Serialize(args)
	if err != nil {
		return fmt.Errorf("engine: encode %s request: %w", topic, err)
	}
	reply, err := fn(context.Background(), raftproto.Envelope{URI: string(target), Payload: payload})
	if err != nil {
		return err
	}
	return wire.Default.Deserialize(reply.Payload, resp)
}

// bindOutbound satisfies raftproto.Protocol.SetOutbound for the four
// topics this transport owns; QUERY and COMMIT are handled elsewhere.
func (t *transport) bindOutbound(topic raftproto.Topic, fn raftproto.OutboundFunc) {
	t.outbound[topic] = fn
}

func (t *transport) clearOutbound(topic raftproto.Topic) {
	delete(t.outbound, topic)
}

// inboundSnapshotHandler is inboundHandler's counterpart for SYNC: the
// envelope carries both the InstallSnapshotRequest and the snapshot bytes,
// which raft.RPC expects as a separate io.Reader field.
func (t *transport) inboundSnapshotHandler() raftproto.Handler {
	return func(ctx context.Context, req raftproto.Envelope) (raftproto.Envelope, error) {
		var env snapshotEnvelope
		if err := wire.Default.Deserialize(req.Payload, &env); err != nil {
			return raftproto.Envelope{}, fmt.Errorf("engine: decode inbound snapshot: %w", err)
		}
		respCh := make(chan raft.RPCResponse, 1)
		rpc := raft.RPC{Command: env.Args, Reader: bytes.NewReader(env.Data), RespChan: respCh}
		select {
		case t.consumer <- rpc:
		case <-ctx.Done():
			return raftproto.Envelope{}, ctx.Err()
		}
		select {
		case rpcResp := <-respCh:
			if rpcResp.Error != nil {
				return raftproto.Envelope{}, rpcResp.Error
			}
			payload, err := wire.Default.Serialize(rpcResp.Response)
			if err != nil {
				return raftproto.Envelope{}, err
			}
			return raftproto.Envelope{Payload: payload}, nil
		case <-ctx.Done():
			return raftproto.Envelope{}, ctx.Err()
		}
	}
}

// inboundHandler decodes a request into the value newArgs returns, submits
// it to raft's Consumer channel as an RPC, and blocks for the RPCResponse
// raft's main loop sends back.
func (t *transport) inboundHandler(newArgs func() interface{}) raftproto.Handler {
	return func(ctx context.Context, req raftproto.Envelope) (raftproto.Envelope, error) {
		args := newArgs()
		if err := wire.Default.Deserialize(req.Payload, args); err != nil {
			return raftproto.Envelope{}, fmt.Errorf("engine: decode inbound rpc: %w", err)
		}
		respCh := make(chan raft.RPCResponse, 1)
		rpc := raft.RPC{Command: args, RespChan: respCh}
		select {
		case t.consumer <- rpc:
		case <-ctx.Done():
			return raftproto.Envelope{}, ctx.Err()
		}
		select {
		case rpcResp := <-respCh:
			if rpcResp.Error != nil {
				return raftproto.Envelope{}, rpcResp.Error
			}
			payload, err := wire.Default.Serialize(rpcResp.Response)
			if err != nil {
				return raftproto.Envelope{}, err
			}
			return raftproto.Envelope{Payload: payload}, nil
		case <-ctx.Done():
			return raftproto.Envelope{}, ctx.Err()
		}
	}
}
