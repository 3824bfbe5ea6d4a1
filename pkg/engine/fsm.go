package engine

import (
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"
)

// Applier is implemented by whatever a RaftContext is replicating state
// for. A Resource Holder satisfies this to let its resources' mutating
// operations go through Raft; Apply/Snapshot/Restore work on opaque byte
// commands so the engine never needs to know a resource's concrete type.
type Applier interface {
	Apply(cmd []byte) ([]byte, error)
	Query(req []byte) ([]byte, error)
	Snapshot() ([]byte, error)
	Restore(snapshot []byte) error
}

// fsm adapts an Applier to raft.FSM, the same shape the teacher's own
// WarrenFSM used against its storage.Store: decode the command bytes
// raft.Log carries, hand them to the Applier, return whatever it returns.
type fsm struct {
	mu      sync.Mutex
	applier Applier
}

func newFSM(applier Applier) *fsm {
	return &fsm{applier: applier}
}

func (f *fsm) Apply(log *raft.Log) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	result, err := f.applier.Apply(log.Data)
	if err != nil {
		return fsmResult{err: err}
	}
	return fsmResult{value: result}
}

// fsmResult is what raft.ApplyFuture.Response() returns: either the
// Applier's result bytes, or the error it failed with.
type fsmResult struct {
	value []byte
	err   error
}

func (f *fsm) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.applier.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("engine: snapshot applier: %w", err)
	}
	return &fsmSnapshot{data: data}, nil
}

func (f *fsm) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("engine: read restore stream: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applier.Restore(data)
}

type fsmSnapshot struct {
	data []byte
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	if _, err := sink.Write(s.data); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}
