package resource

import (
	"bytes"
	"sync"
)

// atomicReference is a single replicated opaque value with
// compare-and-set semantics, compared by its serialized bytes.
type atomicReference struct {
	name string
	mu   sync.RWMutex
	val  []byte
}

func newAtomicReference(name string) Resource {
	return &atomicReference{name: name}
}

func (r *atomicReference) Kind() Kind   { return AtomicReference }
func (r *atomicReference) Name() string { return r.name }

func (r *atomicReference) Apply(cmd Command) ([]byte, error) {
	switch cmd.Method {
	case "set":
		var v []byte
		if err := decodeArgs(cmd, &v); err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.val = v
		r.mu.Unlock()
		return encodeResult(v)
	case "compareAndSet":
		var args struct{ Expect, Update []byte }
		if err := decodeArgs(cmd, &args); err != nil {
			return nil, err
		}
		r.mu.Lock()
		ok := bytes.Equal(r.val, args.Expect)
		if ok {
			r.val = args.Update
		}
		r.mu.Unlock()
		return encodeResult(ok)
	default:
		return nil, unsupportedMethod(AtomicReference, cmd.Method)
	}
}

func (r *atomicReference) Query(cmd Command) ([]byte, error) {
	if cmd.Method != "get" {
		return nil, unsupportedMethod(AtomicReference, cmd.Method)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return encodeResult(r.val)
}

func (r *atomicReference) Snapshot() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return encodeResult(r.val)
}

func (r *atomicReference) Restore(snapshot []byte) error {
	var v []byte
	if err := decodeArgs(Command{Args: snapshot}, &v); err != nil {
		return err
	}
	r.mu.Lock()
	r.val = v
	r.mu.Unlock()
	return nil
}
