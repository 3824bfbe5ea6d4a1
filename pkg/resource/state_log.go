package resource

import "sync"

// stateLog is an append-only replicated log of opaque entries, the
// building block for higher-level event-sourced resources.
type stateLog struct {
	name    string
	mu      sync.RWMutex
	entries [][]byte
}

func newStateLog(name string) Resource {
	return &stateLog{name: name}
}

func (r *stateLog) Kind() Kind   { return StateLog }
func (r *stateLog) Name() string { return r.name }

func (r *stateLog) Apply(cmd Command) ([]byte, error) {
	switch cmd.Method {
	case "append":
		var v []byte
		if err := decodeArgs(cmd, &v); err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.entries = append(r.entries, v)
		idx := len(r.entries) - 1
		r.mu.Unlock()
		return encodeResult(idx)
	case "truncate":
		var before int
		if err := decodeArgs(cmd, &before); err != nil {
			return nil, err
		}
		r.mu.Lock()
		if before >= 0 && before <= len(r.entries) {
			r.entries = r.entries[before:]
		}
		r.mu.Unlock()
		return encodeResult(len(r.entries))
	default:
		return nil, unsupportedMethod(StateLog, cmd.Method)
	}
}

func (r *stateLog) Query(cmd Command) ([]byte, error) {
	switch cmd.Method {
	case "entries":
		r.mu.RLock()
		defer r.mu.RUnlock()
		return encodeResult(r.entries)
	case "len":
		r.mu.RLock()
		defer r.mu.RUnlock()
		return encodeResult(len(r.entries))
	default:
		return nil, unsupportedMethod(StateLog, cmd.Method)
	}
}

func (r *stateLog) Snapshot() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return encodeResult(r.entries)
}

func (r *stateLog) Restore(snapshot []byte) error {
	var entries [][]byte
	if err := decodeArgs(Command{Args: snapshot}, &entries); err != nil {
		return err
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return nil
}
