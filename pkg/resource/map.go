package resource

import "sync"

// replicatedMap is a replicated string-keyed map of opaque values.
type replicatedMap struct {
	name string
	mu   sync.RWMutex
	data map[string][]byte
}

func newMap(name string) Resource {
	return &replicatedMap{name: name, data: make(map[string][]byte)}
}

func (r *replicatedMap) Kind() Kind   { return Map }
func (r *replicatedMap) Name() string { return r.name }

func (r *replicatedMap) Apply(cmd Command) ([]byte, error) {
	switch cmd.Method {
	case "put":
		var args struct {
			Key   string
			Value []byte
		}
		if err := decodeArgs(cmd, &args); err != nil {
			return nil, err
		}
		r.mu.Lock()
		prev := r.data[args.Key]
		r.data[args.Key] = args.Value
		r.mu.Unlock()
		return encodeResult(prev)
	case "remove":
		var key string
		if err := decodeArgs(cmd, &key); err != nil {
			return nil, err
		}
		r.mu.Lock()
		prev := r.data[key]
		delete(r.data, key)
		r.mu.Unlock()
		return encodeResult(prev)
	default:
		return nil, unsupportedMethod(Map, cmd.Method)
	}
}

func (r *replicatedMap) Query(cmd Command) ([]byte, error) {
	switch cmd.Method {
	case "get":
		var key string
		if err := decodeArgs(cmd, &key); err != nil {
			return nil, err
		}
		r.mu.RLock()
		defer r.mu.RUnlock()
		return encodeResult(r.data[key])
	case "keys":
		r.mu.RLock()
		defer r.mu.RUnlock()
		keys := make([]string, 0, len(r.data))
		for k := range r.data {
			keys = append(keys, k)
		}
		return encodeResult(keys)
	case "size":
		r.mu.RLock()
		defer r.mu.RUnlock()
		return encodeResult(len(r.data))
	default:
		return nil, unsupportedMethod(Map, cmd.Method)
	}
}

func (r *replicatedMap) Snapshot() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return encodeResult(r.data)
}

func (r *replicatedMap) Restore(snapshot []byte) error {
	data := make(map[string][]byte)
	if err := decodeArgs(Command{Args: snapshot}, &data); err != nil {
		return err
	}
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}
