// Package resource implements the Resource, Resource Holder, and the
// factory table that turns a configured resource kind into a concrete
// replicated value. Every resource kind is driven the same way: a named
// Command is applied through Raft for writes, or answered locally for
// reads, against whichever kind's own in-memory representation.
package resource

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Kind is one of the fixed set of resource types the coordinator knows
// how to construct. It's a closed enum: NewResource rejects anything not
// in this list with a ConfigurationError.
type Kind string

const (
	AtomicBoolean   Kind = "ATOMIC_BOOLEAN"
	AtomicReference Kind = "ATOMIC_REFERENCE"
	StateLog        Kind = "STATE_LOG"
	Map             Kind = "MAP"
	Set             Kind = "SET"
)

// Command is the unit of work a Resource executes, whether replicated
// through Raft (a write) or answered from local state (a read). Method
// names are resource-kind specific ("set", "compareAndSet", "put", ...).
type Command struct {
	Method string
	Args   []byte
}

// EncodeCommand gob-encodes method and args into a Command's wire form,
// the bytes a caller hands to engine.RaftContext.Commit/Query and a
// Holder decodes in Apply/Query.
func EncodeCommand(method string, args interface{}) ([]byte, error) {
	var argBuf bytes.Buffer
	if err := gob.NewEncoder(&argBuf).Encode(args); err != nil {
		return nil, fmt.Errorf("resource: encode args for %s: %w", method, err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(Command{Method: method, Args: argBuf.Bytes()}); err != nil {
		return nil, fmt.Errorf("resource: encode command %s: %w", method, err)
	}
	return buf.Bytes(), nil
}

func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cmd); err != nil {
		return Command{}, fmt.Errorf("resource: decode command: %w", err)
	}
	return cmd, nil
}

func decodeArgs(cmd Command, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(cmd.Args)).Decode(v)
}

func encodeResult(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("resource: encode result: %w", err)
	}
	return buf.Bytes(), nil
}

// Resource is a single replicated value: an atomic boolean, an atomic
// reference, an append-only log, a map, or a set. Apply handles a
// mutating Command (invoked on every replica, inside Raft's FSM.Apply,
// once the entry is committed); Query answers a read-only Command from
// local state.
type Resource interface {
	Kind() Kind
	Name() string
	Apply(cmd Command) ([]byte, error)
	Query(cmd Command) ([]byte, error)
	Snapshot() ([]byte, error)
	Restore(snapshot []byte) error
}
