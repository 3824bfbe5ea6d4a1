package raftproto

import "fmt"

// InvalidMemberError is returned when an outbound request names a uri
// the resolving cluster does not currently recognize as a member.
type InvalidMemberError struct {
	URI string
}

func (e *InvalidMemberError) Error() string {
	return fmt.Sprintf("raftproto: invalid member %q", e.URI)
}

// TransportError wraps a failure from the underlying member transport
// (dial, write, or reading the reply) so callers can distinguish it from
// a routing or protocol-level failure and let the Raft layer retry.
type TransportError struct {
	URI string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("raftproto: transport error to %q: %v", e.URI, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
