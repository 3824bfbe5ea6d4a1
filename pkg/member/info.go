// Package member implements the Member Endpoint and Member Registry: the
// per-peer send/receive abstraction the coordinator core is built on, and
// the registry that tracks who is currently part of a cluster's membership
// view. Endpoints speak the framed protocol in pkg/wire; everything above
// this package only ever talks to Endpoint and Registry, never to a raw
// net.Conn.
package member

// Type distinguishes a full voting participant from a non-voting observer.
type Type string

const (
	Active  Type = "ACTIVE"
	Passive Type = "PASSIVE"
)

// Status is this node's most recently observed liveness for a member.
type Status string

const (
	Alive       Status = "ALIVE"
	Suspicious  Status = "SUSPICIOUS"
	Dead        Status = "DEAD"
)

// Info describes a member: its address, its voting role, and its last
// known liveness. Info values are immutable snapshots; Registry hands out
// copies, never pointers into its internal map, so callers can't mutate
// state out from under concurrent readers.
type Info struct {
	URI    string
	Type   Type
	Status Status
}

// Local builds the Info for the node's own member, always reported Alive.
func Local(uri string, typ Type) Info {
	return Info{URI: uri, Type: typ, Status: Alive}
}
