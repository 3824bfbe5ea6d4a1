package resource

import "fmt"

// Holder binds one Resource to the Raft-replicated state it backs,
// satisfying engine.Applier so a RaftContext can drive it without
// knowing the resource's concrete kind. Holder wraps only the resource;
// the coordinator pairs it with the cluster and Raft context replicating
// it and addresses the three as one unit.
type Holder struct {
	res Resource
}

// NewHolder wraps res for use as a RaftContext's Applier.
func NewHolder(res Resource) *Holder {
	return &Holder{res: res}
}

func (h *Holder) Resource() Resource { return h.res }

// Apply satisfies engine.Applier: cmd is a gob-encoded Command, decoded
// and dispatched to the wrapped resource's Apply.
func (h *Holder) Apply(cmd []byte) ([]byte, error) {
	c, err := DecodeCommand(cmd)
	if err != nil {
		return nil, err
	}
	return h.res.Apply(c)
}

// Query satisfies engine.Applier for read-only commands.
func (h *Holder) Query(req []byte) ([]byte, error) {
	c, err := DecodeCommand(req)
	if err != nil {
		return nil, err
	}
	return h.res.Query(c)
}

func (h *Holder) Snapshot() ([]byte, error) { return h.res.Snapshot() }

func (h *Holder) Restore(snapshot []byte) error { return h.res.Restore(snapshot) }

func (h *Holder) String() string {
	return fmt.Sprintf("%s/%s", h.res.Kind(), h.res.Name())
}
