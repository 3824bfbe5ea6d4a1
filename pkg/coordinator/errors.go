package coordinator

import (
	"errors"
	"fmt"

	"github.com/cuemby/raftcoord/pkg/resource"
)

// ErrNotOpen is returned by any operation that requires the coordinator
// to be open when it currently isn't.
var ErrNotOpen = errors.New("coordinator: not open")

// ErrAlreadyOpen names the already-open condition. Nothing in this package
// returns it: Open on an already-open coordinator is a no-op that returns
// nil.
var ErrAlreadyOpen = errors.New("coordinator: already open")

// UnknownResourceError reports an acquire_resource/release_resource call
// naming a resource get_resource was never called for.
type UnknownResourceError struct {
	Name string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("coordinator: unknown resource %q", e.Name)
}

// ConfigurationError aliases resource.ConfigurationError, the lower-layer
// type GetResource already fails with for an unknown kind or an invalid
// replica set; exported here under the coordinator's own name too, since
// it's a coordinator-level error taxonomy entry even though the lower
// layer happens to raise it.
type ConfigurationError = resource.ConfigurationError
