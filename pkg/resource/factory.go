package resource

// factories is the closed dispatch table for resource kinds. New kinds
// get a constructor added here; NewResource never falls through to a
// default case, so an unrecognized kind always surfaces as a
// ConfigurationError rather than a nil resource.
var factories = map[Kind]func(name string) Resource{
	AtomicBoolean:   newAtomicBoolean,
	AtomicReference: newAtomicReference,
	StateLog:        newStateLog,
	Map:             newMap,
	Set:             newSet,
}

// NewResource builds a fresh resource of kind, named name. Returns a
// *ConfigurationError if kind isn't one of the five supported kinds.
func NewResource(kind Kind, name string) (Resource, error) {
	ctor, ok := factories[kind]
	if !ok {
		return nil, unknownKind(kind)
	}
	return ctor(name), nil
}
