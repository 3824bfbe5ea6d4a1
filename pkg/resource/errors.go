package resource

import "fmt"

// ConfigurationError reports a resource configuration that can't be
// honored: an unknown kind, or a method a resource's kind doesn't
// support.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "resource: " + e.Reason }

func unknownKind(k Kind) error {
	return &ConfigurationError{Reason: fmt.Sprintf("unknown resource kind %q", k)}
}

func unsupportedMethod(k Kind, method string) error {
	return &ConfigurationError{Reason: fmt.Sprintf("%s does not support method %q", k, method)}
}
