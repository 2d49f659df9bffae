package model

import (
	"errors"
	"fmt"
)

// Error kinds shared by the registry, parsers, adapters and the pipeline
var (
	// ErrNotFound: no capability registered under the name in the namespace.
	ErrNotFound = errors.New("capability not found")
	// ErrUnparsableGroup: a parser cannot process the group it was given.
	ErrUnparsableGroup = errors.New("unparsable group")
	// ErrTransformRejected: an adapter failed while transforming a record.
	ErrTransformRejected = errors.New("transform rejected")
	// ErrTransformVetoed: an adapter deliberately dropped a record. Not a failure.
	ErrTransformVetoed = errors.New("transform vetoed")
)

// CapabilityError ties an error to the capability it came from
type CapabilityError struct {
	Namespace string
	Name      string
	Err       error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Namespace, e.Name, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// NewCapabilityError wraps err with the namespace and name of a capability
func NewCapabilityError(namespace, name string, err error) *CapabilityError {
	return &CapabilityError{
		Namespace: namespace,
		Name:      name,
		Err:       err,
	}
}

// Unparsable builds an ErrUnparsableGroup with a reason
func Unparsable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnparsableGroup, fmt.Sprintf(format, args...))
}
