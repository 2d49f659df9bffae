package adapters

import (
	"errors"
	"fmt"

	"github.com/ppiankov/materialsio/internal/model"
)

// Adapter transforms the record produced by a parser into another form
type Adapter interface {
	// Describe returns human documentation; its first line is the summary
	Describe() string

	// Transform returns the new record. Returning model.ErrTransformVetoed,
	// or a nil record with a nil error, drops the record on purpose.
	Transform(rec model.Record) (model.Record, error)
}

// Versioned is implemented by adapters that report a version
type Versioned interface {
	Version() string
}

// Apply runs a on rec and normalises the outcome: a veto is reported as
// ErrTransformVetoed, any other failure wraps ErrTransformRejected.
func Apply(a Adapter, rec model.Record) (model.Record, error) {
	out, err := a.Transform(rec)
	switch {
	case errors.Is(err, model.ErrTransformVetoed):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %w", model.ErrTransformRejected, err)
	case out == nil:
		return nil, model.ErrTransformVetoed
	}
	return out, nil
}

// Veto builds a drop signal with a reason
func Veto(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrTransformVetoed, fmt.Sprintf(format, args...))
}

// Noop passes records through unchanged
type Noop struct{}

// NewNoop creates a pass-through adapter
func NewNoop() *Noop {
	return &Noop{}
}

// Describe returns the adapter documentation
func (a *Noop) Describe() string {
	return "Pass records through unchanged"
}

// Transform returns rec as-is
func (a *Noop) Transform(rec model.Record) (model.Record, error) {
	return rec, nil
}
