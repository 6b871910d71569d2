package survey

import (
	"fmt"

	"github.com/myrjola/survey/internal/errors"
)

var (
	// ErrValidation marks a refused transition because the active step is invalid.
	ErrValidation = errors.NewSentinel("validation failed")
	// ErrTransport marks a submission that failed before or during dispatch.
	ErrTransport = errors.NewSentinel("transport failed")
	// ErrUnknownField is returned for input on a field the definition does not declare.
	ErrUnknownField = errors.NewSentinel("unknown field")
	// ErrUnknownOption is returned when selecting a value outside the option group.
	ErrUnknownOption = errors.NewSentinel("unknown option")
	// ErrStopped is returned when dispatching to a controller whose loop has ended.
	ErrStopped = errors.NewSentinel("controller stopped")
)

// SelectOptionAlert is the blocking alert of a single-choice step without selection.
const SelectOptionAlert = "Please select an option before continuing."

// ValidationError describes the first problem of a rejected step.
type ValidationError struct {
	Step    int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("step %d: %s", e.Step, e.Message)
	}
	return fmt.Sprintf("step %d: field %s: %s", e.Step, e.Field, e.Message)
}

// Is matches [ErrValidation].
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation //nolint:errorlint // sentinel identity is intended.
}

// ErrNotLastStep is returned when submit is dispatched before the terminal step.
var ErrNotLastStep = errors.NewSentinel("submit is only available on the last step")

// TransportError wraps the failure of the outbound submission call.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s", e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches [ErrTransport].
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport //nolint:errorlint // sentinel identity is intended.
}
