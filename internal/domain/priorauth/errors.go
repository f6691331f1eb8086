package priorauth

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input. Fully recoverable by
// the caller; no state is mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports a missing request, patient, or prescription. A
// record that exists under another tenant is equally not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InvalidStateTransitionError reports an operation whose status precondition
// is not met. Current carries the stored status so callers can decide how
// to proceed.
type InvalidStateTransitionError struct {
	Operation string
	Current   Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s PA request: current status is '%s'", e.Operation, e.Current)
}

// IntegrationError reports a payer adapter failure during submit or status
// check. The stored record keeps its last valid state so the operation is
// safely retryable.
type IntegrationError struct {
	Payer string
	Err   error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("payer integration failed (%s): %v", e.Payer, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// errSubmitConflict is returned by the repository when the conditional
// pending-guard update matches zero rows. The service translates it into
// an InvalidStateTransitionError carrying the fresh stored status.
var errSubmitConflict = errors.New("request is no longer pending")
