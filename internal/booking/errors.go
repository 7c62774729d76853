package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/coworking-booking/internal/model"
)

// Sentinel errors. Use errors.Is against these; the structured errors below
// unwrap to them.
var (
	// ErrCapacityConflict means the requested span has no spare unit.
	ErrCapacityConflict = errors.New("capacity conflict")

	// ErrValidation marks malformed input rejected before any store call.
	ErrValidation = errors.New("validation failed")

	// ErrStoreUnavailable wraps any failure of the record store. Retriable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidTransition means the reservation's status does not permit the change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound is returned by stores when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError names the offending input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// CapacityConflictError carries the peak concurrency observed over the span.
type CapacityConflictError struct {
	ResourceID uint64
	Start      time.Time
	End        time.Time
	Peak       int
	Quantity   int
}

func (e *CapacityConflictError) Error() string {
	return fmt.Sprintf("resource %d is full between %s and %s (%d/%d in use)",
		e.ResourceID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Peak, e.Quantity)
}

func (e *CapacityConflictError) Unwrap() error { return ErrCapacityConflict }

// TransitionError reports a lifecycle change attempted from the wrong status.
type TransitionError struct {
	ID   uint64
	From model.ReservationStatus
	To   model.ReservationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("reservation %d: cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// storeError tags a record store failure as retriable while keeping the cause.
type storeError struct {
	Op  string
	Err error
}

func (e *storeError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *storeError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }

// StoreError wraps err as ErrStoreUnavailable unless it already belongs to the
// domain taxonomy (not found, conflicts, transitions, validation).
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCapacityConflict) ||
		errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return &storeError{Op: op, Err: err}
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsClientError returns true if the error is due to the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrCapacityConflict) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNotFound)
}
