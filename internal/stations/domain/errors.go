package stations

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("station: invalid payload")
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("station: not found")
	// ErrStore matches every StoreError.
	ErrStore = errors.New("station: store failure")
)

// ValidationKind classifies payload validation failures.
type ValidationKind string

const (
	MissingField ValidationKind = "missing_field"
	WrongType    ValidationKind = "wrong_type"
	Malformed    ValidationKind = "malformed"
)

// ValidationError reports a rejected request payload.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	// Scope is "station" or "pump" and tells which schema rejected the field.
	Scope string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("%s payload: missing field %s", e.Scope, e.Field)
	case WrongType:
		return fmt.Sprintf("%s payload: wrong type for %s", e.Scope, e.Field)
	default:
		return fmt.Sprintf("%s payload: malformed", e.Scope)
	}
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Resource names used in NotFoundError.
const (
	ResourceStation = "station"
	ResourcePump    = "pump"
)

// NotFoundError reports a missing station or pump.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d: not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StoreError wraps an unexpected persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("station store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// WrapStoreError turns err into a StoreError unless it already carries a
// domain classification.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStore) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
