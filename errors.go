package surveillance

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references a resource or
// selection that does not exist.
var ErrNotFound = errors.New("resource not found")

// IsNotFound is a helper to determine if the error is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ValidationError is returned when input fails validation, e.g. a priority
// outside the allowed range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConnectionError indicates the external client could not be reached at all.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// OperationError indicates the external client was reachable but the
// requested action failed.
type OperationError struct {
	Op       string
	Resource string
	Err      error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Resource, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
