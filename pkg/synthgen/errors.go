package synthgen

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// Request/parameter errors
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidRequest   = fmt.Errorf("invalid request: %w", ErrInvalidParameter)

	// Generator errors
	ErrUnsupportedKind  = errors.New("unsupported generator kind")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrClosed           = errors.New("generator closed")

	// Storage errors
	ErrStorage = errors.New("storage failure")
)

// ParameterError reports a missing or contradictory request parameter.
type ParameterError struct {
	Param  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// Missing returns a ParameterError for an absent required parameter.
func Missing(param string) error {
	return &ParameterError{Param: param, Reason: "is required"}
}

// Invalid returns a ParameterError with a formatted reason.
func Invalid(param, format string, args ...any) error {
	return &ParameterError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// CapacityError is returned when a partition cannot hold the entities still
// needed by a request.
type CapacityError struct {
	Kind      Kind
	Partition string
	Requested int
	Remaining int64
	Reason    string
}

func (e *CapacityError) Error() string {
	msg := fmt.Sprintf("%s: cannot issue %d more entities in partition %q (remaining capacity %d)",
		e.Kind, e.Requested, e.Partition, e.Remaining)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// StorageError wraps a persistence failure with the operation that failed.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
