package invoke

import (
	"errors"
	"fmt"
)

// ArgumentErrorCode classifies a pre-flight argument failure.
type ArgumentErrorCode string

const (
	// InvalidNumeric: the control text could not be parsed as an integer.
	InvalidNumeric ArgumentErrorCode = "INVALID_NUMERIC"
	// MissingValue: a numeric or boolean control was left empty.
	MissingValue ArgumentErrorCode = "MISSING_VALUE"
	// InvalidValue: the value cannot be encoded as the parameter's type,
	// e.g. a malformed address or an integer out of range.
	InvalidValue ArgumentErrorCode = "INVALID_VALUE"
)

// ArgumentError is raised by Prepare, or by a session encoding arguments
// for the wire. It never reaches the endpoint.
type ArgumentError struct {
	Code   ArgumentErrorCode
	Param  string
	Value  string
	Reason string
}

func (e *ArgumentError) Error() string {
	switch e.Code {
	case InvalidNumeric:
		return fmt.Sprintf("invalid numeric value for %s: %q", e.Param, e.Value)
	case MissingValue:
		return fmt.Sprintf("missing value for %s", e.Param)
	case InvalidValue:
		if e.Reason != "" {
			return fmt.Sprintf("invalid value for %s: %s", e.Param, e.Reason)
		}
		return fmt.Sprintf("invalid value for %s: %q", e.Param, e.Value)
	default:
		return fmt.Sprintf("invalid argument %s", e.Param)
	}
}

var (
	// ErrEndpointUnavailable is returned when no endpoint session is connected.
	ErrEndpointUnavailable = errors.New("no endpoint session available")

	// ErrUnknownOperation is returned for names that are not callable
	// functions of the loaded interface.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrUnknownField is returned when collecting a value for a control the
	// operation does not have.
	ErrUnknownField = errors.New("unknown field")
)

// InvocationError wraps a rejection from the endpoint: a reverted call, a
// declined signature, a failed transaction. The message is the endpoint's.
type InvocationError struct {
	Operation string
	Path      string
	Err       error
}

func (e *InvocationError) Error() string {
	if e.Err == nil {
		return "invocation of " + e.Operation + " failed"
	}
	return e.Err.Error()
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ErrorCode returns the stable code reported alongside an error.
func ErrorCode(err error) string {
	var argErr *ArgumentError
	var invErr *InvocationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &argErr):
		return string(argErr.Code)
	case errors.Is(err, ErrEndpointUnavailable):
		return "ENDPOINT_UNAVAILABLE"
	case errors.Is(err, ErrUnknownOperation):
		return "UNKNOWN_OPERATION"
	case errors.Is(err, ErrUnknownField):
		return "UNKNOWN_FIELD"
	case errors.As(err, &invErr):
		return "INVOCATION_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}
