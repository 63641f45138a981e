// Package failure is the error taxonomy shared by every terrain package.
// Packages return *Error values; only the command dispatcher turns them
// into exit codes.
package failure

import (
	"errors"
	"fmt"
)

// Base error types
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Kind is the category of a failure.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConfig         Kind = "config"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindProtocol       Kind = "protocol"
	KindIO             Kind = "io"
)

// Error is a categorized failure. Recoverable errors are ones the caller
// may retry (only invalid login credentials today); everything else is
// fatal for the invocation.
type Error struct {
	Kind        Kind
	Op          string // operation that failed, e.g. "list plans"
	Err         error
	StatusCode  int // HTTP status code if applicable
	Recoverable bool
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Kind == KindValidation
	case ErrUnauthorized:
		return e.Kind == KindAuthorization
	case ErrUnexpectedResponse:
		return e.Kind == KindProtocol
	}
	return false
}

// Fatal wraps err as a non-recoverable failure.
func Fatal(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Retry wraps err as a recoverable failure.
func Retry(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Recoverable: true}
}

// Invalid builds a validation failure from a message.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// WithStatus records the HTTP status code that caused the failure.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsRecoverable reports whether err is a recoverable failure.
func IsRecoverable(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Recoverable
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindValidation, KindConfig:
		return 2
	default:
		return 1
	}
}
