package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError indicates malformed or missing input.
// It is never retried automatically.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// StateError indicates that an operation violates a state-machine invariant
// (double review of a submission, re-paying a paid entry, writing to a locked
// task). The caller must refresh its view before a retry is meaningful.
type StateError struct {
	message string
}

func NewStateError(msg string) error {
	return &StateError{message: msg}
}

func (err StateError) Error() string { return err.message }

// PermissionError indicates that the acting principal's role lacks permission
// for the requested operation. Always fatal to the request.
type PermissionError struct {
	message string
}

func NewPermissionError(msg string) error {
	return &PermissionError{message: msg}
}

func (err PermissionError) Error() string { return err.message }

// DependencyError indicates a failed call to a backing dependency (database,
// object store) naming the step that failed. The whole logical operation may
// be re-issued by the caller; no partial writes are left visible.
type DependencyError struct {
	Step string
	Err  error
}

func NewDependencyError(step string, err error) error {
	return &DependencyError{Step: step, Err: err}
}

func (err DependencyError) Error() string {
	if err.Err == nil {
		return err.Step
	}
	return err.Step + ": " + err.Err.Error()
}

func (err DependencyError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
