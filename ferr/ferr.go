// Package ferr defines the error taxonomy shared by every layer of the
// floppy core: the MFM codec, the FAT12 engine, and the file facade.
//
// Every non-OK condition a public function can return is one of the named
// F12Error sentinels below, wrapped with DriverError.WithMessage when extra
// context is useful. Callers compare against the sentinels with errors.Is.
package ferr

import "fmt"

// DriverError is the interface every error value returned by this module
// satisfies. It behaves like a normal Go error, but also supports attaching
// extra context without losing the ability to compare against the original
// sentinel via errors.Is.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	WrapError(err error) DriverError
	Unwrap() error
}

// F12Error is a member of the closed error taxonomy from spec §6/§7.
type F12Error string

// Error implements the error interface.
func (e F12Error) Error() string {
	return string(e)
}

// WithMessage attaches a human-readable detail to the sentinel, preserving
// errors.Is(result, e) for later comparison.
func (e F12Error) WithMessage(message string) DriverError {
	return contextError{message: fmt.Sprintf("%s: %s", string(e), message), cause: e}
}

// WrapError attaches a lower-layer error to the sentinel, preserving
// errors.Is(result, e) for later comparison.
func (e F12Error) WrapError(err error) DriverError {
	return contextError{message: fmt.Sprintf("%s: %s", string(e), err.Error()), cause: e}
}

// Unwrap lets errors.Is see through to nothing further; F12Error values are
// the roots of the chain.
func (e F12Error) Unwrap() error {
	return nil
}

// -----------------------------------------------------------------------------

// contextError decorates an F12Error with additional context while keeping
// the original sentinel reachable through errors.Is/errors.As.
type contextError struct {
	message string
	cause   error
}

func (e contextError) Error() string {
	return e.message
}

func (e contextError) WithMessage(message string) DriverError {
	return contextError{message: fmt.Sprintf("%s: %s", e.message, message), cause: e}
}

func (e contextError) WrapError(err error) DriverError {
	return contextError{message: fmt.Sprintf("%s: %s", e.message, err.Error()), cause: e}
}

func (e contextError) Unwrap() error {
	return e.cause
}
