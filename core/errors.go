package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// AuthError reports bad credentials, an inactive session or a failed sign-in/sign-up.
type AuthError struct {
	Msg string
	Err error
}

func NewAuthError(msg string, err ...error) error {
	ae := &AuthError{Msg: msg}
	if len(err) > 0 {
		ae.Err = err[0]
	}
	return ae
}

func (err *AuthError) Error() string {
	if err.Err != nil {
		return err.Msg + ": " + err.Err.Error()
	}
	return err.Msg
}

func (err *AuthError) Unwrap() error { return err.Err }

// LookupError reports a failed read of Resource. It never means "absent": absence is ErrNotFound.
type LookupError struct {
	Resource string
	Err      error
}

func NewLookupError(resource string, err error) error {
	return &LookupError{Resource: resource, Err: err}
}

func (err *LookupError) Error() string {
	return "looking up " + err.Resource + ": " + err.Err.Error()
}

func (err *LookupError) Unwrap() error { return err.Err }

// WriteError reports a failed insert, update or delete during Step of a multi-step write.
type WriteError struct {
	Step string
	Err  error
}

func NewWriteError(step string, err error) error {
	return &WriteError{Step: step, Err: err}
}

func (err *WriteError) Error() string {
	return err.Step + ": " + err.Err.Error()
}

func (err *WriteError) Unwrap() error { return err.Err }

// IsAuthError, IsLookupError and IsWriteError look through both errors.Wrap and %w chains.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

func IsLookupError(err error) bool {
	var target *LookupError
	return errors.As(err, &target)
}

func IsWriteError(err error) bool {
	var target *WriteError
	return errors.As(err, &target)
}

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
