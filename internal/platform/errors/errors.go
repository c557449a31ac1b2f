// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode classifies failures of a release run
// Values are stable because they drive process exit codes; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodeUsage is for bad command line input or an unusable output path
	ErrorCodeUsage

	// ErrorCodeValidation is for option struct validation failures
	ErrorCodeValidation

	// ErrorCodeSync is for clone/fetch failures against the upstream repository
	ErrorCodeSync

	// ErrorCodeCheckout is for failures selecting the repository state for a date
	ErrorCodeCheckout

	// ErrorCodeLoad is for unreadable or malformed CVE records
	ErrorCodeLoad

	// ErrorCodeWrite is for filesystem or compression failures while writing a feed
	ErrorCodeWrite
)

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// String returns a short label for logs
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeUsage:
		return "usage"
	case ErrorCodeValidation:
		return "validation"
	case ErrorCodeSync:
		return "sync"
	case ErrorCodeCheckout:
		return "checkout"
	case ErrorCodeLoad:
		return "load"
	case ErrorCodeWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ExitCodeOf turns an ErrorCode into a process exit code
func ExitCodeOf(c ErrorCode) int {
	switch c {
	case ErrorCodeUsage, ErrorCodeValidation:
		return ExitUsage
	default:
		return ExitFailure
	}
}

// Error is the structured error type with wrapping and metadata
// msg is human facing; code is machine facing
// field is optional (for validation); op is optional operation tag
// orig is the wrapped cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// Message returns the message without the wrapped cause
func (e *Error) Message() string { return e.msg }

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// ExitCode returns the process exit code for any error; nil is success
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitCodeOf(CodeOf(err))
}

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithField attaches a field to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// Sugar

// Usagef returns a usage error
func Usagef(format string, a ...any) error { return Newf(ErrorCodeUsage, format, a...) }

// Syncf returns a repository sync error
func Syncf(format string, a ...any) error { return Newf(ErrorCodeSync, format, a...) }

// Checkoutf returns a checkout error
func Checkoutf(format string, a ...any) error { return Newf(ErrorCodeCheckout, format, a...) }

// Loadf returns a record load error
func Loadf(format string, a ...any) error { return Newf(ErrorCodeLoad, format, a...) }

// Writef returns a feed write error
func Writef(format string, a ...any) error { return Newf(ErrorCodeWrite, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }
