// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode defines supported error codes used across services
// Values are stable for wire compatibility; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodeNotFound is for inputs or objects that do not exist
	ErrorCodeNotFound

	// ErrorCodePermission is for authorization failures on read or write probes
	ErrorCodePermission

	// ErrorCodeDecode is for undecodable content (bad gzip stream, malformed text)
	ErrorCodeDecode

	// ErrorCodeIO is for generic read/write failures
	ErrorCodeIO

	// ErrorCodeArchive is for malformed or unreadable archives
	ErrorCodeArchive

	// ErrorCodeUnsupportedBackend is for storage schemes that are not wired in
	ErrorCodeUnsupportedBackend

	// ErrorCodeEmptyInput is for inputs that yielded zero lines
	ErrorCodeEmptyInput

	// ErrorCodeInvalid is for bad parameters or config validation failures
	ErrorCodeInvalid

	// ErrorCodeUnavailable is for transient backend errors where retry may succeed
	ErrorCodeUnavailable
)

// Splitter process exit codes; 0 is success, the rest map the input-error
// taxonomy. The process boundary performs this mapping exactly once.
const (
	ExitOK                 = 0
	ExitNotFound           = 2
	ExitPermission         = 3
	ExitDecode             = 4
	ExitIO                 = 5
	ExitArchive            = 6
	ExitUnsupportedBackend = 7
	ExitOther              = 8
)

// ExitCodeOf turns an ErrorCode into a splitter process exit code
func ExitCodeOf(c ErrorCode) int {
	switch c {
	case ErrorCodeNotFound:
		return ExitNotFound
	case ErrorCodePermission:
		return ExitPermission
	case ErrorCodeDecode:
		return ExitDecode
	case ErrorCodeIO, ErrorCodeUnavailable:
		return ExitIO
	case ErrorCodeArchive:
		return ExitArchive
	case ErrorCodeUnsupportedBackend:
		return ExitUnsupportedBackend
	default:
		return ExitOther
	}
}

// ExitCode returns the mapped exit code for any error; nil maps to ExitOK
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitCodeOf(CodeOf(err))
}

// HTTPStatusCode turns an ErrorCode into an http status code (status facade)
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodePermission:
		return http.StatusForbidden
	case ErrorCodeInvalid:
		return http.StatusUnprocessableEntity
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// loc is the optional source/destination location; op is an optional operation tag
// orig is the wrapped cause
type Error struct {
	orig error
	msg  string
	code ErrorCode
	loc  string
	op   string
}

// Wire is the JSON-serializable form returned by the status facade
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Loc     string    `json:"loc,omitempty"`
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

// Loc returns the offending location, if any
func (e *Error) Loc() string { return e.loc }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// ToWire converts an *Error to a Wire payload
func (e *Error) ToWire() Wire { return Wire{Code: e.code, Message: e.msg, Loc: e.loc} }

// WireFrom converts any error into a Wire payload with best-effort mapping
// If err is nil, returns the zero-value Wire (no error)
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

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

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithLoc attaches a location to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithLoc(err error, loc string) error {
	if e, ok := As(err); ok {
		c := *e
		c.loc = loc
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

// WrapIf wraps only when err != nil (helper for 1-liners)
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// Permissionf returns a permission denied error
func Permissionf(format string, a ...any) error { return Newf(ErrorCodePermission, format, a...) }

// Decodef returns a decode/format-mismatch error
func Decodef(format string, a ...any) error { return Newf(ErrorCodeDecode, format, a...) }

// IOf returns a generic I/O error
func IOf(format string, a ...any) error { return Newf(ErrorCodeIO, format, a...) }

// Archivef returns an archive-format error
func Archivef(format string, a ...any) error { return Newf(ErrorCodeArchive, format, a...) }

// UnsupportedBackendf returns an unsupported backend error
func UnsupportedBackendf(format string, a ...any) error {
	return Newf(ErrorCodeUnsupportedBackend, format, a...)
}

// EmptyInputf returns an empty input error
func EmptyInputf(format string, a ...any) error { return Newf(ErrorCodeEmptyInput, format, a...) }

// Invalidf returns an invalid argument/config error
func Invalidf(format string, a ...any) error { return Newf(ErrorCodeInvalid, format, a...) }

// Unavailablef returns a transient backend error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }

// Retryable reports whether the error is transient and a bounded retry may succeed
func Retryable(err error) bool { return IsCode(err, ErrorCodeUnavailable) }
