package http

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	// ErrInvalidArgument reports malformed or out-of-domain input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotReadable reports a read on a stream that is not readable, or a failed read.
	ErrNotReadable = errors.New("stream is not readable")

	// ErrNotWritable reports a write on a stream that is not writable, or a failed write.
	ErrNotWritable = errors.New("stream is not writable")

	// ErrNotSeekable reports a seek on a stream that is not seekable, or a failed seek.
	ErrNotSeekable = errors.New("stream is not seekable")

	// ErrAlreadyMoved reports use of an uploaded file after MoveTo succeeded.
	ErrAlreadyMoved = errors.New("uploaded file already moved")

	// ErrMoveFailed reports a failed rename or copy during MoveTo.
	ErrMoveFailed = errors.New("uploaded file move failed")

	// ErrMalformed reports server data from which a URI or body could not be derived.
	ErrMalformed = errors.New("malformed input")
)

// Error describes a failed operation on a message value.
type Error struct {
	Op   string // operation that failed, e.g. "WithScheme"
	Kind error  // one of the Err* kinds
	Msg  string // human-readable detail
	Err  error  // underlying cause (nil if none)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("http: %s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("http: %s: %s", e.Op, msg)
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, kind error, format string, args ...interface{}) *Error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(op string, kind error, err error, format string, args ...interface{}) *Error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
