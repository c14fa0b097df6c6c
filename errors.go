package marlin

import (
	"errors"
	"fmt"
)

// Error represents a structured failure raised by the printer's transport or
// construction code. Wire-level "Error: ..." strings sent to the host over
// the protocol are NOT represented by this type — those are Marlin protocol
// content, not Go errors, and are written directly to the channel by the
// dispatch layer. Error is reserved for transport timeouts, configuration
// problems, and other failures a Go caller needs to branch on.
type Error struct {
	Op    string    // operation that failed, e.g. "Write", "NewPrinter"
	Code  ErrorCode // high-level category
	Msg   string    // human-readable detail
	Inner error     // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("marlin: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("marlin: %s", msg)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is lets errors.Is match on error category alone, so callers can test
// errors.Is(err, &Error{Code: ErrCodeTimeout}) without knowing the Op.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	if te.Code == "" {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode categorizes failures for programmatic branching.
type ErrorCode string

const (
	ErrCodeTimeout       ErrorCode = "timeout"
	ErrCodeClosed        ErrorCode = "channel closed"
	ErrCodeInvalidParams ErrorCode = "invalid parameters"
	ErrCodeIOError       ErrorCode = "I/O error"
	ErrCodeNotFound      ErrorCode = "not found"
	ErrCodeBusy          ErrorCode = "busy"
)

// NewError creates a structured error with no wrapped cause.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// WrapError wraps an existing error under the given operation, preserving
// the category of an inner *Error if there is one.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if me, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: me.Code, Msg: me.Msg, Inner: me.Inner}
	}
	code := ErrCodeIOError
	if errors.Is(inner, errClosed) {
		code = ErrCodeClosed
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error with the given code, unwrapping as
// needed.
func IsCode(err error, code ErrorCode) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

var errClosed = errors.New("closed")
