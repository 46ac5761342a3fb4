package resource

import (
	"errors"
	"fmt"
)

// Code categorizes engine errors.
type Code string

const (
	// CodeInvalidInput marks a request body the engine cannot use: absent,
	// not an object, or a field value that does not fit the field's kind.
	CodeInvalidInput Code = "invalid_input"

	// CodeNotFound marks a missing entity, or a distinct field outside the
	// allow-list. Both surface identically so the schema is not revealed.
	CodeNotFound Code = "not_found"

	// CodeHookContract marks an after-load pipeline that returned other
	// than exactly one entity for a single read.
	CodeHookContract Code = "hook_contract"
)

// User-facing messages.
const (
	MsgEmptyBody    = "Empty update body"
	MsgExpectedJSON = "Expected JSON body"
	MsgNotFound     = "Resource not found."
	MsgHookContract = "After-load hooks must return exactly one entity for a single read."
)

// Error is the engine's domain error.
type Error struct {
	Code    Code   // Machine-readable category
	Message string // Safe to show to clients for invalid_input and not_found
	Cause   error  // Wrapped underlying error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func notFound() *Error {
	return newError(CodeNotFound, MsgNotFound)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is a not_found engine error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsInvalidInput reports whether err is an invalid_input engine error.
func IsInvalidInput(err error) bool { return CodeOf(err) == CodeInvalidInput }

// IsHookContract reports whether err is a hook_contract engine error.
func IsHookContract(err error) bool { return CodeOf(err) == CodeHookContract }
