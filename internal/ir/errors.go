package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes session errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates caller input was rejected before any write.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeCorruptedState indicates a shared record failed a well-formedness check.
	// Terminal for synchronization, never for the calling process.
	ErrCodeCorruptedState ErrorCode = "CORRUPTED_STATE"

	// ErrCodeSubscriberFailure indicates an event handler returned an error or panicked.
	ErrCodeSubscriberFailure ErrorCode = "SUBSCRIBER_FAILURE"

	// ErrCodeNotImplemented indicates an operation outside the emulated surface.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// ErrCodeNotBootstrapped indicates an operation needed a local identity
	// before Bootstrap or Resume established one.
	ErrCodeNotBootstrapped ErrorCode = "NOT_BOOTSTRAPPED"
)

// Error is the structured error returned by session operations.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed (e.g. "submitDelta").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInvalidArgument creates an INVALID_ARGUMENT error.
func NewInvalidArgument(op, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewCorruptedState creates a CORRUPTED_STATE error wrapping cause.
func NewCorruptedState(op, what string, cause error) *Error {
	return &Error{Code: ErrCodeCorruptedState, Op: op, Message: what + " is not well-formed", Err: cause}
}

// NewSubscriberFailure creates a SUBSCRIBER_FAILURE error for a topic.
func NewSubscriberFailure(topic string, cause error) *Error {
	return &Error{Code: ErrCodeSubscriberFailure, Op: topic, Message: "event handler failed", Err: cause}
}

// NewNotImplemented creates a NOT_IMPLEMENTED error for op.
func NewNotImplemented(op string) *Error {
	return &Error{Code: ErrCodeNotImplemented, Op: op, Message: op + " has not been implemented"}
}

// NewNotBootstrapped creates a NOT_BOOTSTRAPPED error for op.
func NewNotBootstrapped(op string) *Error {
	return &Error{Code: ErrCodeNotBootstrapped, Op: op, Message: "session has no local participant"}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool { return CodeOf(err) == ErrCodeInvalidArgument }

// IsCorruptedState reports whether err is a CORRUPTED_STATE error.
func IsCorruptedState(err error) bool { return CodeOf(err) == ErrCodeCorruptedState }

// IsSubscriberFailure reports whether err is a SUBSCRIBER_FAILURE error.
func IsSubscriberFailure(err error) bool { return CodeOf(err) == ErrCodeSubscriberFailure }

// IsNotImplemented reports whether err is a NOT_IMPLEMENTED error.
func IsNotImplemented(err error) bool { return CodeOf(err) == ErrCodeNotImplemented }

// IsNotBootstrapped reports whether err is a NOT_BOOTSTRAPPED error.
func IsNotBootstrapped(err error) bool { return CodeOf(err) == ErrCodeNotBootstrapped }
