package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes a failure of a backend call
type Kind string

const (
	// KindTransport means the backend could not be reached
	KindTransport Kind = "transport_failure"

	// KindServer means the backend answered with a non-2xx status
	KindServer Kind = "server_error"

	// KindContentType means the response media type was not the expected one
	KindContentType Kind = "unexpected_content_type"

	// KindPrecondition means the call was refused before any request was made
	KindPrecondition Kind = "precondition_violation"
)

// Sentinels for errors.Is
var (
	ErrTransport    = &Error{Kind: KindTransport}
	ErrServer       = &Error{Kind: KindServer}
	ErrContentType  = &Error{Kind: KindContentType}
	ErrPrecondition = &Error{Kind: KindPrecondition}
)

// Error is returned by every Client call
type Error struct {
	Kind Kind `json:"kind"`

	// Op names the call, e.g. "analyze"
	Op string `json:"op,omitempty"`

	StatusCode int `json:"status_code,omitempty"`

	// Message is the human-readable diagnostic
	Message string `json:"message"`

	Cause error `json:"-"`

	Retryable bool `json:"retryable"`
}

func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	parts = append(parts, string(e.Kind))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so callers can use the sentinels
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Diagnostic is the message suitable for a user
func (e *Error) Diagnostic() string {
	if e.Kind == KindTransport && e.Cause != nil && e.Message != "" {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Kind)
}

// NewPreconditionError reports a call refused before any request
func NewPreconditionError(op, message string) *Error {
	return &Error{Kind: KindPrecondition, Op: op, Message: message}
}

func newTransportError(op string, cause error) *Error {
	message := "backend unreachable"
	switch {
	case errors.Is(cause, context.Canceled):
		message = "request cancelled"
	case errors.Is(cause, context.DeadlineExceeded):
		message = "request timed out"
	}
	return &Error{
		Kind:      KindTransport,
		Op:        op,
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

func newServerError(op string, status int, message string) *Error {
	return &Error{
		Kind:       KindServer,
		Op:         op,
		StatusCode: status,
		Message:    message,
		Retryable:  isRetryableStatus(status),
	}
}

func newContentTypeError(op, expected, actual string) *Error {
	if actual == "" {
		actual = "none"
	}
	return &Error{
		Kind:    KindContentType,
		Op:      op,
		Message: fmt.Sprintf("expected media type %s, got %s", expected, actual),
	}
}

// DiagnosticOf returns a human-readable message for any error
func DiagnosticOf(err error) string {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Diagnostic()
	}
	return err.Error()
}

// KindOf returns the Kind of err, or "" when err is not a backend error
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}
