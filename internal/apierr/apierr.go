// Package apierr defines the error taxonomy shared by the transport, the
// resource services and the query layer. Errors propagate unchanged through
// every layer; only the transport is allowed to log them on the way up.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed operation.
type Kind string

const (
	KindNetwork    Kind = "NETWORK_ERROR"
	KindAuth       Kind = "AUTH_ERROR"
	KindPermission Kind = "PERMISSION_ERROR"
	KindServer     Kind = "SERVER_ERROR"
	KindValidation Kind = "VALIDATION_ERROR"
	KindUnknown    Kind = "UNKNOWN_ERROR"
)

// Error carries the classification, the HTTP status when one was received and
// the server's message when the body contained an envelope.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Network builds an error for requests that produced no HTTP response,
// including timeouts.
func Network(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: "no response received", Cause: cause}
}

// Validation builds a client-side validation error. These never reach the
// network layer and are never retried.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Unknown builds the fallback error for failures outside the taxonomy,
// such as a response body that does not match its documented shape.
func Unknown(msg string, cause error) *Error {
	return &Error{Kind: KindUnknown, Message: msg, Cause: cause}
}

// FromStatus maps a non-2xx HTTP status and the server's message to the
// taxonomy.
func FromStatus(status int, msg string) *Error {
	kind := KindUnknown
	switch {
	case status == http.StatusUnauthorized:
		kind = KindAuth
	case status == http.StatusForbidden:
		kind = KindPermission
	case status >= 500:
		kind = KindServer
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Kind: kind, Status: status, Message: msg}
}

// KindOf returns the classification of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Retryable reports whether the query layer may spend retry budget on err.
// Only transport-level failures qualify; validation, auth and permission
// errors fail the same way every time.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServer:
		return true
	default:
		return false
	}
}
