// Package errors classifies failures in the live development pipeline.
//
// The taxonomy mirrors how each failure is recovered: transport errors are
// retried by the connection manager, decode errors drop the offending
// message, request errors are surfaced to the operator, and dangling
// references are ignored.
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies a failure class.
type Kind string

const (
	// KindTransport covers dial failures, dropped connections and timeouts.
	KindTransport Kind = "transport"
	// KindDecode covers malformed inbound wire messages.
	KindDecode Kind = "decode"
	// KindRequest covers failed HTTP request/response exchanges.
	KindRequest Kind = "request"
	// KindDangling covers events referencing unknown projects or types.
	KindDangling Kind = "dangling"
)

// Error is a classified error.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "ws.dial", "event.decode"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation name.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf wraps a formatted message with a kind and operation name.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or "" if err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is worth retrying. Only transport
// failures are; a malformed message or a rejected request will not get
// better on a second attempt.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransport
}
