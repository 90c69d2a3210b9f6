// Package mcperror defines the error taxonomy, category/code tagging, and
// detail-map utilities shared by the transport, endpoint, and host layers.
// file: internal/mcperror/types.go
package mcperror

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel base errors. Callers use errors.Is against these; the
// category/code/detail information is attached separately via
// ErrorWithDetails so the sentinel identity survives wrapping.
var (
	// Transport-layer sentinels.
	ErrTimeout          = errors.New("operation timed out")
	ErrInvalidMessage   = errors.New("invalid message")
	ErrConnectionFailed = errors.New("connection failed")
	ErrOperationFailed  = errors.New("operation failed")
	ErrInvalidState     = errors.New("invalid state")
	ErrMessageTooLarge  = errors.New("message too large")
	ErrNotSupported     = errors.New("not supported")

	// Protocol-layer sentinels.
	ErrParseError       = errors.New("parse error")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrMethodNotFound   = errors.New("method not found")
	ErrInvalidParams    = errors.New("invalid params")
	ErrInternalError    = errors.New("internal error")
	ErrServerError      = errors.New("server error")
	ErrConnectionClosed = errors.New("connection closed")
	ErrRequestTimeout   = errors.New("request timeout")
)

// ErrorWithDetails attaches category, code, and arbitrary key/value
// details to err as detail strings, mirroring the teacher's
// mcperror.ErrorWithDetails shape.
func ErrorWithDetails(err error, category string, code int, details map[string]interface{}) error {
	err = errors.WithDetail(err, fmt.Sprintf("category:%s", category))
	err = errors.WithDetail(err, fmt.Sprintf("code:%d", code))

	for key, value := range details {
		err = errors.WithDetail(err, fmt.Sprintf("%s:%v", key, value))
	}

	return err
}

// Timeout builds a transport Timeout(op) error.
func Timeout(op string, duration interface{}) error {
	err := errors.Newf("timeout during %s", op)
	err = errors.Mark(err, ErrTimeout)
	return ErrorWithDetails(err, CategoryTransport, CodeRequestTimeout, map[string]interface{}{
		"op": op, "duration": duration,
	})
}

// InvalidMessage builds a transport InvalidMessage(what) error.
func InvalidMessage(what string) error {
	err := errors.Newf("invalid message: %s", what)
	err = errors.Mark(err, ErrInvalidMessage)
	return ErrorWithDetails(err, CategoryTransport, CodeParseError, map[string]interface{}{"reason": what})
}

// ConnectionFailed builds a transport ConnectionFailed(inner) error.
func ConnectionFailed(cause error) error {
	var err error
	if cause == nil {
		err = errors.New("connection failed")
	} else {
		err = errors.Wrap(cause, "connection failed")
	}
	err = errors.Mark(err, ErrConnectionFailed)
	return ErrorWithDetails(err, CategoryTransport, CodeConnectionClosed, nil)
}

// OperationFailed builds a transport OperationFailed(inner) error,
// used by the retry helper to wrap the final attempt's failure.
func OperationFailed(cause error) error {
	err := errors.Wrap(cause, "operation failed")
	err = errors.Mark(err, ErrOperationFailed)
	return ErrorWithDetails(err, CategoryTransport, CodeInternalError, nil)
}

// InvalidState builds a transport InvalidState(reason) error. reason is
// surfaced verbatim so callers can assert on substrings such as
// "not connected".
func InvalidState(reason string) error {
	err := errors.Newf("invalid state: %s", reason)
	err = errors.Mark(err, ErrInvalidState)
	return ErrorWithDetails(err, CategoryTransport, CodeInvalidRequest, map[string]interface{}{"reason": reason})
}

// MessageTooLarge builds a transport MessageTooLarge(size) error.
func MessageTooLarge(size int) error {
	err := errors.Newf("message too large: %d bytes", size)
	err = errors.Mark(err, ErrMessageTooLarge)
	return ErrorWithDetails(err, CategoryTransport, CodeInvalidRequest, map[string]interface{}{"size": size})
}

// NotSupported builds a transport NotSupported(platform) error.
func NotSupported(what string) error {
	err := errors.Newf("not supported: %s", what)
	err = errors.Mark(err, ErrNotSupported)
	return ErrorWithDetails(err, CategoryTransport, CodeInternalError, map[string]interface{}{"what": what})
}

// MethodNotFoundErr builds a protocol MethodNotFound error for an
// unknown inbound request method.
func MethodNotFoundErr(method string) error {
	err := errors.Newf("method %q not found", method)
	err = errors.Mark(err, ErrMethodNotFound)
	return ErrorWithDetails(err, CategoryRPC, CodeMethodNotFound, map[string]interface{}{"method": method})
}

// InvalidParamsErr builds a protocol InvalidParams error.
func InvalidParamsErr(message string, properties map[string]interface{}) error {
	err := errors.Newf("%s", message)
	err = errors.Mark(err, ErrInvalidParams)
	return ErrorWithDetails(err, CategoryRPC, CodeInvalidParams, properties)
}

// InvalidRequestErr builds a protocol InvalidRequest error, used both
// for malformed envelopes and for capability-gating rejections
// ("server does not support prompts").
func InvalidRequestErr(message string) error {
	err := errors.Newf("%s", message)
	err = errors.Mark(err, ErrInvalidRequest)
	return ErrorWithDetails(err, CategoryRPC, CodeInvalidRequest, nil)
}

// InternalErr builds a protocol InternalError, used for decode
// mismatches and handler panics recovered at the dispatch boundary.
func InternalErr(message string) error {
	err := errors.Newf("%s", message)
	err = errors.Mark(err, ErrInternalError)
	return ErrorWithDetails(err, CategoryRPC, CodeInternalError, nil)
}

// ServerErr wraps an inbound JSON-RPC error object (arbitrary
// server-defined code/message/data) as a protocol ServerError.
func ServerErr(code int, message string, data interface{}) error {
	err := errors.Newf("%s", message)
	err = errors.Mark(err, ErrServerError)
	return ErrorWithDetails(err, CategoryRPC, code, map[string]interface{}{"data": data})
}

// ConnectionClosedErr builds the ConnectionClosed sentinel used to fail
// every pending request when an endpoint tears down.
func ConnectionClosedErr(cause error) error {
	var err error
	if cause == nil {
		err = errors.New("connection closed")
	} else {
		err = errors.Wrap(cause, "connection closed")
	}
	err = errors.Mark(err, ErrConnectionClosed)
	return ErrorWithDetails(err, CategoryRPC, CodeConnectionClosed, nil)
}

// RequestTimeoutErr builds the RequestTimeout error surfaced to a
// caller whose pending request's deadline elapsed.
func RequestTimeoutErr(method string) error {
	err := errors.Newf("request %q timed out", method)
	err = errors.Mark(err, ErrRequestTimeout)
	return ErrorWithDetails(err, CategoryRPC, CodeRequestTimeout, map[string]interface{}{"method": method})
}

// CancelledErr builds the local-cancellation error surfaced to a
// caller who cancelled their own in-flight request.
func CancelledErr(reason string) error {
	err := errors.Newf("cancelled: %s", reason)
	err = errors.Mark(err, ErrInternalError)
	return ErrorWithDetails(err, CategoryRPC, CodeInternalError, map[string]interface{}{"reason": reason})
}
