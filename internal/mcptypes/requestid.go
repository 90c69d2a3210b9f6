// Package mcptypes defines the typed protocol records, JSON-RPC envelope,
// and method registry shared by the transport, endpoint, and host layers.
// file: internal/mcptypes/requestid.go
package mcptypes

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dkoosis/mcpclient/internal/mcperror"
)

// RequestID is the sum of Int(>=0) | NonEmptyString required by the
// JSON-RPC envelope. It is comparable and hashable so it can key the
// endpoint's pending-request map directly.
type RequestID struct {
	isString bool
	intVal   int64
	strVal   string
}

// NewIntRequestID builds an integer-valued RequestID. n must be >= 0.
func NewIntRequestID(n int64) RequestID {
	return RequestID{intVal: n}
}

// NewStringRequestID builds a string-valued RequestID. s must be non-empty.
func NewStringRequestID(s string) RequestID {
	return RequestID{isString: true, strVal: s}
}

// NewUUIDRequestID generates a fresh string RequestID via google/uuid,
// the endpoint's default id-generation strategy.
func NewUUIDRequestID() RequestID {
	return NewStringRequestID(uuid.NewString())
}

// IsString reports whether the id carries a string value.
func (id RequestID) IsString() bool { return id.isString }

// String returns the string value; valid only when IsString() is true.
func (id RequestID) String() string {
	if id.isString {
		return id.strVal
	}
	return fmt.Sprintf("%d", id.intVal)
}

// Int returns the integer value; valid only when IsString() is false.
func (id RequestID) Int() int64 { return id.intVal }

// Valid reports whether the id satisfies the envelope invariant: a
// non-negative integer, or a non-empty string.
func (id RequestID) Valid() bool {
	if id.isString {
		return id.strVal != ""
	}
	return id.intVal >= 0
}

// MarshalJSON renders the id as a bare JSON number or string.
func (id RequestID) MarshalJSON() ([]byte, error) {
	if id.isString {
		return json.Marshal(id.strVal)
	}
	return json.Marshal(id.intVal)
}

// UnmarshalJSON parses a bare JSON number or string into a RequestID.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString == "" {
			return mcperror.InvalidMessage("request id must not be an empty string")
		}
		*id = NewStringRequestID(asString)
		return nil
	}

	var asInt int64
	if err := json.Unmarshal(data, &asInt); err == nil {
		if asInt < 0 {
			return mcperror.InvalidMessage("request id must not be negative")
		}
		*id = NewIntRequestID(asInt)
		return nil
	}

	return mcperror.InvalidMessage("request id must be a string or non-negative integer")
}

// ProgressToken is a RequestID-shaped newtype carried in
// `_meta.progressToken`, kept distinct from RequestID to avoid
// accidentally aliasing a pending-request id with an unrelated token
// even though the encoder serializes it identically.
type ProgressToken RequestID

// MarshalJSON delegates to the underlying RequestID encoding.
func (t ProgressToken) MarshalJSON() ([]byte, error) {
	return RequestID(t).MarshalJSON()
}

// UnmarshalJSON delegates to the underlying RequestID decoding.
func (t *ProgressToken) UnmarshalJSON(data []byte) error {
	return (*RequestID)(t).UnmarshalJSON(data)
}

// FromRequestID builds a ProgressToken that serializes identically to id,
// the standard way the endpoint reuses a request's own id as its
// progress token.
func FromRequestID(id RequestID) ProgressToken {
	return ProgressToken(id)
}

// RequestID converts the token back for pending-table lookups.
func (t ProgressToken) RequestID() RequestID {
	return RequestID(t)
}
