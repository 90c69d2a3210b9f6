// file: internal/mcptypes/envelope.go
package mcptypes

import (
	"encoding/json"
	"fmt"

	"github.com/dkoosis/mcpclient/internal/mcperror"
)

// Version is the JSON-RPC version string every envelope carries.
const Version = "2.0"

// WireError is the {code, message, data} shape of a JSON-RPC error
// object, used both for inbound error responses and for encoding a
// response to a malformed/unsupported inbound request.
type WireError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *WireError) Error() string {
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// Envelope is the raw wire shape every decoded message starts as,
// before the decode pipeline classifies it into Request, Response, or
// Notification.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *RequestID      `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

// Kind classifies a decoded Envelope.
type Kind int

const (
	KindInvalid Kind = iota
	KindRequest
	KindNotification
	KindSuccessResponse
	KindErrorResponse
)

// Classify implements the decoding pipeline's shape check.
func (e *Envelope) Classify() Kind {
	hasMethod := e.Method != ""
	hasID := e.ID != nil
	hasResult := e.Result != nil
	hasError := e.Error != nil

	switch {
	case hasMethod && hasID:
		return KindRequest
	case hasMethod && !hasID:
		return KindNotification
	case hasID && hasError:
		return KindErrorResponse
	case hasID && hasResult:
		return KindSuccessResponse
	default:
		return KindInvalid
	}
}

// DecodeEnvelope parses raw bytes into an Envelope and validates the
// JSON-RPC structural invariants (version, id shape, method non-empty,
// error object shape) before the caller classifies it.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, mcperror.InvalidMessage(fmt.Sprintf("malformed JSON: %v", err))
	}

	if env.JSONRPC != Version {
		return nil, mcperror.InvalidMessage(fmt.Sprintf("unsupported jsonrpc version %q", env.JSONRPC))
	}

	if env.Method != "" && len(env.Method) >= 4 && env.Method[:4] == "rpc." {
		return nil, mcperror.InvalidMessage("method names starting with 'rpc.' are reserved")
	}

	if env.Error != nil {
		if env.Error.Message == "" {
			return nil, mcperror.InvalidMessage("error object must carry a non-empty message")
		}
	}

	if env.Classify() == KindInvalid {
		return nil, mcperror.InvalidMessage("envelope does not match request, response, or notification shape")
	}

	return &env, nil
}

// EncodeRequest builds and marshals a request envelope.
func EncodeRequest(id RequestID, method string, params interface{}) ([]byte, error) {
	paramsJSON, err := marshalOptional(params)
	if err != nil {
		return nil, mcperror.InternalErr(fmt.Sprintf("failed to marshal params for %s: %v", method, err))
	}
	env := Envelope{JSONRPC: Version, ID: &id, Method: method, Params: paramsJSON}
	return json.Marshal(env)
}

// EncodeNotification builds and marshals a notification envelope.
func EncodeNotification(method string, params interface{}) ([]byte, error) {
	paramsJSON, err := marshalOptional(params)
	if err != nil {
		return nil, mcperror.InternalErr(fmt.Sprintf("failed to marshal params for %s: %v", method, err))
	}
	env := Envelope{JSONRPC: Version, Method: method, Params: paramsJSON}
	return json.Marshal(env)
}

// EncodeSuccessResponse builds and marshals a success response.
func EncodeSuccessResponse(id RequestID, result interface{}) ([]byte, error) {
	resultJSON, err := marshalOptional(result)
	if err != nil {
		return nil, mcperror.InternalErr(fmt.Sprintf("failed to marshal result: %v", err))
	}
	env := Envelope{JSONRPC: Version, ID: &id, Result: resultJSON}
	return json.Marshal(env)
}

// EncodeErrorResponse builds and marshals an error response.
func EncodeErrorResponse(id RequestID, wireErr *WireError) ([]byte, error) {
	env := Envelope{JSONRPC: Version, ID: &id, Error: wireErr}
	return json.Marshal(env)
}

func marshalOptional(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// DecodeParams unmarshals params into dst, surfacing decode failure as
// InvalidParams.
func DecodeParams(params json.RawMessage, dst interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return mcperror.InvalidParamsErr(fmt.Sprintf("failed to decode params: %v", err), nil)
	}
	return nil
}

// DecodeResult unmarshals a response's result into dst, surfacing decode
// failure as InternalError("unexpected response type").
func DecodeResult(result json.RawMessage, dst interface{}) error {
	if len(result) == 0 {
		return nil
	}
	if err := json.Unmarshal(result, dst); err != nil {
		return mcperror.InternalErr("unexpected response type")
	}
	return nil
}
