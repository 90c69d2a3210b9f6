// file: internal/mcperror/utils.go
package mcperror

import (
	"github.com/cockroachdb/errors"
)

// IsTimeout reports whether err is (or wraps) a transport Timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRequestTimeout)
}

// IsConnectionClosed reports whether err is (or wraps) ConnectionClosed.
func IsConnectionClosed(err error) bool {
	return errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrConnectionFailed)
}

// IsInvalidState reports whether err is (or wraps) InvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// GetErrorCategory gets the error category attached by ErrorWithDetails.
func GetErrorCategory(err error) string {
	if category, ok := errors.TryGetProperty(err, "category"); ok {
		if cat, ok := category.(string); ok {
			return cat
		}
	}
	return ""
}

// GetErrorCode gets the JSON-RPC error code attached by ErrorWithDetails.
func GetErrorCode(err error) int {
	if code, ok := errors.TryGetProperty(err, "code"); ok {
		if c, ok := code.(int); ok {
			return c
		}
	}
	return CodeInternalError
}

// GetErrorProperties extracts all properties from an error chain,
// giving precedence to the outermost wrapper on key collisions.
func GetErrorProperties(err error) map[string]interface{} {
	properties := make(map[string]interface{})

	errors.WalkErrors(err, func(e error) bool {
		if ps, ok := errors.TryGetProperties(e); ok {
			for k, v := range ps {
				if _, exists := properties[k]; !exists {
					properties[k] = v
				}
			}
		}
		return true
	})

	return properties
}

// ToJSONRPCErrorMap converts an internal error into the {code, message,
// data} shape of a JSON-RPC error object, for responding to a malformed
// or unsupported inbound request.
func ToJSONRPCErrorMap(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	code := GetErrorCode(err)
	properties := GetErrorProperties(err)

	errorMap := map[string]interface{}{
		"code":    code,
		"message": UserFacingMessage(code),
	}

	dataProps := make(map[string]interface{})
	for k, v := range properties {
		if k != "category" && k != "code" && k != "stack" && !containsSensitiveKeyword(k) {
			dataProps[k] = v
		}
	}

	if len(dataProps) > 0 {
		errorMap["data"] = dataProps
	}

	return errorMap
}

func containsSensitiveKeyword(key string) bool {
	sensitiveKeywords := []string{"token", "password", "secret", "key", "auth", "credential"}
	for _, keyword := range sensitiveKeywords {
		if key == keyword {
			return true
		}
	}
	return false
}
