package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrorCode categorizes a schema-related failure.
type ErrorCode int

const (
	ErrSchemaNotFound ErrorCode = iota + 1000
	ErrSchemaLoadFailed
	ErrSchemaCompileFailed
	ErrValidationFailed
	ErrInvalidJSONFormat
)

// ValidationError is a structured schema failure: a code, a message, the
// schema/instance JSON-pointer paths involved, an optional underlying
// cause, and free-form context (messageType, a data preview, a
// suggestion, nested cause details).
type ValidationError struct {
	Code         ErrorCode
	Message      string
	Cause        error
	SchemaPath   string
	InstancePath string
	Context      map[string]interface{}
}

func (e *ValidationError) Error() string {
	base := fmt.Sprintf("SchemaError [%d] %s", e.Code, e.Message)
	if e.SchemaPath != "" {
		base += fmt.Sprintf(" (schema: %s)", e.SchemaPath)
	}
	if e.InstancePath != "" {
		base += fmt.Sprintf(" (instance: %s)", e.InstancePath)
	}
	if e.Cause != nil {
		base += fmt.Sprintf(": %+v", e.Cause)
	}
	return base
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair and returns e for chaining.
func (e *ValidationError) WithContext(key string, value interface{}) *ValidationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewValidationError builds a ValidationError, wrapping cause (if any)
// with a stack trace and stamping a creation timestamp into Context.
func NewValidationError(code ErrorCode, message string, cause error) *ValidationError {
	var wrapped error
	if cause != nil {
		wrapped = errors.WithStack(cause)
	}
	return &ValidationError{
		Code:    code,
		Message: message,
		Cause:   wrapped,
		Context: map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
}

// convertValidationError adapts a jsonschema.ValidationError into a
// ValidationError, copying its path information and attaching a data
// preview, a suggestion, and any nested causes.
func convertValidationError(valErr *jsonschema.ValidationError, messageType string, data []byte) *ValidationError {
	customErr := NewValidationError(ErrValidationFailed, "schema validation failed", valErr)
	customErr.InstancePath = valErr.InstanceLocation
	customErr.SchemaPath = valErr.KeywordLocation
	if valErr.Message != "" {
		customErr.Message = valErr.Message
	}

	customErr.WithContext("messageType", messageType)
	customErr.WithContext("dataPreview", calculatePreview(data))

	if suggestion := generateErrorSuggestion(valErr.Message, valErr.InstanceLocation); suggestion != "" {
		customErr.WithContext("suggestion", suggestion)
	}
	if causes := extractValidationCauses(valErr); len(causes) > 0 {
		customErr.WithContext("validationCausesDetail", causes)
	}
	return customErr
}

// extractValidationCauses flattens valErr's nested Causes tree into a
// list of instanceLocation/keywordLocation/message maps.
func extractValidationCauses(valErr *jsonschema.ValidationError) []map[string]string {
	if len(valErr.Causes) == 0 {
		return nil
	}

	causes := make([]map[string]string, 0, len(valErr.Causes))
	for _, cause := range valErr.Causes {
		m := make(map[string]string)
		if cause.InstanceLocation != "" {
			m["instanceLocation"] = cause.InstanceLocation
		}
		if cause.KeywordLocation != "" {
			m["keywordLocation"] = cause.KeywordLocation
		}
		if cause.Message != "" {
			m["message"] = cause.Message
		}
		if len(m) > 0 {
			causes = append(causes, m)
		}
		causes = append(causes, extractValidationCauses(cause)...)
	}
	if len(causes) == 0 {
		return nil
	}
	return causes
}

// generateErrorSuggestion turns a jsonschema error message and instance
// path into one line of actionable, human-facing advice. Pattern
// matching over the library's message text is the only hook available —
// jsonschema/v5 doesn't expose a structured failure reason.
// nolint:gocyclo
func generateErrorSuggestion(errorMsg, instancePath string) string {
	path := instancePath
	switch {
	case path == "/" || path == "":
		path = "the message root"
	case !strings.HasPrefix(path, "/"):
		path = "/" + path
	}

	switch {
	case strings.Contains(errorMsg, "required property"), strings.Contains(errorMsg, "missing properties"):
		if prop := extractQuoted(errorMsg, "required property", "missing properties"); prop != "" {
			return fmt.Sprintf("ensure the required field '%s' is provided in %s", prop, path)
		}
		return fmt.Sprintf("ensure all required fields are provided in %s", path)

	case strings.Contains(errorMsg, "invalid type"), strings.Contains(errorMsg, "expected") && strings.Contains(errorMsg, "but got"):
		if expected, actual := extractTypeInfo(errorMsg); expected != "" && actual != "" {
			return fmt.Sprintf("incorrect type at %s: expected '%s' but received '%s'", path, expected, actual)
		}
		return fmt.Sprintf("the value at %s does not match the schema's expected type", path)

	case strings.Contains(errorMsg, "does not match pattern"):
		if pattern := extractPattern(errorMsg); pattern != "" {
			return fmt.Sprintf("the value at %s must match the pattern %s", path, pattern)
		}
		return fmt.Sprintf("the value at %s does not match the required pattern", path)

	case strings.Contains(errorMsg, "additionalProperties"):
		if prop := extractQuoted(errorMsg, "additionalProperties"); prop != "" {
			return fmt.Sprintf("remove unrecognized property '%s' from the object at %s", prop, path)
		}
		return fmt.Sprintf("remove unrecognized properties from the object at %s", path)

	case strings.Contains(errorMsg, "enum"), strings.Contains(errorMsg, "value must be one of"):
		if values := extractEnumValues(errorMsg); values != "" {
			return fmt.Sprintf("the value at %s must be one of: %s", path, values)
		}
		return fmt.Sprintf("the value at %s is not one of the allowed options", path)

	case strings.Contains(errorMsg, "invalid format"), strings.Contains(errorMsg, "must be in format"):
		if format := extractFormat(errorMsg); format != "" {
			return fmt.Sprintf("the value at %s must be a valid '%s'", path, format)
		}
		return fmt.Sprintf("the value at %s does not match the expected format", path)

	default:
		return fmt.Sprintf("review the value at %s against the schema: %s", path, errorMsg)
	}
}

// extractQuoted looks for one of prefixes in msg and returns the next
// quoted or colon-delimited token after it, or "" if none is found.
func extractQuoted(msg string, prefixes ...string) string {
	for _, prefix := range prefixes {
		idx := strings.Index(msg, prefix)
		if idx == -1 {
			continue
		}
		remainder := msg[idx+len(prefix):]
		if q := quotedToken(remainder); q != "" {
			return q
		}
		if colonIdx := strings.Index(remainder, ":"); colonIdx != -1 {
			token := strings.TrimSpace(strings.Split(remainder[colonIdx+1:], ",")[0])
			if token != "" && !strings.ContainsAny(token, " []{}()<>=") && len(token) < 50 {
				return token
			}
		}
	}
	return ""
}

// quotedToken returns the first '...'/"..." delimited substring in s.
func quotedToken(s string) string {
	start := strings.IndexAny(s, `"'`)
	if start == -1 {
		return ""
	}
	quote := s[start]
	end := strings.Index(s[start+1:], string(quote))
	if end == -1 {
		return ""
	}
	return s[start+1 : start+1+end]
}

func extractTypeInfo(msg string) (expected, actual string) {
	if !strings.Contains(msg, "expected") || !strings.Contains(msg, "but got") {
		return "", ""
	}
	parts := strings.SplitN(msg, "expected", 2)
	if len(parts) < 2 {
		return "", ""
	}
	typeParts := strings.SplitN(parts[1], "but got", 2)
	if len(typeParts) < 2 {
		return "", ""
	}
	expected = strings.TrimSpace(strings.TrimSuffix(typeParts[0], ","))
	actual = strings.TrimSpace(strings.TrimSuffix(typeParts[1], "."))
	return expected, actual
}

func extractPattern(msg string) string {
	idx := strings.Index(msg, "pattern ")
	if idx == -1 {
		return ""
	}
	pattern := strings.TrimPrefix(msg[idx:], "pattern ")
	pattern = strings.Trim(pattern, `'"`)
	return strings.TrimRight(pattern, ".")
}

func extractEnumValues(msg string) string {
	idx := strings.Index(msg, "enum")
	if idx == -1 {
		return ""
	}
	if startBracket := strings.Index(msg[idx:], "["); startBracket != -1 {
		start := idx + startBracket
		if endBracket := strings.Index(msg[start:], "]"); endBracket != -1 {
			return strings.TrimSpace(msg[start+1 : start+endBracket])
		}
	}
	if oneOfIdx := strings.Index(msg[idx:], "one of:"); oneOfIdx != -1 {
		return strings.TrimSpace(strings.TrimSuffix(msg[idx+oneOfIdx+len("one of:"):], "."))
	}
	return ""
}

var knownFormats = []string{
	"date-time", "date", "time", "email", "uri", "uri-reference",
	"hostname", "ipv4", "ipv6", "uuid", "json-pointer",
	"relative-json-pointer", "regex",
}

func extractFormat(msg string) string {
	for _, format := range knownFormats {
		if strings.Contains(msg, "'"+format+"'") || strings.Contains(msg, `"`+format+`"`) {
			return format
		}
	}
	if strings.Contains(msg, "invalid format") {
		if idx := strings.Index(msg, "format "); idx != -1 {
			if q := quotedToken(msg[idx+len("format "):]); q != "" {
				return q
			}
		}
	}
	return ""
}
