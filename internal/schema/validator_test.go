// file: internal/schema/validator_test.go
package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/mcpclient/internal/config"
	"github.com/dkoosis/mcpclient/internal/logging"
)

func createTempSchemaFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test_schema.json")
	err := os.WriteFile(path, []byte(content), 0600)
	require.NoError(t, err, "failed to create temporary schema file")
	return path
}

const minValidSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "TestSchema",
  "type": "object",
  "properties": {
    "jsonrpc": { "const": "2.0" },
    "method": { "type": "string" },
    "id": { "type": ["string", "integer", "null"] }
  },
  "required": ["jsonrpc", "method"]
}`

const invalidSchemaSyntax = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "InvalidSchema",
  "type": "object",
  "properties": {
    "jsonrpc": { "const": "2.0" },
`

const validMessage = `{"jsonrpc": "2.0", "method": "ping", "id": 1}`
const invalidMessageMissingMethod = `{"jsonrpc": "2.0", "id": 1}`
const invalidMessageWrongType = `{"jsonrpc": "2.0", "method": 123, "id": 1}`
const invalidJSONSyntaxMessage = `{"jsonrpc": "2.0", "method": "ping"`

func TestNewValidator(t *testing.T) {
	logger := logging.GetNoopLogger()
	validator := NewValidator(config.SchemaConfig{}, logger)
	assert.NotNil(t, validator.compiler)
	assert.NotNil(t, validator.schemas)
	assert.NotNil(t, validator.httpClient)
}

func TestValidator_Initialize_Success_Embedded(t *testing.T) {
	logger := logging.GetNoopLogger()
	validator := NewValidator(config.SchemaConfig{}, logger)

	err := validator.Initialize(context.Background())
	require.NoError(t, err, "initialize should succeed using the embedded schema")
	assert.True(t, validator.IsInitialized())
	assert.NotZero(t, validator.GetLoadDuration())
	assert.NotZero(t, validator.GetCompileDuration())
	assert.True(t, validator.HasSchema("base"))
}

func TestValidator_Initialize_Success_Override(t *testing.T) {
	logger := logging.GetNoopLogger()
	schemaPath := createTempSchemaFile(t, minValidSchema)
	validator := NewValidator(config.SchemaConfig{SchemaOverrideURI: "file://" + schemaPath}, logger)

	err := validator.Initialize(context.Background())
	require.NoError(t, err, "initialize should succeed with a valid override file")
	assert.True(t, validator.IsInitialized())
}

func TestValidator_Initialize_Failure_InvalidOverrideContent(t *testing.T) {
	logger := logging.GetNoopLogger()
	schemaPath := createTempSchemaFile(t, invalidSchemaSyntax)
	validator := NewValidator(config.SchemaConfig{SchemaOverrideURI: "file://" + schemaPath}, logger)

	err := validator.Initialize(context.Background())
	require.Error(t, err)
	assert.False(t, validator.IsInitialized())

	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestValidator_Initialize_FallsBackWhenOverrideMissing(t *testing.T) {
	logger := logging.GetNoopLogger()
	validator := NewValidator(config.SchemaConfig{SchemaOverrideURI: "file:///non/existent/path/schema.json"}, logger)

	err := validator.Initialize(context.Background())
	require.NoError(t, err, "a missing override falls back to the embedded schema rather than failing")
	assert.True(t, validator.IsInitialized())
}

func TestValidator_Validate_Success(t *testing.T) {
	logger := logging.GetNoopLogger()
	schemaPath := createTempSchemaFile(t, minValidSchema)
	validator := NewValidator(config.SchemaConfig{SchemaOverrideURI: "file://" + schemaPath}, logger)
	require.NoError(t, validator.Initialize(context.Background()))

	err := validator.Validate(context.Background(), "base", []byte(validMessage))
	assert.NoError(t, err)
}

func TestValidator_Validate_Failure_MissingRequired(t *testing.T) {
	logger := logging.GetNoopLogger()
	schemaPath := createTempSchemaFile(t, minValidSchema)
	validator := NewValidator(config.SchemaConfig{SchemaOverrideURI: "file://" + schemaPath}, logger)
	require.NoError(t, validator.Initialize(context.Background()))

	err := validator.Validate(context.Background(), "base", []byte(invalidMessageMissingMethod))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, ErrValidationFailed, validationErr.Code)
}

func TestValidator_Validate_Failure_WrongType(t *testing.T) {
	logger := logging.GetNoopLogger()
	schemaPath := createTempSchemaFile(t, minValidSchema)
	validator := NewValidator(config.SchemaConfig{SchemaOverrideURI: "file://" + schemaPath}, logger)
	require.NoError(t, validator.Initialize(context.Background()))

	err := validator.Validate(context.Background(), "base", []byte(invalidMessageWrongType))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, ErrValidationFailed, validationErr.Code)
}

func TestValidator_Validate_Failure_InvalidJSON(t *testing.T) {
	logger := logging.GetNoopLogger()
	validator := NewValidator(config.SchemaConfig{}, logger)
	require.NoError(t, validator.Initialize(context.Background()))

	err := validator.Validate(context.Background(), "base", []byte(invalidJSONSyntaxMessage))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, ErrInvalidJSONFormat, validationErr.Code)
}

func TestValidator_Validate_NotInitialized(t *testing.T) {
	logger := logging.GetNoopLogger()
	validator := NewValidator(config.SchemaConfig{}, logger)

	err := validator.Validate(context.Background(), "base", []byte(validMessage))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, ErrSchemaNotFound, validationErr.Code)
}

func TestValidator_Shutdown(t *testing.T) {
	logger := logging.GetNoopLogger()
	validator := NewValidator(config.SchemaConfig{}, logger)
	require.NoError(t, validator.Initialize(context.Background()))
	assert.True(t, validator.IsInitialized())

	require.NoError(t, validator.Shutdown())
	assert.False(t, validator.IsInitialized())

	validator.mu.RLock()
	assert.Nil(t, validator.schemas)
	validator.mu.RUnlock()

	assert.NoError(t, validator.Shutdown())
}
