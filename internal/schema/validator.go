// Package schema loads, compiles, and validates JSON-RPC envelopes
// against the MCP JSON schema.
package schema

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/mcpclient/internal/config"
	"github.com/dkoosis/mcpclient/internal/logging"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var embeddedSchemaContent []byte

// ValidatorInterface is the full surface of Validator. internal/middleware
// depends only on the smaller mcptypes.ValidatorInterface.
type ValidatorInterface interface {
	Validate(ctx context.Context, messageType string, data []byte) error
	HasSchema(name string) bool
	IsInitialized() bool
	Initialize(ctx context.Context) error
	GetLoadDuration() time.Duration
	GetCompileDuration() time.Duration
	GetSchemaVersion() string
	Shutdown() error
}

// Validator compiles schema.json (or an override fetched from
// SchemaConfig.SchemaOverrideURI) and validates JSON-RPC message bodies
// against its definitions.
type Validator struct {
	schemaConfig        config.SchemaConfig
	compiler            *jsonschema.Compiler
	schemas             map[string]*jsonschema.Schema
	schemaDoc           map[string]interface{}
	mu                  sync.RWMutex
	httpClient          *http.Client
	initialized         bool
	logger              logging.Logger
	lastLoadDuration    time.Duration
	lastCompileDuration time.Duration
	schemaVersion       string
}

var _ ValidatorInterface = (*Validator)(nil)

// NewValidator returns a Validator configured from cfg. It must be
// Initialize'd before Validate can be called.
func NewValidator(cfg config.SchemaConfig, logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	compiler.AssertContent = true

	return &Validator{
		schemaConfig: cfg,
		compiler:     compiler,
		schemas:      make(map[string]*jsonschema.Schema),
		schemaDoc:    make(map[string]interface{}),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger.WithField("component", "schema_validator"),
	}
}

// Initialize loads the configured schema source, falling back to the
// embedded schema.json when SchemaOverrideURI is unset or not found,
// compiles every definition, and marks the validator ready. Calling it
// again is a no-op.
func (v *Validator) Initialize(ctx context.Context) error {
	initStart := time.Now()
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		return nil
	}

	schemaData, sourceInfo, err := v.loadSchemaData(ctx)
	if err != nil {
		return err
	}
	v.logger.Info("schema content loaded", "duration", v.lastLoadDuration, "source", sourceInfo, "sizeBytes", len(schemaData))

	var parsedDoc map[string]interface{}
	if err := json.Unmarshal(schemaData, &parsedDoc); err != nil {
		return NewValidationError(ErrSchemaLoadFailed, "failed to parse schema JSON", errors.Wrap(err, "json.Unmarshal")).
			WithContext("source", sourceInfo)
	}
	v.extractSchemaVersion(schemaData)

	v.compiler = jsonschema.NewCompiler()
	v.compiler.Draft = jsonschema.Draft2020
	v.compiler.AssertFormat = true
	v.compiler.AssertContent = true

	const resourceID = "mcp://schema.json"
	if err := v.compiler.AddResource(resourceID, bytes.NewReader(schemaData)); err != nil {
		return NewValidationError(ErrSchemaLoadFailed, "failed to add schema resource", errors.Wrap(err, "compiler.AddResource")).
			WithContext("source", sourceInfo).WithContext("schemaSize", len(schemaData))
	}

	compileStart := time.Now()
	compiled, compileErr := v.compileAllDefinitions(resourceID, parsedDoc)
	v.lastCompileDuration = time.Since(compileStart)
	if compileErr != nil {
		return compileErr
	}

	v.schemaDoc = parsedDoc
	v.schemas = compiled
	v.initialized = true

	v.logger.Info("schema validator initialized",
		"totalDuration", time.Since(initStart),
		"loadDuration", v.lastLoadDuration,
		"compileDuration", v.lastCompileDuration,
		"schemaVersion", v.schemaVersion,
		"schemasCompiled", len(v.schemas),
		"schemaSource", sourceInfo)
	return nil
}

// loadSchemaData resolves the schema bytes to compile: the override URI
// if one is configured and reachable, the embedded schema.json
// otherwise (including as a fallback when the override 404s).
func (v *Validator) loadSchemaData(ctx context.Context) (data []byte, source string, err error) {
	loadStart := time.Now()
	defer func() { v.lastLoadDuration = time.Since(loadStart) }()

	if v.schemaConfig.SchemaOverrideURI == "" {
		return v.embeddedOrErr()
	}

	loaded, loadErr := loadSchemaFromURI(ctx, v.schemaConfig.SchemaOverrideURI, v.logger, v.httpClient)
	if loadErr == nil {
		return loaded, fmt.Sprintf("override URI: %s", v.schemaConfig.SchemaOverrideURI), nil
	}

	var validationErr *ValidationError
	notFound := os.IsNotExist(errors.Cause(loadErr)) || (errors.As(loadErr, &validationErr) && validationErr.Code == ErrSchemaNotFound)
	if !notFound {
		return nil, "", errors.Wrapf(loadErr, "failed to load schema from override URI '%s'", v.schemaConfig.SchemaOverrideURI)
	}
	v.logger.Warn("schema override not found, falling back to embedded schema", "uri", v.schemaConfig.SchemaOverrideURI)
	return v.embeddedOrErr()
}

func (v *Validator) embeddedOrErr() ([]byte, string, error) {
	if len(embeddedSchemaContent) == 0 {
		return nil, "", NewValidationError(ErrSchemaLoadFailed, "embedded schema content is empty", errors.New("embedded schema content is empty"))
	}
	return embeddedSchemaContent, "embedded", nil
}

// compileAllDefinitions compiles the base schema document and every
// entry under its "definitions" key, plus generic aliases
// (addGenericMappings). It returns the first per-definition compile
// error alongside the schemas that did succeed — callers decide
// whether a partial compile is fatal.
func (v *Validator) compileAllDefinitions(baseResourceID string, schemaDoc map[string]interface{}) (map[string]*jsonschema.Schema, error) {
	compiled := make(map[string]*jsonschema.Schema)

	baseSchema, err := v.compiler.Compile(baseResourceID)
	if err != nil {
		return nil, NewValidationError(ErrSchemaCompileFailed, "failed to compile base schema resource", errors.Wrap(err, "compiler.Compile")).
			WithContext("pointer", baseResourceID)
	}
	compiled["base"] = baseSchema

	var firstErr error
	if defs, ok := schemaDoc["definitions"].(map[string]interface{}); ok {
		for name := range defs {
			pointer := baseResourceID + "#/definitions/" + name
			schema, err := v.compiler.Compile(pointer)
			if err != nil {
				v.logger.Warn("failed to compile schema definition", "name", name, "pointer", pointer, "error", err)
				if firstErr == nil {
					firstErr = NewValidationError(ErrSchemaCompileFailed, fmt.Sprintf("failed to compile schema definition '%s'", name), errors.Wrap(err, "compiler.Compile")).
						WithContext("pointer", pointer)
				}
				continue
			}
			compiled[name] = schema
		}
	}

	v.addGenericMappings(compiled)
	return compiled, firstErr
}

// genericSchemaAliases maps a generic message-shape name to the
// definitions in schema.json that satisfy it, most preferred first.
var genericSchemaAliases = map[string][]string{
	"success_response":        {"JSONRPCResponse"},
	"error_response":          {"JSONRPCError"},
	"notification":            {"JSONRPCNotification"},
	"request":                 {"JSONRPCRequest"},
	"initialize_response":     {"InitializeResult"},
	"tools/list_response":     {"ListToolsResult"},
	"resources/list_response": {"ListResourcesResult"},
	"prompts/list_response":   {"ListPromptsResult"},
}

// addGenericMappings adds each alias in genericSchemaAliases to
// compiled, pointed at the first of its candidate definitions that
// actually compiled.
func (v *Validator) addGenericMappings(compiled map[string]*jsonschema.Schema) {
	var added []string
	for alias, candidates := range genericSchemaAliases {
		if _, exists := compiled[alias]; exists {
			continue
		}
		for _, name := range candidates {
			if schema, ok := compiled[name]; ok {
				compiled[alias] = schema
				added = append(added, alias+"->"+name)
				break
			}
		}
	}
	if len(added) > 0 {
		v.logger.Debug("added generic schema aliases", "mappings", added)
	}
}

func (v *Validator) GetLoadDuration() time.Duration {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastLoadDuration
}

func (v *Validator) GetCompileDuration() time.Duration {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastCompileDuration
}

// Shutdown closes idle HTTP connections and clears compiled state.
func (v *Validator) Shutdown() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.initialized {
		return nil
	}

	if transport, ok := v.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	} else if dt, ok := http.DefaultTransport.(*http.Transport); ok {
		dt.CloseIdleConnections()
	}

	v.schemas = nil
	v.schemaDoc = nil
	v.initialized = false
	v.schemaVersion = ""
	return nil
}

func (v *Validator) IsInitialized() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.initialized
}

// Validate parses data as JSON and checks it against the schema
// resolved for messageType (see getSchemaForMessageType), returning a
// *ValidationError on any failure.
func (v *Validator) Validate(_ context.Context, messageType string, data []byte) error {
	if !v.IsInitialized() {
		return NewValidationError(ErrSchemaNotFound, "schema validator not initialized", nil)
	}

	var instance interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return NewValidationError(ErrInvalidJSONFormat, "invalid JSON format", errors.Wrap(err, "json.Unmarshal")).
			WithContext("messageType", messageType).WithContext("dataPreview", calculatePreview(data))
	}

	schema, schemaKey, ok := v.getSchemaForMessageType(messageType)
	if !ok {
		v.mu.RLock()
		available := getSchemaKeys(v.schemas)
		v.mu.RUnlock()
		return NewValidationError(ErrSchemaNotFound, fmt.Sprintf("schema definition not found for message type '%s'", messageType), nil).
			WithContext("messageType", messageType).WithContext("availableSchemas", available)
	}

	if err := schema.Validate(instance); err != nil {
		var valErr *jsonschema.ValidationError
		if errors.As(err, &valErr) {
			v.logger.Debug("schema validation failed", "messageType", messageType, "schemaUsed", schemaKey, "error", valErr.Message)
			return convertValidationError(valErr, messageType, data)
		}
		v.logger.Error("unexpected error during schema validation", "messageType", messageType, "schemaUsed", schemaKey, "error", err)
		return NewValidationError(ErrValidationFailed, "schema validation failed with unexpected error", errors.Wrap(err, "schema.Validate")).
			WithContext("messageType", messageType).WithContext("dataPreview", calculatePreview(data))
	}

	v.logger.Debug("schema validation succeeded", "messageType", messageType, "schemaUsed", schemaKey)
	return nil
}

// getSchemaForMessageType resolves messageType to a compiled schema: an
// exact definition match first, then a fallback keyed off naming
// conventions (notifications/*, *Response/*Result, else request), then
// the base schema as a last resort.
func (v *Validator) getSchemaForMessageType(messageType string) (*jsonschema.Schema, string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if schema, ok := v.schemas[messageType]; ok {
		return schema, messageType, true
	}

	fallbackKey := fallbackSchemaKey(messageType, v.schemas)
	if schema, ok := v.schemas[fallbackKey]; ok {
		return schema, fallbackKey, true
	}
	if schema, ok := v.schemas["base"]; ok {
		return schema, "base", true
	}
	return nil, "", false
}

func fallbackSchemaKey(messageType string, schemas map[string]*jsonschema.Schema) string {
	switch {
	case strings.HasSuffix(messageType, "_notification"), strings.HasPrefix(messageType, "notifications/"):
		return "JSONRPCNotification"

	case strings.Contains(messageType, "Response"), strings.Contains(messageType, "Result"),
		strings.HasSuffix(messageType, "_response"), strings.HasSuffix(messageType, "_result"):
		if strings.Contains(messageType, "Error") || strings.HasSuffix(messageType, "_error") {
			if _, ok := schemas["JSONRPCError"]; ok {
				return "JSONRPCError"
			}
		} else if _, ok := schemas["JSONRPCResponse"]; ok {
			return "JSONRPCResponse"
		}
		return "base"

	default:
		return "JSONRPCRequest"
	}
}

// HasSchema reports whether a compiled schema is registered under name.
func (v *Validator) HasSchema(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.schemas == nil {
		return false
	}
	_, ok := v.schemas[name]
	return ok
}

func getSchemaKeys(schemas map[string]*jsonschema.Schema) []string {
	keys := make([]string, 0, len(schemas))
	for k := range schemas {
		keys = append(keys, k)
	}
	return keys
}

// GetSchemaVersion returns the detected schema version, or "[unknown]"
// if none could be identified.
func (v *Validator) GetSchemaVersion() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.schemaVersion == "" {
		return "[unknown]"
	}
	return v.schemaVersion
}

// extractSchemaVersion and its per-heuristic helpers live in version.go.
