// Package config handles the client's YAML-backed configuration: per-
// transport connection knobs, retry policy, and the static capability
// inputs (roots, sampling) the endpoint advertises at handshake time.
// file: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/dkoosis/mcpclient/internal/logging"
	"github.com/dkoosis/mcpclient/internal/mcperror"
)

var logger = logging.GetLogger("config")

// Settings is the root configuration object, loaded from YAML and
// overlaid with MCPCLIENT_* environment variables.
type Settings struct {
	ConnectTimeout time.Duration     `yaml:"connectTimeout"`
	SendTimeout    time.Duration     `yaml:"sendTimeout"`
	MaxMessageSize int               `yaml:"maxMessageSize"`
	RetryPolicy    RetryPolicyConfig `yaml:"retryPolicy"`
	Environment    map[string]string `yaml:"environment"`
	Roots          []RootConfig      `yaml:"roots"`
	Sampling       SamplingConfig    `yaml:"sampling"`
	Stdio          StdioConfig       `yaml:"stdio"`
	SSE            SSEConfig         `yaml:"sse"`
	Schema         SchemaConfig      `yaml:"schema"`
}

// SchemaConfig configures the optional per-method JSON-schema validation
// layer. When SchemaOverrideURI is empty, the embedded default schema is
// used; Enabled gates whether any validation runs at all.
type SchemaConfig struct {
	Enabled           bool   `yaml:"enabled"`
	SchemaOverrideURI string `yaml:"schemaOverrideUri"`
	StrictOutgoing    bool   `yaml:"strictOutgoing"`
}

// RetryPolicyConfig mirrors transport.RetryPolicy in a YAML-serializable
// shape; the Custom backoff arm is never set from config, only in code.
type RetryPolicyConfig struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	BaseDelay      time.Duration `yaml:"baseDelay"`
	MaxDelay       time.Duration `yaml:"maxDelay"`
	JitterFraction float64       `yaml:"jitter"`
	Backoff        string        `yaml:"backoff"` // "constant" | "linear" | "exponential"
}

// RootConfig is one static root entry the client advertises.
type RootConfig struct {
	URI  string `yaml:"uri"`
	Name string `yaml:"name"`
}

// SamplingConfig toggles the sampling capability; the actual callback is
// wired in code, never in YAML.
type SamplingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StdioConfig configures the child-process transport.
type StdioConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// SSEConfig configures the HTTP+SSE transport.
type SSEConfig struct {
	URL            string            `yaml:"url"`
	Headers        map[string]string `yaml:"headers"`
	KeyringService string            `yaml:"keyringService"`
	KeyringAccount string            `yaml:"keyringAccount"`
}

// Default returns the documented defaults for every knob.
func Default() *Settings {
	logger.Debug("building default configuration")
	return &Settings{
		ConnectTimeout: 30 * time.Second,
		SendTimeout:    30 * time.Second,
		MaxMessageSize: 4 * 1024 * 1024,
		RetryPolicy: RetryPolicyConfig{
			MaxAttempts:    3,
			BaseDelay:      200 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			JitterFraction: 0.1,
			Backoff:        "exponential",
		},
		Environment: map[string]string{},
		Schema:      SchemaConfig{Enabled: true},
	}
}

// Load reads and parses a YAML configuration file, starting from
// Default() so unset fields keep sensible values.
func Load(path string) (*Settings, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, mcperror.ErrorWithDetails(
			errors.Wrapf(err, "failed to read config file %s", expanded),
			mcperror.CategoryConfig, mcperror.CodeInternalError,
			map[string]interface{}{"path": expanded},
		)
	}

	settings := Default()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, mcperror.ErrorWithDetails(
			errors.Wrap(err, "failed to parse config YAML"),
			mcperror.CategoryConfig, mcperror.CodeParseError,
			map[string]interface{}{"path": expanded},
		)
	}

	return settings, nil
}

// FromEnv overlays MCPCLIENT_* environment variables onto settings,
// covering the knobs most often tweaked per-deployment without editing
// the YAML file.
func FromEnv(settings *Settings) {
	if v := os.Getenv("MCPCLIENT_SSE_URL"); v != "" {
		settings.SSE.URL = v
	}
	if v := os.Getenv("MCPCLIENT_STDIO_COMMAND"); v != "" {
		settings.Stdio.Command = v
	}
	if v := os.Getenv("MCPCLIENT_CONNECT_TIMEOUT_SECONDS"); v != "" {
		var secs int
		if _, err := fmt.Sscanf(v, "%d", &secs); err == nil {
			settings.ConnectTimeout = time.Duration(secs) * time.Second
		}
	}
}

// ExpandPath expands a leading ~ to the user's home directory, the same
// portability helper the teacher carries for token-cache-style paths.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", mcperror.ErrorWithDetails(
			errors.Wrap(err, "ExpandPath: failed to get user home directory"),
			mcperror.CategoryConfig, mcperror.CodeInternalError,
			map[string]interface{}{"input_path": path},
		)
	}

	return filepath.Join(home, path[1:]), nil
}
