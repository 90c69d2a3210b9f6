// file: cmd/mcpclient/connect.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/dkoosis/mcpclient/internal/config"
	"github.com/dkoosis/mcpclient/internal/logging"
	"github.com/dkoosis/mcpclient/internal/mcpclient"
	"github.com/dkoosis/mcpclient/internal/mcptypes"
	"github.com/dkoosis/mcpclient/internal/middleware"
	"github.com/dkoosis/mcpclient/internal/schema"
	"github.com/dkoosis/mcpclient/internal/transport"
	"github.com/dkoosis/mcpclient/internal/transport/sse"
	"github.com/dkoosis/mcpclient/internal/transport/stdio"
)

// connectionFlags are the flags every subcommand that talks to a
// server shares: which transport to use and how to reach it.
type connectionFlags struct {
	transport  string
	command    string
	cmdArgs    string
	url        string
	headers    string
	configPath string

	settingsMu sync.RWMutex
	settings   *config.Settings
}

func bindConnectionFlags(fs *flag.FlagSet) *connectionFlags {
	cf := &connectionFlags{}
	fs.StringVar(&cf.transport, "transport", "stdio", `"stdio" or "sse"`)
	fs.StringVar(&cf.command, "cmd", "", "child command to run for stdio transport")
	fs.StringVar(&cf.cmdArgs, "args", "", "space-separated arguments to -cmd")
	fs.StringVar(&cf.url, "url", "", "server URL for sse transport")
	fs.StringVar(&cf.headers, "header", "", "comma-separated Key=Value headers for sse transport")
	fs.StringVar(&cf.configPath, "config", "", "optional YAML config file; -cmd/-url/-header override its values")
	return cf
}

// loadConfig reads -config (if set) into cf.settings, overlaying
// MCPCLIENT_* environment variables on top, per config.FromEnv.
func (cf *connectionFlags) loadConfig() error {
	if cf.configPath == "" {
		return nil
	}
	settings, err := config.Load(cf.configPath)
	if err != nil {
		return fmt.Errorf("loading -config %s: %w", cf.configPath, err)
	}
	config.FromEnv(settings)

	cf.settingsMu.Lock()
	cf.settings = settings
	cf.settingsMu.Unlock()
	return nil
}

// watchConfig starts hot-reloading -config for the process's lifetime,
// applying each successfully parsed Settings to future buildTransport
// calls (e.g. the Host's Reconnect). Returns a no-op closer when -config
// wasn't supplied.
func (cf *connectionFlags) watchConfig(logger func(format string, args ...interface{})) (func() error, error) {
	if cf.configPath == "" {
		return func() error { return nil }, nil
	}
	w, err := config.NewWatcher(cf.configPath)
	if err != nil {
		return nil, fmt.Errorf("watching -config %s: %w", cf.configPath, err)
	}
	go func() {
		for settings := range w.Changes() {
			config.FromEnv(settings)
			cf.settingsMu.Lock()
			cf.settings = settings
			cf.settingsMu.Unlock()
			logger("reloaded config from %s", cf.configPath)
		}
	}()
	return w.Close, nil
}

func (cf *connectionFlags) loadedSettings() *config.Settings {
	cf.settingsMu.RLock()
	defer cf.settingsMu.RUnlock()
	return cf.settings
}

// transportConfig builds the shared transport.Config, applying loaded
// YAML settings (timeouts, max message size, retry policy) over
// transport.DefaultConfig(). No flag sets these values.
func (cf *connectionFlags) transportConfig() transport.Config {
	cfg := transport.DefaultConfig()
	settings := cf.loadedSettings()
	if settings == nil {
		return cfg
	}
	if settings.ConnectTimeout > 0 {
		cfg.ConnectTimeout = settings.ConnectTimeout
	}
	if settings.SendTimeout > 0 {
		cfg.SendTimeout = settings.SendTimeout
	}
	if settings.MaxMessageSize > 0 {
		cfg.MaxMessageSize = settings.MaxMessageSize
	}
	cfg.RetryPolicy = retryPolicyFromConfig(settings.RetryPolicy, cfg.RetryPolicy)
	return cfg
}

func retryPolicyFromConfig(rp config.RetryPolicyConfig, fallback transport.RetryPolicy) transport.RetryPolicy {
	policy := fallback
	if rp.MaxAttempts > 0 {
		policy.MaxAttempts = rp.MaxAttempts
	}
	if rp.BaseDelay > 0 {
		policy.BaseDelay = rp.BaseDelay
	}
	if rp.MaxDelay > 0 {
		policy.MaxDelay = rp.MaxDelay
	}
	if rp.JitterFraction > 0 {
		policy.JitterFraction = rp.JitterFraction
	}
	switch rp.Backoff {
	case "constant":
		policy.Backoff = transport.Backoff{Kind: transport.BackoffConstant}
	case "linear":
		policy.Backoff = transport.Backoff{Kind: transport.BackoffLinear}
	case "exponential":
		policy.Backoff = transport.Backoff{Kind: transport.BackoffExponential}
	}
	return policy
}

func (cf *connectionFlags) buildTransport() (transport.Transport, error) {
	cfg := cf.transportConfig()
	settings := cf.loadedSettings()

	command, cmdArgs, url, headers := cf.command, cf.cmdArgs, cf.url, cf.headers
	if settings != nil {
		if command == "" {
			command = settings.Stdio.Command
		}
		if cmdArgs == "" && len(settings.Stdio.Args) > 0 {
			cmdArgs = strings.Join(settings.Stdio.Args, " ")
		}
		if url == "" {
			url = settings.SSE.URL
		}
	}

	switch cf.transport {
	case "stdio":
		if command == "" {
			return nil, fmt.Errorf("-cmd is required for the stdio transport")
		}
		var args []string
		if cmdArgs != "" {
			args = strings.Fields(cmdArgs)
		}
		env := map[string]string{}
		if settings != nil {
			for k, v := range settings.Environment {
				env[k] = v
			}
		}
		return stdio.New(stdio.Options{Command: command, Args: args, Env: env, Transport: cfg}), nil

	case "sse":
		if url == "" {
			return nil, fmt.Errorf("-url is required for the sse transport")
		}
		mergedHeaders := parseHeaders(headers)
		if settings != nil && len(settings.SSE.Headers) > 0 {
			if mergedHeaders == nil {
				mergedHeaders = map[string]string{}
			}
			for k, v := range settings.SSE.Headers {
				if _, overridden := mergedHeaders[k]; !overridden {
					mergedHeaders[k] = v
				}
			}
		}
		tr, err := sse.New(sse.Options{URL: url, Headers: mergedHeaders, Transport: cfg})
		if err != nil {
			return nil, fmt.Errorf("building sse transport: %w", err)
		}
		return tr, nil

	default:
		return nil, fmt.Errorf("unknown transport %q: want stdio or sse", cf.transport)
	}
}

// schemaConfig returns the effective SchemaConfig: the loaded -config
// file's settings if present, otherwise the documented defaults (schema
// validation on, against the embedded schema).
func (cf *connectionFlags) schemaConfig() config.SchemaConfig {
	if settings := cf.loadedSettings(); settings != nil {
		return settings.Schema
	}
	return config.Default().Schema
}

// buildValidator compiles the configured JSON schema and returns a
// ValidationMiddleware bound to it, or nil when schema validation is
// disabled. Inbound frames that fail validation are dropped; outgoing
// failures become InvalidMessage errors on Send only when the schema
// config sets StrictOutgoing (see mcpclient.Options.Validator).
func (cf *connectionFlags) buildValidator(ctx context.Context) (*middleware.ValidationMiddleware, error) {
	schemaCfg := cf.schemaConfig()
	if !schemaCfg.Enabled {
		return nil, nil
	}

	logger := logging.GetLogger("schema")
	validator := schema.NewValidator(schemaCfg, logger)
	if err := validator.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initializing schema validator: %w", err)
	}

	opts := middleware.DefaultValidationOptions()
	opts.StrictOutgoing = schemaCfg.StrictOutgoing
	return middleware.NewValidationMiddleware(validator, opts, logger), nil
}

func parseHeaders(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// connectEndpoint loads -config (if set), builds the transport from cf,
// brings up an Endpoint against it, and returns the endpoint so callers
// can Stop it (which also stops the transport) when done.
func connectEndpoint(ctx context.Context, cf *connectionFlags) (*mcpclient.Endpoint, error) {
	if err := cf.loadConfig(); err != nil {
		return nil, err
	}

	tr, err := cf.buildTransport()
	if err != nil {
		return nil, err
	}

	validator, err := cf.buildValidator(ctx)
	if err != nil {
		return nil, err
	}

	epOpts := mcpclient.Options{
		ClientInfo: mcptypes.Implementation{Name: "mcpclient-cli", Version: version},
		Validator:  validator,
	}
	connectTimeout := 30 * time.Second
	if settings := cf.loadedSettings(); settings != nil {
		if settings.ConnectTimeout > 0 {
			epOpts.ConnectTimeout = settings.ConnectTimeout
			connectTimeout = settings.ConnectTimeout
		}
		if settings.SendTimeout > 0 {
			epOpts.SendTimeout = settings.SendTimeout
		}
		for _, r := range settings.Roots {
			epOpts.Roots = append(epOpts.Roots, mcptypes.Root{URI: r.URI, Name: r.Name})
		}
	}

	ep, err := mcpclient.NewEndpoint(epOpts)
	if err != nil {
		return nil, fmt.Errorf("building endpoint: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := ep.Start(connectCtx, tr); err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	return ep, nil
}

// isInteractive reports whether stdout is a terminal, used to decide
// whether to colorize/elide output.
func isInteractive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printListHeader prints a small banner above a listing command's
// output, but only when stdout is a terminal — piped output stays
// script-friendly with no extra lines to strip.
func printListHeader(label string) {
	if !isInteractive() {
		return
	}
	fmt.Printf("-- %s --\n", label)
}
