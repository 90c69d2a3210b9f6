// Package main implements the mcpclient demo CLI: connect to one MCP
// server over stdio or SSE and drive it interactively from the shell.
// file: cmd/mcpclient/main.go
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/dkoosis/mcpclient/internal/logging"
)

// Version information (populated at build time).
var (
	version   = "dev"
	buildDate = "unknown"
)

// Command is one CLI subcommand: a name, a one-line description, and
// its implementation.
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
}

// RegisterCommands returns the full set of subcommands the CLI
// dispatches on.
func RegisterCommands() map[string]Command {
	return map[string]Command{
		"connect": {
			Name:        "connect",
			Description: "Connect to a server and print its capabilities",
			Run:         connectCommand,
		},
		"tools": {
			Name:        "tools",
			Description: "List a server's tools",
			Run:         toolsCommand,
		},
		"call": {
			Name:        "call",
			Description: "Call a tool and print its result",
			Run:         callCommand,
		},
		"resources": {
			Name:        "resources",
			Description: "List a server's resources",
			Run:         resourcesCommand,
		},
		"read": {
			Name:        "read",
			Description: "Read one resource by URI",
			Run:         readCommand,
		},
		"prompts": {
			Name:        "prompts",
			Description: "List a server's prompts",
			Run:         promptsCommand,
		},
		"complete": {
			Name:        "complete",
			Description: "Request argument completions for a prompt or resource",
			Run:         completeCommand,
		},
		"watch": {
			Name:        "watch",
			Description: "Stream notifications from a server until interrupted",
			Run:         watchCommand,
		},
		"serve-health": {
			Name:        "serve-health",
			Description: "Connect and expose /healthz + /metrics over HTTP",
			Run:         serveHealthCommand,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Run:         versionCommand,
		},
		"help": {
			Name:        "help",
			Description: "Show help for commands",
			Run:         helpCommand,
		},
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("mcpclient: ")
	logging.SetDefaultLogger(logging.NewSlogLogger(nil, logLevelFromEnv()))

	commands := RegisterCommands()

	if len(os.Args) < 2 {
		_ = commands["help"].Run(nil)
		return
	}

	cmdName := os.Args[1]
	if cmdName == "-v" || cmdName == "--version" {
		printVersion()
		return
	}

	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Printf("unknown command: %s\n\n", cmdName)
		_ = commands["help"].Run(nil)
		os.Exit(1)
	}

	if err := cmd.Run(os.Args[2:]); err != nil {
		log.Fatalf("%s: %v", cmdName, err)
	}
}

// logLevelFromEnv reads MCPCLIENT_LOG_LEVEL ("debug", "info", "warn", or
// "error"; case-insensitive), defaulting to info when unset or unknown.
func logLevelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("MCPCLIENT_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printVersion() {
	fmt.Printf("mcpclient %s (built %s, %s %s/%s)\n",
		version, buildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func versionCommand(_ []string) error {
	printVersion()
	return nil
}

func helpCommand(args []string) error {
	commands := RegisterCommands()

	if len(args) > 0 {
		cmd, ok := commands[args[0]]
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Printf("%s - %s\n", cmd.Name, cmd.Description)
		return nil
	}

	fmt.Println("mcpclient - a Model Context Protocol client")
	fmt.Println("\nUsage:")
	fmt.Println("  mcpclient <command> [options]")
	fmt.Println("\nAvailable commands:")
	for _, name := range []string{"connect", "tools", "call", "resources", "read", "prompts", "complete", "watch", "serve-health", "version", "help"} {
		cmd := commands[name]
		fmt.Printf("  %-14s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nConnection flags (shared by connect/tools/call/resources/read/prompts/complete/watch/serve-health):")
	fmt.Println("  -transport string   \"stdio\" or \"sse\" (default \"stdio\")")
	fmt.Println("  -cmd string         child command to run for stdio transport")
	fmt.Println("  -url string         server URL for sse transport")
	fmt.Println("  -config string      optional YAML config file, hot-reloaded by serve-health")
	return nil
}
