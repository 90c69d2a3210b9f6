// file: cmd/mcpclient/commands.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dkoosis/mcpclient/internal/host"
	"github.com/dkoosis/mcpclient/internal/host/healthhttp"
	"github.com/dkoosis/mcpclient/internal/mcptypes"
	"github.com/dkoosis/mcpclient/internal/metrics"
)

func connectCommand(args []string) error {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	cf := bindConnectionFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ep, err := connectEndpoint(context.Background(), cf)
	if err != nil {
		return err
	}
	defer ep.Stop()

	info := ep.ServerInfo()
	caps := ep.ServerCapabilities()
	fmt.Printf("connected to %s %s\n", info.Name, info.Version)
	fmt.Printf("capabilities: tools=%v resources=%v prompts=%v logging=%v completions=%v\n",
		caps.Tools != nil, caps.Resources != nil, caps.Prompts != nil, caps.Logging != nil, caps.Completions != nil)
	return nil
}

func toolsCommand(args []string) error {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	cf := bindConnectionFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ep, err := connectEndpoint(context.Background(), cf)
	if err != nil {
		return err
	}
	defer ep.Stop()

	raw, err := ep.Send(context.Background(), mcptypes.MethodToolsList, nil, nil)
	if err != nil {
		return fmt.Errorf("tools/list: %w", err)
	}
	var result mcptypes.ListToolsResult
	if err := mcptypes.DecodeResult(raw, &result); err != nil {
		return err
	}
	printListHeader(fmt.Sprintf("%d tools", len(result.Tools)))
	for _, t := range result.Tools {
		fmt.Printf("%-30s %s\n", t.Name, t.Description)
	}
	return nil
}

func callCommand(args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	cf := bindConnectionFlags(fs)
	name := fs.String("name", "", "tool name")
	argsJSON := fs.String("arguments", "{}", "JSON object of tool arguments")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("-name is required")
	}

	ep, err := connectEndpoint(context.Background(), cf)
	if err != nil {
		return err
	}
	defer ep.Stop()

	req := mcptypes.CallToolRequest{Name: *name, Arguments: json.RawMessage(*argsJSON)}
	raw, err := ep.Send(context.Background(), mcptypes.MethodToolsCall, req, func(progress float64, total *float64) {
		if total != nil {
			fmt.Fprintf(os.Stderr, "progress: %.0f/%.0f\n", progress, *total)
		} else {
			fmt.Fprintf(os.Stderr, "progress: %.2f\n", progress)
		}
	})
	if err != nil {
		return fmt.Errorf("tools/call: %w", err)
	}

	var result mcptypes.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	for _, block := range result.Content {
		if tc, ok := block.(mcptypes.TextContent); ok {
			fmt.Println(tc.Text)
		}
	}
	if result.IsError {
		return fmt.Errorf("tool reported an error")
	}
	return nil
}

func resourcesCommand(args []string) error {
	fs := flag.NewFlagSet("resources", flag.ExitOnError)
	cf := bindConnectionFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ep, err := connectEndpoint(context.Background(), cf)
	if err != nil {
		return err
	}
	defer ep.Stop()

	raw, err := ep.Send(context.Background(), mcptypes.MethodResourcesList, nil, nil)
	if err != nil {
		return fmt.Errorf("resources/list: %w", err)
	}
	var result mcptypes.ListResourcesResult
	if err := mcptypes.DecodeResult(raw, &result); err != nil {
		return err
	}
	printListHeader(fmt.Sprintf("%d resources", len(result.Resources)))
	for _, r := range result.Resources {
		fmt.Printf("%-40s %s\n", r.URI, r.Name)
	}
	return nil
}

func readCommand(args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	cf := bindConnectionFlags(fs)
	uri := fs.String("uri", "", "resource URI to read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *uri == "" {
		return fmt.Errorf("-uri is required")
	}

	ep, err := connectEndpoint(context.Background(), cf)
	if err != nil {
		return err
	}
	defer ep.Stop()

	raw, err := ep.Send(context.Background(), mcptypes.MethodResourcesRead,
		map[string]string{"uri": *uri}, nil)
	if err != nil {
		return fmt.Errorf("resources/read: %w", err)
	}
	fmt.Println(string(raw))
	return nil
}

func promptsCommand(args []string) error {
	fs := flag.NewFlagSet("prompts", flag.ExitOnError)
	cf := bindConnectionFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ep, err := connectEndpoint(context.Background(), cf)
	if err != nil {
		return err
	}
	defer ep.Stop()

	raw, err := ep.Send(context.Background(), mcptypes.MethodPromptsList, nil, nil)
	if err != nil {
		return fmt.Errorf("prompts/list: %w", err)
	}
	var result mcptypes.ListPromptsResult
	if err := mcptypes.DecodeResult(raw, &result); err != nil {
		return err
	}
	printListHeader(fmt.Sprintf("%d prompts", len(result.Prompts)))
	for _, p := range result.Prompts {
		fmt.Printf("%-30s %s\n", p.Name, p.Description)
	}
	return nil
}

func completeCommand(args []string) error {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	cf := bindConnectionFlags(fs)
	refType := fs.String("ref-type", "ref/prompt", "completion reference type")
	refName := fs.String("ref-name", "", "prompt name, for ref/prompt")
	refURI := fs.String("ref-uri", "", "resource URI template, for ref/resource")
	argName := fs.String("arg-name", "", "name of the argument being completed")
	argValue := fs.String("arg-value", "", "partial value typed so far")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *argName == "" {
		return fmt.Errorf("-arg-name is required")
	}

	ep, err := connectEndpoint(context.Background(), cf)
	if err != nil {
		return err
	}
	defer ep.Stop()

	req := mcptypes.CompleteRequest{
		Ref:      mcptypes.CompletionReference{Type: *refType, Name: *refName, URI: *refURI},
		Argument: mcptypes.CompletionArgument{Name: *argName, Value: *argValue},
	}
	raw, err := ep.Send(context.Background(), mcptypes.MethodCompletionComplete, req, nil)
	if err != nil {
		return fmt.Errorf("completion/complete: %w", err)
	}
	var result mcptypes.CompleteResult
	if err := mcptypes.DecodeResult(raw, &result); err != nil {
		return err
	}
	for _, v := range result.Completion.Values {
		fmt.Println(v)
	}
	if result.Completion.Total > 0 || result.Completion.HasMore {
		fmt.Fprintf(os.Stderr, "total=%d hasMore=%v\n", result.Completion.Total, result.Completion.HasMore)
	}
	return nil
}

func watchCommand(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cf := bindConnectionFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ep, err := connectEndpoint(context.Background(), cf)
	if err != nil {
		return err
	}
	defer ep.Stop()

	fmt.Println("watching notifications, press Ctrl-C to stop")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	notes := ep.Notifications()
	for {
		select {
		case note, ok := <-notes:
			if !ok {
				return fmt.Errorf("connection closed")
			}
			fmt.Printf("[%s] %s %s\n", time.Now().Format(time.RFC3339), note.Method, string(note.Params))
		case <-sigCh:
			return nil
		}
	}
}

func serveHealthCommand(args []string) error {
	fs := flag.NewFlagSet("serve-health", flag.ExitOnError)
	cf := bindConnectionFlags(fs)
	addr := fs.String("http-addr", ":8090", "address to serve /healthz and /metrics on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := cf.loadConfig(); err != nil {
		return err
	}

	closeWatcher, err := cf.watchConfig(func(format string, args ...interface{}) {
		fmt.Printf(format+"\n", args...)
	})
	if err != nil {
		return err
	}
	defer closeWatcher()

	tr, err := cf.buildTransport()
	if err != nil {
		return err
	}

	validator, err := cf.buildValidator(context.Background())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRegistry(reg)

	h := host.New(host.Options{
		ClientInfo: mcptypes.Implementation{Name: "mcpclient-cli", Version: version},
		Metrics:    recorder,
		Validator:  validator,
	})
	if err := h.Connect(context.Background(), "default", tr, cf.buildTransport); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer h.Disconnect("default")

	router := healthhttp.NewRouter(h, reg)
	srv := &http.Server{Addr: *addr, Handler: router}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	fmt.Printf("serving /healthz and /metrics on %s\n", *addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-sigCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
