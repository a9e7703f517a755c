// ABOUTME: Entry point for the faro example client.
// ABOUTME: Spawns a pipe server or dials an event-stream URL, lists capabilities, runs demo calls.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/farolabs/faro/internal/capability"
	"github.com/farolabs/faro/internal/session"
	"github.com/farolabs/faro/internal/transport"
	"github.com/farolabs/faro/internal/wire"
)

func main() {
	serverVariant := flag.String("server", "", "spawn a local pipe server: simple, bd, or clima")
	url := flag.String("url", "", "connect to an event-stream endpoint (e.g. http://127.0.0.1:8765/events)")
	apiKey := flag.String("api-key", "", "shared secret for the event-stream transport")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := run(ctx, *serverVariant, *url, *apiKey)
	// A user interrupt is a normal way to leave the client.
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, serverVariant, url, apiKey string) error {
	if (serverVariant == "") == (url == "") {
		return errors.New("specify exactly one of --server or --url")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var adapter transport.Adapter
	var err error
	if serverVariant != "" {
		adapter, err = transport.SpawnPipe(ctx, "faro-server",
			[]string{"serve", "--server", serverVariant, "--transport", "pipe"},
			nil, logger)
		if err != nil {
			return fmt.Errorf("spawning server: %w", err)
		}
	} else {
		adapter, err = transport.DialStream(ctx, url, apiKey, logger)
		if err != nil {
			return fmt.Errorf("connecting: %w", err)
		}
	}

	sess := session.New(adapter, 30*time.Second, logger)
	defer sess.Close()

	if err := sess.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing session: %w", err)
	}
	name, version := sess.ServerInfo()

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	cyan.Printf("connected to %s", name)
	gray.Printf(" (%s)\n\n", version)

	caps, err := listAll(ctx, sess)
	if err != nil {
		return err
	}

	return runDemo(ctx, sess, caps)
}

// listAll prints the full capability list and returns it.
func listAll(ctx context.Context, sess *session.Session) ([]wire.CapabilityInfo, error) {
	var all []wire.CapabilityInfo
	for _, kind := range []capability.Kind{capability.KindAction, capability.KindResource, capability.KindPrompt} {
		caps, err := sess.List(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("listing %s capabilities: %w", kind, err)
		}
		all = append(all, caps...)
	}

	yellow := color.New(color.FgYellow)
	yellow.Println("capabilities:")
	for _, c := range all {
		fmt.Printf("  [%s] %s — %s\n", c.Kind, c.Name, c.Description)
	}
	fmt.Println()
	return all, nil
}

// runDemo issues one or two calls matching whatever the server exposes.
func runDemo(ctx context.Context, sess *session.Session, caps []wire.CapabilityInfo) error {
	have := make(map[string]string, len(caps))
	for _, c := range caps {
		have[c.Name] = c.Kind
	}

	if _, ok := have["sumar"]; ok {
		if err := call(ctx, sess, capability.KindAction, "sumar", map[string]any{"a": 10, "b": 20}); err != nil {
			return err
		}
	}
	if _, ok := have["registrar_chatter"]; ok {
		if err := call(ctx, sess, capability.KindAction, "registrar_chatter", map[string]any{"nombre": "ana"}); err != nil {
			return err
		}
	}
	if _, ok := have["chatters"]; ok {
		if err := call(ctx, sess, capability.KindResource, "chatters", nil); err != nil {
			return err
		}
	}
	if _, ok := have["clima"]; ok {
		if err := call(ctx, sess, capability.KindAction, "clima", map[string]any{"ciudad": "Madrid"}); err != nil {
			return err
		}
	}
	return nil
}

// call runs one invocation and prints its result. Dispatcher errors are
// printed, not fatal; only transport-level failures abort the client.
func call(ctx context.Context, sess *session.Session, kind capability.Kind, name string, args map[string]any) error {
	result, err := sess.Call(ctx, kind, name, args)
	if err != nil {
		return fmt.Errorf("calling %s: %w", name, err)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	if result.Ok() {
		green.Printf("%s → ", name)
		fmt.Printf("%v\n", result.Payload)
	} else {
		red.Printf("%s → error: ", name)
		fmt.Printf("%s (%s)\n", result.Err.Message, result.Err.Code)
	}
	return nil
}
