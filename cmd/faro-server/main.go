// ABOUTME: Entry point for the faro capability server.
// ABOUTME: Serves one capability pack over the stdio pipe or the HTTP event stream.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/farolabs/faro/internal/config"
	"github.com/farolabs/faro/internal/server"
)

// version is set by the release build.
var version = "dev"

const banner = `
   __
  / _| __ _ _ __ ___
 | |_ / _' | '__/ _ \
 |  _| (_| | | | (_) |
 |_|  \__,_|_|  \___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: faro-server <command>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  serve    Start the capability server")
		fmt.Fprintln(os.Stderr, "  version  Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv(config.EnvConfig), "path to YAML config file")
	variant := fs.String("server", "", "capability pack: simple, bd, or clima (overrides config and FARO_SERVER)")
	transportName := fs.String("transport", "", "transport: pipe or sse (overrides config)")
	addr := fs.String("addr", "", "listen address for the sse transport (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if *variant != "" {
		cfg.Server.Variant = *variant
	}
	if *transportName != "" {
		cfg.Server.Transport = *transportName
	}
	if *addr != "" {
		cfg.Server.HTTPAddr = *addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Stdout belongs to the pipe protocol, so every human-facing line and
	// every log record goes to stderr.
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)

	cyan.Fprint(os.Stderr, banner)
	gray.Fprintf(os.Stderr, "    version: %s\n\n", version)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Pack:      %s\n", cfg.Server.Variant)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Transport: %s\n", cfg.Server.Transport)
	if cfg.Server.Transport == "sse" {
		green.Fprint(os.Stderr, "    ▶ ")
		fmt.Fprintf(os.Stderr, "HTTP:      %s\n", cfg.Server.HTTPAddr)
	}
	fmt.Fprintln(os.Stderr)

	srv, err := server.New(cfg, logger, server.WithStdio(os.Stdin, os.Stdout))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
