// ABOUTME: Server assembly: config, registry, dispatcher, and the chosen transport.
// ABOUTME: Owns startup registration and graceful shutdown for both variants.

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/farolabs/faro/internal/authgate"
	"github.com/farolabs/faro/internal/builtins"
	"github.com/farolabs/faro/internal/capability"
	"github.com/farolabs/faro/internal/config"
	"github.com/farolabs/faro/internal/dispatch"
	"github.com/farolabs/faro/internal/store"
	"github.com/farolabs/faro/internal/transport"
	"github.com/farolabs/faro/internal/weather"
)

// Version is stamped at build time.
var Version = "dev"

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// Server is one assembled faro server process: a registry populated with one
// capability pack, a dispatcher, and either a pipe or event-stream transport.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *capability.Registry
	handler  transport.Handler
	closers  []io.Closer

	// stdio streams for the pipe transport, overridable in tests
	stdin  io.Reader
	stdout io.Writer
}

// Option configures a Server.
type Option func(*Server)

// WithStdio overrides the streams used by the pipe transport (for tests).
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.stdin = in
		s.stdout = out
	}
}

// New builds a server from config: constructs the registry, registers the
// configured capability pack, and prepares the dispatcher. Registration
// happens here, once, before any transport accepts requests.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	registry := capability.NewRegistry(logger)
	if err := s.registerPack(registry); err != nil {
		s.closeAll()
		return nil, err
	}
	s.registry = registry

	dispatcher := dispatch.New(registry, logger)
	s.handler = newRPCHandler(dispatcher, "faro-"+cfg.Server.Variant, Version, logger)

	logger.Info("server assembled",
		"variant", cfg.Server.Variant,
		"transport", cfg.Server.Transport,
		"capabilities", registry.Len(),
	)
	return s, nil
}

// registerPack wires the variant's capability pack and its collaborators.
func (s *Server) registerPack(registry *capability.Registry) error {
	switch s.cfg.Server.Variant {
	case "simple":
		return builtins.RegisterSimple(registry)

	case "bd":
		st, err := store.NewSQLiteStore(s.cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening chatter store: %w", err)
		}
		s.closers = append(s.closers, st)
		return builtins.RegisterBD(registry, st)

	case "clima":
		var opts []weather.Option
		if s.cfg.Weather.GeocodeURL != "" && s.cfg.Weather.ForecastURL != "" {
			opts = append(opts, weather.WithBaseURLs(s.cfg.Weather.GeocodeURL, s.cfg.Weather.ForecastURL))
		}
		return builtins.RegisterClima(registry, weather.NewClient(opts...))

	default:
		return fmt.Errorf("unknown server variant %q", s.cfg.Server.Variant)
	}
}

// Handler exposes the RPC handler, mainly for in-process tests.
func (s *Server) Handler() transport.Handler {
	return s.handler
}

// Run serves requests until ctx is cancelled or the transport ends.
func (s *Server) Run(ctx context.Context) error {
	defer s.closeAll()

	switch s.cfg.Server.Transport {
	case "pipe":
		return s.runPipe(ctx)
	case "sse":
		return s.runStream(ctx)
	default:
		return fmt.Errorf("unknown transport %q", s.cfg.Server.Transport)
	}
}

func (s *Server) runPipe(ctx context.Context) error {
	in, out := s.stdin, s.stdout
	if in == nil || out == nil {
		return errors.New("pipe transport requires stdio streams")
	}

	s.logger.Info("serving on stdio pipe", "variant", s.cfg.Server.Variant)
	return transport.NewPipeServer(s.handler, in, out, s.logger).Serve(ctx)
}

func (s *Server) runStream(ctx context.Context) error {
	gate := authgate.New(s.cfg.Auth.APIKey, s.logger)
	stream := transport.NewStreamServer(s.handler, gate, s.logger)

	mux := http.NewServeMux()
	stream.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    s.cfg.Server.HTTPAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving event stream",
			"addr", s.cfg.Server.HTTPAddr,
			"variant", s.cfg.Server.Variant,
			"auth", gate.Enabled(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		s.logger.Info("http server stopped")
		return nil
	}
}

func (s *Server) closeAll() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Warn("close failed", "error", err)
		}
	}
	s.closers = nil
}
