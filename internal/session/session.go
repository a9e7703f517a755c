// ABOUTME: Client session over a transport adapter.
// ABOUTME: Handshake, capability listing, and invocation calls with a per-call timeout.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/farolabs/faro/internal/capability"
	"github.com/farolabs/faro/internal/transport"
	"github.com/farolabs/faro/internal/wire"
)

// ErrTimeout indicates no response arrived within the session's call timeout.
// The server-side handler, if still running, is not interrupted; its result
// is simply undelivered.
var ErrTimeout = errors.New("request timed out")

// ErrNotInitialized indicates a call was issued before Initialize completed.
var ErrNotInitialized = errors.New("session not initialized")

// DefaultCallTimeout is used when no timeout is configured.
const DefaultCallTimeout = 30 * time.Second

// Session owns one transport adapter for its lifetime. It is created on
// client start and destroyed on disconnect; the adapter is never shared
// across sessions.
type Session struct {
	adapter     transport.Adapter
	timeout     time.Duration
	logger      *slog.Logger
	initialized bool

	// capability snapshot from the last List call, for display only.
	// Never consulted for correctness of subsequent calls.
	cache []wire.CapabilityInfo

	serverName    string
	serverVersion string
}

// New creates a Session over the given adapter. A non-positive timeout
// selects DefaultCallTimeout. Pass nil logger for default.
func New(adapter transport.Adapter, timeout time.Duration, logger *slog.Logger) *Session {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		adapter: adapter,
		timeout: timeout,
		logger:  logger.With("component", "session"),
	}
}

// Initialize performs the transport handshake. It must complete before any
// other call on the session.
func (s *Session) Initialize(ctx context.Context) error {
	resp, err := s.roundTrip(ctx, wire.MethodInitialize, nil)
	if err != nil {
		return err
	}

	var result wire.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("%w: decoding initialize result: %v", transport.ErrProtocol, err)
	}

	s.serverName = result.ServerName
	s.serverVersion = result.ServerVersion
	s.initialized = true

	s.logger.Debug("session initialized",
		"server_name", result.ServerName,
		"server_version", result.ServerVersion,
	)
	return nil
}

// ServerInfo returns the name and version reported by the initialize handshake.
func (s *Session) ServerInfo() (name, version string) {
	return s.serverName, s.serverVersion
}

// List requests the current capability list of the given kind. The returned
// snapshot is cached for display purposes only.
func (s *Session) List(ctx context.Context, kind capability.Kind) ([]wire.CapabilityInfo, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	params, err := json.Marshal(wire.ListParams{Kind: string(kind)})
	if err != nil {
		return nil, fmt.Errorf("encoding list params: %w", err)
	}

	resp, err := s.roundTrip(ctx, wire.MethodList, params)
	if err != nil {
		return nil, err
	}

	var result wire.ListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding list result: %v", transport.ErrProtocol, err)
	}

	s.cache = result.Capabilities
	return result.Capabilities, nil
}

// Cached returns the capability snapshot from the last List call, if any.
func (s *Session) Cached() []wire.CapabilityInfo {
	return s.cache
}

// Call sends one invocation request and awaits its result. Dispatcher errors
// come back inside the InvocationResult; the error return is reserved for
// transport, protocol, and timeout failures. No retries.
func (s *Session) Call(ctx context.Context, kind capability.Kind, name string, args map[string]any) (*wire.InvocationResult, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	params, err := json.Marshal(wire.CallParams{
		Kind:      string(kind),
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding call params: %w", err)
	}

	resp, err := s.roundTrip(ctx, wire.MethodCall, params)
	if err != nil {
		return nil, err
	}

	var result wire.InvocationResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding invocation result: %v", transport.ErrProtocol, err)
	}
	return &result, nil
}

// roundTrip issues one request envelope with a fresh ID under the session's
// call timeout.
func (s *Session) roundTrip(ctx context.Context, method string, params json.RawMessage) (*wire.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &wire.Request{
		JSONRPC: wire.Version,
		ID:      uuid.New().String(),
		Method:  method,
		Params:  params,
	}

	resp, err := s.adapter.Call(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: no response to %s within %s", ErrTimeout, method, s.timeout)
		}
		return nil, err
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s (%s)", transport.ErrProtocol, resp.Error.Message, resp.Error.Code)
	}
	return resp, nil
}

// Close releases the transport, cancelling all outstanding requests.
func (s *Session) Close() error {
	return s.adapter.Close()
}
