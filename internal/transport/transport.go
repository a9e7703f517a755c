// ABOUTME: Transport adapter contract shared by the pipe and event-stream variants.
// ABOUTME: Defines the client-side Adapter interface and transport-level sentinel errors.

package transport

import (
	"context"
	"errors"

	"github.com/farolabs/faro/internal/wire"
)

// ErrTransport indicates the channel is broken or unreachable. The affected
// channel is torn down; other sessions continue.
var ErrTransport = errors.New("transport failure")

// ErrProtocol indicates a malformed envelope. The channel itself stays up.
var ErrProtocol = errors.New("protocol error")

// ErrClosed indicates the adapter has been closed.
var ErrClosed = errors.New("transport closed")

// ErrUnauthorized indicates the server rejected the shared secret.
var ErrUnauthorized = errors.New("unauthorized")

// Adapter is the client-side transport contract. Call sends one request
// envelope and awaits the correlated response; correlation is by envelope ID,
// never by arrival order. Close cancels all outstanding calls.
//
// The pipe variant permits one in-flight request at a time; the event-stream
// variant permits many.
type Adapter interface {
	Call(ctx context.Context, req *wire.Request) (*wire.Response, error)
	Close() error
}

// Handler is the server-side contract both transports dispatch into.
// Handle must always return a response envelope; dispatcher-level failures
// ride inside the result, protocol faults in the envelope error.
type Handler interface {
	Handle(ctx context.Context, req *wire.Request) *wire.Response
}

// ProtocolErrorResponse builds an envelope-level protocol error response.
func ProtocolErrorResponse(id, message string) *wire.Response {
	return &wire.Response{
		JSONRPC: wire.Version,
		ID:      id,
		Error:   &wire.ErrorDetail{Code: wire.CodeProtocol, Message: message},
	}
}
