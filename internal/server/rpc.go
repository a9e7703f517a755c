// ABOUTME: Maps wire envelopes onto the dispatcher: initialize, list, call.
// ABOUTME: Shared by both transports; protocol faults become envelope errors.

package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/farolabs/faro/internal/capability"
	"github.com/farolabs/faro/internal/dispatch"
	"github.com/farolabs/faro/internal/transport"
	"github.com/farolabs/faro/internal/wire"
)

// listKinds is the listing order when a list request names no kind.
var listKinds = []capability.Kind{
	capability.KindAction,
	capability.KindResource,
	capability.KindPrompt,
}

// rpcHandler implements transport.Handler over a dispatcher.
type rpcHandler struct {
	dispatcher *dispatch.Dispatcher
	name       string
	version    string
	logger     *slog.Logger
}

func newRPCHandler(d *dispatch.Dispatcher, name, version string, logger *slog.Logger) *rpcHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &rpcHandler{
		dispatcher: d,
		name:       name,
		version:    version,
		logger:     logger.With("component", "rpc"),
	}
}

// Handle processes one request envelope. It always returns a response:
// dispatcher outcomes ride in the result, protocol faults in the envelope
// error.
func (h *rpcHandler) Handle(ctx context.Context, req *wire.Request) *wire.Response {
	if req.JSONRPC != wire.Version {
		return transport.ProtocolErrorResponse(req.ID, "invalid JSON-RPC version")
	}
	if req.ID == "" {
		return transport.ProtocolErrorResponse("", "request id is required")
	}

	h.logger.Debug("handling request", "request_id", req.ID, "method", req.Method)

	switch req.Method {
	case wire.MethodInitialize:
		return h.handleInitialize(req)
	case wire.MethodList:
		return h.handleList(req)
	case wire.MethodCall:
		return h.handleCall(ctx, req)
	default:
		return transport.ProtocolErrorResponse(req.ID, "method not found: "+req.Method)
	}
}

func (h *rpcHandler) handleInitialize(req *wire.Request) *wire.Response {
	return h.result(req.ID, wire.InitializeResult{
		ServerName:    h.name,
		ServerVersion: h.version,
	})
}

func (h *rpcHandler) handleList(req *wire.Request) *wire.Response {
	var params wire.ListParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return transport.ProtocolErrorResponse(req.ID, "invalid list params")
		}
	}

	var infos []wire.CapabilityInfo
	if params.Kind == "" {
		for _, k := range listKinds {
			infos = append(infos, h.dispatcher.List(k)...)
		}
	} else {
		kind := capability.Kind(params.Kind)
		if !kind.Valid() {
			return transport.ProtocolErrorResponse(req.ID, "unknown capability kind: "+params.Kind)
		}
		infos = h.dispatcher.List(kind)
	}

	if infos == nil {
		infos = []wire.CapabilityInfo{}
	}
	return h.result(req.ID, wire.ListResult{Capabilities: infos})
}

func (h *rpcHandler) handleCall(ctx context.Context, req *wire.Request) *wire.Response {
	var params wire.CallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return transport.ProtocolErrorResponse(req.ID, "invalid call params")
	}

	kind := capability.Kind(params.Kind)
	if !kind.Valid() {
		return transport.ProtocolErrorResponse(req.ID, "unknown capability kind: "+params.Kind)
	}
	if params.Name == "" {
		return transport.ProtocolErrorResponse(req.ID, "capability name is required")
	}

	result := h.dispatcher.Invoke(ctx, kind, params.Name, params.Arguments)
	return h.result(req.ID, result)
}

func (h *rpcHandler) result(id string, result any) *wire.Response {
	data, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("failed to encode result", "request_id", id, "error", err)
		return &wire.Response{
			JSONRPC: wire.Version,
			ID:      id,
			Error:   &wire.ErrorDetail{Code: wire.CodeProtocol, Message: "failed to encode result"},
		}
	}
	return &wire.Response{
		JSONRPC: wire.Version,
		ID:      id,
		Result:  data,
	}
}
