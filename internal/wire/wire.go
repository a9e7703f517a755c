// ABOUTME: JSON-RPC 2.0 envelope types shared by both transports.
// ABOUTME: Defines request/response framing, error codes, and invocation results.

package wire

import "encoding/json"

// Version is the JSON-RPC version carried in every envelope.
const Version = "2.0"

// Methods understood by a faro server.
const (
	MethodInitialize = "initialize"
	MethodList       = "capabilities/list"
	MethodCall       = "capabilities/call"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result and
// Error is set. Error is reserved for protocol faults; dispatcher outcomes
// (including handler failures) travel inside Result as an InvocationResult.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

// ErrorDetail is the structured error carried on the wire.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used in ErrorDetail.Code.
const (
	CodeNotFound      = "not_found"
	CodeDuplicateName = "duplicate_name"
	CodeValidation    = "validation"
	CodeHandler       = "handler"
	CodeTransport     = "transport"
	CodeProtocol      = "protocol"
	CodeAuth          = "auth"
	CodeTimeout       = "timeout"
)

// Status of an invocation result.
type Status string

const (
	StatusOk    Status = "ok"
	StatusError Status = "error"
)

// InvocationResult is the normalized outcome of a dispatch, serialized into
// Response.Result. Payload is set on ok, Err on error.
type InvocationResult struct {
	Status  Status       `json:"status"`
	Payload any          `json:"payload,omitempty"`
	Err     *ErrorDetail `json:"error,omitempty"`
}

// Ok reports whether the result carries a successful payload.
func (r *InvocationResult) Ok() bool {
	return r.Status == StatusOk
}

// ListParams are the params for capabilities/list.
type ListParams struct {
	Kind string `json:"kind"`
}

// CallParams are the params for capabilities/call.
type CallParams struct {
	Kind      string         `json:"kind"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CapabilityInfo describes one registered capability in a list result.
type CapabilityInfo struct {
	Name        string      `json:"name"`
	Kind        string      `json:"kind"`
	Description string      `json:"description"`
	Schema      []ParamInfo `json:"schema,omitempty"`
}

// ParamInfo describes one schema parameter in a list result.
type ParamInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// ListResult is the result for capabilities/list.
type ListResult struct {
	Capabilities []CapabilityInfo `json:"capabilities"`
}

// InitializeResult is the result for initialize.
type InitializeResult struct {
	ServerName    string `json:"serverName"`
	ServerVersion string `json:"serverVersion"`
}
