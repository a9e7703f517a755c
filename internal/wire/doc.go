// Package wire defines the envelope format both transports speak: JSON-RPC
// 2.0 framing with string request IDs, plus the InvocationResult that
// carries dispatcher outcomes inside a successful envelope.
package wire
