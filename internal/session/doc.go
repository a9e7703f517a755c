// Package session implements the client side of a faro connection: the
// initialize handshake, capability listing, and invocation calls over an
// owned transport adapter, with a configurable per-call timeout.
//
// On timeout the server-side handler is not interrupted; its result is
// simply undelivered. Callers who need stronger guarantees must build them
// into the handler itself.
package session
