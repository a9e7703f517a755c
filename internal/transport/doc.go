// Package transport carries request and response envelopes between client
// sessions and the dispatcher over two channel variants.
//
// # Local pipe
//
// The parent process spawns the server as a child and exchanges
// newline-delimited JSON envelopes over its stdin/stdout. The byte stream is
// a single ordered duplex channel: one request outstanding at a time,
// responses delivered in write order. Closing the parent side terminates the
// child.
//
// # Event stream
//
// The server exposes one long-lived SSE channel (GET /events) for responses
// and one short-lived POST endpoint (POST /rpc?session=...) for invocations.
// The first SSE event names the POST endpoint for that stream. Any number of
// requests may be in flight; responses interleave and are correlated by
// envelope ID, never by arrival order. Both endpoints sit behind the auth
// gate, so denied requests never reach the dispatcher.
//
// # Failure modes
//
// A broken or unreachable channel surfaces as ErrTransport and tears down
// that channel only. A malformed envelope surfaces as ErrProtocol and leaves
// the channel up. Client-side timeouts belong to the session layer.
package transport
