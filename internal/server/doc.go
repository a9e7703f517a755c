// Package server assembles a faro server process: it builds the capability
// registry for the configured variant (simple, bd, or clima), wires the
// dispatcher, and runs the configured transport until shutdown.
package server
