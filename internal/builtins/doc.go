// Package builtins holds the three capability packs a faro server can
// expose: simple (arithmetic plus a prompt), bd (persisted chatter counters),
// and clima (external weather lookups).
//
// Registration is an explicit, typed call executed once during process
// initialization; schemas are declared as data. There is no module-level
// server object and no annotation magic — the entry point constructs a
// registry and passes it here.
package builtins
