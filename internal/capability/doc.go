// Package capability holds the registry of named capabilities a faro server
// exposes: actions (may mutate external state), resources (read-only by
// contract), and prompts (templated text, no external effects).
//
// Input schemas are declared as ordinary data (ordered Param slices) rather
// than inferred from function signatures, so validation is testable without
// reflection. Registration is performed once by the process entry point
// before any dispatch begins; the registry is read-only thereafter.
//
// The read-only-after-startup contract for resources and prompts is enforced
// by convention, not at runtime — tests verify that resource handlers perform
// no writes.
package capability
