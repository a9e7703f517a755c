// Package dispatch resolves capability calls against the registry, validates
// arguments against the declared schema, and executes handlers.
//
// Invoke is a total function: every outcome, including handler panics, is
// recovered at the dispatcher boundary and returned as a structured
// InvocationResult. Transport code can therefore serialize whatever comes
// back without its own error handling.
package dispatch
