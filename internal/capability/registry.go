// ABOUTME: Registry of named capabilities (actions, resources, prompts).
// ABOUTME: Registration happens once at startup; lookups are read-only thereafter.

package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrDuplicateName indicates a capability with the same (kind, name) is
// already registered.
var ErrDuplicateName = errors.New("capability already registered")

// ErrNotFound indicates the requested capability does not exist.
var ErrNotFound = errors.New("capability not found")

// Kind classifies a capability.
type Kind string

const (
	// KindAction may mutate external state when invoked.
	KindAction Kind = "action"
	// KindResource is read-only by contract.
	KindResource Kind = "resource"
	// KindPrompt returns static or templated text, never touching state.
	KindPrompt Kind = "prompt"
)

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindAction, KindResource, KindPrompt:
		return true
	}
	return false
}

// ParamType is the declared type of a schema parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeNumber ParamType = "number"
	TypeBool   ParamType = "bool"
)

// Param is one entry of a capability's ordered input schema.
type Param struct {
	Name     string
	Type     ParamType
	Required bool
	Default  any // filled in when an optional param is absent
}

// Handler executes a capability with validated arguments. It may block on
// external I/O; cancellation comes through ctx.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Entry is one registered capability. Immutable once registered.
type Entry struct {
	Kind        Kind
	Name        string
	Description string
	Schema      []Param
	Handler     Handler
}

type key struct {
	kind Kind
	name string
}

// Registry maps (kind, name) to entries. All registration is expected to
// complete before dispatch begins; the RWMutex makes lookups safe regardless.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]*Entry
	order   map[Kind][]*Entry // listing preserves registration order
	logger  *slog.Logger
}

// NewRegistry creates an empty Registry. Pass nil logger for default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[key]*Entry),
		order:   make(map[Kind][]*Entry),
		logger:  logger.With("component", "registry"),
	}
}

// Register stores a capability entry.
// Returns ErrDuplicateName if (kind, name) is already present.
func (r *Registry) Register(e *Entry) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("invalid capability kind %q", e.Kind)
	}
	if e.Name == "" {
		return errors.New("capability name is required")
	}
	if e.Handler == nil {
		return fmt.Errorf("capability %q has no handler", e.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{kind: e.Kind, name: e.Name}
	if _, exists := r.entries[k]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicateName, e.Kind, e.Name)
	}

	r.entries[k] = e
	r.order[e.Kind] = append(r.order[e.Kind], e)

	r.logger.Debug("capability registered",
		"kind", e.Kind,
		"name", e.Name,
		"params", len(e.Schema),
	)
	return nil
}

// Lookup returns the entry for (kind, name).
// Returns ErrNotFound if no such capability exists.
func (r *Registry) Lookup(kind Kind, name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key{kind: kind, name: name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
	}
	return e, nil
}

// List returns all entries of the given kind in registration order.
// The returned slice is a copy; callers may not mutate entries.
func (r *Registry) List(kind Kind) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.order[kind]
	out := make([]*Entry, len(src))
	copy(out, src)
	return out
}

// Len returns the total number of registered capabilities across all kinds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
