// ABOUTME: Dispatcher that resolves, validates, and executes capability calls.
// ABOUTME: Normalizes every outcome into a wire.InvocationResult; never panics outward.

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/farolabs/faro/internal/capability"
	"github.com/farolabs/faro/internal/wire"
)

// Dispatcher turns (kind, name, arguments) into an InvocationResult.
// It owns no state beyond the registry reference and is safe for
// concurrent use.
type Dispatcher struct {
	registry *capability.Registry
	logger   *slog.Logger
}

// New creates a Dispatcher over the given registry. Pass nil logger for default.
func New(registry *capability.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger.With("component", "dispatch"),
	}
}

// Invoke executes one capability call. All failures are recovered at this
// boundary and returned as an error-status result: unknown capabilities,
// argument validation failures, handler errors, and handler panics.
func (d *Dispatcher) Invoke(ctx context.Context, kind capability.Kind, name string, args map[string]any) wire.InvocationResult {
	entry, err := d.registry.Lookup(kind, name)
	if err != nil {
		if errors.Is(err, capability.ErrNotFound) {
			return errResult(wire.CodeNotFound, fmt.Sprintf("unknown capability: %s %q", kind, name))
		}
		return errResult(wire.CodeHandler, err.Error())
	}

	validated, verr := validateArgs(entry.Schema, args)
	if verr != nil {
		d.logger.Debug("argument validation failed",
			"kind", kind,
			"name", name,
			"error", verr,
		)
		return errResult(wire.CodeValidation, "invalid arguments: "+verr.Error())
	}

	payload, herr := d.execute(ctx, entry, validated)
	if herr != nil {
		d.logger.Warn("handler failed",
			"kind", kind,
			"name", name,
			"error", herr,
		)
		return errResult(wire.CodeHandler, "handler failure: "+herr.Error())
	}

	return wire.InvocationResult{Status: wire.StatusOk, Payload: payload}
}

// execute runs the handler with panic recovery so a misbehaving handler can
// never take down the dispatch loop.
func (d *Dispatcher) execute(ctx context.Context, entry *capability.Entry, args map[string]any) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return entry.Handler(ctx, args)
}

// List returns wire descriptions of all capabilities of the given kind,
// in registration order.
func (d *Dispatcher) List(kind capability.Kind) []wire.CapabilityInfo {
	entries := d.registry.List(kind)
	infos := make([]wire.CapabilityInfo, len(entries))
	for i, e := range entries {
		params := make([]wire.ParamInfo, len(e.Schema))
		for j, p := range e.Schema {
			params[j] = wire.ParamInfo{
				Name:     p.Name,
				Type:     string(p.Type),
				Required: p.Required,
				Default:  p.Default,
			}
		}
		infos[i] = wire.CapabilityInfo{
			Name:        e.Name,
			Kind:        string(e.Kind),
			Description: e.Description,
			Schema:      params,
		}
	}
	return infos
}

// validateArgs checks args against the ordered schema: required params must
// be present, present values must satisfy their declared type, unknown params
// are rejected, and absent optionals are filled from their defaults. Returns
// a fresh map; the caller's map is never mutated.
func validateArgs(schema []capability.Param, args map[string]any) (map[string]any, error) {
	known := make(map[string]capability.Param, len(schema))
	for _, p := range schema {
		known[p.Name] = p
	}

	var problems []string
	for name := range args {
		if _, ok := known[name]; !ok {
			problems = append(problems, fmt.Sprintf("unknown parameter %q", name))
		}
	}

	validated := make(map[string]any, len(schema))
	for _, p := range schema {
		raw, present := args[p.Name]
		if !present {
			if p.Required {
				problems = append(problems, fmt.Sprintf("missing required parameter %q", p.Name))
			} else if p.Default != nil {
				validated[p.Name] = p.Default
			}
			continue
		}
		val, err := coerce(p.Type, raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("parameter %q: %v", p.Name, err))
			continue
		}
		validated[p.Name] = val
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}
	return validated, nil
}

// coerce checks a raw argument value against the declared type. JSON decodes
// all numbers as float64, so integral floats are accepted for int params.
func coerce(t capability.ParamType, v any) (any, error) {
	switch t {
	case capability.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case capability.TypeInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			return int(n), nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", v)
		}
	case capability.TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("expected number, got %T", v)
		}
	case capability.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", t)
	}
}

func errResult(code, message string) wire.InvocationResult {
	return wire.InvocationResult{
		Status: wire.StatusError,
		Err:    &wire.ErrorDetail{Code: code, Message: message},
	}
}
