// ABOUTME: Tests for capability registration, duplicate detection, and lookup.
// ABOUTME: Validates listing order and kind-scoped naming.

package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
)

func noopHandler(_ context.Context, _ map[string]any) (any, error) {
	return nil, nil
}

func testEntry(kind Kind, name string) *Entry {
	return &Entry{
		Kind:        kind,
		Name:        name,
		Description: name + " description",
		Handler:     noopHandler,
	}
}

func TestRegistryRegister(t *testing.T) {
	t.Run("registers entry successfully", func(t *testing.T) {
		registry := NewRegistry(slog.Default())

		err := registry.Register(testEntry(KindAction, "sumar"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entry, err := registry.Lookup(KindAction, "sumar")
		if err != nil {
			t.Fatalf("unexpected lookup error: %v", err)
		}
		if entry.Name != "sumar" {
			t.Errorf("expected name 'sumar', got %q", entry.Name)
		}
	})

	t.Run("returns error for duplicate kind and name", func(t *testing.T) {
		registry := NewRegistry(slog.Default())

		if err := registry.Register(testEntry(KindAction, "sumar")); err != nil {
			t.Fatalf("unexpected error on first register: %v", err)
		}

		err := registry.Register(testEntry(KindAction, "sumar"))
		if err == nil {
			t.Fatal("expected error for duplicate registration")
		}
		if !errors.Is(err, ErrDuplicateName) {
			t.Errorf("expected ErrDuplicateName, got %v", err)
		}
	})

	t.Run("same name under different kinds succeeds", func(t *testing.T) {
		registry := NewRegistry(slog.Default())

		if err := registry.Register(testEntry(KindAction, "clima")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := registry.Register(testEntry(KindResource, "clima")); err != nil {
			t.Errorf("expected distinct kinds to coexist, got %v", err)
		}
	})

	t.Run("rejects invalid kind", func(t *testing.T) {
		registry := NewRegistry(slog.Default())

		err := registry.Register(testEntry(Kind("gadget"), "x"))
		if err == nil {
			t.Error("expected error for invalid kind")
		}
	})

	t.Run("rejects missing handler", func(t *testing.T) {
		registry := NewRegistry(slog.Default())

		err := registry.Register(&Entry{Kind: KindAction, Name: "x"})
		if err == nil {
			t.Error("expected error for nil handler")
		}
	})
}

func TestRegistryLookup(t *testing.T) {
	t.Run("returns ErrNotFound for unknown name", func(t *testing.T) {
		registry := NewRegistry(slog.Default())

		_, err := registry.Lookup(KindAction, "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("lookup is kind-scoped", func(t *testing.T) {
		registry := NewRegistry(slog.Default())
		registry.Register(testEntry(KindResource, "chatters"))

		if _, err := registry.Lookup(KindAction, "chatters"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for wrong kind, got %v", err)
		}
	})
}

func TestRegistryList(t *testing.T) {
	t.Run("preserves registration order", func(t *testing.T) {
		registry := NewRegistry(slog.Default())
		names := []string{"c", "a", "b"}
		for _, n := range names {
			if err := registry.Register(testEntry(KindAction, n)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		listed := registry.List(KindAction)
		if len(listed) != len(names) {
			t.Fatalf("expected %d entries, got %d", len(names), len(listed))
		}
		for i, n := range names {
			if listed[i].Name != n {
				t.Errorf("position %d: expected %q, got %q", i, n, listed[i].Name)
			}
		}
	})

	t.Run("listing is restartable and kind-scoped", func(t *testing.T) {
		registry := NewRegistry(slog.Default())
		registry.Register(testEntry(KindAction, "sumar"))
		registry.Register(testEntry(KindPrompt, "guia"))

		for i := 0; i < 2; i++ {
			actions := registry.List(KindAction)
			if len(actions) != 1 || actions[0].Name != "sumar" {
				t.Fatalf("pass %d: unexpected actions %v", i, actions)
			}
		}
		if got := len(registry.List(KindResource)); got != 0 {
			t.Errorf("expected no resources, got %d", got)
		}
	})
}

func TestRegistryConcurrentLookup(t *testing.T) {
	registry := NewRegistry(slog.Default())
	for i := 0; i < 10; i++ {
		registry.Register(testEntry(KindAction, fmt.Sprintf("tool-%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("tool-%d", i%10)
			if _, err := registry.Lookup(KindAction, name); err != nil {
				t.Errorf("lookup %s failed: %v", name, err)
			}
			registry.List(KindAction)
		}(i)
	}
	wg.Wait()
}
