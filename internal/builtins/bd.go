// ABOUTME: The "bd" capability pack: persisted chatter counters backed by SQLite.
// ABOUTME: Action mutates the store; the chatters resource is a read-only view.

package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/farolabs/faro/internal/capability"
	"github.com/farolabs/faro/internal/store"
)

// chattersTopN is how many rows the chatters resource renders.
const chattersTopN = 10

// RegisterBD registers the bd pack on the given registry. Handlers share the
// chatter store; the resource handler only ever reads from it.
func RegisterBD(reg *capability.Registry, s store.ChatterStore) error {
	entries := []*capability.Entry{
		{
			Kind:        capability.KindAction,
			Name:        "registrar_chatter",
			Description: "Incrementa el contador de mensajes de un chatter",
			Schema: []capability.Param{
				{Name: "nombre", Type: capability.TypeString, Required: true},
				{Name: "delta", Type: capability.TypeInt, Required: false, Default: 1},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				nombre := args["nombre"].(string)
				delta := args["delta"].(int)
				count, err := s.UpsertIncrement(ctx, nombre, int64(delta))
				if err != nil {
					return nil, err
				}
				return map[string]any{"nombre": nombre, "count": count}, nil
			},
		},
		{
			Kind:        capability.KindResource,
			Name:        "chatters",
			Description: "Tabla de los chatters más activos",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				rows, err := s.ReadTopN(ctx, chattersTopN)
				if err != nil {
					return nil, err
				}
				return FormatChatters(rows), nil
			},
		},
	}

	for _, e := range entries {
		if err := reg.Register(e); err != nil {
			return fmt.Errorf("registering bd pack: %w", err)
		}
	}
	return nil
}

// FormatChatters renders counter rows as the fixed-format text table the
// chatters resource returns.
func FormatChatters(rows []store.ChatterCount) string {
	var b strings.Builder
	b.WriteString("nombre | mensajes\n")
	b.WriteString("-------|---------\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s | %d\n", r.Name, r.Count)
	}
	return b.String()
}
