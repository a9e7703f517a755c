// ABOUTME: The "simple" capability pack: integer addition and a usage-guide prompt.
// ABOUTME: First pack of the tutorial progression; no external collaborators.

package builtins

import (
	"context"
	"fmt"

	"github.com/farolabs/faro/internal/capability"
)

// RegisterSimple registers the simple pack on the given registry.
func RegisterSimple(reg *capability.Registry) error {
	entries := []*capability.Entry{
		{
			Kind:        capability.KindAction,
			Name:        "sumar",
			Description: "Suma dos números enteros",
			Schema: []capability.Param{
				{Name: "a", Type: capability.TypeInt, Required: true},
				{Name: "b", Type: capability.TypeInt, Required: true},
			},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				return args["a"].(int) + args["b"].(int), nil
			},
		},
		{
			Kind:        capability.KindPrompt,
			Name:        "guia",
			Description: "Guía de uso del servidor",
			Schema: []capability.Param{
				{Name: "tema", Type: capability.TypeString, Required: false, Default: "general"},
			},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				tema := args["tema"].(string)
				return fmt.Sprintf(
					"Eres un asistente del servidor faro. Tema: %s.\n"+
						"Lista las capacidades disponibles y usa 'sumar' para operaciones aritméticas.",
					tema,
				), nil
			},
		},
	}

	for _, e := range entries {
		if err := reg.Register(e); err != nil {
			return fmt.Errorf("registering simple pack: %w", err)
		}
	}
	return nil
}
