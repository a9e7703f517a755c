// ABOUTME: The "clima" capability pack: current weather via the external provider.
// ABOUTME: Provider failures surface as handler errors, never as crashes.

package builtins

import (
	"context"
	"fmt"

	"github.com/farolabs/faro/internal/capability"
	"github.com/farolabs/faro/internal/weather"
)

// RegisterClima registers the clima pack on the given registry.
func RegisterClima(reg *capability.Registry, provider weather.Provider) error {
	entries := []*capability.Entry{
		{
			Kind:        capability.KindAction,
			Name:        "clima",
			Description: "Consulta la temperatura y humedad actuales de una ciudad",
			Schema: []capability.Param{
				{Name: "ciudad", Type: capability.TypeString, Required: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				ciudad := args["ciudad"].(string)

				place, err := provider.Geocode(ctx, ciudad)
				if err != nil {
					return nil, fmt.Errorf("geocoding failed: %w", err)
				}
				if place == nil {
					return nil, fmt.Errorf("no se encontró la ciudad %q", ciudad)
				}

				cond, err := provider.CurrentConditions(ctx, place.Latitude, place.Longitude)
				if err != nil {
					return nil, fmt.Errorf("weather lookup failed: %w", err)
				}

				return map[string]any{
					"ciudad":      place.DisplayName,
					"pais":        place.Country,
					"temperatura": cond.Temperature,
					"humedad":     cond.Humidity,
				}, nil
			},
		},
		{
			Kind:        capability.KindResource,
			Name:        "clima_info",
			Description: "Atribución del proveedor de datos meteorológicos",
			Handler: func(_ context.Context, _ map[string]any) (any, error) {
				return "Datos meteorológicos por Open-Meteo.com", nil
			},
		},
	}

	for _, e := range entries {
		if err := reg.Register(e); err != nil {
			return fmt.Errorf("registering clima pack: %w", err)
		}
	}
	return nil
}
