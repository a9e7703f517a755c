// Package weather wraps the external weather provider behind the Provider
// interface: geocoding of place names and current-condition lookups.
package weather
