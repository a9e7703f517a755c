// Package config loads faro configuration from YAML with ${VAR} environment
// expansion, layered under the FARO_SERVER and FARO_API_KEY environment
// overrides read once at startup.
package config
