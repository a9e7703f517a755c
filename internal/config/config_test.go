// ABOUTME: Tests for config loading: YAML parsing, env expansion, validation.
// ABOUTME: Exercises file-based loads via t.TempDir and env overrides via t.Setenv.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "simple", cfg.Server.Variant)
	assert.Equal(t, "pipe", cfg.Server.Transport)
	assert.Equal(t, 30*time.Second, cfg.Client.CallTimeout)
	assert.Empty(t, cfg.Auth.APIKey)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  variant: bd
  transport: sse
  http_addr: "127.0.0.1:9900"
database:
  path: /tmp/chatters.db
client:
  call_timeout: 45s
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bd", cfg.Server.Variant)
	assert.Equal(t, "sse", cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:9900", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/chatters.db", cfg.Database.Path)
	assert.Equal(t, 45*time.Second, cfg.Client.CallTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_FARO_KEY", "from-env")
	path := writeConfig(t, `
auth:
  api_key: ${TEST_FARO_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.APIKey)
}

func TestLoadUnsetEnvVarBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
auth:
  api_key: ${TEST_FARO_UNSET_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.APIKey)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvServerVariant, "clima")
	t.Setenv(EnvAPIKey, "override")
	path := writeConfig(t, `
server:
  variant: simple
auth:
  api_key: from-file
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "clima", cfg.Server.Variant)
	assert.Equal(t, "override", cfg.Auth.APIKey)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
client:
  call_timeout: soon
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call_timeout")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown variant",
			mutate:  func(c *Config) { c.Server.Variant = "experto" },
			wantErr: "server.variant",
		},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Server.Transport = "grpc" },
			wantErr: "server.transport",
		},
		{
			name: "sse without listen address",
			mutate: func(c *Config) {
				c.Server.Transport = "sse"
				c.Server.HTTPAddr = ""
			},
			wantErr: "http_addr",
		},
		{
			name: "bd without database path",
			mutate: func(c *Config) {
				c.Server.Variant = "bd"
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
