package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProgramPath = "main.hcl"
	got, err := NewConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "main.hcl", got.ProgramPath)
	assert.Equal(t, FormatText, got.Format)

	_, err = NewConfig(Config{
		Format:          "xml",
		LogFormat:       "pretty",
		LogLevel:        "loud",
		HealthcheckPort: -1,
		HTTPTimeout:     "soon",
	})
	require.Error(t, err)
	for _, want := range []string{
		"6 errors occurred",
		"ProgramPath is a required configuration field",
		`invalid format "xml"`,
		`invalid log-format "pretty"`,
		`invalid log-level "loud"`,
		"invalid healthcheck-port -1",
		"invalid http-timeout",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracegrid.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"
format = "yaml"
healthcheck_port = 9100
library = "lib"

[inputs]
name = "Ada"
count = "3"
`), 0o600))

	cfg := DefaultConfig()
	require.NoError(t, LoadConfigFile(path, &cfg))
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat, "unset keys keep their defaults")
	assert.Equal(t, FormatYAML, cfg.Format)
	assert.Equal(t, 9100, cfg.HealthcheckPort)
	assert.Equal(t, "lib", cfg.LibraryPath)
	assert.Equal(t, map[string]string{"name": "Ada", "count": "3"}, cfg.Inputs)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("log_levle = \"debug\"\n"), 0o600))
	assert.ErrorContains(t, LoadConfigFile(bad, &cfg), `unknown setting "log_levle"`)

	assert.ErrorContains(t, LoadConfigFile(filepath.Join(dir, "missing.toml"), &cfg), "failed to read config file")
}
