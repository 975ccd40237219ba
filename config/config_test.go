package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LISTEN_ADDR", "STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH", "HISTORY_LIMIT", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowchart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":8080"
store_driver: postgres
database_url: postgres://file/db
history_limit: 20
log_format: json
`), 0o600))

	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, 20, cfg.HistoryLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("HISTORY_LIMIT", "many")
	_, err = Load("")
	assert.ErrorContains(t, err, "HISTORY_LIMIT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"ok", func(*Config) {}, ""},
		{"no addr", func(c *Config) { c.ListenAddr = "" }, "listen_addr"},
		{"postgres without url", func(c *Config) { c.StoreDriver = DriverPostgres }, "database_url"},
		{"sqlite without path", func(c *Config) { c.SQLitePath = "" }, "sqlite_path"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }, "store_driver"},
		{"zero history", func(c *Config) { c.HistoryLimit = 0 }, "history_limit"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("warn", "json", &buf)
	log.Info("hidden")
	log.Warn("shown", "session", "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "abc", rec["session"])

	buf.Reset()
	fallback := NewLogger("nonsense", "text", &buf)
	fallback.Debug("below info")
	fallback.Info("fallback to info")
	assert.Contains(t, buf.String(), "fallback to info")
	assert.NotContains(t, buf.String(), "below info")

	buf.Reset()
	NewLogger("DEBUG", "text", &buf).Debug("level names are case-insensitive")
	assert.Contains(t, buf.String(), "level names are case-insensitive")
}
