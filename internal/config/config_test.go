package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MONGODB_URI", "STORE_BACKEND", "CORS_ALLOWED_ORIGINS", "TELEMETRY_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "3001", cfg.ServerPort)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "todo-app", cfg.MongoDatabase)
	assert.Equal(t, "todos", cfg.MongoCollection)
	assert.True(t, cfg.TelemetryEnabled)

	assert.ErrorContains(t, cfg.Validate(), "MONGODB_URI")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, http://example.com,")
	t.Setenv("TELEMETRY_ENABLED", "false")

	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, []string{"http://localhost:5173", "http://example.com"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.TelemetryEnabled)
	assert.NoError(t, cfg.Validate())

	cfg.StoreBackend = "postgres"
	assert.Error(t, cfg.Validate())
}

func TestLoadClient(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: http://todo.internal/api\nlog_level: debug\ntimeout: 3s\n"), 0o644))

	t.Setenv("TODO_CLIENT_CONFIG", path)
	t.Setenv("TODO_API_URL", "")
	t.Setenv("TODO_LOG_FILE", "custom.log")
	t.Setenv("TODO_LOG_LEVEL", "")
	t.Setenv("TODO_TIMEOUT", "")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://todo.internal/api", cfg.APIURL)
	assert.Equal(t, "custom.log", cfg.LogFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Timeout)

	t.Setenv("TODO_TIMEOUT", "soon")
	_, err = LoadClient()
	assert.Error(t, err)
}

func TestLoadClientDefaults(t *testing.T) {
	for _, key := range []string{"TODO_CLIENT_CONFIG", "TODO_API_URL", "TODO_LOG_FILE", "TODO_LOG_LEVEL", "TODO_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001/api", cfg.APIURL)
	assert.Equal(t, "todo-client.log", cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.Timeout)

	t.Setenv("TODO_TIMEOUT", "2s")
	cfg, err = LoadClient()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
}
