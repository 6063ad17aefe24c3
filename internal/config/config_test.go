package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
server:
  port: "9000"
database:
  driver: sqlite
  dsn: "file::memory:"
vector_index:
  top_k: 6
refresh:
  debounce_ms: 500
session:
  secret: from-file
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 6, cfg.VectorIndex.TopK)
	assert.Equal(t, 500*time.Millisecond, cfg.Refresh.Debounce())
	assert.Equal(t, "from-file", cfg.Session.Secret)

	// defaults
	assert.Equal(t, "new_data", cfg.Database.NotifyChannel)
	assert.Equal(t, "local", cfg.VectorIndex.Backend)
	assert.Equal(t, "nomic-embed-text:latest", cfg.Embedding.Model)
	assert.Equal(t, 90*time.Second, cfg.Refresh.WaitTimeout())
	assert.Equal(t, time.Duration(0), cfg.Refresh.PollInterval())
	assert.Equal(t, 20, cfg.Session.HistoryLimit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOTEL_DATABASE_DSN", "host=db user=app dbname=hotel_db")
	t.Setenv("HOTEL_SESSION_SECRET", "from-env")
	t.Setenv("HOTEL_DATABASE_REDIS_ADDR", "redis:6379")
	t.Setenv("HOTEL_LLM_API_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "host=db user=app dbname=hotel_db", cfg.Database.DSN)
	assert.Equal(t, "from-env", cfg.Session.Secret)
	assert.Equal(t, "redis:6379", cfg.Database.Redis.Addr)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestLoad_MissingSecret(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: \"8000\"\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
