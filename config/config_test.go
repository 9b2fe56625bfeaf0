package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	path := writeConfigFile(t, `
store:
  type: sqlite
  sqlite:
    path: /tmp/corpus.db
embeddings:
  service: local
  server_url: http://localhost:5557
search:
  default_top_k: 5
log:
  level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	t.Run("file values", func(t *testing.T) {
		assert.Equal(t, "sqlite", cfg.Store.Type)
		assert.Equal(t, "/tmp/corpus.db", cfg.Store.SQLite.Path)
		assert.Equal(t, "local", cfg.Embeddings.Service)
		assert.Equal(t, "http://localhost:5557", cfg.Embeddings.ServerURL)
		assert.Equal(t, 5, cfg.Search.DefaultTopK)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("defaults fill unset values", func(t *testing.T) {
		assert.Equal(t, 10000, cfg.Embeddings.MaxTextChars)
		assert.Equal(t, 5, cfg.Embeddings.BatchSize)
		assert.Equal(t, 100, cfg.Embeddings.InsertBatchSize)
		assert.Equal(t, 768, cfg.Embeddings.Dimensions)
		assert.Equal(t, 0, cfg.Embeddings.RetryMax)
		assert.Equal(t, 100, cfg.Search.MaxTopK)
		assert.Equal(t, 8080, cfg.Server.Port)
	})
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("LIFEEMBEDDING_SERVER_PORT", "9191")
	t.Setenv("LIFEEMBEDDING_OPENAI_API_KEY", "sk-test")

	path := writeConfigFile(t, "server:\n  port: 8000\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.Embeddings.OpenAIAPIKey)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
