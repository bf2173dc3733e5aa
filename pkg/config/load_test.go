package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytesAppliesDefaults(t *testing.T) {
	yaml := `
store:
  type: sqlite
  sqlite:
    path: /tmp/membrain-test.db
embedding:
  provider: mock
analysis:
  provider: mock
emotion:
  provider: mock
`
	cfg, err := LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "memories", cfg.Store.Collection)
	assert.Equal(t, 0.3, cfg.Retrieval.RelevanceThreshold)
	assert.Equal(t, 5, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, 10, cfg.Retrieval.HistoryWindow)
}

func TestLoadFromBytesOpenAIDefaults(t *testing.T) {
	yaml := `
store:
  type: mock
embedding:
  provider: openai
analysis:
  provider: openai
emotion:
  provider: openai
`
	cfg, err := LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.OpenAI.Model)
	assert.Equal(t, 1536, cfg.Embedding.OpenAI.Dimensions)
	assert.Equal(t, "gpt-4o-mini", cfg.Analysis.OpenAI.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.Emotion.OpenAI.Model)
}

func TestLoadFromBytesRejectsUnknownStore(t *testing.T) {
	yaml := `
store:
  type: cassandra
embedding:
  provider: mock
analysis:
  provider: mock
emotion:
  provider: mock
`
	_, err := LoadFromBytes([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store type")
}

func TestLoadFromBytesRequiresStorePath(t *testing.T) {
	yaml := `
store:
  type: chromem
embedding:
  provider: mock
analysis:
  provider: mock
emotion:
  provider: mock
`
	_, err := LoadFromBytes([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store path is required")
}

func TestLoadFromBytesRequiresPostgresDSN(t *testing.T) {
	yaml := `
store:
  type: postgres
embedding:
  provider: mock
analysis:
  provider: mock
emotion:
  provider: mock
`
	_, err := LoadFromBytes([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MEMBRAIN_STORE_TYPE", "sqlite")
	t.Setenv("MEMBRAIN_STORE_PATH", "/tmp/override.db")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MEMBRAIN_LOG_LEVEL", "debug")

	yaml := `
store:
  type: mock
embedding:
  provider: openai
analysis:
  provider: mock
emotion:
  provider: mock
`
	cfg, err := LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "/tmp/override.db", cfg.Store.SQLite.Path)
	assert.Equal(t, "sk-test", cfg.Embedding.OpenAI.APIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Store.Type)
	assert.Equal(t, "mock", cfg.Embedding.Provider)
	assert.Equal(t, 5, cfg.Retrieval.DefaultLimit)
}

func TestDefaultHonorsOverrideValidation(t *testing.T) {
	t.Setenv("MEMBRAIN_STORE_TYPE", "chromem")

	_, err := Default()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store path is required")
}
