package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipelineiq/engine/pkg/dialect"
	"github.com/pipelineiq/engine/pkg/llm"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
dialect: SQLite
row_limit: 50
llm:
  timeout_seconds: 30
  preferred: "openai, anthropic"
  providers:
    - kind: openai
      model: gpt-4o
    - kind: ollama
      model: llama3
      base_url: http://localhost:11434/v1
`)

	cfg, err := LoadFrom(path, "1.2.3")
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, dialect.SQLite, cfg.Dialect)
	assert.Equal(t, 50, cfg.RowLimit)
	assert.Equal(t, []string{"openai", "anthropic"}, cfg.LLM.Preferred)
	require.Len(t, cfg.LLM.Providers, 2)
	assert.Equal(t, "gpt-4o", cfg.LLM.Providers[0].Model)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"), "dev")
	require.NoError(t, err)

	assert.Equal(t, dialect.DB2, cfg.Dialect)
	assert.Equal(t, 1000, cfg.RowLimit)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.Store.Seed)
}

func TestLoadRejectsUnknownDialect(t *testing.T) {
	path := writeConfig(t, "dialect: Oracle\n")
	_, err := LoadFrom(path, "dev")
	assert.Error(t, err)
}

func TestProviderConfigsResolveKeysFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, `
llm:
  providers:
    - kind: openai
      model: gpt-4o
    - kind: ollama
      model: llama3
`)
	cfg, err := LoadFrom(path, "dev")
	require.NoError(t, err)

	configs := cfg.ProviderConfigs()
	require.Len(t, configs, 2)
	assert.Equal(t, "sk-test", configs[0].APIKey)
	assert.Empty(t, configs[1].APIKey)
	assert.Equal(t, cfg.Dialect, configs[0].Dialect)
}

func TestProviderConfigsSingleProviderFallback(t *testing.T) {
	t.Setenv("PROVIDER_KIND", "ollama")
	t.Setenv("PROVIDER_MODEL", "llama3")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"), "dev")
	require.NoError(t, err)

	configs := cfg.ProviderConfigs()
	require.Len(t, configs, 1)
	assert.Equal(t, llm.KindOllama, configs[0].Kind)
	assert.Equal(t, "llama3", configs[0].Model)
}
