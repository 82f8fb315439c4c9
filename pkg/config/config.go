package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/pipelineiq/engine/pkg/dialect"
	"github.com/pipelineiq/engine/pkg/llm"
)

// Config holds all configuration for the engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// SQL dialect the pipeline targets: DB2 or SQLite.
	DialectStr string `yaml:"dialect" env:"SQL_DIALECT" env-default:"DB2"`

	// Dialect is the parsed form of DialectStr (not from config file).
	Dialect dialect.Dialect `yaml:"-"`

	// RowLimit is the row cap appended to unbounded non-aggregation queries.
	RowLimit int `yaml:"row_limit" env:"ROW_LIMIT" env-default:"1000"`

	// SchemaFeedPath points to an optional YAML schema feed. When empty the
	// registry is derived from the demo warehouse, or the built-in catalog.
	SchemaFeedPath string `yaml:"schema_feed_path" env:"SCHEMA_FEED_PATH" env-default:""`

	// Demo warehouse configuration
	Store StoreConfig `yaml:"store"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`
}

// StoreConfig holds settings for the embedded SQLite demo warehouse.
type StoreConfig struct {
	// Path is the SQLite DSN. The default keeps everything in memory.
	Path string `yaml:"path" env:"STORE_PATH" env-default:"file::memory:?cache=shared"`

	// Seed controls whether demo tables are created and populated at startup.
	Seed bool `yaml:"seed" env:"STORE_SEED" env-default:"true"`

	// SeedRows is the row count per seeded pipeline table.
	SeedRows int `yaml:"seed_rows" env:"STORE_SEED_ROWS" env-default:"100"`
}

// LLMConfig holds the provider roster for SQL generation.
type LLMConfig struct {
	// Providers lists the configured generation backends. YAML only; for a
	// single env-configured provider use the PROVIDER_* variables below.
	Providers []ProviderConfig `yaml:"providers"`

	// PreferredStr is a comma-separated list of provider kinds that earn a
	// scoring bonus during parallel generation.
	PreferredStr string `yaml:"preferred" env:"PREFERRED_PROVIDERS" env-default:""`

	// Preferred is the parsed form of PreferredStr (not from config file).
	Preferred []string `yaml:"-"`

	// Single-provider fallback used when the providers list is empty.
	Kind    string `yaml:"-" env:"PROVIDER_KIND" env-default:""`
	Model   string `yaml:"-" env:"PROVIDER_MODEL" env-default:""`
	BaseURL string `yaml:"-" env:"PROVIDER_BASE_URL" env-default:""`

	// TimeoutSeconds bounds each provider call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"PROVIDER_TIMEOUT_SECONDS" env-default:"120"`

	// Per-provider API keys. Secrets - not in YAML.
	OpenAIKey     string `yaml:"-" env:"OPENAI_API_KEY"`
	AnthropicKey  string `yaml:"-" env:"ANTHROPIC_API_KEY"`
	DeepSeekKey   string `yaml:"-" env:"DEEPSEEK_API_KEY"`
	MistralKey    string `yaml:"-" env:"MISTRAL_API_KEY"`
	OpenRouterKey string `yaml:"-" env:"OPENROUTER_API_KEY"`
}

// ProviderConfig describes one generation backend. API keys are resolved
// from the environment by kind, never from YAML.
type ProviderConfig struct {
	Kind    string `yaml:"kind"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. Secrets (API keys) must come from environment variables
// (yaml:"-" fields). A missing config.yaml is not an error; environment
// variables and defaults then supply everything.
func Load(version string) (*Config, error) {
	return LoadFrom("config.yaml", version)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		// Run from environment alone when the YAML file is absent.
		if envErr := cleanenv.ReadEnv(cfg); envErr != nil {
			return nil, fmt.Errorf("failed to read configuration: %w", envErr)
		}
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	d, err := dialect.Parse(c.DialectStr)
	if err != nil {
		return err
	}
	c.Dialect = d

	c.LLM.Preferred = splitList(c.LLM.PreferredStr)
	return nil
}

// ProviderConfigs resolves the configured roster into llm.Config values,
// attaching API keys from the environment-only fields. Providers whose kind
// requires a key that is not set are still returned; the factory's liveness
// check rejects them with a useful error.
func (c *Config) ProviderConfigs() []llm.Config {
	timeout := time.Duration(c.LLM.TimeoutSeconds) * time.Second

	roster := c.LLM.Providers
	if len(roster) == 0 && c.LLM.Kind != "" {
		roster = []ProviderConfig{{Kind: c.LLM.Kind, Model: c.LLM.Model, BaseURL: c.LLM.BaseURL}}
	}

	configs := make([]llm.Config, 0, len(roster))
	for _, p := range roster {
		configs = append(configs, llm.Config{
			Kind:    p.Kind,
			Model:   p.Model,
			BaseURL: p.BaseURL,
			APIKey:  c.apiKeyFor(p.Kind),
			Dialect: c.Dialect,
			Timeout: timeout,
		})
	}
	return configs
}

func (c *Config) apiKeyFor(kind string) string {
	switch kind {
	case llm.KindOpenAI:
		return c.LLM.OpenAIKey
	case llm.KindAnthropic:
		return c.LLM.AnthropicKey
	case llm.KindDeepSeek:
		return c.LLM.DeepSeekKey
	case llm.KindMistral:
		return c.LLM.MistralKey
	case llm.KindOpenRouter:
		return c.LLM.OpenRouterKey
	default:
		return "" // ollama and friends run keyless
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
