package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/dialect"
)

// Config describes one provider instance.
type Config struct {
	Kind    string
	Model   string
	APIKey  string
	BaseURL string
	Dialect dialect.Dialect
	Timeout time.Duration
}

// Connector is implemented by providers that perform a liveness handshake.
type Connector interface {
	Connect(ctx context.Context) error
}

// NewProvider constructs a provider for the configured kind and runs its
// liveness check. A provider whose check fails is returned alongside the
// error so callers can decide whether to keep it in a degraded state.
func NewProvider(ctx context.Context, cfg Config, logger *zap.Logger) (Provider, error) {
	var provider Provider

	switch cfg.Kind {
	case KindAnthropic:
		provider = NewAnthropicProvider(cfg, logger)
	case KindOpenAI, KindDeepSeek, KindMistral, KindOpenRouter, KindOllama:
		provider = NewOpenAIProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}

	if conn, ok := provider.(Connector); ok {
		if err := conn.Connect(ctx); err != nil {
			return provider, err
		}
	}
	return provider, nil
}
