package llm

import (
	"context"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/dialect"
)

const anthropicMaxTokens = 2000

// AnthropicProvider generates SQL through the Anthropic messages API.
type AnthropicProvider struct {
	client    *anthropic.Client
	hasKey    bool
	model     string
	dialect   dialect.Dialect
	timeout   time.Duration
	connected bool
	logger    *zap.Logger
}

// NewAnthropicProvider creates an Anthropic-backed provider. There is no
// free liveness endpoint, so Connect only verifies credentials are present.
func NewAnthropicProvider(cfg Config, logger *zap.Logger) *AnthropicProvider {
	return &AnthropicProvider{
		client:  anthropic.NewClient(cfg.APIKey),
		hasKey:  cfg.APIKey != "",
		model:   cfg.Model,
		dialect: cfg.Dialect,
		timeout: cfg.Timeout,
		logger:  logger.Named("llm.anthropic"),
	}
}

// Connect implements the liveness handshake.
func (p *AnthropicProvider) Connect(_ context.Context) error {
	if !p.hasKey {
		p.connected = false
		return &Error{Type: ErrorTypeAuth, Message: "missing API key", Provider: KindAnthropic, Model: p.model}
	}
	p.connected = true
	p.logger.Info("provider connected", zap.String("model", p.model))
	return nil
}

// GenerateSQL implements Provider.
func (p *AnthropicProvider) GenerateSQL(ctx context.Context, question, schemaText, dictionaryText string) (*Answer, error) {
	if !p.connected {
		return nil, &Error{
			Type:     ErrorTypeDisconnected,
			Message:  "provider not connected",
			Provider: KindAnthropic,
			Model:    p.model,
		}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(question, schemaText, dictionaryText, p.dialect)

	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		p.logger.Warn("generation failed", zap.Error(err))
		return nil, p.classify(err)
	}

	answer, err := ParseAnswer(resp.GetFirstContentText())
	if err != nil {
		return nil, p.classify(err)
	}

	p.logger.Debug("generated answer",
		zap.Float64("confidence", answer.Confidence),
		zap.Int("query_len", len(answer.SQLQuery)))
	return answer, nil
}

// Kind implements Provider.
func (p *AnthropicProvider) Kind() string { return KindAnthropic }

// Model implements Provider.
func (p *AnthropicProvider) Model() string { return p.model }

// Connected implements Provider.
func (p *AnthropicProvider) Connected() bool { return p.connected }

func (p *AnthropicProvider) classify(err error) *Error {
	classified := ClassifyError(err)
	classified.Provider = KindAnthropic
	classified.Model = p.model
	return classified
}
