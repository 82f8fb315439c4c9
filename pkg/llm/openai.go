package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/dialect"
)

// defaultBaseURLs maps OpenAI-compatible provider kinds to their endpoints.
// An explicit BaseURL in the config overrides these.
var defaultBaseURLs = map[string]string{
	KindDeepSeek:   "https://api.deepseek.com/v1",
	KindMistral:    "https://api.mistral.ai/v1",
	KindOpenRouter: "https://openrouter.ai/api/v1",
	KindOllama:     "http://localhost:11434/v1",
}

// OpenAIProvider serves every OpenAI-compatible kind (openai, deepseek,
// mistral, openrouter, ollama) through the chat completions API.
type OpenAIProvider struct {
	client    *openai.Client
	kind      string
	model     string
	dialect   dialect.Dialect
	timeout   time.Duration
	connected bool
	logger    *zap.Logger
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
// Call Connect before first use; GenerateSQL refuses while disconnected.
func NewOpenAIProvider(cfg Config, logger *zap.Logger) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	} else if url, ok := defaultBaseURLs[cfg.Kind]; ok {
		clientCfg.BaseURL = url
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		kind:    cfg.Kind,
		model:   cfg.Model,
		dialect: cfg.Dialect,
		timeout: cfg.Timeout,
		logger:  logger.Named("llm." + cfg.Kind),
	}
}

// Connect verifies the endpoint is reachable by listing models.
func (p *OpenAIProvider) Connect(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if _, err := p.client.ListModels(ctx); err != nil {
		p.connected = false
		p.logger.Warn("liveness check failed", zap.Error(err))
		return p.classify(err)
	}

	p.connected = true
	p.logger.Info("provider connected", zap.String("model", p.model))
	return nil
}

// GenerateSQL implements Provider.
func (p *OpenAIProvider) GenerateSQL(ctx context.Context, question, schemaText, dictionaryText string) (*Answer, error) {
	if !p.connected {
		return nil, &Error{
			Type:     ErrorTypeDisconnected,
			Message:  "provider not connected",
			Provider: p.kind,
			Model:    p.model,
		}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(question, schemaText, dictionaryText, p.dialect)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		p.logger.Warn("generation failed", zap.Error(err))
		return nil, p.classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &Error{
			Type:     ErrorTypeParse,
			Message:  "empty completion",
			Provider: p.kind,
			Model:    p.model,
		}
	}

	answer, err := ParseAnswer(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, p.classify(err)
	}

	p.logger.Debug("generated answer",
		zap.Float64("confidence", answer.Confidence),
		zap.Int("query_len", len(answer.SQLQuery)))
	return answer, nil
}

// Kind implements Provider.
func (p *OpenAIProvider) Kind() string { return p.kind }

// Model implements Provider.
func (p *OpenAIProvider) Model() string { return p.model }

// Connected implements Provider.
func (p *OpenAIProvider) Connected() bool { return p.connected }

func (p *OpenAIProvider) classify(err error) *Error {
	classified := ClassifyError(err)
	classified.Provider = p.kind
	classified.Model = p.model
	return classified
}
