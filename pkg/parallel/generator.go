// Package parallel fans one question out to several LLM providers at once,
// measures their agreement, and picks the best answer.
package parallel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/llm"
	"github.com/pipelineiq/engine/pkg/logging"
	"github.com/pipelineiq/engine/pkg/retry"
)

// DefaultPreferred is the provider set that earns a scoring bonus when the
// configuration names none.
var DefaultPreferred = []string{llm.KindOpenAI, llm.KindAnthropic}

// Result is one provider's answer with its generation metadata.
type Result struct {
	Provider       string      `json:"provider"`
	Model          string      `json:"model"`
	Answer         *llm.Answer `json:"answer,omitempty"`
	GenerationTime float64     `json:"generation_time_seconds"`
	Err            error       `json:"-"`
	ErrMessage     string      `json:"error,omitempty"`
	Score          float64     `json:"score"`
}

// Valid reports whether the result carries usable SQL.
func (r *Result) Valid() bool {
	return r.Err == nil && r.Answer != nil && r.Answer.SQLQuery != ""
}

// Output is the full outcome of one parallel generation round.
type Output struct {
	Results    []Result   `json:"results"`
	Comparison Comparison `json:"comparison"`
	Best       *Result    `json:"best_result,omitempty"`
}

// Generator runs generation across a fixed provider set.
type Generator struct {
	providers []llm.Provider
	preferred map[string]bool
	workers   int
	retryCfg  *retry.Config
	logger    *zap.Logger
}

// NewGenerator constructs providers from cfgs, discards those whose liveness
// check failed, and returns a generator over the survivors.
func NewGenerator(ctx context.Context, cfgs []llm.Config, preferred []string, logger *zap.Logger) *Generator {
	var providers []llm.Provider
	for _, cfg := range cfgs {
		provider, err := llm.NewProvider(ctx, cfg, logger)
		if err != nil {
			logger.Warn("dropping provider",
				zap.String("kind", cfg.Kind),
				zap.String("model", cfg.Model),
				zap.Error(err))
			continue
		}
		providers = append(providers, provider)
	}
	return NewGeneratorFromProviders(providers, preferred, logger)
}

// NewGeneratorFromProviders wraps already-constructed providers. Providers
// that report disconnected are discarded.
func NewGeneratorFromProviders(providers []llm.Provider, preferred []string, logger *zap.Logger) *Generator {
	if len(preferred) == 0 {
		preferred = DefaultPreferred
	}
	preferredSet := make(map[string]bool, len(preferred))
	for _, kind := range preferred {
		preferredSet[kind] = true
	}

	var connected []llm.Provider
	for _, p := range providers {
		if p.Connected() {
			connected = append(connected, p)
		} else {
			logger.Warn("dropping disconnected provider", zap.String("kind", p.Kind()))
		}
	}

	return &Generator{
		providers: connected,
		preferred: preferredSet,
		workers:   len(connected),
		retryCfg:  retry.DefaultConfig(),
		logger:    logger.Named("parallel"),
	}
}

// ProviderCount returns the number of usable providers.
func (g *Generator) ProviderCount() int { return len(g.providers) }

// Providers returns the usable providers in configuration order.
func (g *Generator) Providers() []llm.Provider {
	out := make([]llm.Provider, len(g.providers))
	copy(out, g.providers)
	return out
}

// Generate runs the question against every provider concurrently and scores
// the answers. Scoring and comparison are deterministic in the result set;
// completion order does not matter.
func (g *Generator) Generate(ctx context.Context, question, schemaText, dictionaryText string) *Output {
	results := mapConcurrent(ctx, g.providers, g.workers, func(ctx context.Context, p llm.Provider) Result {
		start := time.Now()
		answer, err := retry.DoWithResultIfRetryable(ctx, g.retryCfg, func() (*llm.Answer, error) {
			return p.GenerateSQL(ctx, question, schemaText, dictionaryText)
		})
		elapsed := time.Since(start).Seconds()

		result := Result{
			Provider:       p.Kind(),
			Model:          p.Model(),
			Answer:         answer,
			GenerationTime: elapsed,
			Err:            err,
		}
		if err != nil {
			result.ErrMessage = err.Error()
			g.logger.Warn("provider failed",
				zap.String("kind", p.Kind()),
				zap.String("error", logging.SanitizeError(err)))
		}
		return result
	})

	output := &Output{Results: results}

	var validQueries []string
	for i := range results {
		if results[i].Valid() {
			results[i].Score = g.score(&results[i])
			validQueries = append(validQueries, results[i].Answer.SQLQuery)
		}
	}
	output.Comparison = compareQueries(validQueries)
	output.Best = selectBest(results)

	g.logger.Info("parallel generation complete",
		zap.Int("providers", len(results)),
		zap.Int("valid", len(validQueries)),
		zap.String("agreement", output.Comparison.ConfidenceLevel))
	return output
}

// score ranks a valid result: confidence dominates, a fuller explanation and
// a faster generation help, preferred providers get a fixed bonus.
func (g *Generator) score(r *Result) float64 {
	score := 100 * r.Answer.Confidence

	explanationBonus := float64(len(r.Answer.Explanation)) / 10
	if explanationBonus > 20 {
		explanationBonus = 20
	}
	score += explanationBonus

	if speedBonus := 10 - r.GenerationTime; speedBonus > 0 {
		score += speedBonus
	}

	if g.preferred[r.Provider] {
		score += 5
	}
	return score
}

// selectBest returns the highest-scoring valid result; ties resolve to the
// first encountered. With no valid results, the first errored result is
// returned so the caller sees why generation failed.
func selectBest(results []Result) *Result {
	var best *Result
	for i := range results {
		if !results[i].Valid() {
			continue
		}
		if best == nil || results[i].Score > best.Score {
			best = &results[i]
		}
	}
	if best != nil {
		return best
	}
	for i := range results {
		if results[i].Err != nil {
			return &results[i]
		}
	}
	return nil
}
