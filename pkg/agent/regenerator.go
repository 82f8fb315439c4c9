package agent

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/llm"
)

// regeneratedConfidenceCap bounds the provider's self-reported confidence.
// A regenerated query has already failed validation once.
const regeneratedConfidenceCap = 0.8

// Regenerator rewrites a query whose columns could not be grounded. With a
// connected provider it asks the LLM using the repair prompt; without one it
// falls back to the fixed substitution table.
type Regenerator struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewRegenerator creates the regeneration agent. provider may be nil.
func NewRegenerator(provider llm.Provider, logger *zap.Logger) *Regenerator {
	return &Regenerator{provider: provider, logger: stageLogger(logger, "regenerator")}
}

func (a *Regenerator) Name() string { return "SQLRegeneration" }

func (a *Regenerator) Process(ctx context.Context, input map[string]any, qc *Context) Response {
	prompt := queryFrom(input, "regeneration_prompt")
	original := queryFrom(input, KeyOriginalQuery)

	if prompt == "" {
		return Response{
			Success:    false,
			Message:    "no regeneration prompt provided",
			Data:       map[string]any{},
			Confidence: 0,
		}
	}

	if a.provider != nil && a.provider.Connected() {
		answer, err := a.provider.GenerateSQL(ctx, qc.Question, qc.SchemaText, qc.DictionaryText+"\n\n"+prompt)
		if err != nil {
			a.logger.Warn("regeneration failed", zap.Error(err))
			return Response{
				Success:    false,
				Message:    "SQL regeneration failed: " + err.Error(),
				Data:       map[string]any{KeyOriginalQuery: original},
				Confidence: 0,
			}
		}

		confidence := answer.Confidence
		if confidence == 0 {
			confidence = regeneratedConfidenceCap
		}
		if confidence > regeneratedConfidenceCap {
			confidence = regeneratedConfidenceCap
		}

		return Response{
			Success: true,
			Message: "SQL successfully regenerated with valid columns",
			Data: map[string]any{
				KeyOriginalQuery:           original,
				KeyRegeneratedQuery:        answer.SQLQuery,
				"regeneration_explanation": answer.Explanation,
			},
			Confidence: confidence,
		}
	}

	a.logger.Debug("no connected provider, applying fallback substitutions")
	return Response{
		Success: true,
		Message: "applied fallback column substitutions",
		Data: map[string]any{
			KeyOriginalQuery:           original,
			KeyRegeneratedQuery:        applyFallbackSubstitutions(original),
			"regeneration_explanation": "applied basic column name substitutions",
		},
		Confidence: 0.6,
	}
}

func applyFallbackSubstitutions(query string) string {
	result := query
	for _, old := range []string{"OPPORTUNITY_ID", "OPPORTUNITY_VALUE", "CLIENT_NAME", "REVENUE_AMT", "PIPELINE_AMT"} {
		re := regexp.MustCompile(`(?i)\b` + old + `\b`)
		result = re.ReplaceAllString(result, fallbackSubstitutions[old])
	}
	return result
}
