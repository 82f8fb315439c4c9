// Package llm abstracts SQL-generating language model providers behind a
// single interface with structured error classification.
package llm

import (
	"context"
	"encoding/json"

	"github.com/pipelineiq/engine/pkg/jsonutil"
)

// Provider kinds. OpenAI-compatible kinds share one implementation and
// differ only in base URL and credentials.
const (
	KindOpenAI     = "openai"
	KindAnthropic  = "anthropic"
	KindDeepSeek   = "deepseek"
	KindMistral    = "mistral"
	KindOpenRouter = "openrouter"
	KindOllama     = "ollama"
)

// Provider generates SQL from a natural-language question.
//
// Implementations must be safe for concurrent GenerateSQL calls.
type Provider interface {
	// GenerateSQL asks the model for a SQL answer to the question, grounded
	// on the schema description and the business dictionary.
	GenerateSQL(ctx context.Context, question, schemaText, dictionaryText string) (*Answer, error)

	// Kind returns the provider kind, e.g. "openai" or "anthropic".
	Kind() string

	// Model returns the configured model name.
	Model() string

	// Connected reports whether the liveness check succeeded. A provider
	// that is not connected refuses GenerateSQL with a disconnected error.
	Connected() bool
}

// Answer is the parsed response of a SQL generation call.
type Answer struct {
	SQLQuery          string   `json:"sql_query"`
	Explanation       string   `json:"explanation"`
	TablesUsed        []string `json:"tables_used"`
	ColumnsUsed       []string `json:"columns_used"`
	VisualizationType string   `json:"visualization_type"`
	Confidence        float64  `json:"confidence"`
}

// answerWire tolerates type drift in model output. Models occasionally quote
// numbers, return bare strings where arrays are expected, or omit fields.
type answerWire struct {
	SQLQuery          json.RawMessage `json:"sql_query"`
	Explanation       json.RawMessage `json:"explanation"`
	TablesUsed        json.RawMessage `json:"tables_used"`
	ColumnsUsed       json.RawMessage `json:"columns_used"`
	VisualizationType json.RawMessage `json:"visualization_type"`
	Confidence        json.RawMessage `json:"confidence"`
}

// ParseAnswer extracts and decodes a model response into an Answer. Code
// fences and surrounding prose are stripped before parsing. Confidence is
// clamped to [0, 1].
func ParseAnswer(response string) (*Answer, error) {
	payload, err := ExtractJSON(response)
	if err != nil {
		return nil, NewError(ErrorTypeParse, "no JSON object in response", false, err)
	}

	var wire answerWire
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, NewError(ErrorTypeParse, "malformed JSON in response", false, err)
	}

	answer := &Answer{
		SQLQuery:          jsonutil.FlexibleStringValue(wire.SQLQuery),
		Explanation:       jsonutil.FlexibleStringValue(wire.Explanation),
		TablesUsed:        jsonutil.FlexibleStringSlice(wire.TablesUsed),
		ColumnsUsed:       jsonutil.FlexibleStringSlice(wire.ColumnsUsed),
		VisualizationType: jsonutil.FlexibleStringValue(wire.VisualizationType),
		Confidence:        clampConfidence(jsonutil.FlexibleFloatValue(wire.Confidence)),
	}

	if answer.SQLQuery == "" {
		return nil, NewError(ErrorTypeParse, "response missing sql_query", false, nil)
	}
	return answer, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
