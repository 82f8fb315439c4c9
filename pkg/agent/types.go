// Package agent implements the staged SQL refinement agents: syntax
// validation, predicate enhancement, optimization, column validation, and
// LLM-backed regeneration.
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/dialect"
	"github.com/pipelineiq/engine/pkg/schema"
)

// Data keys under which agents publish their transformed query. Later
// pipeline stages prefer later keys.
const (
	KeySQLQuery         = "sql_query"
	KeyValidatedQuery   = "validated_query"
	KeyEnhancedQuery    = "enhanced_query"
	KeyOptimizedQuery   = "optimized_query"
	KeyRegeneratedQuery = "regenerated_query"
	KeyOriginalQuery    = "original_query"
)

// Context carries the read-only request state shared by all agents. It is
// built once at request entry and never mutated.
type Context struct {
	Question       string
	SchemaText     string
	DictionaryText string
	Registry       *schema.Registry
	Dialect        dialect.Dialect
}

// Response is the standard agent result.
type Response struct {
	Success     bool
	Message     string
	Data        map[string]any
	Confidence  float64
	Suggestions []string
}

// Agent is one stage of the refinement pipeline. Implementations are
// stateless and reusable across requests.
type Agent interface {
	Name() string
	Process(ctx context.Context, input map[string]any, qc *Context) Response
}

// queryFrom returns the first non-empty string found under keys.
func queryFrom(input map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := input[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func stringsFrom(input map[string]any, key string) []string {
	if v, ok := input[key].([]string); ok {
		return v
	}
	return nil
}

func boolFrom(input map[string]any, key string) bool {
	v, _ := input[key].(bool)
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func noQueryResponse() Response {
	return Response{
		Success:    false,
		Message:    "no SQL query provided",
		Data:       map[string]any{},
		Confidence: 0,
	}
}

func stageLogger(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(name)
}
