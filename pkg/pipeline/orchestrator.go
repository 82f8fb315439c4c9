// Package pipeline sequences the refinement agents over a generated query
// and aggregates their results.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/agent"
	"github.com/pipelineiq/engine/pkg/dialect"
	"github.com/pipelineiq/engine/pkg/llm"
	"github.com/pipelineiq/engine/pkg/schema"
)

// Options configures an Orchestrator.
type Options struct {
	Registry *schema.Registry
	Dialect  dialect.Dialect
	RowLimit int
	Provider llm.Provider // used by the regenerator; may be nil
	Logger   *zap.Logger
}

// Orchestrator drives the stage sequence
// validate -> enhance -> optimize -> column-check (-> regenerate -> recheck)
// and finalizes a Result. Stage failures are non-terminal; the best
// available query is threaded forward.
type Orchestrator struct {
	validator       agent.Agent
	enhancer        agent.Agent
	optimizer       agent.Agent
	columnValidator agent.Agent
	regenerator     agent.Agent

	registry *schema.Registry
	dialect  dialect.Dialect
	logger   *zap.Logger
}

// New builds an orchestrator with the standard agent set.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		validator:       agent.NewSyntaxValidator(logger),
		enhancer:        agent.NewPredicateEnhancer(logger),
		optimizer:       agent.NewOptimizer(opts.RowLimit, logger),
		columnValidator: agent.NewColumnValidator(logger),
		regenerator:     agent.NewRegenerator(opts.Provider, logger),
		registry:        opts.Registry,
		dialect:         opts.Dialect,
		logger:          logger.Named("pipeline"),
	}
}

// Process runs the full pipeline on one question and its initial SQL.
func (o *Orchestrator) Process(ctx context.Context, question, initialQuery string) *Result {
	registry := o.registry
	if registry == nil || registry.Empty() {
		registry = schema.DefaultCatalog()
		o.logger.Warn("schema registry empty, substituting default catalog")
	}

	qc := &agent.Context{
		Question:       question,
		SchemaText:     registry.SchemaText(),
		DictionaryText: registry.DictionaryText(),
		Registry:       registry,
		Dialect:        o.dialect,
	}

	requestID := uuid.NewString()
	logger := o.logger.With(zap.String("request_id", requestID))
	logger.Info("processing query", zap.String("question", question))

	var log []ProcessingStep
	current := map[string]any{agent.KeySQLQuery: initialQuery}
	regenerationAttempted := false

	// Stage 1: syntax validation. Failure is non-terminal.
	validatorResp := o.runStage(ctx, o.validator, current, qc)
	log = append(log, stepWithConfidence(o.validator.Name(), validatorResp))

	if validatorResp.Success {
		current = validatorResp.Data
	} else {
		best := stringValue(validatorResp.Data, agent.KeyValidatedQuery)
		if best == "" {
			best = initialQuery
		}
		current = map[string]any{
			agent.KeySQLQuery:      best,
			agent.KeyOriginalQuery: initialQuery,
		}
	}

	// Stage 2: predicate enhancement.
	enhancerResp := o.runStage(ctx, o.enhancer, current, qc)
	log = append(log, ProcessingStep{
		AgentName:    o.enhancer.Name(),
		Success:      enhancerResp.Success,
		Message:      enhancerResp.Message,
		Enhancements: sliceValue(enhancerResp.Data, "enhancements"),
	})
	if enhancerResp.Success {
		current = enhancerResp.Data
	}

	// Stage 3: optimization.
	optimizerResp := o.runStage(ctx, o.optimizer, current, qc)
	log = append(log, ProcessingStep{
		AgentName:     o.optimizer.Name(),
		Success:       optimizerResp.Success,
		Message:       optimizerResp.Message,
		Optimizations: sliceValue(optimizerResp.Data, "optimizations"),
	})
	if optimizerResp.Success {
		current = optimizerResp.Data
	}

	// Stage 4: column validation.
	colResp := o.runStage(ctx, o.columnValidator, current, qc)
	colStep := stepWithConfidence(o.columnValidator.Name(), colResp)
	colStep.MissingColumns = missingValue(colResp.Data)
	colStep.Substitutions = sliceValue(colResp.Data, "substitutions_made")
	log = append(log, colStep)

	// Stage 5: regeneration, only when column validation escalated.
	if !colResp.Success && boolValue(colResp.Data, "needs_regeneration") {
		regenInput := map[string]any{
			"regeneration_prompt":  stringValue(colResp.Data, "regeneration_prompt"),
			agent.KeyOriginalQuery: stringValue(colResp.Data, agent.KeyOriginalQuery),
		}
		regenResp := o.runStage(ctx, o.regenerator, regenInput, qc)
		log = append(log, stepWithConfidence(o.regenerator.Name(), regenResp))

		if regenResp.Success {
			regenerationAttempted = true
			recheckInput := map[string]any{
				agent.KeySQLQuery: stringValue(regenResp.Data, agent.KeyRegeneratedQuery),
			}
			recheckResp := o.runStage(ctx, o.columnValidator, recheckInput, qc)
			recheckStep := stepWithConfidence(o.columnValidator.Name()+"-Recheck", recheckResp)
			recheckStep.Message = "regenerated query validation: " + recheckResp.Message
			log = append(log, recheckStep)

			if recheckResp.Success {
				current = recheckResp.Data
			} else {
				current = colResp.Data
			}
		} else if stringValue(colResp.Data, agent.KeyValidatedQuery) != "" {
			current = colResp.Data
		}
	} else if colResp.Success {
		current = colResp.Data
	}

	// Overall confidence is the mean of stages that reported one.
	var confidenceSum float64
	var confidenceCount int
	for _, step := range log {
		if step.Confidence != nil {
			confidenceSum += *step.Confidence
			confidenceCount++
		}
	}
	overallConfidence := 0.7
	if confidenceCount > 0 {
		overallConfidence = confidenceSum / float64(confidenceCount)
	}

	finalQuery := firstQuery(current,
		agent.KeyValidatedQuery,
		agent.KeyRegeneratedQuery,
		agent.KeyOptimizedQuery,
		agent.KeyEnhancedQuery,
	)
	if finalQuery == "" {
		finalQuery = initialQuery
	}

	// Only the syntax validator counts as critical.
	criticalFailed := false
	for _, step := range log {
		if !step.Success && step.AgentName == o.validator.Name() {
			criticalFailed = true
		}
	}
	hasSyntaxFixes := len(sliceValue(validatorResp.Data, "corrections")) > 0
	hasValidQuery := strings.TrimSpace(finalQuery) != ""

	success := !criticalFailed && (hasSyntaxFixes || hasValidQuery || overallConfidence > 0.7)

	result := &Result{
		RequestID:             requestID,
		Success:               success,
		FinalQuery:            finalQuery,
		OriginalQuery:         initialQuery,
		ProcessingLog:         log,
		OverallConfidence:     overallConfidence,
		RegenerationAttempted: regenerationAttempted,
		Improvements: Improvements{
			SyntaxCorrections:  len(sliceValue(validatorResp.Data, "issues")),
			WhereEnhancements:  len(sliceValue(enhancerResp.Data, "enhancements")),
			Optimizations:      len(sliceValue(optimizerResp.Data, "optimizations")),
			ColumnFixes:        len(sliceValue(colResp.Data, "substitutions_made")),
			RegenerationNeeded: boolValue(colResp.Data, "needs_regeneration"),
		},
	}

	logger.Info("pipeline complete",
		zap.Bool("success", result.Success),
		zap.Float64("confidence", result.OverallConfidence),
		zap.Bool("regenerated", result.RegenerationAttempted))
	return result
}

// runStage invokes one agent, converting a panic into a failed step so a
// single stage can never take the request down.
func (o *Orchestrator) runStage(ctx context.Context, a agent.Agent, input map[string]any, qc *agent.Context) (resp agent.Response) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("agent panicked",
				zap.String("agent", a.Name()),
				zap.Any("panic", r))
			resp = agent.Response{
				Success:    false,
				Message:    fmt.Sprintf("%s failed unexpectedly: %v", a.Name(), r),
				Data:       map[string]any{},
				Confidence: 0,
			}
		}
	}()
	return a.Process(ctx, input, qc)
}

func stepWithConfidence(name string, resp agent.Response) ProcessingStep {
	c := resp.Confidence
	return ProcessingStep{
		AgentName:  name,
		Success:    resp.Success,
		Message:    resp.Message,
		Confidence: &c,
	}
}

func stringValue(data map[string]any, key string) string {
	v, _ := data[key].(string)
	return v
}

func sliceValue(data map[string]any, key string) []string {
	v, _ := data[key].([]string)
	return v
}

func boolValue(data map[string]any, key string) bool {
	v, _ := data[key].(bool)
	return v
}

func missingValue(data map[string]any) []agent.MissingColumn {
	v, _ := data["missing_columns"].([]agent.MissingColumn)
	return v
}

func firstQuery(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := stringValue(data, key); v != "" {
			return v
		}
	}
	return ""
}
