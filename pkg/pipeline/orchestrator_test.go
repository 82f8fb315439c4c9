package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/agent"
	"github.com/pipelineiq/engine/pkg/dialect"
	"github.com/pipelineiq/engine/pkg/llm"
	"github.com/pipelineiq/engine/pkg/schema"
)

func testRegistry() *schema.Registry {
	return schema.NewRegistry([]schema.Table{
		{
			Name: "PROD_MQT_CONSULTING_PIPELINE",
			Columns: []string{
				"OPPTY_ID", "CUSTOMER_NAME", "PPV_AMT", "SALES_STAGE",
				"GEOGRAPHY", "YEAR", "QUARTER", "WEEK", "SNAPSHOT_LEVEL",
				"IBM_GEN_AI_IND", "PARTNER_GEN_AI_IND",
			},
		},
	}, "sales pipeline snapshot tables", "dictionary")
}

func newOrchestrator(provider llm.Provider) *Orchestrator {
	return New(Options{
		Registry: testRegistry(),
		Dialect:  dialect.DB2,
		RowLimit: 1000,
		Provider: provider,
		Logger:   zap.NewNop(),
	})
}

func TestProcessCleanQuery(t *testing.T) {
	o := newOrchestrator(nil)
	result := o.Process(context.Background(), "list deals", "SELECT OPPTY_ID FROM PROD_MQT_CONSULTING_PIPELINE LIMIT 10")

	require.True(t, result.Success)
	assert.Contains(t, result.FinalQuery, "FETCH FIRST 10 ROWS ONLY")
	assert.NotContains(t, strings.ToUpper(result.FinalQuery), "LIMIT")
	assert.False(t, result.RegenerationAttempted)
	assert.NotEmpty(t, result.RequestID)

	// D, E, F, G in order.
	require.Len(t, result.ProcessingLog, 4)
	assert.Equal(t, "SyntaxValidator", result.ProcessingLog[0].AgentName)
	assert.Equal(t, "ColumnValidation", result.ProcessingLog[3].AgentName)

	assert.GreaterOrEqual(t, result.OverallConfidence, 0.0)
	assert.LessOrEqual(t, result.OverallConfidence, 1.0)
	assert.Greater(t, result.Improvements.SyntaxCorrections, 0)
}

func TestProcessAddsAllDetectedFiltersToAliasedQuery(t *testing.T) {
	o := newOrchestrator(nil)
	result := o.Process(context.Background(), "AI in Americas this quarter",
		"SELECT p.OPPTY_ID, p.PPV_AMT FROM PROD_MQT_CONSULTING_PIPELINE p")

	require.True(t, result.Success)
	// All three detected filters land in the final query as conjuncts.
	assert.Contains(t, result.FinalQuery, "YEAR = YEAR(CURRENT DATE) AND QUARTER = QUARTER(CURRENT DATE)")
	assert.Contains(t, result.FinalQuery, "GEOGRAPHY = 'AMERICAS'")
	assert.Contains(t, result.FinalQuery, "(IBM_GEN_AI_IND = 1 OR PARTNER_GEN_AI_IND = 1)")
	assert.Equal(t, 3, result.Improvements.WhereEnhancements)

	// The table alias stays attached to its table.
	assert.Contains(t, result.FinalQuery, "FROM PROD_MQT_CONSULTING_PIPELINE p WHERE")
	assert.Contains(t, result.FinalQuery, "FETCH FIRST 1000 ROWS ONLY")
	require.Len(t, result.ProcessingLog, 4)
}

func TestProcessConfidenceBounds(t *testing.T) {
	o := newOrchestrator(nil)
	result := o.Process(context.Background(), "current americas genai pipeline",
		"SELECT SALES_STAGE, SUM(PPV_AMT) FROM PROD_MQT_CONSULTING_PIPELINE GROUP BY SALES_STAGE")

	for _, step := range result.ProcessingLog {
		if step.Confidence != nil {
			assert.GreaterOrEqual(t, *step.Confidence, 0.0, step.AgentName)
			assert.LessOrEqual(t, *step.Confidence, 1.0, step.AgentName)
		}
	}
}

func TestProcessRegeneratesUnmappableColumns(t *testing.T) {
	provider := llm.NewMockProvider("SELECT OPPTY_ID FROM PROD_MQT_CONSULTING_PIPELINE WHERE YEAR = 2025", 0.9)
	o := newOrchestrator(provider)

	result := o.Process(context.Background(), "deals", "SELECT p.ZQXCOL FROM PROD_MQT_CONSULTING_PIPELINE p")

	assert.True(t, result.RegenerationAttempted)
	assert.True(t, result.Improvements.RegenerationNeeded)
	assert.Contains(t, result.FinalQuery, "OPPTY_ID")
	assert.NotContains(t, result.FinalQuery, "ZQXCOL")

	// Log shows the full recovery path: D, E, F, G, H, G recheck.
	require.Len(t, result.ProcessingLog, 6)
	assert.Equal(t, "SQLRegeneration", result.ProcessingLog[4].AgentName)
	assert.Equal(t, "ColumnValidation-Recheck", result.ProcessingLog[5].AgentName)
	assert.True(t, result.ProcessingLog[5].Success)
}

func TestProcessFallbackWhenRegenerationUnavailable(t *testing.T) {
	o := newOrchestrator(nil)
	result := o.Process(context.Background(), "deals", "SELECT p.ZQXCOL FROM PROD_MQT_CONSULTING_PIPELINE p")

	// Fallback substitution cannot fix an unknown name; the pipeline still
	// finalizes with the best available query.
	assert.NotEmpty(t, result.FinalQuery)
	assert.True(t, result.Improvements.RegenerationNeeded)
}

func TestProcessSubstitutesMappableColumns(t *testing.T) {
	o := newOrchestrator(nil)
	result := o.Process(context.Background(), "deals", "SELECT p.OPPORTUNITY_ID FROM PROD_MQT_CONSULTING_PIPELINE p")

	assert.Contains(t, result.FinalQuery, "OPPTY_ID")
	assert.False(t, result.RegenerationAttempted)
	assert.Greater(t, result.Improvements.ColumnFixes, 0)
}

func TestProcessIdempotent(t *testing.T) {
	o := newOrchestrator(nil)
	question := "active pipeline for americas"
	initial := "SELECT OPPTY_ID, SALES_STAGE FROM PROD_MQT_CONSULTING_PIPELINE"

	first := o.Process(context.Background(), question, initial)
	second := o.Process(context.Background(), question, initial)
	assert.Equal(t, first.FinalQuery, second.FinalQuery)
	assert.Equal(t, first.OverallConfidence, second.OverallConfidence)
}

func TestProcessEmptyRegistryUsesDefaultCatalog(t *testing.T) {
	o := New(Options{
		Registry: schema.NewRegistry(nil, "", ""),
		Dialect:  dialect.DB2,
		Logger:   zap.NewNop(),
	})

	result := o.Process(context.Background(), "deals", "SELECT OPPTY_ID FROM PROD_MQT_CONSULTING_PIPELINE")
	assert.True(t, result.Success)
}

type panickyAgent struct{}

func (panickyAgent) Name() string { return "Panicky" }
func (panickyAgent) Process(context.Context, map[string]any, *agent.Context) agent.Response {
	panic("boom")
}

func TestProcessRecoversFromAgentPanic(t *testing.T) {
	o := newOrchestrator(nil)
	o.enhancer = panickyAgent{}

	result := o.Process(context.Background(), "deals", "SELECT OPPTY_ID FROM PROD_MQT_CONSULTING_PIPELINE")

	// The panicked stage becomes a failed step; the pipeline proceeds.
	require.Len(t, result.ProcessingLog, 4)
	assert.False(t, result.ProcessingLog[1].Success)
	assert.Contains(t, result.ProcessingLog[1].Message, "unexpectedly")
	assert.NotEmpty(t, result.FinalQuery)
}

func TestExplain(t *testing.T) {
	o := newOrchestrator(nil)
	result := o.Process(context.Background(), "current americas pipeline",
		"SELECT OPPTY_ID, SALES_STAGE FROM PROD_MQT_CONSULTING_PIPELINE")

	text := Explain(result)
	assert.Contains(t, text, "SyntaxValidator")
	assert.Contains(t, text, "Overall confidence")
}
