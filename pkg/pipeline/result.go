package pipeline

import "github.com/pipelineiq/engine/pkg/agent"

// ProcessingStep records one agent invocation. Confidence is nil for stages
// that do not report one; those are excluded from the overall mean.
type ProcessingStep struct {
	AgentName      string                `json:"agent"`
	Success        bool                  `json:"success"`
	Message        string                `json:"message"`
	Confidence     *float64              `json:"confidence,omitempty"`
	Enhancements   []string              `json:"enhancements,omitempty"`
	Optimizations  []string              `json:"optimizations,omitempty"`
	MissingColumns []agent.MissingColumn `json:"missing_columns,omitempty"`
	Substitutions  []string              `json:"substitutions,omitempty"`
}

// Improvements summarizes what the pipeline changed.
type Improvements struct {
	SyntaxCorrections  int  `json:"syntax_corrections"`
	WhereEnhancements  int  `json:"where_enhancements"`
	Optimizations      int  `json:"optimizations"`
	ColumnFixes        int  `json:"column_fixes"`
	RegenerationNeeded bool `json:"regeneration_needed"`
}

// Result is the outcome of one pipeline request. On Success=false,
// FinalQuery still holds the best available rewrite and ProcessingLog
// reconstructs the failure path.
type Result struct {
	RequestID             string           `json:"request_id"`
	Success               bool             `json:"success"`
	FinalQuery            string           `json:"final_query"`
	OriginalQuery         string           `json:"original_query"`
	ProcessingLog         []ProcessingStep `json:"processing_log"`
	OverallConfidence     float64          `json:"overall_confidence"`
	RegenerationAttempted bool             `json:"regeneration_attempted"`
	Improvements          Improvements     `json:"improvements"`
}
