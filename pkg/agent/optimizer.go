package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var aggregationFuncs = []string{"SUM(", "COUNT(", "AVG(", "MAX(", "MIN("}

// Optimizer applies tactical rewrites: it appends a bounded row limit to
// unlimited non-aggregating queries and records advisory notes for the rest.
// It never fails.
type Optimizer struct {
	rowLimit int
	logger   *zap.Logger
}

// NewOptimizer creates an optimizer that bounds result sets to rowLimit rows.
func NewOptimizer(rowLimit int, logger *zap.Logger) *Optimizer {
	if rowLimit <= 0 {
		rowLimit = 1000
	}
	return &Optimizer{rowLimit: rowLimit, logger: stageLogger(logger, "optimizer")}
}

func (a *Optimizer) Name() string { return "Optimizer" }

func (a *Optimizer) Process(_ context.Context, input map[string]any, qc *Context) Response {
	sqlQuery := queryFrom(input, KeyEnhancedQuery, KeySQLQuery)
	if sqlQuery == "" {
		return noQueryResponse()
	}

	var optimizations []string
	optimized := sqlQuery
	upper := strings.ToUpper(optimized)

	if strings.Contains(optimized, "PROD_MQT") {
		optimizations = append(optimizations, "Using MQT (Materialized Query Tables) for optimal performance")
	}

	if strings.Contains(upper, "SELECT *") {
		optimizations = append(optimizations, "Consider selecting specific columns instead of SELECT *")
	}

	if !strings.Contains(upper, "FETCH FIRST") && !strings.Contains(upper, "LIMIT") {
		hasAggregation := false
		for _, agg := range aggregationFuncs {
			if strings.Contains(upper, agg) {
				hasAggregation = true
				break
			}
		}
		if !hasAggregation {
			optimized += " " + qc.Dialect.LimitClause(a.rowLimit)
			optimizations = append(optimizations, "Added row limit to prevent large result sets")
			a.logger.Debug("row limit appended", zap.Int("limit", a.rowLimit))
		}
	}

	if strings.Contains(upper, "WHERE") {
		optimizations = append(optimizations, "WHERE clause present - ensure indexes on filter columns")
	}
	if strings.Contains(upper, " JOIN ") {
		optimizations = append(optimizations, "JOINs detected - verify proper join conditions and indexes")
	}

	confidence := 0.7
	if len(optimizations) > 0 {
		confidence = 0.9
	}

	return Response{
		Success: true,
		Message: fmt.Sprintf("query optimization complete - %d improvements applied", len(optimizations)),
		Data: map[string]any{
			KeyOriginalQuery:  sqlQuery,
			KeyOptimizedQuery: optimized,
			"optimizations":   optimizations,
		},
		Confidence: confidence,
	}
}
