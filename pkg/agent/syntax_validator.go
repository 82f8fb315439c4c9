package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/dialect"
)

var qualifiedColumnRe = regexp.MustCompile(`\b([A-Za-z_]\w*)\.([A-Za-z_]\w*)\b`)

// SyntaxValidator rewrites the query into the configured dialect and flags
// identifiers the registry does not know about. Unknown tables and columns
// are non-fatal here; the column validator resolves or escalates them.
type SyntaxValidator struct {
	logger *zap.Logger
}

func NewSyntaxValidator(logger *zap.Logger) *SyntaxValidator {
	return &SyntaxValidator{logger: stageLogger(logger, "syntax_validator")}
}

func (a *SyntaxValidator) Name() string { return "SyntaxValidator" }

func (a *SyntaxValidator) Process(_ context.Context, input map[string]any, qc *Context) Response {
	sqlQuery := queryFrom(input, KeySQLQuery)
	if sqlQuery == "" {
		return noQueryResponse()
	}

	var issues []string
	var corrections []string
	var suggestions []string

	corrected, notes := dialect.Translate(sqlQuery, qc.Dialect)
	for _, note := range notes {
		issues = append(issues, note)
		corrections = append(corrections, "Dialect: "+note)
	}
	if len(notes) > 0 {
		a.logger.Debug("dialect rewrites applied", zap.Int("count", len(notes)))
	}

	upper := strings.ToUpper(corrected)
	if strings.Contains(upper, " JOIN ") && !strings.Contains(upper, " ON ") {
		issues = append(issues, "JOIN clause missing ON condition")
	}

	clean := sanitizeSQL(corrected)
	ctes := cteNames(clean)
	tablesUsed, _, _ := tableRefs(clean, ctes)

	for _, table := range tablesUsed {
		if !qc.Registry.HasTable(table) {
			issues = append(issues, fmt.Sprintf("table '%s' not found in available tables", table))
			suggestions = append(suggestions, "Available tables: "+strings.Join(qc.Registry.Tables(), ", "))
		}
	}

	colIssues, colSuggestions := a.checkQualifiedColumns(clean, qc)
	issues = append(issues, colIssues...)
	suggestions = append(suggestions, colSuggestions...)

	confidence := clamp(1.0-0.1*float64(len(issues)), 0.1, 1.0)

	// Unresolved identifiers are not critical; dialect and structural issues
	// are, unless a correction was produced for them.
	var critical []string
	for _, issue := range issues {
		lower := strings.ToLower(issue)
		if strings.Contains(lower, "table") || strings.Contains(lower, "column") || strings.Contains(lower, "not found") {
			continue
		}
		critical = append(critical, issue)
	}
	success := len(critical) == 0 || len(corrections) > 0

	message := "syntax validation complete - no issues found"
	if len(corrections) > 0 {
		message = fmt.Sprintf("syntax validation complete - %d corrections applied", len(corrections))
	}

	return Response{
		Success: success,
		Message: message,
		Data: map[string]any{
			KeyOriginalQuery:  sqlQuery,
			KeyValidatedQuery: corrected,
			"issues":          issues,
			"corrections":     corrections,
			"tables_used":     tablesUsed,
		},
		Confidence:  confidence,
		Suggestions: suggestions,
	}
}

// checkQualifiedColumns validates alias.column references that resolve to a
// known table.
func (a *SyntaxValidator) checkQualifiedColumns(clean string, qc *Context) (issues, suggestions []string) {
	_, aliases, _ := tableRefs(clean, cteNames(clean))

	seen := make(map[string]bool)
	for _, m := range qualifiedColumnRe.FindAllStringSubmatch(clean, -1) {
		tableRef := strings.ToUpper(m[1])
		column := strings.ToUpper(m[2])

		table := tableRef
		if resolved, ok := aliases[tableRef]; ok {
			table = resolved
		}
		if !qc.Registry.HasTable(table) {
			continue
		}

		key := table + "." + column
		if seen[key] {
			continue
		}
		seen[key] = true

		if qc.Registry.HasColumn(table, column) {
			continue
		}
		issues = append(issues, fmt.Sprintf("column '%s' not found in table '%s'", column, table))

		var similar []string
		for _, candidate := range qc.Registry.Columns(table) {
			cu := strings.ToUpper(candidate)
			if strings.Contains(cu, column) || strings.Contains(column, cu) {
				similar = append(similar, candidate)
			}
		}
		if len(similar) > 3 {
			similar = similar[:3]
		}
		if len(similar) > 0 {
			suggestions = append(suggestions, "Did you mean: "+strings.Join(similar, ", ")+"?")
		}
	}
	return issues, suggestions
}
