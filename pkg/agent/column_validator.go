package agent

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var (
	whereComparisonRe = regexp.MustCompile(`(?i)([A-Za-z_]\w*)\s*(?:>=|<=|<>|!=|=|>|<)\s*(?:'[^']*'|\d+)`)
	groupByRe         = regexp.MustCompile(`(?i)GROUP\s+BY\s+([\w\s,]+?)(?:\s+ORDER\s+BY|\s+HAVING|\s*$)`)
)

// comparisonStopWords are tokens the WHERE scan can pick up that are never
// column names.
var comparisonStopWords = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "EXISTS": true,
	"NULL": true, "TRUE": true, "FALSE": true,
}

// MissingColumn is a referenced column absent from its table's registry
// entry.
type MissingColumn struct {
	Table  string
	Column string
}

// ColumnValidator grounds every column reference in the registry to prevent
// runtime "unknown column" failures. Mappable misses are substituted in
// place; unmappable ones escalate to regeneration with a repair prompt.
type ColumnValidator struct {
	logger *zap.Logger
}

func NewColumnValidator(logger *zap.Logger) *ColumnValidator {
	return &ColumnValidator{logger: stageLogger(logger, "column_validator")}
}

func (a *ColumnValidator) Name() string { return "ColumnValidation" }

func (a *ColumnValidator) Process(_ context.Context, input map[string]any, qc *Context) Response {
	sqlQuery := queryFrom(input, KeyOptimizedQuery, KeySQLQuery)
	if sqlQuery == "" {
		return noQueryResponse()
	}

	// CTE output columns are derived and cannot be grounded in the registry.
	if containsCTE(sqlQuery) {
		a.logger.Debug("CTE detected, skipping column validation")
		return Response{
			Success: true,
			Message: "query contains CTE - column validation skipped",
			Data: map[string]any{
				KeyOriginalQuery:     sqlQuery,
				KeyValidatedQuery:    sqlQuery,
				"missing_columns":    []MissingColumn{},
				"column_mappings":    map[string]string{},
				"substitutions_made": []string{},
				"needs_regeneration": false,
			},
			Confidence: 0.9,
		}
	}

	referenced := extractColumnReferences(sqlQuery)

	var missing []MissingColumn
	var available []string
	mappings := make(map[string]string)

	tables := make([]string, 0, len(referenced))
	for table := range referenced {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		columns := referenced[table]
		if !qc.Registry.HasTable(table) {
			// Unknown table, likely a derived name. Not ours to validate.
			a.logger.Debug("skipping unknown table", zap.String("table", table))
			continue
		}
		tableColumns := qc.Registry.Columns(table)
		available = append(available, tableColumns...)

		for _, col := range columns {
			if qc.Registry.HasColumn(table, col) {
				continue
			}
			missing = append(missing, MissingColumn{Table: table, Column: col})
			if similar := findSimilarColumn(col, tableColumns); similar != "" {
				mappings[col] = similar
				a.logger.Debug("mapped missing column", zap.String("from", col), zap.String("to", similar))
			}
		}
	}

	needsRegeneration := false
	for _, miss := range missing {
		if _, ok := mappings[miss.Column]; !ok {
			needsRegeneration = true
			break
		}
	}

	corrected := sqlQuery
	var substitutions []string
	if len(mappings) > 0 && !needsRegeneration {
		corrected, substitutions = applyColumnSubstitutions(sqlQuery, mappings)
	}

	confidence := 1.0
	switch {
	case needsRegeneration:
		confidence = 0.3
	case len(missing) > 0:
		confidence = 0.7
	}

	data := map[string]any{
		KeyOriginalQuery:     sqlQuery,
		KeyValidatedQuery:    corrected,
		"missing_columns":    missing,
		"column_mappings":    mappings,
		"substitutions_made": substitutions,
		"available_columns":  available,
		"needs_regeneration": needsRegeneration,
	}
	if needsRegeneration {
		data["regeneration_prompt"] = buildRepairPrompt(missing, available, qc)
	}

	message := "all columns validated successfully"
	if len(missing) > 0 {
		message = fmt.Sprintf("column validation complete - %d missing columns found", len(missing))
	}

	return Response{
		Success:     !needsRegeneration,
		Message:     message,
		Data:        data,
		Confidence:  confidence,
		Suggestions: buildColumnSuggestions(missing, mappings, available),
	}
}

// extractColumnReferences maps table name to the columns the query uses.
// Qualified references resolve through FROM/JOIN aliases; WHERE comparisons
// and GROUP BY identifiers attach to the primary table.
func extractColumnReferences(query string) map[string][]string {
	clean := sanitizeSQL(query)
	ctes := cteNames(clean)
	_, aliases, primary := tableRefs(clean, ctes)

	referenced := make(map[string][]string)
	add := func(table, column string) {
		for _, existing := range referenced[table] {
			if existing == column {
				return
			}
		}
		referenced[table] = append(referenced[table], column)
	}

	for _, m := range qualifiedColumnRe.FindAllStringSubmatch(clean, -1) {
		tableRef := strings.ToUpper(m[1])
		column := strings.ToUpper(m[2])

		table := tableRef
		if resolved, ok := aliases[tableRef]; ok {
			table = resolved
		}
		if ctes[table] {
			continue
		}
		add(table, column)
	}

	if primary != "" && !ctes[primary] {
		for _, m := range whereComparisonRe.FindAllStringSubmatch(clean, -1) {
			col := strings.ToUpper(m[1])
			if !comparisonStopWords[col] {
				add(primary, col)
			}
		}

		if m := groupByRe.FindStringSubmatch(clean); m != nil {
			for _, raw := range strings.Split(m[1], ",") {
				col := strings.ToUpper(strings.TrimSpace(raw))
				if col == "" || isDigits(col) {
					continue
				}
				add(primary, col)
			}
		}
	}

	return referenced
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// findSimilarColumn resolves a missing column against a table's real columns
// via exact case-insensitive match, the synonym table (both directions),
// then substring containment.
func findSimilarColumn(missingColumn string, availableColumns []string) string {
	missingUpper := strings.ToUpper(missingColumn)

	for _, col := range availableColumns {
		if strings.ToUpper(col) == missingUpper {
			return col
		}
	}

	if alternatives, ok := columnSynonyms[missingUpper]; ok {
		for _, alt := range alternatives {
			for _, col := range availableColumns {
				if strings.ToUpper(col) == alt {
					return col
				}
			}
		}
	}

	for standard, alternatives := range columnSynonyms {
		for _, alt := range alternatives {
			if alt != missingUpper {
				continue
			}
			for _, col := range availableColumns {
				if strings.ToUpper(col) == standard {
					return col
				}
			}
		}
	}

	if len(missingUpper) > 3 {
		for _, col := range availableColumns {
			colUpper := strings.ToUpper(col)
			if len(colUpper) > 3 && (strings.Contains(colUpper, missingUpper) || strings.Contains(missingUpper, colUpper)) {
				return col
			}
		}
	}

	return ""
}

// applyColumnSubstitutions rewrites qualified and clearly-column-shaped
// unqualified occurrences of each mapped name.
func applyColumnSubstitutions(query string, mappings map[string]string) (string, []string) {
	corrected := query
	var substitutions []string

	record := func(old, new string) {
		entry := old + " -> " + new
		for _, existing := range substitutions {
			if existing == entry {
				return
			}
		}
		substitutions = append(substitutions, entry)
	}

	for _, oldCol := range sortedKeys(mappings) {
		newCol := mappings[oldCol]
		qualified := regexp.MustCompile(`(?i)\b(\w+\.)` + regexp.QuoteMeta(oldCol) + `\b`)
		if qualified.MatchString(corrected) {
			corrected = qualified.ReplaceAllString(corrected, "${1}"+newCol)
			record(oldCol, newCol)
		}

		// Unqualified replacement only where the token reads as a column
		// reference: followed by a comma, paren, AS, whitespace, or the end.
		unqualified := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(oldCol) + `(\s*[,)]|\s+AS\b|\s*$|\s)`)
		if unqualified.MatchString(corrected) {
			corrected = unqualified.ReplaceAllString(corrected, newCol+"$1")
			record(oldCol, newCol)
		}
	}

	return corrected, substitutions
}

const maxPromptColumns = 20

// buildRepairPrompt describes the misses so an LLM can regenerate the query
// against real columns.
func buildRepairPrompt(missing []MissingColumn, available []string, qc *Context) string {
	var missingList []string
	for _, miss := range missing {
		missingList = append(missingList, fmt.Sprintf("%s (from %s)", miss.Column, miss.Table))
	}

	shown := available
	ellipsis := ""
	if len(shown) > maxPromptColumns {
		shown = shown[:maxPromptColumns]
		ellipsis = "..."
	}

	return fmt.Sprintf(`The generated SQL query contains columns that don't exist in the database schema.

MISSING COLUMNS:
%s

AVAILABLE COLUMNS:
%s%s

Please regenerate the SQL query using only the available columns.
Consider these alternatives:
- For OPPORTUNITY_ID: Use OPPTY_ID, OPP_ID, or similar
- For OPPORTUNITY_VALUE: Use OPPTY_VALUE, DEAL_VALUE, or PPV_AMT
- For CLIENT_NAME: Use CUSTOMER_NAME or ACCOUNT_NAME
- For missing date columns: Use available date/time columns

Original question: %s
Database type: %s
`, strings.Join(missingList, ", "), strings.Join(shown, ", "), ellipsis, qc.Question, qc.Dialect)
}

func buildColumnSuggestions(missing []MissingColumn, mappings map[string]string, available []string) []string {
	if len(missing) == 0 {
		return nil
	}

	suggestions := []string{fmt.Sprintf("Found %d missing columns", len(missing))}

	if len(mappings) > 0 {
		suggestions = append(suggestions, "Some columns can be automatically substituted:")
		for _, old := range sortedKeys(mappings) {
			suggestions = append(suggestions, fmt.Sprintf("  %s -> %s", old, mappings[old]))
		}
	}

	var unmappable []MissingColumn
	for _, miss := range missing {
		if _, ok := mappings[miss.Column]; !ok {
			unmappable = append(unmappable, miss)
		}
	}
	if len(unmappable) > 0 {
		suggestions = append(suggestions, "Columns requiring regeneration:")
		for _, miss := range unmappable {
			suggestions = append(suggestions, fmt.Sprintf("  %s (from %s)", miss.Column, miss.Table))
		}

		suggestions = append(suggestions, "Consider these alternatives from available columns:")
		count := 0
		for _, col := range available {
			upper := strings.ToUpper(col)
			for _, keyword := range []string{"ID", "NAME", "AMT", "VALUE", "STAGE"} {
				if strings.Contains(upper, keyword) {
					suggestions = append(suggestions, "  "+col)
					count++
					break
				}
			}
			if count >= 5 {
				break
			}
		}
	}

	return suggestions
}
