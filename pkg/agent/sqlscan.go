package agent

import (
	"regexp"
	"strings"
)

// Lightweight lexical helpers shared by the validator agents. These operate
// on sanitized text where comments are gone and literal contents are blanked,
// so identifier regexes cannot match inside strings.

var (
	lineCommentRe  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	singleQuoteRe  = regexp.MustCompile(`'[^']*'`)
	doubleQuoteRe  = regexp.MustCompile(`"[^"]*"`)

	tableRefRe = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+([A-Za-z_]\w*)(?:\s+(?:AS\s+)?([A-Za-z_]\w*))?`)
	cteNameRe  = regexp.MustCompile(`(?i)\b([A-Za-z_]\w*)\s+AS\s*\(`)
)

// aliasStopWords are keywords that the table-reference regex can mistake for
// an alias.
var aliasStopWords = map[string]bool{
	"WHERE": true, "ON": true, "GROUP": true, "ORDER": true, "HAVING": true,
	"JOIN": true, "LEFT": true, "RIGHT": true, "INNER": true, "OUTER": true,
	"FULL": true, "CROSS": true, "UNION": true, "LIMIT": true, "FETCH": true,
	"SELECT": true, "SET": true, "USING": true, "AND": true, "OR": true,
}

// sanitizeSQL strips comments and blanks out string literal contents.
func sanitizeSQL(query string) string {
	clean := lineCommentRe.ReplaceAllString(query, "")
	clean = blockCommentRe.ReplaceAllString(clean, "")
	clean = singleQuoteRe.ReplaceAllString(clean, "''")
	clean = doubleQuoteRe.ReplaceAllString(clean, `""`)
	return clean
}

// containsCTE reports whether the query carries a WITH clause.
func containsCTE(query string) bool {
	return strings.Contains(strings.ToUpper(query), "WITH ")
}

// cteNames collects names defined as `name AS (...)` in a CTE-bearing query.
// References to these must not be validated against the registry.
func cteNames(clean string) map[string]bool {
	if !containsCTE(clean) {
		return nil
	}
	names := make(map[string]bool)
	for _, m := range cteNameRe.FindAllStringSubmatch(clean, -1) {
		names[strings.ToUpper(m[1])] = true
	}
	return names
}

// tableRefs scans FROM and JOIN clauses. Returns referenced tables in order
// of appearance, an alias-to-table map, and the first (primary) table. CTE
// names are skipped.
func tableRefs(clean string, ctes map[string]bool) (tables []string, aliases map[string]string, primary string) {
	aliases = make(map[string]string)
	seen := make(map[string]bool)

	for _, m := range tableRefRe.FindAllStringSubmatch(clean, -1) {
		table := strings.ToUpper(m[2])
		if ctes[table] || aliasStopWords[table] {
			continue
		}
		if primary == "" {
			primary = table
		}
		if !seen[table] {
			seen[table] = true
			tables = append(tables, table)
		}
		if alias := strings.ToUpper(m[3]); alias != "" && !aliasStopWords[alias] {
			aliases[alias] = table
		}
	}
	return tables, aliases, primary
}
