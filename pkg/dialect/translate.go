package dialect

import "regexp"

// rule is a single textual rewrite. Rules fire at most one note each per
// translation, no matter how many sites they rewrite.
type rule struct {
	re   *regexp.Regexp
	repl string
	note string
}

// balancedArg matches a function argument that may itself contain one
// level of parenthesized calls, e.g. SUM(PPV_AMT) / 1000000.
const balancedArg = `((?:[^(),]|\([^)]*\))+?)`

// toDB2 normalizes SQLite (and generic SQL) constructs to DB2.
//
// date('now') and datetime('now') are rewritten before the strftime rules
// so that strftime operands no longer contain nested parentheses by the
// time those rules run.
var toDB2 = []rule{
	{regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\b`), "FETCH FIRST $1 ROWS ONLY", "Converted LIMIT to FETCH FIRST (DB2 syntax)"},
	{regexp.MustCompile(`(?i)\bdatetime\s*\(\s*'now'\s*\)`), "CURRENT TIMESTAMP", "Converted datetime('now') to CURRENT TIMESTAMP"},
	{regexp.MustCompile(`(?i)\bdate\s*\(\s*'now'\s*\)`), "CURRENT DATE", "Converted date('now') to CURRENT DATE"},
	{regexp.MustCompile(`(?i)\bstrftime\s*\(\s*'%Y'\s*,\s*([^)]+?)\s*\)`), "YEAR($1)", "Converted strftime('%Y', ...) to YEAR(...)"},
	{regexp.MustCompile(`(?i)\bstrftime\s*\(\s*'%m'\s*,\s*([^)]+?)\s*\)`), "MONTH($1)", "Converted strftime('%m', ...) to MONTH(...)"},
	{regexp.MustCompile(`(?i)\bSUBSTRING\s*\(`), "SUBSTR(", "Converted SUBSTRING to SUBSTR"},
	{regexp.MustCompile(`(?i)\bGETDATE\s*\(\s*\)`), "CURRENT DATE", "Converted GETDATE() to CURRENT DATE"},
	{regexp.MustCompile(`(?i)\bNOW\s*\(\s*\)`), "CURRENT TIMESTAMP", "Converted NOW() to CURRENT TIMESTAMP"},
	{regexp.MustCompile(`(?i)\bCURDATE\s*\(\s*\)`), "CURRENT DATE", "Converted CURDATE() to CURRENT DATE"},
}

// toSQLite rewrites DB2 constructs for execution on SQLite.
var toSQLite = []rule{
	{regexp.MustCompile(`(?i)\bFETCH\s+FIRST\s+(\d+)\s+ROWS?\s+ONLY\b`), "LIMIT $1", "Converted FETCH FIRST to LIMIT (SQLite syntax)"},
	{regexp.MustCompile(`(?i)\bYEAR\s*\(\s*([^)]+?)\s*\)`), "strftime('%Y', $1)", "Converted YEAR(...) to strftime('%Y', ...)"},
	{regexp.MustCompile(`(?i)\bMONTH\s*\(\s*([^)]+?)\s*\)`), "strftime('%m', $1)", "Converted MONTH(...) to strftime('%m', ...)"},
	{regexp.MustCompile(`(?i)\bQUARTER\s*\(\s*([^)]+?)\s*\)`), "((CAST(strftime('%m', $1) AS INTEGER) - 1) / 3 + 1)", "Converted QUARTER(...) to a strftime month expression"},
	{regexp.MustCompile(`(?i)\bDECIMAL\s*\(\s*` + balancedArg + `\s*,\s*\d+\s*,\s*(\d+)\s*\)`), "ROUND($1, $2)", "Converted DECIMAL(value, precision, scale) to ROUND(value, scale)"},
	{regexp.MustCompile(`(?i)\bCAST\s*\(\s*` + balancedArg + `\s+AS\s+DOUBLE\s*\)`), "CAST($1 AS REAL)", "Converted CAST AS DOUBLE to CAST AS REAL"},
	{regexp.MustCompile(`(?i)\bFULL\s+OUTER\s+JOIN\b`), "LEFT JOIN", "Converted FULL OUTER JOIN to LEFT JOIN (unsupported in SQLite)"},
	{regexp.MustCompile(`(?i)\s+NULLS\s+(?:FIRST|LAST)\b`), "", "Removed NULLS FIRST/LAST (unsupported in SQLite)"},
	{regexp.MustCompile(`(?i)\bCURRENT\s+TIMESTAMP\b`), "datetime('now')", "Converted CURRENT TIMESTAMP to datetime('now')"},
	{regexp.MustCompile(`(?i)\bCURRENT\s+DATE\b`), "date('now')", "Converted CURRENT DATE to date('now')"},
	{regexp.MustCompile(`(?i)\bGETDATE\s*\(\s*\)`), "date('now')", "Converted GETDATE() to date('now')"},
	{regexp.MustCompile(`(?i)\bNOW\s*\(\s*\)`), "datetime('now')", "Converted NOW() to datetime('now')"},
	{regexp.MustCompile(`(?i)\bCURDATE\s*\(\s*\)`), "date('now')", "Converted CURDATE() to date('now')"},
	{regexp.MustCompile(`(?i)\bSUBSTRING\s*\(`), "SUBSTR(", "Converted SUBSTRING to SUBSTR"},
}

// Translate rewrites query toward the target dialect and reports one note
// per rule that fired. Unknown constructs pass through unchanged. String
// literals and comments are never rewritten.
func Translate(query string, target Dialect) (string, []string) {
	rules := toSQLite
	if target == DB2 {
		rules = toDB2
	}

	ex := excise(query)
	rewritten := ex.masked
	var notes []string

	for _, r := range rules {
		if !r.re.MatchString(rewritten) {
			continue
		}
		rewritten = r.re.ReplaceAllString(rewritten, r.repl)
		notes = append(notes, r.note)
	}

	return ex.restore(rewritten), notes
}
