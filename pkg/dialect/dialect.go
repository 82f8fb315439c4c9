// Package dialect rewrites SQL between the DB2 and SQLite dialects.
//
// The rule set is fixed and closed; constructs outside it pass through
// unchanged. Rewrites are textual, anchored by case-insensitive regular
// expressions, and never touch single-quoted string literals or SQL
// comments (both are excised to placeholders before any rule runs and
// restored afterwards). A future AST-based rewriter only needs to replace
// this package.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect identifies a SQL flavor the engine can target.
type Dialect string

const (
	DB2    Dialect = "DB2"
	SQLite Dialect = "SQLite"
)

// Parse returns the Dialect for a config string, defaulting to SQLite.
func Parse(s string) (Dialect, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DB2":
		return DB2, nil
	case "SQLITE", "":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (want DB2 or SQLite)", s)
	}
}

// LimitClause returns the dialect's row-limiting clause for n rows.
func (d Dialect) LimitClause(n int) string {
	if d == DB2 {
		return fmt.Sprintf("FETCH FIRST %d ROWS ONLY", n)
	}
	return fmt.Sprintf("LIMIT %d", n)
}

// CurrentDate returns the dialect's current-date expression.
func (d Dialect) CurrentDate() string {
	if d == DB2 {
		return "CURRENT DATE"
	}
	return "date('now')"
}

// CurrentTimestamp returns the dialect's current-timestamp expression.
func (d Dialect) CurrentTimestamp() string {
	if d == DB2 {
		return "CURRENT TIMESTAMP"
	}
	return "datetime('now')"
}
