package llm

import (
	"fmt"
	"strings"

	"github.com/pipelineiq/engine/pkg/dialect"
)

// dialectHints lists the syntax constraints spelled out in the prompt so the
// model generates in the target dialect instead of a generic one.
var dialectHints = map[dialect.Dialect]string{
	dialect.DB2: `- Use DB2 syntax: FETCH FIRST n ROWS ONLY for row limits, CURRENT DATE and CURRENT TIMESTAMP for the current time, YEAR(x) and MONTH(x) for date parts.
- Do not use LIMIT, strftime, or SQLite functions.`,
	dialect.SQLite: `- Use SQLite syntax: LIMIT n for row limits, date('now') and datetime('now') for the current time, strftime('%Y', x) and strftime('%m', x) for date parts.
- Do not use FETCH FIRST, CURRENT DATE, or DB2 functions.`,
}

// BuildPrompt assembles the SQL generation prompt from the question, the
// schema description, and the business dictionary.
func BuildPrompt(question, schemaText, dictionaryText string, d dialect.Dialect) string {
	var b strings.Builder

	b.WriteString("You are an expert SQL analyst for a sales pipeline data warehouse.\n")
	b.WriteString("Generate a single SQL query that answers the user's question.\n\n")

	if schemaText != "" {
		b.WriteString("DATABASE SCHEMA:\n")
		b.WriteString(schemaText)
		b.WriteString("\n\n")
	}

	if dictionaryText != "" {
		b.WriteString("BUSINESS DICTIONARY:\n")
		b.WriteString(dictionaryText)
		b.WriteString("\n\n")
	}

	b.WriteString("RULES:\n")
	b.WriteString("- Use only tables and columns that appear in the schema above.\n")
	if hint, ok := dialectHints[d]; ok {
		b.WriteString(hint)
		b.WriteString("\n")
	}
	b.WriteString("- Return ONLY a JSON object, no prose, in exactly this shape:\n")
	b.WriteString(`{
  "sql_query": "the SQL query",
  "explanation": "what the query does and why",
  "tables_used": ["TABLE1"],
  "columns_used": ["COL1", "COL2"],
  "visualization_type": "bar|line|pie|table",
  "confidence": 0.0
}
`)
	b.WriteString("\n")

	fmt.Fprintf(&b, "QUESTION: %s\n", question)
	return b.String()
}
