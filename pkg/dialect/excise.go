package dialect

import (
	"fmt"
	"strings"
)

// Placeholders use control characters that cannot appear in well-formed SQL,
// so no rewrite rule can match across or inside them.
const (
	placeholderOpen  = "\x01"
	placeholderClose = "\x02"
)

// functionLiterals are the literal operands of rewrite rules (strftime
// format strings and the 'now' argument of date/datetime). They stay in
// place during rewriting; every other literal is masked.
var functionLiterals = map[string]bool{
	"%Y":  true,
	"%m":  true,
	"now": true,
}

// excised holds a query with its string literals and comments masked out.
type excised struct {
	masked string
	spans  []string
}

// excise replaces single-quoted string literals, -- line comments, and
// /* */ block comments with indexed placeholders. Literals that are
// operands of rewrite rules ('%Y', '%m', 'now') are left in place.
func excise(query string) excised {
	var out strings.Builder
	var spans []string

	emit := func(span string) {
		out.WriteString(fmt.Sprintf("%s%d%s", placeholderOpen, len(spans), placeholderClose))
		spans = append(spans, span)
	}

	i := 0
	for i < len(query) {
		switch {
		case query[i] == '\'':
			j := i + 1
			for j < len(query) {
				if query[j] == '\'' {
					// Doubled quote is an escaped quote inside the literal.
					if j+1 < len(query) && query[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= len(query) {
				// Unterminated literal: mask through end of input.
				emit(query[i:])
				i = len(query)
				break
			}
			lit := query[i : j+1]
			if functionLiterals[strings.Trim(lit, "'")] {
				out.WriteString(lit)
			} else {
				emit(lit)
			}
			i = j + 1
		case strings.HasPrefix(query[i:], "--"):
			j := strings.IndexByte(query[i:], '\n')
			if j < 0 {
				emit(query[i:])
				i = len(query)
			} else {
				emit(query[i : i+j])
				i += j
			}
		case strings.HasPrefix(query[i:], "/*"):
			j := strings.Index(query[i+2:], "*/")
			if j < 0 {
				emit(query[i:])
				i = len(query)
			} else {
				emit(query[i : i+2+j+2])
				i += 2 + j + 2
			}
		default:
			out.WriteByte(query[i])
			i++
		}
	}

	return excised{masked: out.String(), spans: spans}
}

// restore substitutes the original spans back into a rewritten query.
func (e excised) restore(rewritten string) string {
	result := rewritten
	for idx, span := range e.spans {
		placeholder := fmt.Sprintf("%s%d%s", placeholderOpen, idx, placeholderClose)
		result = strings.Replace(result, placeholder, span, 1)
	}
	return result
}
