package llm

import (
	"fmt"
	"strings"
)

// StripCodeFences removes a leading ```json (or bare ```) fence and a
// trailing ``` fence, leaving the enclosed text.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)

	if strings.HasPrefix(trimmed, "```") {
		if idx := strings.Index(trimmed, "\n"); idx >= 0 {
			trimmed = trimmed[idx+1:]
		} else {
			trimmed = strings.TrimPrefix(trimmed, "```json")
			trimmed = strings.TrimPrefix(trimmed, "```")
		}
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// ExtractJSON finds the first balanced JSON object in text, tolerating
// surrounding prose and code fences. Braces inside string literals are
// ignored while balancing.
func ExtractJSON(text string) (string, error) {
	cleaned := StripCodeFences(text)

	start := strings.Index(cleaned, "{")
	if start < 0 {
		return "", fmt.Errorf("no opening brace found")
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(cleaned); i++ {
		ch := cleaned[i]

		if escaped {
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return cleaned[start : i+1], nil
				}
			}
		}
	}

	return "", fmt.Errorf("unbalanced JSON object")
}
