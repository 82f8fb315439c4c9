package parallel

import (
	"regexp"
	"strings"
)

// Confidence levels for cross-provider agreement.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// whereTokenIoUThreshold is the minimum intersection-over-union of WHERE
// identifier tokens for the clauses to count as similar.
const whereTokenIoUThreshold = 0.5

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	selectSpanRe = regexp.MustCompile(`SELECT\s+(.*?)\s+FROM`)
	fromSpanRe   = regexp.MustCompile(`FROM\s+(.*?)(?:\s+WHERE|\s+GROUP|\s+ORDER|;|$)`)
	whereSpanRe  = regexp.MustCompile(`WHERE\s+(.*?)(?:\s+GROUP|\s+ORDER|;|$)`)
	identifierRe = regexp.MustCompile(`[A-Z_][A-Z0-9_]*`)
)

// Comparison describes how strongly the providers agree on query structure.
type Comparison struct {
	SelectMatch     bool   `json:"select_match"`
	FromMatch       bool   `json:"from_match"`
	WhereSimilarity bool   `json:"where_similarity"`
	ConfidenceLevel string `json:"confidence_level"`
	ValidResults    int    `json:"valid_results"`
}

// compareQueries measures structural agreement across the valid SQL strings.
// Fewer than two valid results cannot establish consensus.
func compareQueries(queries []string) Comparison {
	comparison := Comparison{ConfidenceLevel: ConfidenceLow, ValidResults: len(queries)}
	if len(queries) < 2 {
		return comparison
	}

	normalized := make([]string, len(queries))
	for i, q := range queries {
		normalized[i] = normalizeQuery(q)
	}

	comparison.SelectMatch = allSpansEqual(normalized, selectSpanRe)
	comparison.FromMatch = allSpansEqual(normalized, fromSpanRe)
	comparison.WhereSimilarity = whereClausesSimilar(normalized)

	matches := 0
	for _, ok := range []bool{comparison.SelectMatch, comparison.FromMatch, comparison.WhereSimilarity} {
		if ok {
			matches++
		}
	}
	switch {
	case matches == 3:
		comparison.ConfidenceLevel = ConfidenceHigh
	case matches >= 1:
		comparison.ConfidenceLevel = ConfidenceMedium
	}
	return comparison
}

func normalizeQuery(q string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToUpper(q), " "))
}

func allSpansEqual(normalized []string, re *regexp.Regexp) bool {
	var first string
	for i, q := range normalized {
		span := ""
		if m := re.FindStringSubmatch(q); m != nil {
			span = strings.TrimSpace(m[1])
		}
		if i == 0 {
			first = span
		} else if span != first {
			return false
		}
	}
	return true
}

// whereClausesSimilar computes the intersection-over-union of identifier
// tokens across every WHERE span. Queries with no WHERE at all are similar.
func whereClausesSimilar(normalized []string) bool {
	tokenSets := make([]map[string]bool, len(normalized))
	allEmpty := true

	for i, q := range normalized {
		tokens := make(map[string]bool)
		if m := whereSpanRe.FindStringSubmatch(q); m != nil {
			for _, token := range identifierRe.FindAllString(m[1], -1) {
				tokens[token] = true
			}
		}
		if len(tokens) > 0 {
			allEmpty = false
		}
		tokenSets[i] = tokens
	}
	if allEmpty {
		return true
	}

	intersection := make(map[string]bool)
	union := make(map[string]bool)
	for token := range tokenSets[0] {
		intersection[token] = true
	}
	for _, set := range tokenSets {
		for token := range set {
			union[token] = true
		}
		for token := range intersection {
			if !set[token] {
				delete(intersection, token)
			}
		}
	}
	if len(union) == 0 {
		return true
	}
	return float64(len(intersection))/float64(len(union)) > whereTokenIoUThreshold
}
