package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/dialect"
)

var (
	quarterRe     = regexp.MustCompile(`q(\d)|quarter (\d)`)
	yearRe        = regexp.MustCompile(`20\d{2}`)
	whereRe       = regexp.MustCompile(`(?i)WHERE\s+`)
	fromKeywordRe = regexp.MustCompile(`(?i)\bFROM\b`)

	tailAfterFromRe  = regexp.MustCompile(`(?i)\s+(GROUP\s+BY|ORDER\s+BY|HAVING|FETCH\s+FIRST|LIMIT)\b`)
	tailAfterWhereRe = regexp.MustCompile(`(?i)\s+(GROUP\s+BY|ORDER\s+BY|HAVING|UNION|EXCEPT|INTERSECT|FETCH\s+FIRST|LIMIT)\b`)
)

// regionKeywords maps canonical region codes to the phrases that imply them.
var regionKeywords = map[string][]string{
	"AMERICAS": {"americas", "america", "us", "usa", "canada", "latam"},
	"EMEA":     {"emea", "europe", "middle east", "africa"},
	"APAC":     {"apac", "asia", "pacific", "asia pacific"},
	"JAPAN":    {"japan", "jpn"},
}

var countryKeywords = []string{"usa", "uk", "germany", "france", "china", "india", "brazil", "canada"}

// timeIntent is what the enhancer detected about the question's time scope.
type timeIntent struct {
	currentPeriod bool
	ytd           bool
	quarter       string
	year          string
}

// PredicateEnhancer appends WHERE conjuncts inferred from the question text:
// time scope, geography, product focus, and standard business filters.
// CTE-bearing queries are never rewritten; they get advisory notes instead.
type PredicateEnhancer struct {
	logger *zap.Logger
}

func NewPredicateEnhancer(logger *zap.Logger) *PredicateEnhancer {
	return &PredicateEnhancer{logger: stageLogger(logger, "predicate_enhancer")}
}

func (a *PredicateEnhancer) Name() string { return "PredicateEnhancer" }

func (a *PredicateEnhancer) Process(_ context.Context, input map[string]any, qc *Context) Response {
	sqlQuery := queryFrom(input, KeyValidatedQuery, KeySQLQuery)
	if sqlQuery == "" {
		return noQueryResponse()
	}
	question := strings.ToLower(qc.Question)

	var enhancements []string
	enhanced := sqlQuery

	timeCtx := detectTimeIntent(question)
	enhanced, timeNotes := a.applyTimeFilters(enhanced, timeCtx, qc)
	enhancements = append(enhancements, timeNotes...)

	enhanced, geoNotes := a.applyGeographicFilters(enhanced, question)
	enhancements = append(enhancements, geoNotes...)

	enhanced, productNotes := a.applyProductFilters(enhanced, question)
	enhancements = append(enhancements, productNotes...)

	enhanced, businessNotes := a.applyBusinessFilters(enhanced, question, qc)
	enhancements = append(enhancements, businessNotes...)

	confidence := 0.6
	if len(enhancements) > 0 {
		confidence = 0.8
	}
	a.logger.Debug("enhancement pass complete", zap.Int("enhancements", len(enhancements)))

	return Response{
		Success: true,
		Message: fmt.Sprintf("enhanced WHERE clause with %d contextual filters", len(enhancements)),
		Data: map[string]any{
			KeyOriginalQuery: sqlQuery,
			KeyEnhancedQuery: enhanced,
			"enhancements":   enhancements,
		},
		Confidence: confidence,
	}
}

func detectTimeIntent(question string) timeIntent {
	var intent timeIntent

	for _, word := range []string{"current", "this month", "this quarter", "today", "now", "recent"} {
		if strings.Contains(question, word) {
			intent.currentPeriod = true
			break
		}
	}
	if strings.Contains(question, "ytd") || strings.Contains(question, "year to date") {
		intent.ytd = true
	}
	if m := quarterRe.FindStringSubmatch(question); m != nil {
		if m[1] != "" {
			intent.quarter = m[1]
		} else {
			intent.quarter = m[2]
		}
	}
	if m := yearRe.FindString(question); m != "" {
		intent.year = m
	}
	return intent
}

func (a *PredicateEnhancer) applyTimeFilters(query string, intent timeIntent, qc *Context) (string, []string) {
	var notes []string

	if containsCTE(query) {
		if intent.ytd {
			notes = append(notes, "Confirmed current year analysis context")
		}
		if intent.currentPeriod {
			notes = append(notes, "Confirmed current period analysis context")
		}
		return query, notes
	}

	switch {
	case intent.currentPeriod:
		var cond string
		if qc.Dialect == dialect.DB2 {
			cond = "YEAR = YEAR(CURRENT DATE) AND QUARTER = QUARTER(CURRENT DATE)"
		} else {
			cond = "strftime('%Y', date('now')) = CAST(YEAR AS TEXT) AND ((CAST(strftime('%m', date('now')) AS INTEGER) - 1) / 3 + 1) = QUARTER"
		}
		return addWhereCondition(query, cond), append(notes, "Added current quarter filter")

	case intent.quarter != "" && intent.year != "":
		cond := fmt.Sprintf("YEAR = %s AND QUARTER = %s", intent.year, intent.quarter)
		return addWhereCondition(query, cond), append(notes, fmt.Sprintf("Added Q%s %s filter", intent.quarter, intent.year))

	case intent.ytd:
		var cond string
		if qc.Dialect == dialect.DB2 {
			cond = "YEAR = YEAR(CURRENT DATE)"
		} else {
			cond = "YEAR = CAST(strftime('%Y', date('now')) AS INTEGER)"
		}
		return addWhereCondition(query, cond), append(notes, "Added Year-to-Date filter")
	}

	return query, notes
}

func (a *PredicateEnhancer) applyGeographicFilters(query, question string) (string, []string) {
	var region, country string
	for _, code := range []string{"AMERICAS", "EMEA", "APAC", "JAPAN"} {
		for _, keyword := range regionKeywords[code] {
			if strings.Contains(question, keyword) {
				region = code
				break
			}
		}
		if region != "" {
			break
		}
	}
	for _, c := range countryKeywords {
		if strings.Contains(question, c) {
			country = strings.ToUpper(c)
			break
		}
	}

	var notes []string
	if containsCTE(query) {
		if region != "" {
			notes = append(notes, fmt.Sprintf("Confirmed %s geographic scope", region))
		}
		if country != "" {
			notes = append(notes, fmt.Sprintf("Confirmed %s country focus", country))
		}
		return query, notes
	}

	switch {
	case region != "":
		return addWhereCondition(query, fmt.Sprintf("GEOGRAPHY = '%s'", region)),
			append(notes, fmt.Sprintf("Added %s region filter", region))
	case country != "":
		return addWhereCondition(query, fmt.Sprintf("COUNTRY = '%s'", country)),
			append(notes, fmt.Sprintf("Added %s country filter", country))
	}
	return query, notes
}

func (a *PredicateEnhancer) applyProductFilters(query, question string) (string, []string) {
	var notes []string
	upper := strings.ToUpper(query)

	switch {
	case strings.Contains(question, "consulting") && strings.Contains(upper, "CONSULTING"):
		notes = append(notes, "Confirmed CONSULTING table selection")
	case strings.Contains(question, "software") && strings.Contains(upper, "SOFTWARE"):
		notes = append(notes, "Confirmed SOFTWARE table selection")
	}

	aiFocus := strings.Contains(question, "ai") || strings.Contains(question, "genai") || strings.Contains(question, "gen ai")
	if aiFocus && !containsCTE(query) {
		query = addWhereCondition(query, "(IBM_GEN_AI_IND = 1 OR PARTNER_GEN_AI_IND = 1)")
		notes = append(notes, "Added AI/GenAI filter")
	}
	return query, notes
}

func (a *PredicateEnhancer) applyBusinessFilters(query, question string, qc *Context) (string, []string) {
	var notes []string

	if containsCTE(query) {
		return query, a.adviseOnCTE(query, question)
	}

	upper := strings.ToUpper(query)

	pipelineFocus := false
	for _, word := range []string{"pipeline", "active", "open", "forecast"} {
		if strings.Contains(question, word) {
			pipelineFocus = true
			break
		}
	}
	if pipelineFocus && strings.Contains(upper, "SALES_STAGE") && !strings.Contains(upper, "WON") {
		query = addWhereCondition(query, "SALES_STAGE NOT IN ('Won', 'Lost')")
		notes = append(notes, "Added active pipeline filter (excluding Won/Lost)")
		upper = strings.ToUpper(query)
	}

	if strings.Contains(qc.SchemaText, "SNAPSHOT_LEVEL") && !strings.Contains(upper, "SNAPSHOT_LEVEL") {
		query = addWhereCondition(query, "SNAPSHOT_LEVEL = 'W'")
		notes = append(notes, "Added weekly snapshot filter")
		upper = strings.ToUpper(query)
	}

	if strings.Contains(question, "latest") || strings.Contains(question, "current") {
		if strings.Contains(qc.SchemaText, "WEEK") && !strings.Contains(upper, "MAX(WEEK)") {
			cond := "WEEK = (SELECT MAX(WEEK) FROM PROD_MQT_CONSULTING_PIPELINE WHERE YEAR = (SELECT MAX(YEAR) FROM PROD_MQT_CONSULTING_PIPELINE))"
			query = addWhereCondition(query, cond)
			notes = append(notes, "Added latest week filter")
		}
	}

	return query, notes
}

// adviseOnCTE emits contextual observations for queries too complex to
// rewrite safely.
func (a *PredicateEnhancer) adviseOnCTE(query, question string) []string {
	var notes []string
	upper := strings.ToUpper(query)

	hasTimeColumn := false
	for _, word := range []string{"YEAR", "QUARTER", "MONTH", "DATE"} {
		if strings.Contains(upper, word) {
			hasTimeColumn = true
			break
		}
	}
	if !hasTimeColumn {
		for _, keyword := range []string{"current", "this year", "ytd", "recent"} {
			if strings.Contains(question, keyword) {
				notes = append(notes, "Added current year context awareness")
				break
			}
		}
	}

	if !strings.Contains(upper, "GEOGRAPHY") && !strings.Contains(upper, "MARKET") {
		for _, geo := range []string{"americas", "emea", "apac", "region", "geography"} {
			if strings.Contains(question, geo) {
				notes = append(notes, "Noted geographic scope requirement")
				break
			}
		}
	}

	if strings.Contains(upper, "SALES_STAGE") {
		if strings.Contains(question, "won") && strings.Contains(question, "lost") {
			notes = append(notes, "Confirmed closed deals focus (Won/Lost)")
		} else if strings.Contains(question, "active") || strings.Contains(question, "open") {
			notes = append(notes, "Query ready for active pipeline analysis")
		}
	}

	if len(notes) == 0 {
		notes = append(notes, "Query structure validated for business intelligence reporting")
	}
	return notes
}

// addWhereCondition AND-joins the condition into an existing WHERE clause or
// creates one after the full FROM block (all JOINs and their ON predicates
// included), before any trailing GROUP BY/ORDER BY/HAVING/limit clause.
func addWhereCondition(query, condition string) string {
	if loc := whereRe.FindStringIndex(query); loc != nil {
		whereEnd := loc[1] + topLevelClauseIndex(query[loc[1]:], tailAfterWhereRe)
		existing := strings.TrimSpace(query[loc[1]:whereEnd])

		newWhere := condition
		if existing != "" {
			newWhere = existing + " AND " + condition
		}
		return query[:loc[1]] + newWhere + query[whereEnd:]
	}

	if fromKeywordRe.MatchString(query) {
		insertPos := topLevelClauseIndex(query, tailAfterFromRe)
		head := strings.TrimRight(query[:insertPos], " \t\n")
		return head + " WHERE " + condition + query[insertPos:]
	}

	return query + " WHERE " + condition
}

// topLevelClauseIndex returns the offset of the first clause keyword in s
// that sits outside parentheses and string literals, or len(s) when every
// occurrence is nested (subqueries, literals).
func topLevelClauseIndex(s string, re *regexp.Regexp) int {
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if atTopLevel(s[:loc[0]]) {
			return loc[0]
		}
	}
	return len(s)
}

func atTopLevel(prefix string) bool {
	depth := 0
	inString := false
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '\'':
			inString = !inString
		case '(':
			if !inString {
				depth++
			}
		case ')':
			if !inString {
				depth--
			}
		}
	}
	return depth == 0 && !inString
}
