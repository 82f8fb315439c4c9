package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a detected SQL injection pattern.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if an injection pattern was detected
	Fingerprint string // libinjection fingerprint of the pattern
	Source      string // Which input tripped the check
	Value       string // The checked text
}

// CheckQuestionForInjection runs libinjection over a natural-language
// question before it reaches any prompt. A user typing SQL fragments into
// the question box is the main smuggling vector for generated queries.
//
// Returns nil when the text is clean.
func CheckQuestionForInjection(source, text string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(text)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: fingerprint,
		Source:      source,
		Value:       text,
	}
}

// CheckInputs validates a set of named inputs, returning one result per
// input that failed the check. An empty slice means all inputs are clean.
func CheckInputs(inputs map[string]string) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for name, value := range inputs {
		if result := CheckQuestionForInjection(name, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}
