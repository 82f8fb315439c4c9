// Package logging keeps secrets and oversized SQL out of log output.
package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a SQL query to log.
	MaxQueryLogLength = 120
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// Matches API keys passed as query or header-style parameters.
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// Matches bearer tokens and raw sk-style provider keys, which some
	// provider SDKs echo back inside error messages.
	bearerPattern      = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_.]+`)
	providerKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9-_]{10,}\b`)

	// Matches user:pass@host credentials embedded in base URLs.
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeError strips credentials from an error message before logging.
// Provider errors can carry the request's auth material verbatim.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := apiKeyPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = providerKeyPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText)
	return sanitized
}

// TruncateQuery shortens a SQL string for log lines. Generated queries can
// run to kilobytes; logs only need the head.
func TruncateQuery(query string) string {
	if len(query) <= MaxQueryLogLength {
		return query
	}
	return query[:MaxQueryLogLength] + "..."
}
