package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "bare object",
			input:    `{"sql_query": "SELECT 1"}`,
			expected: `{"sql_query": "SELECT 1"}`,
		},
		{
			name:     "fenced json",
			input:    "```json\n{\"sql_query\": \"SELECT 1\"}\n```",
			expected: `{"sql_query": "SELECT 1"}`,
		},
		{
			name:     "surrounding prose",
			input:    "Here is the query:\n{\"sql_query\": \"SELECT 1\"}\nHope that helps!",
			expected: `{"sql_query": "SELECT 1"}`,
		},
		{
			name:     "braces inside strings",
			input:    `{"explanation": "a {nested} brace", "sql_query": "SELECT 1"}`,
			expected: `{"explanation": "a {nested} brace", "sql_query": "SELECT 1"}`,
		},
		{
			name:     "nested objects",
			input:    `{"a": {"b": 1}, "c": 2}`,
			expected: `{"a": {"b": 1}, "c": 2}`,
		},
		{
			name:    "no object",
			input:   "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			input:   `{"sql_query": "SELECT 1"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFences(`{"a": 1}`))
}

func TestParseAnswer(t *testing.T) {
	raw := "```json\n" + `{
  "sql_query": "SELECT OPPTY_ID FROM PROD_MQT_CONSULTING_PIPELINE",
  "explanation": "lists opportunities",
  "tables_used": ["PROD_MQT_CONSULTING_PIPELINE"],
  "columns_used": ["OPPTY_ID"],
  "visualization_type": "table",
  "confidence": 0.85
}` + "\n```"

	answer, err := ParseAnswer(raw)
	require.NoError(t, err)
	assert.Equal(t, "SELECT OPPTY_ID FROM PROD_MQT_CONSULTING_PIPELINE", answer.SQLQuery)
	assert.Equal(t, []string{"PROD_MQT_CONSULTING_PIPELINE"}, answer.TablesUsed)
	assert.InDelta(t, 0.85, answer.Confidence, 1e-9)
}

func TestParseAnswerFlexibleTypes(t *testing.T) {
	// Quoted confidence and comma-joined table list still parse.
	raw := `{"sql_query": "SELECT 1", "confidence": "0.9", "tables_used": "T1, T2"}`

	answer, err := ParseAnswer(raw)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, answer.Confidence, 1e-9)
	assert.Equal(t, []string{"T1", "T2"}, answer.TablesUsed)
}

func TestParseAnswerClampsConfidence(t *testing.T) {
	answer, err := ParseAnswer(`{"sql_query": "SELECT 1", "confidence": 1.5}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, answer.Confidence)

	answer, err = ParseAnswer(`{"sql_query": "SELECT 1", "confidence": -0.2}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, answer.Confidence)
}

func TestParseAnswerMissingSQL(t *testing.T) {
	_, err := ParseAnswer(`{"explanation": "no query here"}`)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeParse, GetErrorType(err))
}
