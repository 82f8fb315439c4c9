package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  error
	}{
		{
			name:     "plain select",
			input:    "SELECT * FROM PROD_MQT_CONSULTING_PIPELINE",
			expected: "SELECT * FROM PROD_MQT_CONSULTING_PIPELINE",
		},
		{
			name:     "trailing semicolon stripped",
			input:    "SELECT 1;  ",
			expected: "SELECT 1",
		},
		{
			name:     "cte allowed",
			input:    "WITH t AS (SELECT 1) SELECT * FROM t",
			expected: "WITH t AS (SELECT 1) SELECT * FROM t",
		},
		{
			name:    "multiple statements",
			input:   "SELECT 1; DROP TABLE users",
			wantErr: ErrMultipleStatements,
		},
		{
			name:     "semicolon inside literal ok",
			input:    "SELECT * FROM t WHERE note = 'a; b'",
			expected: "SELECT * FROM t WHERE note = 'a; b'",
		},
		{
			name:    "not read only",
			input:   "DELETE FROM PROD_MQT_CONSULTING_PIPELINE",
			wantErr: ErrNotReadOnly,
		},
		{
			name:     "empty",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, result.Error, tt.wantErr)
				return
			}
			require.NoError(t, result.Error)
			assert.Equal(t, tt.expected, result.NormalizedSQL)
		})
	}
}

func TestCheckQuestionForInjection(t *testing.T) {
	assert.Nil(t, CheckQuestionForInjection("question", "what is the total pipeline value for Americas this quarter"))

	result := CheckQuestionForInjection("question", "' OR 1=1 --")
	require.NotNil(t, result)
	assert.True(t, result.IsSQLi)
	assert.NotEmpty(t, result.Fingerprint)
	assert.Equal(t, "question", result.Source)
}

func TestCheckInputs(t *testing.T) {
	results := CheckInputs(map[string]string{
		"question": "show top deals",
		"sql":      "'; DROP TABLE users--",
	})
	require.Len(t, results, 1)
	assert.Equal(t, "sql", results[0].Source)
}
