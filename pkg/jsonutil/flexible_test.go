package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"string", `"table"`, "table"},
		{"integer", `42`, "42"},
		{"float", `0.5`, "0.5"},
		{"bool", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FlexibleStringValue(json.RawMessage(tt.raw)))
		})
	}
}

func TestFlexibleFloatValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected float64
	}{
		{"number", `0.9`, 0.9},
		{"quoted number", `"0.85"`, 0.85},
		{"percent string", `"90%"`, 90},
		{"garbage", `"high"`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, FlexibleFloatValue(json.RawMessage(tt.raw)), 1e-9)
		})
	}
}

func TestFlexibleStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, FlexibleStringSlice(json.RawMessage(`["a","b"]`)))
	assert.Equal(t, []string{"a", "b"}, FlexibleStringSlice(json.RawMessage(`"a, b"`)))
	assert.Nil(t, FlexibleStringSlice(json.RawMessage(`null`)))
	assert.Nil(t, FlexibleStringSlice(json.RawMessage(`7`)))
}
