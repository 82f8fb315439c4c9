package llm

import "context"

// MockProvider is a test double with function fields for each behavior.
type MockProvider struct {
	GenerateSQLFunc func(ctx context.Context, question, schemaText, dictionaryText string) (*Answer, error)
	KindValue       string
	ModelValue      string
	ConnectedValue  bool
}

// NewMockProvider returns a connected mock that answers every question with
// the given SQL at the given confidence.
func NewMockProvider(sql string, confidence float64) *MockProvider {
	return &MockProvider{
		GenerateSQLFunc: func(context.Context, string, string, string) (*Answer, error) {
			return &Answer{
				SQLQuery:    sql,
				Explanation: "mock answer",
				Confidence:  confidence,
			}, nil
		},
		KindValue:      "mock",
		ModelValue:     "mock-model",
		ConnectedValue: true,
	}
}

// GenerateSQL implements Provider.
func (m *MockProvider) GenerateSQL(ctx context.Context, question, schemaText, dictionaryText string) (*Answer, error) {
	if m.GenerateSQLFunc != nil {
		return m.GenerateSQLFunc(ctx, question, schemaText, dictionaryText)
	}
	return &Answer{SQLQuery: "SELECT 1", Confidence: 0.5}, nil
}

// Kind implements Provider.
func (m *MockProvider) Kind() string {
	if m.KindValue != "" {
		return m.KindValue
	}
	return "mock"
}

// Model implements Provider.
func (m *MockProvider) Model() string {
	if m.ModelValue != "" {
		return m.ModelValue
	}
	return "mock-model"
}

// Connected implements Provider.
func (m *MockProvider) Connected() bool { return m.ConnectedValue }
