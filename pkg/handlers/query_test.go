package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/dialect"
	"github.com/pipelineiq/engine/pkg/llm"
	"github.com/pipelineiq/engine/pkg/parallel"
	"github.com/pipelineiq/engine/pkg/pipeline"
	"github.com/pipelineiq/engine/pkg/schema"
	"github.com/pipelineiq/engine/pkg/store"
)

func newQueryHandler(t *testing.T, d dialect.Dialect, generator *parallel.Generator, warehouse *store.Store) *QueryHandler {
	t.Helper()
	registry := schema.DefaultCatalog()
	orchestrator := pipeline.New(pipeline.Options{
		Registry: registry,
		Dialect:  d,
		RowLimit: 1000,
		Logger:   zap.NewNop(),
	})
	return NewQueryHandler(orchestrator, generator, registry, warehouse, d, zap.NewNop())
}

func postQuery(t *testing.T, h *QueryHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Query(rec, req)
	return rec
}

func TestQueryRefinesProvidedSQL(t *testing.T) {
	h := newQueryHandler(t, dialect.DB2, nil, nil)

	rec := postQuery(t, h, QueryRequest{
		Question: "list open deals",
		SQLQuery: "SELECT OPPTY_ID FROM PROD_MQT_CONSULTING_PIPELINE LIMIT 10",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.FinalQuery, "FETCH FIRST 10 ROWS ONLY")
	require.NotNil(t, resp.Pipeline)
	assert.Len(t, resp.Pipeline.ProcessingLog, 4)
	assert.Nil(t, resp.Generation)
}

func TestQueryRejectsMissingQuestion(t *testing.T) {
	h := newQueryHandler(t, dialect.DB2, nil, nil)
	rec := postQuery(t, h, QueryRequest{SQLQuery: "SELECT 1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body apiError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "missing_question", body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestQueryRejectsInjectionInQuestion(t *testing.T) {
	h := newQueryHandler(t, dialect.DB2, nil, nil)
	rec := postQuery(t, h, QueryRequest{
		Question: "deals' UNION SELECT username, password FROM users--",
		SQLQuery: "SELECT OPPTY_ID FROM PROD_MQT_CONSULTING_PIPELINE",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "injection")
}

func TestQueryRejectsNonReadOnlyResult(t *testing.T) {
	h := newQueryHandler(t, dialect.DB2, nil, nil)
	rec := postQuery(t, h, QueryRequest{
		Question: "deals",
		SQLQuery: "DELETE FROM PROD_MQT_CONSULTING_PIPELINE",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestQueryGeneratesWhenNoSQLProvided(t *testing.T) {
	generated := "SELECT OPPTY_ID FROM PROD_MQT_CONSULTING_PIPELINE WHERE SALES_STAGE = 'Propose'"
	provider := &llm.MockProvider{
		GenerateSQLFunc: func(context.Context, string, string, string) (*llm.Answer, error) {
			return &llm.Answer{SQLQuery: generated, Explanation: "filters to proposals", Confidence: 0.9}, nil
		},
		KindValue:      "openai",
		ModelValue:     "gpt-4o",
		ConnectedValue: true,
	}
	generator := parallel.NewGeneratorFromProviders([]llm.Provider{provider}, nil, zap.NewNop())
	h := newQueryHandler(t, dialect.DB2, generator, nil)

	rec := postQuery(t, h, QueryRequest{Question: "proposals in flight"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Generation)
	require.NotNil(t, resp.Generation.Best)
	assert.Equal(t, "openai", resp.Generation.Best.Provider)
	assert.Contains(t, resp.FinalQuery, "OPPTY_ID")
}

func TestQueryWithoutProvidersRequiresSQL(t *testing.T) {
	h := newQueryHandler(t, dialect.DB2, nil, nil)
	rec := postQuery(t, h, QueryRequest{Question: "deals"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestQueryExecutesAgainstWarehouse(t *testing.T) {
	warehouse, err := store.Open(filepath.Join(t.TempDir(), "demo.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { warehouse.Close() })
	require.NoError(t, warehouse.Seed(context.Background(), 25))

	h := newQueryHandler(t, dialect.SQLite, nil, warehouse)
	rec := postQuery(t, h, QueryRequest{
		Question: "deals",
		SQLQuery: "SELECT OPPTY_ID, SALES_STAGE FROM PROD_MQT_CONSULTING_PIPELINE",
		Execute:  true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.ExecutionError)
	require.NotNil(t, resp.Results)
	assert.Equal(t, []string{"OPPTY_ID", "SALES_STAGE"}, resp.Results.Columns)
	assert.Len(t, resp.Results.Rows, 25)
}

func TestQueryExecuteTranslatesDB2ToSQLite(t *testing.T) {
	warehouse, err := store.Open(filepath.Join(t.TempDir(), "demo.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { warehouse.Close() })
	require.NoError(t, warehouse.Seed(context.Background(), 15))

	h := newQueryHandler(t, dialect.DB2, nil, warehouse)
	rec := postQuery(t, h, QueryRequest{
		Question: "deals",
		SQLQuery: "SELECT OPPTY_ID FROM PROD_MQT_CONSULTING_PIPELINE FETCH FIRST 5 ROWS ONLY",
		Execute:  true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	// The API surface keeps the DB2 form; only execution is translated.
	assert.Contains(t, resp.FinalQuery, "FETCH FIRST 5 ROWS ONLY")
	assert.Empty(t, resp.ExecutionError)
	require.NotNil(t, resp.Results)
	assert.Len(t, resp.Results.Rows, 5)
}

func TestSchemaListsTables(t *testing.T) {
	h := newQueryHandler(t, dialect.DB2, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	rec := httptest.NewRecorder()
	h.Schema(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SchemaResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Tables, 3)
	assert.Equal(t, "PROD_MQT_CONSULTING_PIPELINE", resp.Tables[0].Name)
	assert.NotEmpty(t, resp.Dictionary)
}
