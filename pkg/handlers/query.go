package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/dialect"
	"github.com/pipelineiq/engine/pkg/logging"
	"github.com/pipelineiq/engine/pkg/parallel"
	"github.com/pipelineiq/engine/pkg/pipeline"
	"github.com/pipelineiq/engine/pkg/schema"
	sqlcheck "github.com/pipelineiq/engine/pkg/sql"
	"github.com/pipelineiq/engine/pkg/store"
)

// QueryRequest is the body of POST /api/query. When SQLQuery is empty the
// configured providers generate the initial query from the question.
type QueryRequest struct {
	Question string `json:"question"`
	SQLQuery string `json:"sql_query,omitempty"`
	Execute  bool   `json:"execute,omitempty"`
}

// QueryResponse carries the refined query with full provenance: the parallel
// generation round (when one ran), the per-stage pipeline log, and the rows
// when execution was requested.
type QueryResponse struct {
	Question       string           `json:"question"`
	FinalQuery     string           `json:"final_query"`
	Pipeline       *pipeline.Result `json:"pipeline"`
	Generation     *parallel.Output `json:"generation,omitempty"`
	Results        *store.ResultSet `json:"results,omitempty"`
	ExecutionError string           `json:"execution_error,omitempty"`
}

// QueryHandler turns natural-language questions into validated SQL.
type QueryHandler struct {
	orchestrator *pipeline.Orchestrator
	generator    *parallel.Generator
	registry     *schema.Registry
	warehouse    *store.Store
	queryDialect dialect.Dialect
	logger       *zap.Logger
}

// NewQueryHandler wires the query endpoint. generator and warehouse may be
// nil; generation and execution are then unavailable.
func NewQueryHandler(orchestrator *pipeline.Orchestrator, generator *parallel.Generator,
	registry *schema.Registry, warehouse *store.Store, d dialect.Dialect, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		orchestrator: orchestrator,
		generator:    generator,
		registry:     registry,
		warehouse:    warehouse,
		queryDialect: d,
		logger:       logger,
	}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.Query)
	mux.HandleFunc("GET /api/schema", h.Schema)
}

// Query handles POST /api/query.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	if req.Question == "" {
		_ = writeError(w, http.StatusBadRequest, "missing_question", "question is required")
		return
	}
	if check := sqlcheck.CheckQuestionForInjection("question", req.Question); check != nil {
		h.logger.Warn("injection pattern in question",
			zap.String("fingerprint", check.Fingerprint))
		_ = writeError(w, http.StatusBadRequest, "injection_detected",
			"question contains SQL injection patterns")
		return
	}

	ctx := r.Context()
	response := QueryResponse{Question: req.Question}

	initialQuery := req.SQLQuery
	if initialQuery == "" {
		if h.generator == nil || h.generator.ProviderCount() == 0 {
			_ = writeError(w, http.StatusServiceUnavailable, "no_providers",
				"no LLM providers are configured; supply sql_query directly")
			return
		}
		generation := h.generator.Generate(ctx, req.Question,
			h.registry.SchemaText(), h.registry.DictionaryText())
		response.Generation = generation

		if generation.Best == nil || !generation.Best.Valid() {
			_ = writeJSON(w, http.StatusBadGateway, response)
			return
		}
		initialQuery = generation.Best.Answer.SQLQuery
	}

	result := h.orchestrator.Process(ctx, req.Question, initialQuery)
	response.Pipeline = result

	validation := sqlcheck.ValidateAndNormalize(result.FinalQuery)
	if validation.Error != nil {
		h.logger.Warn("refined query failed safety validation",
			zap.String("request_id", result.RequestID),
			zap.Error(validation.Error))
		_ = writeError(w, http.StatusUnprocessableEntity, "unsafe_query", validation.Error.Error())
		return
	}
	response.FinalQuery = validation.NormalizedSQL
	h.logger.Debug("query refined",
		zap.String("request_id", result.RequestID),
		zap.String("sql", logging.TruncateQuery(response.FinalQuery)))

	if req.Execute {
		// The warehouse is always SQLite; DB2-targeted output is translated
		// back before it runs.
		execQuery := response.FinalQuery
		if h.queryDialect != dialect.SQLite {
			execQuery, _ = dialect.Translate(execQuery, dialect.SQLite)
		}
		if h.warehouse == nil {
			response.ExecutionError = "no warehouse configured"
		} else if rows, err := h.warehouse.Execute(ctx, execQuery); err != nil {
			response.ExecutionError = err.Error()
		} else {
			response.Results = rows
		}
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// SchemaResponse describes the tables available to generated queries.
type SchemaResponse struct {
	Tables     []schema.Table `json:"tables"`
	Dictionary string         `json:"dictionary"`
}

// Schema handles GET /api/schema.
func (h *QueryHandler) Schema(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Tables()
	tables := make([]schema.Table, 0, len(names))
	for _, name := range names {
		tables = append(tables, schema.Table{Name: name, Columns: h.registry.Columns(name)})
	}

	response := SchemaResponse{Tables: tables, Dictionary: h.registry.DictionaryText()}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode schema response", zap.Error(err))
	}
}
