package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/database"
	"github.com/ekaya-inc/ekam-query/pkg/logging"
	"github.com/ekaya-inc/ekam-query/pkg/models"
	"github.com/ekaya-inc/ekam-query/pkg/services"
)

// queryFailedMessage is the only detail a client sees when the engine fails.
const queryFailedMessage = "An internal error occurred while processing the query."

// QueryHandler answers natural-language questions.
type QueryHandler struct {
	engine services.QueryEngine
	logger *zap.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(engine services.QueryEngine, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the query route behind the per-request session middleware.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux, withSession func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/query", withSession(h.Query))
}

// Query handles POST /api/query.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Query cannot be empty.")
		return
	}

	sess, ok := database.GetSession(r.Context())
	if !ok {
		h.logger.Error("No datasource session in request context")
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", queryFailedMessage)
		return
	}

	resp, err := h.engine.Ask(r.Context(), sess, req.Query)
	if err != nil {
		h.logger.Error("Query failed",
			zap.String("query", logging.SanitizeQuery(req.Query)),
			zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", queryFailedMessage)
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}
