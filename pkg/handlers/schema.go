package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/database"
	"github.com/ekaya-inc/ekam-query/pkg/services"
)

// SchemaHandler serves the live database schema.
type SchemaHandler struct {
	engine services.QueryEngine
	logger *zap.Logger
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(engine services.QueryEngine, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the schema route behind the per-request session middleware.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux, withSession func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/schema", withSession(h.GetSchema))
}

// GetSchema handles GET /api/schema.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	sess, ok := database.GetSession(r.Context())
	if !ok {
		h.logger.Error("No datasource session in request context")
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve schema")
		return
	}

	desc, err := h.engine.Schema(r.Context(), sess)
	if err != nil {
		h.logger.Error("Failed to retrieve schema", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve schema")
		return
	}
	if desc.TotalTables == 0 {
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "No tables found in the database.")
		return
	}

	if err := WriteJSON(w, http.StatusOK, desc); err != nil {
		h.logger.Error("Failed to encode schema response", zap.Error(err))
	}
}
