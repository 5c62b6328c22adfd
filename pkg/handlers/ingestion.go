package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/models"
	"github.com/ekaya-inc/ekam-query/pkg/services"
)

const noFilesMessage = "No files were uploaded. Please select files to ingest."

// IngestionHandler accepts pre-chunked documents for the vector index.
type IngestionHandler struct {
	ingestion services.IngestionService
	logger    *zap.Logger
}

// NewIngestionHandler creates a new IngestionHandler.
func NewIngestionHandler(ingestion services.IngestionService, logger *zap.Logger) *IngestionHandler {
	return &IngestionHandler{ingestion: ingestion, logger: logger}
}

// RegisterRoutes registers the ingestion route on the given mux.
func (h *IngestionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ingest/documents", h.Ingest)
}

// Ingest handles POST /api/ingest/documents.
func (h *IngestionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Documents) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", noFilesMessage)
		return
	}

	result, err := h.ingestion.Ingest(r.Context(), req.Documents)
	if err != nil {
		h.logger.Error("Document ingestion failed",
			zap.Int("documents", len(req.Documents)),
			zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "ingestion_failed", "Failed to ingest documents.")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode ingestion response", zap.Error(err))
	}
}
