package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/config"
	"github.com/ekaya-inc/ekam-query/pkg/logging"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version"`
	Error    string `json:"error,omitempty"`
}

// WelcomeResponse is the body of GET /.
type WelcomeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthHandler handles the health probe and the root welcome endpoint.
type HealthHandler struct {
	cfg    *config.Config
	ds     datasource.Datasource
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Config, ds datasource.Datasource, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, ds: ds, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /{$}", h.Welcome)
}

// Health handles GET /api/health.
// Runs SELECT 1 on the datasource and reports 503 when it fails.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.ds.Ping(r.Context()); err != nil {
		h.logger.Warn("Health check failed", zap.String("error", logging.SanitizeError(err)))
		resp := HealthResponse{
			Status:   "error",
			Database: "disconnected",
			Version:  h.cfg.Version,
			Error:    logging.SanitizeError(err),
		}
		if err := WriteJSON(w, http.StatusServiceUnavailable, resp); err != nil {
			h.logger.Error("Failed to encode health response", zap.Error(err))
		}
		return
	}

	resp := HealthResponse{Status: "ok", Database: "connected", Version: h.cfg.Version}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Welcome handles GET /.
func (h *HealthHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	resp := WelcomeResponse{
		Status:  "ok",
		Message: fmt.Sprintf("Welcome to the %s API", h.cfg.ProjectName),
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode welcome response", zap.Error(err))
	}
}
