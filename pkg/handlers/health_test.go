package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/config"
	"github.com/ekaya-inc/ekam-query/pkg/testhelpers"
)

func newHealthMux(t *testing.T) (*http.ServeMux, func() error) {
	t.Helper()
	ds := testhelpers.NewEmployeesDatasource(t)
	cfg := &config.Config{ProjectName: "Ekam-Query", Version: "1.4.0"}

	mux := http.NewServeMux()
	NewHealthHandler(cfg, ds, zap.NewNop()).RegisterRoutes(mux)
	return mux, ds.Close
}

func TestHealthHandler_Connected(t *testing.T) {
	mux, _ := newHealthMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"connected","version":"1.4.0"}`, rec.Body.String())
}

func TestHealthHandler_Disconnected(t *testing.T) {
	mux, closeDB := newHealthMux(t)
	require.NoError(t, closeDB())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "disconnected", resp.Database)
	assert.NotEmpty(t, resp.Error)
}

func TestHealthHandler_Welcome(t *testing.T) {
	mux, _ := newHealthMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"Welcome to the Ekam-Query API"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
