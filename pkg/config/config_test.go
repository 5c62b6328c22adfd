package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp switches into a fresh directory so Load() sees only the files the test writes.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() {
		_ = os.Chdir(originalDir)
	})
	return tmpDir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "Ekam-Query", cfg.ProjectName)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 1000, cfg.Cache.MaxSize)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 32, cfg.Ingestion.EmbeddingBatchSize)
	assert.Equal(t, "all-MiniLM-L6-v2", cfg.Models.EmbeddingModel)
	assert.Equal(t, int32(10), cfg.Datasource.PoolSize)
	assert.Equal(t, 5, cfg.Vector.TopK)
	assert.False(t, cfg.SQLGuard.Strict)
	assert.Equal(t, []string{
		"http://localhost",
		"http://localhost:5173",
		"http://127.0.0.1:5173",
	}, cfg.Server.CORSOrigins)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := chdirTemp(t)

	yamlContent := `
project_name: "Acme Query"
server:
  port: "9000"
  env: "test"
datasource:
  type: "mysql"
  host: "db.example.com"
  database: "hr"
cache:
  ttl_seconds: 60
  max_size: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlContent), 0o644))

	t.Setenv("PORT", "9100")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("CACHE_MAX_SIZE", "25")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "Acme Query", cfg.ProjectName)
	assert.Equal(t, "9100", cfg.Server.Port, "env must override yaml")
	assert.Equal(t, "test", cfg.Server.Env)
	assert.Equal(t, "mysql", cfg.Datasource.Type)
	assert.Equal(t, "db.example.com", cfg.Datasource.Host)
	assert.Equal(t, "s3cret", cfg.Datasource.Password)
	assert.Equal(t, 60, cfg.Cache.TTLSeconds)
	assert.Equal(t, 25, cfg.Cache.MaxSize)
}

func TestLoad_EmbeddingEndpointFallsBackToChatEndpoint(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MODEL_BASE_URL", "http://llm.internal/v1")
	t.Setenv("MODEL_API_KEY", "key-123")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "http://llm.internal/v1", cfg.Models.EmbeddingBaseURL)
	assert.Equal(t, "key-123", cfg.Models.EmbeddingAPIKey)
}

func TestLoad_InvalidBackends(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown vector backend", env: map[string]string{"VECTOR_BACKEND": "chroma"}},
		{name: "unknown cache backend", env: map[string]string{"CACHE_BACKEND": "memcached"}},
		{name: "redis without host", env: map[string]string{"CACHE_BACKEND": "redis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("dev")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestResolveHost(t *testing.T) {
	tests := []struct {
		host          string
		containerized bool
		want          string
	}{
		{host: "localhost", containerized: false, want: "localhost"},
		{host: "localhost", containerized: true, want: "host.docker.internal"},
		{host: "127.0.0.1", containerized: true, want: "host.docker.internal"},
		{host: "::1", containerized: true, want: "host.docker.internal"},
		{host: "db.example.com", containerized: true, want: "db.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveHost(tt.host, tt.containerized))
		})
	}
}
