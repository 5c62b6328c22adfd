package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all configuration for ekam-query.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	ProjectName string `yaml:"project_name" env:"PROJECT_NAME" env-default:"Ekam-Query"`
	Version     string `yaml:"-"` // Set at load time, not from config

	Server     ServerConfig      `yaml:"server"`
	Datasource DatasourceConfig  `yaml:"datasource"`
	Models     ModelsConfig      `yaml:"models"`
	Vector     VectorStoreConfig `yaml:"vector_store"`
	Cache      CacheConfig       `yaml:"cache"`
	Ingestion  IngestionConfig   `yaml:"ingestion"`
	SQLGuard   SQLGuardConfig    `yaml:"sql_guard"`
	MCP        MCPConfig         `yaml:"mcp"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	BindAddr       string        `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port           string        `yaml:"port" env:"PORT" env-default:"8000"`
	Env            string        `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"120s"`
	// CORSOriginsStr is a comma-separated list of allowed origins.
	CORSOriginsStr string   `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"http://localhost,http://localhost:5173,http://127.0.0.1:5173"`
	CORSOrigins    []string `yaml:"-"`
}

// DatasourceConfig describes the relational database being queried.
type DatasourceConfig struct {
	// Type selects the registered adapter: postgres, sqlserver, mysql or sqlite.
	Type     string `yaml:"type" env:"DB_TYPE" env-default:"postgres"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"0"` // 0 uses the adapter default
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DB_NAME" env-default:"employees"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	// Path is the database file for the sqlite adapter.
	Path     string `yaml:"path" env:"DB_PATH" env-default:"ekam.db"`
	PoolSize int32  `yaml:"pool_size" env:"DATABASE_POOL_SIZE" env-default:"10"`
	// ReadOnlySessions opens every request session as a read-only transaction.
	ReadOnlySessions bool `yaml:"read_only_sessions" env:"DB_READ_ONLY_SESSIONS" env-default:"false"`
}

// ModelsConfig selects the model providers used for generation, scoring and embeddings.
type ModelsConfig struct {
	// Provider for chat models: openai, anthropic or gemini.
	Provider        string `yaml:"provider" env:"MODEL_PROVIDER" env-default:"openai"`
	BaseURL         string `yaml:"base_url" env:"MODEL_BASE_URL" env-default:"https://api.openai.com/v1"`
	APIKey          string `yaml:"-" env:"MODEL_API_KEY"` // Secret - not in YAML
	SQLModel        string `yaml:"sql_model" env:"SQL_MODEL" env-default:"gpt-4o-mini"`
	ClassifierModel string `yaml:"classifier_model" env:"CLASSIFIER_MODEL" env-default:"gpt-4o-mini"`

	// Provider for embeddings: openai or gemini.
	EmbeddingProvider string `yaml:"embedding_provider" env:"EMBEDDING_PROVIDER" env-default:"openai"`
	EmbeddingBaseURL  string `yaml:"embedding_base_url" env:"EMBEDDING_BASE_URL" env-default:""` // Defaults to BaseURL
	EmbeddingAPIKey   string `yaml:"-" env:"EMBEDDING_API_KEY"`                                 // Defaults to APIKey
	EmbeddingModel    string `yaml:"embedding_model" env:"EMBEDDING_MODEL" env-default:"all-MiniLM-L6-v2"`

	// MaxConcurrent bounds in-flight model calls across all requests.
	MaxConcurrent int `yaml:"max_concurrent" env:"MODEL_MAX_CONCURRENT" env-default:"8"`
}

// VectorStoreConfig configures the document chunk index.
type VectorStoreConfig struct {
	// Backend is memory or sqlite.
	Backend    string `yaml:"backend" env:"VECTOR_BACKEND" env-default:"sqlite"`
	Path       string `yaml:"path" env:"VECTOR_DB_PATH" env-default:"vectordb/chunks.db"`
	Collection string `yaml:"collection" env:"VECTOR_COLLECTION" env-default:"employee_documents"`
	TopK       int    `yaml:"top_k" env:"VECTOR_TOP_K" env-default:"5"`
}

// CacheConfig configures the query response cache.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS" env-default:"300"`
	MaxSize    int `yaml:"max_size" env:"CACHE_MAX_SIZE" env-default:"1000"`
	// Backend is memory or redis.
	Backend string      `yaml:"backend" env:"CACHE_BACKEND" env-default:"memory"`
	Redis   RedisConfig `yaml:"redis"`
}

// TTL returns the cache TTL as a duration.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RedisConfig holds Redis connection settings for the shared cache backend.
type RedisConfig struct {
	Host      string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port      int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password  string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB        int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX" env-default:"ekam:query:"`
}

// IngestionConfig configures document ingestion.
type IngestionConfig struct {
	EmbeddingBatchSize int `yaml:"embedding_batch_size" env:"EMBEDDING_BATCH_SIZE" env-default:"32"`
}

// SQLGuardConfig configures generated SQL validation.
type SQLGuardConfig struct {
	// Strict adds multi-statement, modifying-CTE and statement-type checks on top of the SELECT prefix gate.
	Strict bool `yaml:"strict" env:"SQL_GUARD_STRICT" env-default:"false"`
}

// MCPConfig configures the MCP tool endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// A .env file in the working directory is loaded into the environment first.
// When config.yaml does not exist, configuration comes from the environment only.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit YAML path.
func LoadFile(path, version string) (*Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.parseComplexFields()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() {
	c.Server.CORSOrigins = splitList(c.Server.CORSOriginsStr)

	if c.Models.EmbeddingBaseURL == "" {
		c.Models.EmbeddingBaseURL = c.Models.BaseURL
	}
	if c.Models.EmbeddingAPIKey == "" {
		c.Models.EmbeddingAPIKey = c.Models.APIKey
	}
}

// validate checks enumerated fields. Numeric settings are taken as given.
func (c *Config) validate() error {
	switch c.Vector.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("vector_store.backend must be memory or sqlite, got %q", c.Vector.Backend)
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Redis.Host == "" {
			return fmt.Errorf("cache.redis.host is required when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}

	return nil
}

// IsLocal reports whether the server runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.Server.Env == "local" || c.Server.Env == "dev"
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
