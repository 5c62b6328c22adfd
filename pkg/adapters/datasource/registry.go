package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/apperrors"
)

// AdapterInfo describes a registered adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "postgres", "sqlserver", "mysql", "sqlite"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	DefaultPort int    `json:"default_port"` // 0 for file-backed adapters
}

// ConnectionConfig is the adapter-neutral connection description.
type ConnectionConfig struct {
	Type     string
	Host     string
	Port     int // 0 selects the adapter default
	User     string
	Password string
	Database string
	SSLMode  string
	Path     string // sqlite database file
	PoolSize int32
}

// OpenFunc opens a pooled datasource for a connection config.
type OpenFunc func(ctx context.Context, cfg ConnectionConfig, logger *zap.Logger) (Datasource, error)

// AdapterRegistration contains info and the opener for one adapter.
type AdapterRegistration struct {
	Info AdapterInfo
	Open OpenFunc
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}

// Open resolves the adapter for cfg.Type and opens it.
func Open(ctx context.Context, cfg ConnectionConfig, logger *zap.Logger) (Datasource, error) {
	registryMu.RLock()
	reg, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDatasource, cfg.Type)
	}
	if cfg.Port == 0 {
		cfg.Port = reg.Info.DefaultPort
	}
	return reg.Open(ctx, cfg, logger)
}
