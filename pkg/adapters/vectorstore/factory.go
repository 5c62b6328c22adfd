package vectorstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/config"
)

// New opens the index selected by cfg.Backend.
func New(cfg config.VectorStoreConfig, logger *zap.Logger) (Index, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryIndex(), nil
	case "sqlite":
		idx, err := OpenSQLite(cfg.Path, cfg.Collection, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite vector store: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.Backend)
	}
}
