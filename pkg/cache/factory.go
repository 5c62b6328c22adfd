package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/config"
)

// New builds the backend selected by cfg.Backend. The returned close function
// releases backend connections and is never nil.
func New(ctx context.Context, cfg *config.CacheConfig, logger *zap.Logger, opts ...Option) (Cache, func() error, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryCache(cfg.TTL(), cfg.MaxSize, opts...), func() error { return nil }, nil
	case "redis":
		client, err := NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Redis query cache",
			zap.String("host", cfg.Redis.Host),
			zap.Int("db", cfg.Redis.DB))
		return NewRedisCache(client, cfg.Redis.KeyPrefix, cfg.TTL(), cfg.MaxSize, logger, opts...), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
