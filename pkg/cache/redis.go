package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/config"
	"github.com/ekaya-inc/ekam-query/pkg/models"
)

// NewRedisClient creates a Redis client and verifies it with a ping.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("redis host is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.ResolveHost(cfg.Host), cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// redisEntry is the stored payload. The timestamp drives expiry and eviction
// so both follow the injected clock.
type redisEntry struct {
	Timestamp time.Time             `json:"timestamp"`
	Response  *models.QueryResponse `json:"response"`
	IntCells  [][2]int              `json:"int_cells,omitempty"`
}

// RedisCache shares cached responses across server replicas. Entries live
// under prefix+sha256(query); a sorted set scored by write time tracks
// eviction order. Redis failures are logged and treated as misses.
type RedisCache struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	maxSize int
	clock   Clock
	logger  *zap.Logger
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a cache backend on an existing client.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration, maxSize int, logger *zap.Logger, opts ...Option) *RedisCache {
	o := buildOptions(opts)
	return &RedisCache{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		maxSize: maxSize,
		clock:   o.clock,
		logger:  logger.Named("cache"),
	}
}

func (c *RedisCache) entryKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *RedisCache) indexKey() string {
	return c.prefix + "index"
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (*models.QueryResponse, bool) {
	k := c.entryKey(key)

	raw, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Cache read failed", zap.Error(err))
		return nil, false
	}

	e, err := decodeEntry(raw)
	if err != nil || e.Response == nil {
		c.logger.Warn("Discarding unreadable cache entry", zap.String("key", k), zap.Error(err))
		c.remove(ctx, k)
		return nil, false
	}

	if expired(c.clock(), e.Timestamp, c.ttl) {
		c.remove(ctx, k)
		return nil, false
	}
	return e.Response, true
}

// newEntry records which row cells hold integers, since JSON alone cannot
// tell 3 from 3.0.
func newEntry(now time.Time, resp *models.QueryResponse) redisEntry {
	e := redisEntry{Timestamp: now, Response: resp}
	if resp == nil || resp.SQLResult == nil {
		return e
	}
	for r, row := range resp.SQLResult.Rows {
		for c, v := range row {
			switch v.(type) {
			case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
				e.IntCells = append(e.IntCells, [2]int{r, c})
			}
		}
	}
	return e
}

// decodeEntry restores a stored payload. Numbers are decoded with UseNumber
// so integers beyond 2^53 come back exactly.
func decodeEntry(raw []byte) (redisEntry, error) {
	var e redisEntry
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&e); err != nil {
		return redisEntry{}, err
	}
	if e.Response == nil || e.Response.SQLResult == nil {
		return e, nil
	}

	rows := e.Response.SQLResult.Rows
	ints := make(map[[2]int]bool, len(e.IntCells))
	for _, cell := range e.IntCells {
		ints[cell] = true
	}
	for r, row := range rows {
		for c, v := range row {
			n, ok := v.(json.Number)
			if !ok {
				continue
			}
			row[c] = restoreNumber(n, ints[[2]int{r, c}])
		}
	}
	return e, nil
}

func restoreNumber(n json.Number, integer bool) any {
	if integer {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return u
		}
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, resp *models.QueryResponse) {
	k := c.entryKey(key)
	now := c.clock()

	payload, err := json.Marshal(newEntry(now, resp))
	if err != nil {
		c.logger.Warn("Cache entry not serializable", zap.Error(err))
		return
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, k, payload, c.ttl)
		pipe.ZAdd(ctx, c.indexKey(), redis.Z{Score: float64(now.UnixNano()), Member: k})
		return nil
	})
	if err != nil {
		c.logger.Warn("Cache write failed", zap.Error(err))
		return
	}

	size, err := c.client.ZCard(ctx, c.indexKey()).Result()
	if err != nil {
		c.logger.Warn("Cache size check failed", zap.Error(err))
		return
	}
	if size <= int64(c.maxSize) {
		return
	}

	popped, err := c.client.ZPopMin(ctx, c.indexKey(), 1).Result()
	if err != nil {
		c.logger.Warn("Cache eviction failed", zap.Error(err))
		return
	}
	for _, z := range popped {
		if member, ok := z.Member.(string); ok {
			if err := c.client.Del(ctx, member).Err(); err != nil {
				c.logger.Warn("Cache eviction delete failed", zap.Error(err))
			}
		}
	}
}

// Len implements Cache.
func (c *RedisCache) Len(ctx context.Context) int {
	n, err := c.client.ZCard(ctx, c.indexKey()).Result()
	if err != nil {
		c.logger.Warn("Cache size check failed", zap.Error(err))
		return 0
	}
	return int(n)
}

func (c *RedisCache) remove(ctx context.Context, k string) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.ZRem(ctx, c.indexKey(), k)
		return nil
	})
	if err != nil {
		c.logger.Warn("Cache delete failed", zap.Error(err))
	}
}
