// Package redis caches the parsed lot map so repeated pipeline runs skip
// re-reading the planning workbook.
package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/leohfurlan/reometro-score/internal/config"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

const lotMapKey = "lotmap"

// LotMapCache stores the lot map snapshot under a single JSON key with a
// TTL.  Every operation is best-effort: a cache failure degrades to a
// workbook re-read, never to a run failure.
type LotMapCache struct {
	client *goredis.Client
	ttl    time.Duration
	prefix string
	log    logging.Logger
}

// NewLotMapCache connects to Redis and verifies the connection.
func NewLotMapCache(cfg config.RedisConfig, log logging.Logger) (*LotMapCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "redis connection failed").
			WithDetail(cfg.Addr)
	}

	return &LotMapCache{
		client: client,
		ttl:    cfg.DefaultTTL,
		prefix: cfg.KeyPrefix,
		log:    log,
	}, nil
}

// NewLotMapCacheWithClient wraps an existing client (for testing).
func NewLotMapCacheWithClient(client *goredis.Client, ttl time.Duration, prefix string, log logging.Logger) *LotMapCache {
	return &LotMapCache{client: client, ttl: ttl, prefix: prefix, log: log}
}

func (c *LotMapCache) key() string {
	return c.prefix + ":" + lotMapKey
}

// Get returns the cached lot map, or false on a miss or any cache error.
func (c *LotMapCache) Get(ctx context.Context) (map[string]reference.LotEntry, bool) {
	data, err := c.client.Get(ctx, c.key()).Bytes()
	if err == goredis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("lot map cache read failed", logging.Err(err))
		return nil, false
	}
	var lots map[string]reference.LotEntry
	if err := json.Unmarshal(data, &lots); err != nil {
		c.log.Warn("discarding corrupt lot map cache entry", logging.Err(err))
		c.Invalidate(ctx)
		return nil, false
	}
	return lots, true
}

// Set stores the lot map with the configured TTL.  Failures are logged and
// swallowed.
func (c *LotMapCache) Set(ctx context.Context, lots map[string]reference.LotEntry) {
	data, err := json.Marshal(lots)
	if err != nil {
		c.log.Warn("lot map cache encode failed", logging.Err(err))
		return
	}
	if err := c.client.Set(ctx, c.key(), data, c.ttl).Err(); err != nil {
		c.log.Warn("lot map cache write failed", logging.Err(err))
	}
}

// Invalidate drops the cached lot map, forcing the next run to re-read the
// workbook.
func (c *LotMapCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, c.key()).Err(); err != nil {
		c.log.Warn("lot map cache invalidation failed", logging.Err(err))
	}
}

// Close releases the client.
func (c *LotMapCache) Close() error {
	return c.client.Close()
}
