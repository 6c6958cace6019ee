package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

const (
	redisLastKey     = "repofetch:last"
	redisResultKey   = "repofetch:result:"
	redisFetchLogKey = "repofetch:fetches"
)

// Compile-time check: *RedisResultCache implements repofiles.ResultCache.
var _ repofiles.ResultCache = (*RedisResultCache)(nil)

// RedisResultCache keeps the latest result overall and per repository in
// Redis so that several server replicas share it.
type RedisResultCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisResultCache creates a RedisResultCache. ttl == 0 keeps entries
// until overwritten.
func NewRedisResultCache(rdb *redis.Client, ttl time.Duration) *RedisResultCache {
	return &RedisResultCache{rdb: rdb, ttl: ttl}
}

// Store overwrites both the global and the per-repository entry.
func (c *RedisResultCache) Store(ctx context.Context, res repofiles.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, redisLastKey, data, c.ttl)
		p.Set(ctx, redisResultKey+res.Repository.String(), data, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store result for %s: %w", res.Repository, err)
	}
	return nil
}

// Last returns the most recently stored result, or nil.
func (c *RedisResultCache) Last(ctx context.Context) (*repofiles.Result, error) {
	return c.get(ctx, redisLastKey)
}

// LastFor returns the most recently stored result for id, or nil.
func (c *RedisResultCache) LastFor(ctx context.Context, id repofiles.RepositoryIdentifier) (*repofiles.Result, error) {
	return c.get(ctx, redisResultKey+id.String())
}

func (c *RedisResultCache) get(ctx context.Context, key string) (*repofiles.Result, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil //nolint:nilnil // caller checks nil value to detect "not cached"
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	var res repofiles.Result
	if err := json.Unmarshal(val, &res); err != nil {
		return nil, fmt.Errorf("unmarshal %q: %w", key, err)
	}
	return &res, nil
}
