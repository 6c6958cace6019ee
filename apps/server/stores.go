package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tilsley/repofetch/apps/server/internal/platform/config"
	"github.com/tilsley/repofetch/apps/server/internal/platform/postgres"
	"github.com/tilsley/repofetch/apps/server/internal/repos/store"
	"github.com/tilsley/repofetch/apps/server/internal/repos/store/pgmigrations"
	"github.com/tilsley/repofetch/pkg/repofiles"
)

const resultTTL = 24 * time.Hour

// storeSet bundles the optional persistence the service runs with.
type storeSet struct {
	cache    repofiles.ResultCache
	recorder repofiles.FetchRecorder
	closers  []func()
}

// openStores picks the result cache and fetch log from cfg:
//
//   - result cache: Redis when REDIS_ADDR is set, otherwise an in-process LRU
//   - fetch log: Postgres when POSTGRES_URL is set, otherwise Redis when
//     REDIS_ADDR is set, otherwise none
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storeSet, error) {
	s := &storeSet{}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		s.closers = append(s.closers, func() { _ = rdb.Close() })
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		s.cache = store.NewRedisResultCache(rdb, resultTTL)
		log.Info("using redis result cache", "addr", cfg.RedisAddr)
	} else {
		mem, err := store.NewMemoryResultCache(cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = mem
		log.Info("using in-memory result cache", "size", cfg.CacheSize)
	}

	switch {
	case cfg.PostgresURL != "":
		pool, err := postgres.New(ctx, cfg.PostgresURL, pgmigrations.FS)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.recorder = store.NewPGFetchLog(pool)
		log.Info("using postgres fetch log")
	case rdb != nil:
		s.recorder = store.NewRedisFetchLog(rdb, store.DefaultFetchLogSize)
		log.Info("using redis fetch log", "size", store.DefaultFetchLogSize)
	default:
		log.Info("fetch log disabled")
	}
	return s, nil
}

// Close releases connections in reverse order of opening.
func (s *storeSet) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// warmup fetches url once at startup so /api/repos/files/last has content.
func warmup(svc *repofiles.Service, url string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res, err := svc.Fetch(ctx, url)
	if err != nil {
		log.Warn("warmup fetch failed", "url", url, "error", err)
		return
	}
	log.Info("warmup fetch complete", "url", url, "files", len(res.Files))
}
