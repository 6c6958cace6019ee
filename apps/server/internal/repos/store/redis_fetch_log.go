package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

// DefaultFetchLogSize caps the Redis fetch log.
const DefaultFetchLogSize = 500

var _ repofiles.FetchRecorder = (*RedisFetchLog)(nil)

// RedisFetchLog keeps the newest fetch events in a capped Redis list. It is
// used when Redis is configured but Postgres is not.
type RedisFetchLog struct {
	rdb  *redis.Client
	size int64
}

// NewRedisFetchLog creates a RedisFetchLog holding at most size events.
func NewRedisFetchLog(rdb *redis.Client, size int) *RedisFetchLog {
	if size <= 0 {
		size = DefaultFetchLogSize
	}
	return &RedisFetchLog{rdb: rdb, size: int64(size)}
}

// Record prepends event and trims the list to its cap.
func (l *RedisFetchLog) Record(ctx context.Context, event repofiles.FetchEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal fetch event: %w", err)
	}
	_, err = l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, redisFetchLogKey, data)
		p.LTrim(ctx, redisFetchLogKey, 0, l.size-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record fetch %s: %w", event.RequestID, err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *RedisFetchLog) Recent(ctx context.Context, limit int) ([]repofiles.FetchEvent, error) {
	if limit <= 0 {
		return []repofiles.FetchEvent{}, nil
	}
	vals, err := l.rdb.LRange(ctx, redisFetchLogKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list fetch events: %w", err)
	}
	out := make([]repofiles.FetchEvent, 0, len(vals))
	for _, v := range vals {
		var e repofiles.FetchEvent
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("unmarshal fetch event: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
