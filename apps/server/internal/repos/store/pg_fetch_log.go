package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

var _ repofiles.FetchRecorder = (*PGFetchLog)(nil)

// PGFetchLog implements repofiles.FetchRecorder backed by PostgreSQL.
type PGFetchLog struct {
	pool *pgxpool.Pool
}

// NewPGFetchLog creates a PGFetchLog with the given connection pool.
func NewPGFetchLog(pool *pgxpool.Pool) *PGFetchLog {
	return &PGFetchLog{pool: pool}
}

// Record inserts one fetch_events row. Re-recording a request id is a no-op.
func (l *PGFetchLog) Record(ctx context.Context, e repofiles.FetchEvent) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO fetch_events (request_id, url, owner, repo, file_count, duration_ms, error_kind, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (request_id) DO NOTHING`,
		e.RequestID, e.URL, nilIfEmpty(e.Owner), nilIfEmpty(e.Repo), e.FileCount, e.DurationMs,
		nilIfEmpty(e.ErrorKind), nilIfEmpty(e.Error), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fetch_event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *PGFetchLog) Recent(ctx context.Context, limit int) ([]repofiles.FetchEvent, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT request_id::text, url, COALESCE(owner, ''), COALESCE(repo, ''), file_count, duration_ms,
		        COALESCE(error_kind, ''), COALESCE(error, ''), created_at
		 FROM fetch_events
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query fetch_events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repofiles.FetchEvent, error) {
		var e repofiles.FetchEvent
		err := row.Scan(&e.RequestID, &e.URL, &e.Owner, &e.Repo, &e.FileCount, &e.DurationMs,
			&e.ErrorKind, &e.Error, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan fetch_events: %w", err)
	}
	return events, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
