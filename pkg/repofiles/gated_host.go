package repofiles

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const instrName = "github.com/tilsley/repofetch/pkg/repofiles"

// gatedHost wraps a RepoHost so that every call holds a semaphore slot and
// is traced and counted.
type gatedHost struct {
	next   RepoHost
	sem    *semaphore.Weighted
	tracer trace.Tracer
	calls  metric.Int64Counter
}

var _ RepoHost = (*gatedHost)(nil)

func newGatedHost(next RepoHost, sem *semaphore.Weighted) *gatedHost {
	calls, _ := otel.Meter(instrName).Int64Counter("repofetch.remote.calls",
		metric.WithDescription("Number of remote repository API calls"))
	return &gatedHost{
		next:   next,
		sem:    sem,
		tracer: otel.Tracer(instrName),
		calls:  calls,
	}
}

func (h *gatedHost) ListDir(ctx context.Context, owner, repo, path string) ([]DirEntry, error) {
	ctx, done, err := h.begin(ctx, "repofiles.ListDir", owner, repo, path)
	if err != nil {
		return nil, err
	}
	entries, err := h.next.ListDir(ctx, owner, repo, path)
	done(err)
	return entries, err
}

func (h *gatedHost) GetContents(ctx context.Context, owner, repo, path string) (*RemoteContent, error) {
	ctx, done, err := h.begin(ctx, "repofiles.GetContents", owner, repo, path)
	if err != nil {
		return nil, err
	}
	rc, err := h.next.GetContents(ctx, owner, repo, path)
	done(err)
	return rc, err
}

// begin waits for a slot and opens a span. The returned func releases both.
func (h *gatedHost) begin(ctx context.Context, op, owner, repo, path string) (context.Context, func(error), error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return ctx, nil, err
	}
	attrs := []attribute.KeyValue{
		attribute.String("repo.owner", owner),
		attribute.String("repo.name", repo),
		attribute.String("repo.path", path),
	}
	ctx, span := h.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		h.sem.Release(1)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		h.calls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("outcome", outcome),
		))
		span.End()
	}, nil
}
