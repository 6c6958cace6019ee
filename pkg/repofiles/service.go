package repofiles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds the tunables of a Service.
type Config struct {
	// Host is the hosting domain accepted in URLs. Empty means DefaultHost.
	Host string
	// MaxInFlight caps concurrent remote calls across all requests.
	MaxInFlight int
	// Exclusions filters files by base name. The zero value is replaced by
	// NewExclusionSet().
	Exclusions *ExclusionSet
}

// Service orchestrates parse → walk → flatten for a repository URL.
// cache and recorder are optional.
type Service struct {
	parser   *URLParser
	walker   *Walker
	cache    ResultCache
	recorder FetchRecorder
	log      *slog.Logger
	now      func() time.Time

	filesFetched metric.Int64Counter
	duration     metric.Float64Histogram
}

// NewService creates a Service backed by host. cache and recorder may be nil.
func NewService(
	host RepoHost,
	cfg Config,
	cache ResultCache,
	recorder FetchRecorder,
	log *slog.Logger,
	opts ...WalkerOption,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	exclusions := NewExclusionSet()
	if cfg.Exclusions != nil {
		exclusions = *cfg.Exclusions
	}

	m := otel.Meter(instrName)
	filesFetched, _ := m.Int64Counter("repofetch.files.fetched",
		metric.WithDescription("Number of file records returned"))
	duration, _ := m.Float64Histogram("repofetch.fetch.duration",
		metric.WithDescription("Repository fetch duration in milliseconds"),
		metric.WithUnit("ms"))

	return &Service{
		parser:       NewURLParser(cfg.Host),
		walker:       NewWalker(host, exclusions, cfg.MaxInFlight, opts...),
		cache:        cache,
		recorder:     recorder,
		log:          log,
		now:          time.Now,
		filesFetched: filesFetched,
		duration:     duration,
	}
}

// FetchFiles returns the flattened file list of the repository at rawURL.
func (s *Service) FetchFiles(ctx context.Context, rawURL string) ([]FileRecord, error) {
	res, err := s.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

// Fetch parses rawURL, walks the whole repository and flattens it. Errors
// are InvalidURLError, FetchError or UpstreamError and are returned as-is.
// On success the cache, if any, is overwritten with the result; cache and
// fetch-log failures are logged and never fail the request.
func (s *Service) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	requestID := uuid.NewString()
	start := s.now()
	event := FetchEvent{RequestID: requestID, URL: rawURL, CreatedAt: start.UTC()}

	id, err := s.parser.Parse(rawURL)
	if err != nil {
		s.finish(ctx, event, start, err)
		return nil, err
	}
	event.Owner, event.Repo = id.Owner, id.Repo

	root, err := s.walker.Walk(ctx, id, "")
	if err != nil {
		s.log.Error("repository fetch failed",
			"requestId", requestID, "owner", id.Owner, "repo", id.Repo, "error", err)
		s.finish(ctx, event, start, err)
		return nil, err
	}

	res := &Result{
		RequestID:  requestID,
		Repository: id,
		FetchedAt:  s.now().UTC(),
		Files:      Flatten(root),
	}
	event.FileCount = len(res.Files)
	s.finish(ctx, event, start, nil)

	if s.cache != nil {
		if err := s.cache.Store(ctx, *res); err != nil {
			s.log.Warn("failed to cache fetch result", "requestId", requestID, "error", err)
		}
	}

	s.log.Info("repository fetched",
		"requestId", requestID, "owner", id.Owner, "repo", id.Repo, "files", len(res.Files))
	return res, nil
}

// Last returns the most recent cached result, or nil when there is none or
// no cache is configured.
func (s *Service) Last(ctx context.Context) (*Result, error) {
	if s.cache == nil {
		return nil, nil //nolint:nilnil // nil result means nothing cached
	}
	res, err := s.cache.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("read last result: %w", err)
	}
	return res, nil
}

// LastFor returns the most recent cached result for id.
func (s *Service) LastFor(ctx context.Context, id RepositoryIdentifier) (*Result, error) {
	if s.cache == nil {
		return nil, nil //nolint:nilnil // nil result means nothing cached
	}
	res, err := s.cache.LastFor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read last result for %s: %w", id, err)
	}
	return res, nil
}

// RecentFetches returns up to limit fetch log entries, newest first.
func (s *Service) RecentFetches(ctx context.Context, limit int) ([]FetchEvent, error) {
	if s.recorder == nil {
		return []FetchEvent{}, nil
	}
	events, err := s.recorder.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent fetches: %w", err)
	}
	return events, nil
}

func (s *Service) finish(ctx context.Context, event FetchEvent, start time.Time, err error) {
	elapsed := s.now().Sub(start)
	event.DurationMs = elapsed.Milliseconds()
	event.ErrorKind = ErrorKind(err)
	if err != nil {
		event.Error = err.Error()
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome(event)))
	s.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	s.filesFetched.Add(ctx, int64(event.FileCount), attrs)

	if s.recorder == nil {
		return
	}
	// The request context may already be cancelled; the log entry should
	// still be written.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.Record(recCtx, event); err != nil {
		s.log.Warn("failed to record fetch", "requestId", event.RequestID, "error", err)
	}
}

func outcome(e FetchEvent) string {
	if e.Succeeded() {
		return "success"
	}
	return e.ErrorKind
}
