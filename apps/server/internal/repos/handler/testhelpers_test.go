package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/repofetch/apps/server/internal/platform/validation"
	"github.com/tilsley/repofetch/apps/server/internal/repos/handler"
	"github.com/tilsley/repofetch/apps/server/internal/repos/store"
	"github.com/tilsley/repofetch/pkg/githost"
	"github.com/tilsley/repofetch/pkg/repofiles"
	"github.com/tilsley/repofetch/schemas"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Compile-time interface compliance checks.
var _ repofiles.FetchRecorder = (*memRecorder)(nil)

// ─── memRecorder ──────────────────────────────────────────────────────────────

type memRecorder struct {
	mu        sync.Mutex
	events    []repofiles.FetchEvent
	errRecent error
}

func (r *memRecorder) Record(_ context.Context, e repofiles.FetchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memRecorder) Recent(_ context.Context, limit int) ([]repofiles.FetchEvent, error) {
	if r.errRecent != nil {
		return nil, r.errRecent
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repofiles.FetchEvent, 0, limit)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}

// ─── Test server builder ──────────────────────────────────────────────────────

type testServer struct {
	router   *gin.Engine
	host     *githost.InMem
	cache    *store.MemoryResultCache
	recorder *memRecorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return buildTestServer(t, false)
}

func newTestServerWithValidation(t *testing.T) *testServer {
	t.Helper()
	return buildTestServer(t, true)
}

func buildTestServer(t *testing.T, validate bool) *testServer {
	t.Helper()
	cache, err := store.NewMemoryResultCache(8)
	require.NoError(t, err)

	ts := &testServer{
		host:     githost.NewInMem(),
		cache:    cache,
		recorder: &memRecorder{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := repofiles.NewService(ts.host, repofiles.Config{MaxInFlight: 4}, ts.cache, ts.recorder, log)

	r := gin.New()
	if validate {
		mw, err := validation.New(schemas.OpenAPISpec)
		require.NoError(t, err)
		r.Use(mw)
	}
	handler.RegisterRoutes(r, svc, log)
	ts.router = r
	return ts
}

// seed populates acme/widgets with a README and two files under src/.
func (ts *testServer) seed() {
	ts.host.SetFile("acme", "widgets", "README.md", "# widgets")
	ts.host.SetFile("acme", "widgets", "package.json", `{"name":"widgets"}`)
	ts.host.SetFile("acme", "widgets", "src/a.js", "export const a = 1")
	ts.host.SetFile("acme", "widgets", "src/b.js", "export const b = 2")
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) doRaw(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
