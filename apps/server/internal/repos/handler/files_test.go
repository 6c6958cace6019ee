package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

const widgetsURL = "https://github.com/acme/widgets"

// ─── POST /api/repos/files ────────────────────────────────────────────────────

func TestFiles(t *testing.T) {
	t.Run("returns flattened files in listing order", func(t *testing.T) {
		ts := newTestServer(t)
		ts.seed()

		w := ts.do(http.MethodPost, "/api/repos/files", map[string]string{"url": widgetsURL})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		files := decode[[]repofiles.FileRecord](t, w)
		assert.Equal(t, []repofiles.FileRecord{
			{Path: "README.md", Content: "# widgets"},
			{Path: "src/a.js", Content: "export const a = 1"},
			{Path: "src/b.js", Content: "export const b = 2"},
		}, files)
	})

	t.Run("empty repository returns empty array", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(http.MethodPost, "/api/repos/files", map[string]string{"url": widgetsURL})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("missing url returns 400", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(http.MethodPost, "/api/repos/files", map[string]string{})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "URL is required", decode[errorBody](t, w).Message)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.doRaw(http.MethodPost, "/api/repos/files", `{"url":`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "URL is required", decode[errorBody](t, w).Message)
	})

	t.Run("invalid url returns 400", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(http.MethodPost, "/api/repos/files", map[string]string{"url": "https://example.com/acme"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decode[errorBody](t, w)
		assert.Equal(t, "Invalid repository URL", body.Message)
		assert.Contains(t, body.Error, "github.com/<owner>/<repo>")
	})

	t.Run("transport failure returns 502 and no files", func(t *testing.T) {
		ts := newTestServer(t)
		ts.seed()
		ts.host.FailOn("acme", "widgets", "src/b.js", errors.New("connection reset by peer"))

		w := ts.do(http.MethodPost, "/api/repos/files", map[string]string{"url": widgetsURL})
		require.Equal(t, http.StatusBadGateway, w.Code)
		body := decode[errorBody](t, w)
		assert.Equal(t, "Failed to fetch repository files", body.Message)
		assert.Contains(t, body.Error, "src/b.js")
	})

	t.Run("missing repository returns 404", func(t *testing.T) {
		ts := newTestServer(t)
		ts.host.FailOn("acme", "nope", "", repofiles.UpstreamError{StatusCode: http.StatusNotFound, Message: "Not Found"})

		w := ts.do(http.MethodPost, "/api/repos/files", map[string]string{"url": "https://github.com/acme/nope"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rate limit returns 429", func(t *testing.T) {
		ts := newTestServer(t)
		ts.seed()
		ts.host.FailOn("acme", "widgets", "README.md", repofiles.UpstreamError{
			Path: "README.md", StatusCode: http.StatusForbidden, Message: "API rate limit exceeded", RateLimit: true,
		})

		w := ts.do(http.MethodPost, "/api/repos/files", map[string]string{"url": widgetsURL})
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("other upstream status returns 502", func(t *testing.T) {
		ts := newTestServer(t)
		ts.seed()
		ts.host.FailOn("acme", "widgets", "src", repofiles.UpstreamError{Path: "src", StatusCode: http.StatusInternalServerError})

		w := ts.do(http.MethodPost, "/api/repos/files", map[string]string{"url": widgetsURL})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestFiles_WithValidation(t *testing.T) {
	t.Run("missing url rejected by schema", func(t *testing.T) {
		ts := newTestServerWithValidation(t)

		w := ts.do(http.MethodPost, "/api/repos/files", map[string]string{})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid request", decode[errorBody](t, w).Message)
	})

	t.Run("valid request passes", func(t *testing.T) {
		ts := newTestServerWithValidation(t)
		ts.seed()

		w := ts.do(http.MethodPost, "/api/repos/files", map[string]string{"url": widgetsURL})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, decode[[]repofiles.FileRecord](t, w), 3)
	})
}

// ─── POST /api/repos/bundle ───────────────────────────────────────────────────

func TestBundle(t *testing.T) {
	t.Run("renders files as text", func(t *testing.T) {
		ts := newTestServer(t)
		ts.seed()

		w := ts.do(http.MethodPost, "/api/repos/bundle", map[string]string{"url": widgetsURL})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t,
			"README.md:\n # widgets \nsrc/a.js:\n export const a = 1 \nsrc/b.js:\n export const b = 2 \n",
			w.Body.String())
	})

	t.Run("errors are json", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(http.MethodPost, "/api/repos/bundle", map[string]string{"url": "nope"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid repository URL", decode[errorBody](t, w).Message)
	})
}

// ─── GET /health ──────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
