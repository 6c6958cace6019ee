package repofiles_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/repofetch/pkg/githost"
	"github.com/tilsley/repofetch/pkg/repofiles"
)

var widgets = repofiles.RepositoryIdentifier{Owner: "acme", Repo: "widgets"}

// ─── countingHost ─────────────────────────────────────────────────────────────

// countingHost delays every call and tracks the peak number of calls in flight.
type countingHost struct {
	next     repofiles.RepoHost
	delay    time.Duration
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (h *countingHost) enter() func() {
	n := h.inFlight.Add(1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(h.delay)
	return func() { h.inFlight.Add(-1) }
}

func (h *countingHost) ListDir(ctx context.Context, owner, repo, p string) ([]repofiles.DirEntry, error) {
	defer h.enter()()
	return h.next.ListDir(ctx, owner, repo, p)
}

func (h *countingHost) GetContents(ctx context.Context, owner, repo, p string) (*repofiles.RemoteContent, error) {
	defer h.enter()()
	return h.next.GetContents(ctx, owner, repo, p)
}

// slowHost delays GetContents for chosen paths so fetches complete out of
// listing order.
type slowHost struct {
	next   repofiles.RepoHost
	delays map[string]time.Duration
}

func (h *slowHost) ListDir(ctx context.Context, owner, repo, p string) ([]repofiles.DirEntry, error) {
	return h.next.ListDir(ctx, owner, repo, p)
}

func (h *slowHost) GetContents(ctx context.Context, owner, repo, p string) (*repofiles.RemoteContent, error) {
	if d, ok := h.delays[p]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return h.next.GetContents(ctx, owner, repo, p)
}

// ─── Walk ─────────────────────────────────────────────────────────────────────

func TestWalk_MirrorsListing(t *testing.T) {
	host := githost.NewInMem()
	host.SetFile("acme", "widgets", "README.md", "# widgets")
	host.SetFile("acme", "widgets", "src/a.js", "a")
	host.SetFile("acme", "widgets", "src/b.js", "b")

	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 4)
	root, err := w.Walk(context.Background(), widgets, "")
	require.NoError(t, err)

	assert.Equal(t, repofiles.Directory("", []repofiles.TreeEntry{
		repofiles.File("README.md", "# widgets"),
		repofiles.Directory("src", []repofiles.TreeEntry{
			repofiles.File("src/a.js", "a"),
			repofiles.File("src/b.js", "b"),
		}),
	}), root)
}

func TestWalk_Subdirectory(t *testing.T) {
	host := githost.NewInMem()
	host.SetFile("acme", "widgets", "README.md", "# widgets")
	host.SetFile("acme", "widgets", "src/a.js", "a")

	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 0)
	root, err := w.Walk(context.Background(), widgets, "src")
	require.NoError(t, err)

	assert.Equal(t, []repofiles.FileRecord{{Path: "src/a.js", Content: "a"}}, repofiles.Flatten(root))
}

func TestWalk_ExcludedFilesNeverRequested(t *testing.T) {
	host := githost.NewInMem()
	host.SetFile("acme", "widgets", "package.json", "{}")
	host.SetFile("acme", "widgets", "web/tsconfig.json", "{}")
	host.SetFile("acme", "widgets", "index.js", "main()")

	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 2)
	root, err := w.Walk(context.Background(), widgets, "")
	require.NoError(t, err)

	assert.Equal(t, []repofiles.FileRecord{{Path: "index.js", Content: "main()"}}, repofiles.Flatten(root))
	assert.Zero(t, host.ContentCalls("acme", "widgets", "package.json"))
	assert.Zero(t, host.ContentCalls("acme", "widgets", "web/tsconfig.json"))
	assert.Equal(t, 1, host.ContentCalls("acme", "widgets", "index.js"))
}

func TestWalk_NonFileObjectsFiltered(t *testing.T) {
	host := githost.NewInMem()
	host.SetEntry("acme", "widgets", "link", repofiles.TypeSymlink, "target")
	host.SetEntry("acme", "widgets", "vendor/lib", repofiles.TypeSubmodule, "")
	host.SetFile("acme", "widgets", "main.go", "package main")

	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 2)
	root, err := w.Walk(context.Background(), widgets, "")
	require.NoError(t, err)

	require.Len(t, root.Children, 3)
	assert.Equal(t, repofiles.Filtered("link"), root.Children[0])
	assert.Equal(t, repofiles.File("main.go", "package main"), root.Children[1])
	assert.Equal(t, repofiles.Directory("vendor", []repofiles.TreeEntry{
		repofiles.Filtered("vendor/lib"),
	}), root.Children[2])
	assert.Zero(t, host.ContentCalls("acme", "widgets", "link"))
}

func TestWalk_EmptyFilesFiltered(t *testing.T) {
	host := githost.NewInMem()
	host.SetFile("acme", "widgets", "empty.txt", "")
	host.SetFile("acme", "widgets", "full.txt", "x")

	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 2)
	root, err := w.Walk(context.Background(), widgets, "")
	require.NoError(t, err)

	assert.Equal(t, []repofiles.FileRecord{{Path: "full.txt", Content: "x"}}, repofiles.Flatten(root))
}

func TestWalk_FileFailureIsFatal(t *testing.T) {
	host := githost.NewInMem()
	host.SetFile("acme", "widgets", "src/a.js", "a")
	host.SetFile("acme", "widgets", "src/b.js", "b")
	host.FailOn("acme", "widgets", "src/b.js", errors.New("connection reset by peer"))

	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 2)
	root, err := w.Walk(context.Background(), widgets, "")
	require.Error(t, err)
	assert.Equal(t, repofiles.TreeEntry{}, root)

	var fe repofiles.FetchError
	require.True(t, errors.As(err, &fe), "expected FetchError, got %T", err)
	assert.Equal(t, "src/b.js", fe.Path)
	assert.ErrorContains(t, err, "connection reset by peer")
}

func TestWalk_ListingFailureIsFatal(t *testing.T) {
	host := githost.NewInMem()
	host.SetFile("acme", "widgets", "README.md", "r")
	host.SetFile("acme", "widgets", "docs/guide.md", "g")
	host.FailOn("acme", "widgets", "docs", errors.New("dial tcp: i/o timeout"))

	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 2)
	_, err := w.Walk(context.Background(), widgets, "")

	var fe repofiles.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "docs", fe.Path)
}

func TestWalk_UpstreamErrorPassesThrough(t *testing.T) {
	host := githost.NewInMem()
	host.SetFile("acme", "widgets", "a.txt", "a")
	host.FailOn("acme", "widgets", "a.txt", repofiles.UpstreamError{
		Path: "a.txt", StatusCode: http.StatusForbidden, Message: "API rate limit exceeded", RateLimit: true,
	})

	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 2)
	_, err := w.Walk(context.Background(), widgets, "")

	var ue repofiles.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.True(t, ue.RateLimited())
	assert.Equal(t, repofiles.ErrorKindUpstream, repofiles.ErrorKind(err))
}

func TestWalk_MissingRepository(t *testing.T) {
	host := githost.NewInMem()
	host.FailOn("acme", "nope", "", repofiles.UpstreamError{StatusCode: http.StatusNotFound, Message: "Not Found"})

	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 2)
	_, err := w.Walk(context.Background(), repofiles.RepositoryIdentifier{Owner: "acme", Repo: "nope"}, "")

	var ue repofiles.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.True(t, ue.NotFound())
}

func TestWalk_RespectsMaxInFlight(t *testing.T) {
	inner := githost.NewInMem()
	for d := range 4 {
		for f := range 8 {
			inner.SetFile("acme", "widgets", fmt.Sprintf("d%d/f%d.txt", d, f), "x")
		}
	}
	host := &countingHost{next: inner, delay: 5 * time.Millisecond}

	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 3)
	root, err := w.Walk(context.Background(), widgets, "")
	require.NoError(t, err)

	assert.Len(t, repofiles.Flatten(root), 32)
	assert.LessOrEqual(t, host.peak.Load(), int64(3))
	assert.Greater(t, host.peak.Load(), int64(1))
}

func TestWalk_OrderIndependentOfCompletion(t *testing.T) {
	inner := githost.NewInMem()
	inner.SetFile("acme", "widgets", "a.js", "a")
	inner.SetFile("acme", "widgets", "b.js", "b")
	inner.SetFile("acme", "widgets", "lib/x.js", "x")
	inner.SetFile("acme", "widgets", "lib/y.js", "y")
	inner.SetFile("acme", "widgets", "z.js", "z")
	host := &slowHost{next: inner, delays: map[string]time.Duration{
		"a.js":     120 * time.Millisecond,
		"lib/x.js": 60 * time.Millisecond,
	}}

	var (
		mu        sync.Mutex
		completed []string
	)
	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 8,
		repofiles.WithFileObserver(func(r repofiles.FileRecord) {
			mu.Lock()
			defer mu.Unlock()
			completed = append(completed, r.Path)
		}))
	root, err := w.Walk(context.Background(), widgets, "")
	require.NoError(t, err)

	paths := make([]string, 0, 5)
	for _, r := range repofiles.Flatten(root) {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"a.js", "b.js", "lib/x.js", "lib/y.js", "z.js"}, paths)

	// The delayed files finished last, so the order above comes from the listing.
	require.Len(t, completed, 5)
	assert.Equal(t, []string{"lib/x.js", "a.js"}, completed[3:])
}

func TestWalk_FileObserver(t *testing.T) {
	host := githost.NewInMem()
	host.SetFile("acme", "widgets", "a.txt", "a")
	host.SetFile("acme", "widgets", "b/c.txt", "c")
	host.SetFile("acme", "widgets", "package.json", "{}")

	var (
		mu   sync.Mutex
		seen []string
	)
	w := repofiles.NewWalker(host, repofiles.NewExclusionSet(), 2,
		repofiles.WithFileObserver(func(r repofiles.FileRecord) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, r.Path)
		}))
	_, err := w.Walk(context.Background(), widgets, "")
	require.NoError(t, err)

	sort.Strings(seen)
	assert.Equal(t, []string{"a.txt", "b/c.txt"}, seen)
}
