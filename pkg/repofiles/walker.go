package repofiles

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxInFlight caps concurrent remote calls when no limit is configured.
const DefaultMaxInFlight = 8

// Walker recursively lists a repository and fetches its files concurrently.
//
// Every directory's children are visited in parallel, but each remote call
// must hold one of maxInFlight semaphore slots. A directory never holds a
// slot while it waits on its children, so the cap bounds concurrency without
// risking deadlock on deep trees.
type Walker struct {
	host       RepoHost
	fetcher    *ContentFetcher
	exclusions ExclusionSet
	onFile     func(FileRecord)
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithFileObserver registers fn to be called as each file record is fetched.
// fn is called from multiple goroutines.
func WithFileObserver(fn func(FileRecord)) WalkerOption {
	return func(w *Walker) { w.onFile = fn }
}

// NewWalker creates a Walker. maxInFlight <= 0 selects DefaultMaxInFlight.
func NewWalker(host RepoHost, exclusions ExclusionSet, maxInFlight int, opts ...WalkerOption) *Walker {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	gated := newGatedHost(host, semaphore.NewWeighted(int64(maxInFlight)))
	w := &Walker{
		host:       gated,
		fetcher:    NewContentFetcher(gated, exclusions),
		exclusions: exclusions,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk lists dir ("" for the repository root) and returns a Directory entry
// whose children mirror the remote listing order. The first failure anywhere
// in the subtree cancels the remaining work and is returned; no partial tree
// is ever returned alongside an error.
func (w *Walker) Walk(ctx context.Context, id RepositoryIdentifier, dir string) (TreeEntry, error) {
	entries, err := w.host.ListDir(ctx, id.Owner, id.Repo, dir)
	if err != nil {
		return TreeEntry{}, asFetchError(dir, err)
	}

	// One slot per child, written only by the goroutine that owns it and
	// read only after Wait.
	children := make([]TreeEntry, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		g.Go(func() error {
			child, err := w.visit(gctx, id, e)
			if err != nil {
				return err
			}
			children[i] = child
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TreeEntry{}, err
	}
	return Directory(dir, children), nil
}

func (w *Walker) visit(ctx context.Context, id RepositoryIdentifier, e DirEntry) (TreeEntry, error) {
	switch e.Type {
	case TypeDir:
		return w.Walk(ctx, id, e.Path)
	case TypeFile:
		// The listing already carries the name, so excluded files are never
		// requested.
		if w.exclusions.Excludes(e.Path) {
			return Filtered(e.Path), nil
		}
		entry, err := w.fetcher.Fetch(ctx, id, e.Path)
		if err != nil {
			return TreeEntry{}, err
		}
		if entry.Kind == KindFile && w.onFile != nil {
			w.onFile(FileRecord{Path: entry.Path, Content: entry.Content})
		}
		return entry, nil
	default:
		return Filtered(e.Path), nil
	}
}
