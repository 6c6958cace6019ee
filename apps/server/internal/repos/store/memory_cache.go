package store

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

var _ repofiles.ResultCache = (*MemoryResultCache)(nil)

// MemoryResultCache is a process-local ResultCache. Per-repository results
// are held in an LRU so memory stays bounded however many repositories are
// fetched.
type MemoryResultCache struct {
	byRepo *lru.Cache[repofiles.RepositoryIdentifier, repofiles.Result]

	mu   sync.RWMutex
	last *repofiles.Result
}

// NewMemoryResultCache creates a cache holding results for up to size
// repositories.
func NewMemoryResultCache(size int) (*MemoryResultCache, error) {
	c, err := lru.New[repofiles.RepositoryIdentifier, repofiles.Result](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &MemoryResultCache{byRepo: c}, nil
}

// Store overwrites both the global and the per-repository entry.
func (c *MemoryResultCache) Store(_ context.Context, res repofiles.Result) error {
	c.byRepo.Add(res.Repository, res)
	c.mu.Lock()
	c.last = &res
	c.mu.Unlock()
	return nil
}

// Last returns the most recently stored result, or nil.
func (c *MemoryResultCache) Last(context.Context) (*repofiles.Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil, nil //nolint:nilnil // nil means nothing cached
	}
	res := *c.last
	return &res, nil
}

// LastFor returns the most recently stored result for id, or nil.
func (c *MemoryResultCache) LastFor(_ context.Context, id repofiles.RepositoryIdentifier) (*repofiles.Result, error) {
	res, ok := c.byRepo.Get(id)
	if !ok {
		return nil, nil //nolint:nilnil // nil means nothing cached
	}
	return &res, nil
}

// Len reports how many repositories currently have a cached result.
func (c *MemoryResultCache) Len() int {
	return c.byRepo.Len()
}
