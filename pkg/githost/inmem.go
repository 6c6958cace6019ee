package githost

import (
	"context"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

// InMem is an in-memory repofiles.RepoHost for tests and local demos.
// Listings are returned sorted by name.
type InMem struct {
	mu      sync.Mutex
	objects map[string]inMemObject // "owner/repo/path" -> object
	fail    map[string]error       // "owner/repo/path" -> injected error
	gets    map[string]int         // "owner/repo/path" -> GetContents calls
	lists   int
}

type inMemObject struct {
	typ     string
	content string
}

var _ repofiles.RepoHost = (*InMem)(nil)

// NewInMem creates an empty InMem host.
func NewInMem() *InMem {
	return &InMem{
		objects: make(map[string]inMemObject),
		fail:    make(map[string]error),
		gets:    make(map[string]int),
	}
}

// SetFile seeds a file. Parent directories are implied.
func (m *InMem) SetFile(owner, repo, p, content string) {
	m.SetEntry(owner, repo, p, repofiles.TypeFile, content)
}

// SetEntry seeds an object of any type, e.g. a symlink or submodule.
func (m *InMem) SetEntry(owner, repo, p, typ, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key(owner, repo, p)] = inMemObject{typ: typ, content: content}
}

// FailOn makes every call for path p return err. A dir path fails its
// listing, a file path fails its content fetch.
func (m *InMem) FailOn(owner, repo, p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[key(owner, repo, p)] = err
}

// ContentCalls reports how many times GetContents was called for p.
func (m *InMem) ContentCalls(owner, repo, p string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets[key(owner, repo, p)]
}

// ListCalls reports the total number of ListDir calls.
func (m *InMem) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

// ListDir returns the immediate children of dir ("" for the root).
func (m *InMem) ListDir(_ context.Context, owner, repo, dir string) ([]repofiles.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if err := m.fail[key(owner, repo, dir)]; err != nil {
		return nil, err
	}

	prefix := owner + "/" + repo + "/"
	if dir != "" {
		prefix += dir + "/"
	}
	seen := make(map[string]bool)
	var entries []repofiles.DirEntry
	for k, obj := range m.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		parts := strings.SplitN(rest, "/", 2)
		name := parts[0]
		if seen[name] {
			continue
		}
		seen[name] = true
		typ := obj.typ
		if len(parts) > 1 {
			typ = repofiles.TypeDir
		}
		entries = append(entries, repofiles.DirEntry{
			Name: name,
			Path: path.Join(dir, name),
			Type: typ,
		})
	}
	if len(entries) == 0 && dir != "" {
		return nil, repofiles.UpstreamError{Path: dir, StatusCode: http.StatusNotFound, Message: "Not Found"}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// GetContents returns the object at p with its content unencoded.
func (m *InMem) GetContents(_ context.Context, owner, repo, p string) (*repofiles.RemoteContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(owner, repo, p)
	m.gets[k]++
	if err := m.fail[k]; err != nil {
		return nil, err
	}
	obj, ok := m.objects[k]
	if !ok {
		return nil, repofiles.UpstreamError{Path: p, StatusCode: http.StatusNotFound, Message: "Not Found"}
	}
	return &repofiles.RemoteContent{
		Name:    path.Base(p),
		Path:    p,
		Type:    obj.typ,
		Content: obj.content,
		Size:    len(obj.content),
	}, nil
}

func key(owner, repo, p string) string {
	return owner + "/" + repo + "/" + p
}
