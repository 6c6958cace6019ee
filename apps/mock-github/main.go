// Command mock-github serves a read-only subset of the GitHub contents API
// from an in-memory file store, for local development and demos of
// repofetch without network access or rate limits.
package main

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/repofetch/pkg/logging"
	"github.com/tilsley/repofetch/pkg/repofiles"
)

// contentEntry is one item of a directory listing.
type contentEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

// contentFile is the body returned for a single non-directory path.
type contentFile struct {
	contentEntry
	Encoding string `json:"encoding,omitempty"`
	Content  string `json:"content,omitempty"`
	Target   string `json:"target,omitempty"`
}

type object struct {
	typ     string
	content string
}

// store holds repository objects keyed by "owner/repo".
type store struct {
	mu    sync.RWMutex
	repos map[string]map[string]object // repo key → path → object
	fail  map[string]int               // "owner/repo/path" → status
}

func newStore() *store {
	return &store{
		repos: make(map[string]map[string]object),
		fail:  make(map[string]int),
	}
}

func (s *store) put(owner, repo, p, typ, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := owner + "/" + repo
	if s.repos[key] == nil {
		s.repos[key] = make(map[string]object)
	}
	s.repos[key][p] = object{typ: typ, content: content}
}

func (s *store) putFile(owner, repo, p, content string) {
	s.put(owner, repo, p, repofiles.TypeFile, content)
}

// failOn makes every request for p answer with status.
func (s *store) failOn(key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[key] = status
}

func (s *store) failure(owner, repo, p string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fail[strings.TrimSuffix(owner+"/"+repo+"/"+p, "/")]
}

func (s *store) exists(owner, repo string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.repos[owner+"/"+repo]
	return ok
}

// listDir returns the immediate children of dirPath, sorted by name, like
// GET /repos/:owner/:repo/contents/:path when :path is a directory.
func (s *store) listDir(owner, repo, dirPath string) []contentEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects := s.repos[owner+"/"+repo]
	prefix := dirPath
	if prefix != "" {
		prefix += "/"
	}

	seen := map[string]bool{}
	var entries []contentEntry
	for p, obj := range objects {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		name, _, nested := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true

		e := contentEntry{Name: name, Path: path.Join(dirPath, name), Type: obj.typ, Size: len(obj.content)}
		if nested {
			e.Type, e.Size = repofiles.TypeDir, 0
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func (s *store) get(owner, repo, p string) (object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.repos[owner+"/"+repo][p]
	return obj, ok
}

func (s *store) summary() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.repos))
	for k, objs := range s.repos {
		out[k] = len(objs)
	}
	return out
}

func main() {
	log := logging.New("mock-github")
	s := newStore()

	seedRepos(s)
	if dir := os.Getenv("SEED_DIR"); dir != "" {
		n, err := seedFromDir(s, dir)
		if err != nil {
			log.Error("seed from directory failed", "dir", dir, "error", err)
			os.Exit(1)
		}
		log.Info("seeded local repo", "dir", dir, "files", n)
	}
	if err := applyFailPaths(s, os.Getenv("FAIL_PATHS")); err != nil {
		log.Error("invalid FAIL_PATHS", "error", err)
		os.Exit(1)
	}
	log.Info("seeded repos", "repos", len(s.summary()))

	r := gin.New()
	r.Use(gin.Recovery())
	registerRoutes(r, s, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	log.Info("mock-github starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// applyFailPaths parses "owner/repo/path=status,..." and injects the
// failures. A status of 403 also reports an exhausted rate limit.
func applyFailPaths(s *store, list string) error {
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, code, ok := strings.Cut(item, "=")
		if !ok {
			return fmt.Errorf("%q: expected owner/repo/path=status", item)
		}
		status, err := strconv.Atoi(code)
		if err != nil || status < 400 || status > 599 {
			return fmt.Errorf("%q: status must be 4xx or 5xx", item)
		}
		s.failOn(strings.TrimSuffix(key, "/"), status)
	}
	return nil
}

func registerRoutes(r *gin.Engine, s *store, log *slog.Logger) {
	r.GET("/", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, renderIndex(s.summary()))
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Mirrors GET /repos/:owner/:repo/contents/:path. Files come back as a
	// single object with base64 content wrapped at 60 columns, directories
	// as an array of entries.
	r.GET("/repos/:owner/:repo/contents/*path", func(c *gin.Context) {
		owner := c.Param("owner")
		repo := c.Param("repo")
		p := strings.Trim(c.Param("path"), "/")

		if status := s.failure(owner, repo, p); status != 0 {
			log.Info("injected failure", "owner", owner, "repo", repo, "path", p, "status", status)
			writeFailure(c, status)
			return
		}
		if !s.exists(owner, repo) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
			return
		}

		if obj, ok := s.get(owner, repo, p); ok {
			c.JSON(http.StatusOK, fileBody(p, obj))
			return
		}
		if entries := s.listDir(owner, repo, p); len(entries) > 0 || p == "" {
			if entries == nil {
				entries = []contentEntry{}
			}
			c.JSON(http.StatusOK, entries)
			return
		}

		c.JSON(http.StatusNotFound, gin.H{
			"message": fmt.Sprintf("path %q not found in %s/%s", p, owner, repo),
		})
	})
}

func fileBody(p string, obj object) contentFile {
	f := contentFile{contentEntry: contentEntry{
		Name: path.Base(p),
		Path: p,
		Type: obj.typ,
		Size: len(obj.content),
	}}
	switch obj.typ {
	case repofiles.TypeSymlink:
		f.Target = obj.content
	case repofiles.TypeSubmodule:
	default:
		f.Encoding = repofiles.EncodingBase64
		f.Content = wrap(base64.StdEncoding.EncodeToString([]byte(obj.content)), 60)
	}
	return f
}

func writeFailure(c *gin.Context, status int) {
	if status == http.StatusForbidden {
		c.Header("X-RateLimit-Limit", "60")
		c.Header("X-RateLimit-Remaining", "0")
		c.JSON(status, gin.H{"message": "API rate limit exceeded"})
		return
	}
	c.JSON(status, gin.H{"message": http.StatusText(status)})
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}

func renderIndex(repos map[string]int) string {
	names := make([]string, 0, len(repos))
	for k := range repos {
		names = append(names, k)
	}
	sort.Strings(names)

	var rows strings.Builder
	for _, k := range names {
		fmt.Fprintf(&rows, `
        <tr>
          <td style="padding:12px 16px;border-bottom:1px solid #21262d;font-family:monospace;">%s</td>
          <td style="padding:12px 16px;border-bottom:1px solid #21262d;color:#8b949e;">%d</td>
        </tr>`, k, repos[k])
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <title>Mock GitHub</title>
  <style>
    * { margin:0; padding:0; box-sizing:border-box; }
    body { background:#0d1117; color:#c9d1d9; font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Helvetica,Arial,sans-serif; }
  </style>
</head>
<body>
  <div style="max-width:860px;margin:0 auto;padding:32px 16px;">
    <h1 style="font-size:20px;font-weight:600;margin-bottom:24px;">Repositories</h1>
    <table style="width:100%%;border-collapse:collapse;background:#161b22;border:1px solid #30363d;">
      <thead>
        <tr>
          <th style="padding:12px 16px;text-align:left;font-size:12px;color:#8b949e;">Repository</th>
          <th style="padding:12px 16px;text-align:left;font-size:12px;color:#8b949e;">Objects</th>
        </tr>
      </thead>
      <tbody>%s</tbody>
    </table>
  </div>
</body>
</html>`, rows.String())
}
