package repofiles

import "context"

// Entry types reported by the hosting service.
const (
	TypeFile      = "file"
	TypeDir       = "dir"
	TypeSymlink   = "symlink"
	TypeSubmodule = "submodule"
)

// Content encodings reported by the hosting service.
const (
	EncodingBase64 = "base64"
	// EncodingNone is returned for files too large for the contents API.
	EncodingNone = "none"
)

// DirEntry is a file or directory returned by a directory listing.
type DirEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "file", "dir", "symlink" or "submodule"
}

// RemoteContent is the metadata and still-encoded content of a single entry.
type RemoteContent struct {
	Name     string
	Path     string
	Type     string
	Encoding string
	Content  string
	Size     int
}

// RepoHost is the port the walker and content fetcher use to reach the
// hosting service. Implementations return UpstreamError for non-success
// statuses and plain errors for transport failures.
type RepoHost interface {
	ListDir(ctx context.Context, owner, repo, path string) ([]DirEntry, error)
	GetContents(ctx context.Context, owner, repo, path string) (*RemoteContent, error)
}

// ResultCache keeps the most recent successful result, overall and per
// repository. Store replaces any previous value for the same repository.
// Lookups return nil when nothing is cached.
type ResultCache interface {
	Store(ctx context.Context, res Result) error
	Last(ctx context.Context) (*Result, error)
	LastFor(ctx context.Context, id RepositoryIdentifier) (*Result, error)
}

// FetchRecorder persists a log of fetch attempts.
type FetchRecorder interface {
	Record(ctx context.Context, event FetchEvent) error
	Recent(ctx context.Context, limit int) ([]FetchEvent, error)
}
