// Package repofiles fetches the file tree of a hosted repository and flattens
// it into an ordered list of path/content records.
//
// The pipeline is ParseRepositoryURL → Walker.Walk → Flatten, composed by
// Service. Remote access goes through the RepoHost port; pkg/githost provides
// the GitHub implementation.
package repofiles

import "time"

// RepositoryIdentifier names a repository on the hosting service.
type RepositoryIdentifier struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// String returns "owner/repo".
func (id RepositoryIdentifier) String() string {
	return id.Owner + "/" + id.Repo
}

// EntryKind discriminates the variants of TreeEntry.
type EntryKind int

const (
	// KindFiltered marks an entry that produces no record: an excluded file,
	// an empty file, or a non-file object such as a symlink or submodule.
	KindFiltered EntryKind = iota
	// KindFile is a fetched file carrying its decoded content.
	KindFile
	// KindDirectory groups child entries in listing order.
	KindDirectory
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "dir"
	default:
		return "filtered"
	}
}

// TreeEntry is one node of a walked repository tree. Only the fields relevant
// to Kind are populated: Content for files, Children for directories.
type TreeEntry struct {
	Kind     EntryKind
	Path     string
	Content  string
	Children []TreeEntry
}

// Directory builds a directory entry. children must already be in listing order.
func Directory(path string, children []TreeEntry) TreeEntry {
	return TreeEntry{Kind: KindDirectory, Path: path, Children: children}
}

// File builds a file entry.
func File(path, content string) TreeEntry {
	return TreeEntry{Kind: KindFile, Path: path, Content: content}
}

// Filtered builds an entry that contributes nothing to the flattened output.
func Filtered(path string) TreeEntry {
	return TreeEntry{Kind: KindFiltered, Path: path}
}

// FileRecord is a single file in the flattened output.
type FileRecord struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Result is the outcome of one successful fetch.
type Result struct {
	RequestID  string               `json:"requestId"`
	Repository RepositoryIdentifier `json:"repository"`
	FetchedAt  time.Time            `json:"fetchedAt"`
	Files      []FileRecord         `json:"files"`
}

// FetchEvent summarises one fetch attempt, successful or not, for the fetch log.
type FetchEvent struct {
	RequestID  string    `json:"requestId"`
	URL        string    `json:"url"`
	Owner      string    `json:"owner,omitempty"`
	Repo       string    `json:"repo,omitempty"`
	FileCount  int       `json:"fileCount"`
	DurationMs int64     `json:"durationMs"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Succeeded reports whether the fetch produced a result.
func (e FetchEvent) Succeeded() bool {
	return e.ErrorKind == ""
}
