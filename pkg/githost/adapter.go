package githost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/tilsley/repofetch/pkg/repofiles"
)

// Adapter implements repofiles.RepoHost over the GitHub contents API.
type Adapter struct {
	gh *gogithub.Client
}

var _ repofiles.RepoHost = (*Adapter)(nil)

// New creates an Adapter from an authenticated *github.Client.
func New(gh *gogithub.Client) *Adapter {
	return &Adapter{gh: gh}
}

// ListDir returns the immediate children of dir in the order GitHub lists them.
func (a *Adapter) ListDir(ctx context.Context, owner, repo, dir string) ([]repofiles.DirEntry, error) {
	fc, dc, err := a.contents(ctx, owner, repo, dir)
	if err != nil {
		return nil, upstreamError(dir, err)
	}
	if fc != nil {
		return nil, fmt.Errorf("path %q is a %s, not a directory", dir, fc.GetType())
	}

	entries := make([]repofiles.DirEntry, 0, len(dc))
	for _, c := range dc {
		entries = append(entries, repofiles.DirEntry{
			Name: c.GetName(),
			Path: c.GetPath(),
			Type: c.GetType(),
		})
	}
	return entries, nil
}

// GetContents returns the metadata and still-encoded content of p. Decoding
// is left to the caller.
func (a *Adapter) GetContents(ctx context.Context, owner, repo, p string) (*repofiles.RemoteContent, error) {
	fc, _, err := a.contents(ctx, owner, repo, p)
	if err != nil {
		return nil, upstreamError(p, err)
	}
	if fc == nil {
		// A directory listing came back for a path listed as a file.
		return &repofiles.RemoteContent{Path: p, Type: repofiles.TypeDir}, nil
	}

	rc := &repofiles.RemoteContent{
		Name:     fc.GetName(),
		Path:     fc.GetPath(),
		Type:     fc.GetType(),
		Encoding: fc.GetEncoding(),
		Size:     fc.GetSize(),
	}
	if fc.Content != nil {
		rc.Content = *fc.Content
	}
	return rc, nil
}

// contents fetches repos/{owner}/{repo}/contents/{p} on the default branch.
// Repositories.GetContents rejects every path containing "..", which also
// refuses legal names such as "release..notes.md", so the request is built
// here. Exactly one of file and dir is set on success.
func (a *Adapter) contents(ctx context.Context, owner, repo, p string) (
	file *gogithub.RepositoryContent, dir []*gogithub.RepositoryContent, err error,
) {
	escaped := (&url.URL{Path: strings.TrimSuffix(p, "/")}).String()
	u := fmt.Sprintf("repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), escaped)
	req, err := a.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}

	var raw json.RawMessage
	if _, err := a.gh.Do(ctx, req, &raw); err != nil {
		return nil, nil, err
	}

	fileErr := json.Unmarshal(raw, &file)
	if fileErr == nil {
		return file, nil, nil
	}
	if dirErr := json.Unmarshal(raw, &dir); dirErr != nil {
		return nil, nil, fmt.Errorf("decode contents of %q: %w", p, errors.Join(fileErr, dirErr))
	}
	return nil, dir, nil
}

// upstreamError converts go-github status errors into repofiles.UpstreamError.
// Anything else is a transport failure and is returned unchanged.
func upstreamError(p string, err error) error {
	var (
		rateLimit *gogithub.RateLimitError
		abuse     *gogithub.AbuseRateLimitError
		resp      *gogithub.ErrorResponse
	)
	switch {
	case errors.As(err, &rateLimit):
		return repofiles.UpstreamError{
			Path:       p,
			StatusCode: statusOf(rateLimit.Response, http.StatusForbidden),
			Message:    rateLimit.Message,
			RateLimit:  true,
		}
	case errors.As(err, &abuse):
		return repofiles.UpstreamError{
			Path:       p,
			StatusCode: statusOf(abuse.Response, http.StatusForbidden),
			Message:    abuse.Message,
			RateLimit:  true,
		}
	case errors.As(err, &resp) && resp.Response != nil:
		return repofiles.UpstreamError{
			Path:       p,
			StatusCode: resp.Response.StatusCode,
			Message:    resp.Message,
		}
	default:
		return err
	}
}

func statusOf(r *http.Response, fallback int) int {
	if r == nil {
		return fallback
	}
	return r.StatusCode
}
