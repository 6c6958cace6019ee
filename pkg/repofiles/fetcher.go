package repofiles

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
)

// ContentFetcher retrieves a single file and applies the exclusion set.
type ContentFetcher struct {
	host       RepoHost
	exclusions ExclusionSet
}

// NewContentFetcher creates a ContentFetcher.
func NewContentFetcher(host RepoHost, exclusions ExclusionSet) *ContentFetcher {
	return &ContentFetcher{host: host, exclusions: exclusions}
}

// Fetch issues one GetContents call for p. It returns a File entry for a
// non-excluded, non-empty file and a Filtered entry for anything else.
// Transport and decoding failures come back as FetchError; upstream statuses
// as UpstreamError.
func (f *ContentFetcher) Fetch(ctx context.Context, id RepositoryIdentifier, p string) (TreeEntry, error) {
	rc, err := f.host.GetContents(ctx, id.Owner, id.Repo, p)
	if err != nil {
		return TreeEntry{}, asFetchError(p, err)
	}
	if rc == nil || rc.Type != TypeFile {
		return Filtered(p), nil
	}

	name := rc.Name
	if name == "" {
		name = path.Base(p)
	}
	if f.exclusions.Excludes(name) {
		return Filtered(p), nil
	}

	content, err := decodeContent(rc)
	if err != nil {
		return TreeEntry{}, FetchError{Path: p, Err: err}
	}
	if content == "" {
		return Filtered(p), nil
	}
	return File(p, content), nil
}

func decodeContent(rc *RemoteContent) (string, error) {
	switch strings.ToLower(rc.Encoding) {
	case EncodingBase64:
		// The contents API wraps base64 at 60 columns; the decoder skips
		// line breaks.
		b, err := base64.StdEncoding.DecodeString(rc.Content)
		if err != nil {
			return "", fmt.Errorf("decode base64 content: %w", err)
		}
		return string(b), nil
	case "", "utf-8":
		return rc.Content, nil
	case EncodingNone:
		// Files over the contents API size limit come back without content.
		return "", nil
	default:
		return "", fmt.Errorf("unsupported content encoding %q", rc.Encoding)
	}
}
