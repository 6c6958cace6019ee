package repofiles

import (
	"regexp"
	"strings"
)

// DefaultHost is the hosting domain recognised by ParseRepositoryURL.
const DefaultHost = "github.com"

// URLParser extracts a RepositoryIdentifier from URLs on a single host.
type URLParser struct {
	Host    string
	pattern *regexp.Regexp
}

// NewURLParser returns a parser for host. An empty host means DefaultHost.
func NewURLParser(host string) *URLParser {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		host = DefaultHost
	}
	// The host, optionally prefixed by "www.", must start the string or follow
	// a scheme or userinfo. "notgithub.com" and "gist.github.com" do not match.
	p := regexp.MustCompile(`(?i)(?:^|[/@])(?:www\.)?` + regexp.QuoteMeta(host) + `/([^/?#\s]+)/([^/?#\s]+)`)
	return &URLParser{Host: host, pattern: p}
}

var defaultParser = NewURLParser(DefaultHost)

// ParseRepositoryURL extracts owner and repo from a github.com URL.
func ParseRepositoryURL(raw string) (RepositoryIdentifier, error) {
	return defaultParser.Parse(raw)
}

// Parse extracts the two path segments that follow the host. Anything after
// them (tree/branch paths, query, fragment) is ignored and a trailing ".git"
// is dropped from the repo name.
func (p *URLParser) Parse(raw string) (RepositoryIdentifier, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return RepositoryIdentifier{}, InvalidURLError{URL: raw, Reason: "URL is empty"}
	}

	m := p.pattern.FindStringSubmatch(s)
	if m == nil {
		return RepositoryIdentifier{}, InvalidURLError{
			URL:    raw,
			Reason: "expected " + p.Host + "/<owner>/<repo>",
		}
	}

	owner := m[1]
	repo := strings.TrimSuffix(m[2], ".git")
	if !validSegment(owner) || !validSegment(repo) {
		return RepositoryIdentifier{}, InvalidURLError{URL: raw, Reason: "owner and repo must be non-empty names"}
	}
	return RepositoryIdentifier{Owner: owner, Repo: repo}, nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".."
}
