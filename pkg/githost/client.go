// Package githost connects repofiles to GitHub. It builds authenticated
// go-github clients with retrying transports and adapts them to the
// repofiles.RepoHost port.
package githost

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// Options selects how the client authenticates and where it points.
type Options struct {
	// Token is a personal access token. Ignored when AppID is set.
	Token string
	// AppID, InstallationID and PrivateKeyPath authenticate as a GitHub App
	// installation.
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	// BaseURL overrides the API endpoint, e.g. a mock server. Empty means
	// DefaultAPIURL.
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
	Log        *slog.Logger
}

// NewClient creates a *github.Client for opts. App credentials take
// precedence over a token; with neither the client is anonymous.
func NewClient(opts Options) (*gogithub.Client, error) {
	base := NewRetryTransport(http.DefaultTransport, opts.MaxRetries, opts.Log)
	if opts.AppID != 0 {
		return NewAppClient(opts.AppID, opts.InstallationID, opts.PrivateKeyPath, opts.BaseURL, base, opts.Timeout)
	}
	return NewTokenClient(opts.Token, opts.BaseURL, base, opts.Timeout), nil
}

// NewTokenClient creates a *github.Client authenticated with a personal access
// token, or anonymous when token is empty. Requests go through rt.
func NewTokenClient(token, baseURL string, rt http.RoundTripper, timeout time.Duration) *gogithub.Client {
	if token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   rt,
		}
	}
	c := gogithub.NewClient(&http.Client{Transport: rt, Timeout: timeout})
	applyBaseURL(c, baseURL)
	return c
}

// NewAppClient creates a *github.Client authenticated as a GitHub App
// installation. privateKeyPath is the path to the app's PEM private key.
func NewAppClient(appID, installationID int64, privateKeyPath, baseURL string, rt http.RoundTripper, timeout time.Duration) (*gogithub.Client, error) {
	tr, err := ghinstallation.NewKeyFromFile(rt, appID, installationID, privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("github app auth: %w", err)
	}
	tr.BaseURL = strings.TrimRight(baseURL, "/")
	if tr.BaseURL == "" {
		tr.BaseURL = DefaultAPIURL
	}

	c := gogithub.NewClient(&http.Client{Transport: tr, Timeout: timeout})
	applyBaseURL(c, baseURL)
	return c, nil
}

func applyBaseURL(c *gogithub.Client, baseURL string) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" || baseURL == DefaultAPIURL {
		return
	}
	u, err := url.Parse(baseURL + "/")
	if err != nil {
		return
	}
	c.BaseURL = u
}
