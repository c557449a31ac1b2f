// Package github resolves repository metadata through the GitHub REST API
package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "cverelease/internal/platform/errors"
	"cverelease/internal/platform/logger"

	gh "github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 10 * time.Second
	defaultUA      = "cve-make-release"
)

// Options configures the Client
type Options struct {
	// BaseURL overrides https://api.github.com/, e.g. for enterprise hosts or tests
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Token is optional; tokenless requests share a very low quota
	Token string
}

// Client is a thin go-github wrapper
type Client struct {
	api *gh.Client
	log logger.Logger
}

// NewClient creates a Client with sane defaults
func NewClient(o Options) (*Client, error) {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}

	hc := &http.Client{Timeout: o.Timeout}
	if tok := strings.TrimSpace(o.Token); tok != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}))
		hc.Timeout = o.Timeout
	}

	api := gh.NewClient(hc)
	api.UserAgent = o.UserAgent
	if o.BaseURL != "" {
		base := o.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeValidation, "invalid github api url %q", o.BaseURL), "GITHUB_API_URL")
		}
		api.BaseURL = u
	}

	return &Client{api: api, log: *logger.Named("github")}, nil
}

// DefaultBranch returns the default branch of owner/name
func (c *Client) DefaultBranch(ctx context.Context, owner, name string) (string, error) {
	start := time.Now()
	repo, resp, err := c.api.Repositories.Get(ctx, owner, name)
	if resp != nil {
		c.log.Debug().
			Str("repo", owner+"/"+name).
			Int("status", resp.StatusCode).
			Dur("latency", time.Since(start)).
			Int("rate_remaining", resp.Rate.Remaining).
			Time("rate_reset", resp.Rate.Reset.Time).
			Msg("github http response")
	}
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeSync, "github get repository %s/%s", owner, name)
	}
	branch := repo.GetDefaultBranch()
	if branch == "" {
		return "", perr.Syncf("github repository %s/%s reports no default branch", owner, name)
	}
	return branch, nil
}

// ResolveBranch returns the default branch for a clone URL pointing at
// github.com, or fallback when the URL is not a GitHub repository or the
// lookup fails. Failures are logged, never returned.
func (c *Client) ResolveBranch(ctx context.Context, cloneURL, fallback string) string {
	owner, name, ok := ParseRepoURL(cloneURL)
	if !ok {
		return fallback
	}
	branch, err := c.DefaultBranch(ctx, owner, name)
	if err != nil {
		c.log.Warn().Err(err).Str("fallback", fallback).Msg("could not resolve default branch")
		return fallback
	}
	c.log.Debug().Str("repo", owner+"/"+name).Str("branch", branch).Msg("resolved default branch")
	return branch
}
