// Package module provides the release module implementation
package module

import (
	"io"
	"os"
	"time"

	"cverelease/internal/adapters/feedrepo"
	"cverelease/internal/adapters/github"
	"cverelease/internal/core/cvedb"
	"cverelease/internal/core/feed"
	"cverelease/internal/modkit"
	"cverelease/internal/services/release/domain"
	"cverelease/internal/services/release/service"
)

// Ports defines the release module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the release module
type Module struct {
	deps  modkit.Deps
	name  string
	opts  Options
	ports Ports
}

var _ modkit.Module = (*Module)(nil)

// New constructs the release module from config in deps.Cfg.
// Ports injected with modkit.WithPorts replace the defaults: a
// domain.Repository, domain.Loader, domain.FeedWriter or a clock func() time.Time.
func New(deps modkit.Deps, opts ...modkit.Option) (*Module, error) {
	b := modkit.Build(opts...)
	o := FromConfig(deps.Cfg)

	repo, ok := modkit.Port[domain.Repository](b)
	if !ok {
		gh, err := github.NewClient(github.Options{BaseURL: o.GitHubAPIURL, Token: o.GitHubToken, Timeout: o.GitHubTimeout})
		if err != nil {
			return nil, err
		}
		var progress io.Writer
		if o.Progress {
			progress = os.Stderr
		}
		repo = &lazyRepo{
			opts: feedrepo.Options{
				URL:      o.RepoURL,
				Dir:      o.RepoDir,
				Branch:   o.RepoBranch,
				Token:    o.GitHubToken,
				Progress: progress,
			},
			resolver: gh,
		}
	}
	loader, ok := modkit.Port[domain.Loader](b)
	if !ok {
		loader = domain.LoaderFunc(cvedb.Load)
	}
	writer, ok := modkit.Port[domain.FeedWriter](b)
	if !ok {
		writer = domain.FeedWriterFunc(feed.Write)
	}

	svc := service.New(repo, loader, writer)
	if now, ok := modkit.Port[func() time.Time](b); ok {
		svc.WithClock(now)
	}

	name := b.Name
	if name == "" {
		name = "release"
	}
	deps.Log.Debug().
		Str("module", name).
		Str("repo_url", o.RepoURL).
		Str("repo_dir", o.RepoDir).
		Str("repo_branch", o.RepoBranch).
		Msg("module wired")

	return &Module{deps: deps, name: name, opts: o, ports: Ports{Runner: svc}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the resolved configuration
func (m *Module) Options() Options { return m.opts }
