// Package feedrepo keeps a local clone of the upstream CVE feed repository
// and moves its worktree to the state of a given calendar day.
//
// Everything runs in-process through go-git; no git binary is required.
// The clone keeps full history because any past day can be requested.
package feedrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	perr "cverelease/internal/platform/errors"
	"cverelease/internal/platform/logger"
	ptime "cverelease/internal/platform/time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

const (
	// DefaultURL is the upstream data feed
	DefaultURL = "https://github.com/fkie-cad/nvd-json-data-feeds.git"
	// DefaultBranch is used when no branch is configured or resolvable
	DefaultBranch = "main"

	remoteName = "origin"
)

// Options configures a Repo
type Options struct {
	URL    string
	Dir    string
	Branch string
	// Token authenticates HTTPS remotes when set
	Token string
	// Progress receives remote sideband output during clone/fetch; may be nil
	Progress io.Writer
}

// Revision identifies the commit a checkout landed on
type Revision struct {
	Hash string
	When time.Time
}

// Repo is a local clone of the feed repository
type Repo struct {
	opts Options
	log  *logger.Logger
}

// New constructs a Repo; URL and Branch fall back to the defaults
func New(opts Options) *Repo {
	if strings.TrimSpace(opts.URL) == "" {
		opts.URL = DefaultURL
	}
	if strings.TrimSpace(opts.Branch) == "" {
		opts.Branch = DefaultBranch
	}
	return &Repo{opts: opts, log: logger.Named("feedrepo")}
}

// Dir returns the worktree path
func (r *Repo) Dir() string { return r.opts.Dir }

// Branch returns the tracked branch
func (r *Repo) Branch() string { return r.opts.Branch }

func (r *Repo) auth() transport.AuthMethod {
	if r.opts.Token == "" || !strings.HasPrefix(r.opts.URL, "https://") {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: r.opts.Token}
}

func (r *Repo) remoteRef() plumbing.ReferenceName {
	return plumbing.NewRemoteReferenceName(remoteName, r.opts.Branch)
}

// Sync clones the repository when no clone exists yet, otherwise fetches
// the tracked branch into its remote-tracking ref
func (r *Repo) Sync(ctx context.Context) error {
	if strings.TrimSpace(r.opts.Dir) == "" {
		return perr.Syncf("repository directory is not configured")
	}

	repo, err := git.PlainOpen(r.opts.Dir)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		return r.clone(ctx)
	case err != nil:
		return perr.Wrapf(err, perr.ErrorCodeSync, "open %s", r.opts.Dir)
	}

	spec := gitconfig.RefSpec(fmt.Sprintf("+%s:%s", plumbing.NewBranchReferenceName(r.opts.Branch), r.remoteRef()))
	r.log.Info().Str("url", r.opts.URL).Str("branch", r.opts.Branch).Msg("fetching repository")
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RemoteURL:  r.opts.URL,
		RefSpecs:   []gitconfig.RefSpec{spec},
		Auth:       r.auth(),
		Progress:   r.opts.Progress,
		Tags:       git.NoTags,
		Force:      true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		r.log.Info().Msg("repository already up to date")
		return nil
	}
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeSync, "fetch %s", r.opts.URL)
	}
	return nil
}

func (r *Repo) clone(ctx context.Context) error {
	if err := os.MkdirAll(r.opts.Dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeSync, "create %s", r.opts.Dir)
	}
	r.log.Info().Str("url", r.opts.URL).Str("dir", r.opts.Dir).Str("branch", r.opts.Branch).Msg("cloning repository")
	_, err := git.PlainCloneContext(ctx, r.opts.Dir, false, &git.CloneOptions{
		URL:           r.opts.URL,
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(r.opts.Branch),
		SingleBranch:  true,
		NoCheckout:    true,
		Auth:          r.auth(),
		Progress:      r.opts.Progress,
		Tags:          git.NoTags,
	})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeSync, "clone %s", r.opts.URL)
	}
	return nil
}

// Checkout moves the worktree to the newest commit on the tracked branch
// committed no later than the end of date (UTC). The checkout is detached and forced.
func (r *Repo) Checkout(ctx context.Context, date time.Time) (Revision, error) {
	repo, err := git.PlainOpen(r.opts.Dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Revision{}, perr.WithField(perr.Checkoutf("no clone at %s; run with --fetch first", r.opts.Dir), "dir")
	}
	if err != nil {
		return Revision{}, perr.Wrapf(err, perr.ErrorCodeCheckout, "open %s", r.opts.Dir)
	}

	tip, err := r.tip(repo)
	if err != nil {
		return Revision{}, err
	}

	cutoff := ptime.EndOfDay(date)
	c, err := commitBefore(ctx, repo, tip, cutoff)
	if err != nil {
		return Revision{}, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return Revision{}, perr.Wrap(err, perr.ErrorCodeCheckout, "worktree")
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: c.Hash, Force: true}); err != nil {
		return Revision{}, perr.Wrapf(err, perr.ErrorCodeCheckout, "checkout %s", c.Hash)
	}

	rev := Revision{Hash: c.Hash.String(), When: c.Committer.When.UTC()}
	r.log.Info().
		Str("date", ptime.FormatDay(date)).
		Str("commit", rev.Hash).
		Time("committed", rev.When).
		Msg("checked out repository")
	return rev, nil
}

// tip resolves the remote-tracking ref, falling back to the local branch
func (r *Repo) tip(repo *git.Repository) (plumbing.Hash, error) {
	for _, name := range []plumbing.ReferenceName{r.remoteRef(), plumbing.NewBranchReferenceName(r.opts.Branch)} {
		ref, err := repo.Reference(name, true)
		if err == nil {
			return ref.Hash(), nil
		}
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, perr.Wrapf(err, perr.ErrorCodeCheckout, "resolve %s", name)
		}
	}
	return plumbing.ZeroHash, perr.Checkoutf("branch %q not found in %s", r.opts.Branch, r.opts.Dir)
}

// commitBefore walks history newest first by committer time
func commitBefore(ctx context.Context, repo *git.Repository, from plumbing.Hash, cutoff time.Time) (*object.Commit, error) {
	iter, err := repo.Log(&git.LogOptions{From: from, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeCheckout, "log")
	}
	defer iter.Close()

	for {
		if err := ctx.Err(); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeCheckout, "log")
		}
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			return nil, perr.Checkoutf("no commit on or before %s", ptime.FormatDay(cutoff.Add(-time.Nanosecond)))
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeCheckout, "log")
		}
		if c.Committer.When.Before(cutoff) {
			return c, nil
		}
	}
}
