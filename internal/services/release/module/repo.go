package module

import (
	"context"
	"sync"
	"time"

	"cverelease/internal/adapters/feedrepo"
	"cverelease/internal/platform/logger"
	"cverelease/internal/services/release/domain"
)

// branchResolver finds a remote's default branch, returning fallback when it cannot
type branchResolver interface {
	ResolveBranch(ctx context.Context, cloneURL, fallback string) string
}

// lazyRepo defers branch resolution to the first repository call so that
// building the module never touches the network
type lazyRepo struct {
	opts     feedrepo.Options
	resolver branchResolver

	once sync.Once
	repo *feedrepo.Repo
}

var _ domain.Repository = (*lazyRepo)(nil)

func (l *lazyRepo) get(ctx context.Context) *feedrepo.Repo {
	l.once.Do(func() {
		o := l.opts
		if o.Branch == "" && l.resolver != nil {
			o.Branch = l.resolver.ResolveBranch(ctx, o.URL, feedrepo.DefaultBranch)
		}
		l.repo = feedrepo.New(o)
		logger.C(ctx).Debug().Str("component", "release").Str("branch", l.repo.Branch()).Msg("tracking branch")
	})
	return l.repo
}

func (l *lazyRepo) Sync(ctx context.Context) error { return l.get(ctx).Sync(ctx) }

func (l *lazyRepo) Checkout(ctx context.Context, date time.Time) (domain.Revision, error) {
	return l.get(ctx).Checkout(ctx, date)
}

func (l *lazyRepo) Dir() string { return l.opts.Dir }
