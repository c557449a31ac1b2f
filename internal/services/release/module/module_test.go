package module

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cverelease/internal/core/cvedb"
	"cverelease/internal/core/feed"
	"cverelease/internal/modkit"
	"cverelease/internal/platform/config"
	perr "cverelease/internal/platform/errors"
	"cverelease/internal/services/release/domain"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	dir    string
	synced int
	date   time.Time
}

func (r *fakeRepo) Sync(context.Context) error { r.synced++; return nil }

func (r *fakeRepo) Checkout(_ context.Context, d time.Time) (domain.Revision, error) {
	r.date = d
	return domain.Revision{Hash: "deadbeef", When: d}, nil
}

func (r *fakeRepo) Dir() string { return r.dir }

type fakeResolver struct {
	calls  int
	branch string
}

func (f *fakeResolver) ResolveBranch(_ context.Context, _, fallback string) string {
	f.calls++
	if f.branch == "" {
		return fallback
	}
	return f.branch
}

func TestFromConfigDefaults(t *testing.T) {
	for _, k := range []string{"CVE_RELEASE_REPO_URL", "CVE_RELEASE_REPO_DIR", "CVE_RELEASE_REPO_BRANCH", "CVE_RELEASE_PROGRESS", "CVE_RELEASE_GITHUB_API_URL", "CVE_RELEASE_GITHUB_TIMEOUT", "GITHUB_TOKEN"} {
		t.Setenv(k, "")
	}
	o := FromConfig(config.New())
	require.Equal(t, "https://github.com/fkie-cad/nvd-json-data-feeds.git", o.RepoURL)
	require.Equal(t, filepath.Join("cve-make-release", "nvd-json-data-feeds"), filepath.Join(filepath.Base(filepath.Dir(o.RepoDir)), filepath.Base(o.RepoDir)))
	require.Empty(t, o.RepoBranch)
	require.Empty(t, o.GitHubToken)
	require.False(t, o.Progress)
	require.Equal(t, 10*time.Second, o.GitHubTimeout)
}

func TestFromConfigOverrides(t *testing.T) {
	t.Setenv("CVE_RELEASE_REPO_URL", "https://example.invalid/feeds.git")
	t.Setenv("CVE_RELEASE_REPO_DIR", "/var/cache/feeds")
	t.Setenv("CVE_RELEASE_REPO_BRANCH", "develop")
	t.Setenv("CVE_RELEASE_GITHUB_API_URL", "http://127.0.0.1:1/")
	t.Setenv("CVE_RELEASE_PROGRESS", "true")
	t.Setenv("CVE_RELEASE_GITHUB_TIMEOUT", "3s")
	t.Setenv("GITHUB_TOKEN", "tok")

	o := FromConfig(config.New())
	require.Equal(t, Options{
		RepoURL:       "https://example.invalid/feeds.git",
		RepoDir:       "/var/cache/feeds",
		RepoBranch:    "develop",
		Progress:      true,
		GitHubAPIURL:  "http://127.0.0.1:1/",
		GitHubToken:   "tok",
		GitHubTimeout: 3 * time.Second,
	}, o)
}

func TestFromConfigInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CVE_RELEASE_PROGRESS", "sometimes")
	t.Setenv("CVE_RELEASE_GITHUB_TIMEOUT", "soon")

	o := FromConfig(config.New())
	require.False(t, o.Progress)
	require.Equal(t, 10*time.Second, o.GitHubTimeout)
}

func TestNewWiresInjectedPorts(t *testing.T) {
	repo := &fakeRepo{dir: t.TempDir()}
	var written []feed.Name
	now := time.Date(2022, time.January, 2, 9, 0, 0, 0, time.UTC)

	m, err := New(modkit.Deps{Cfg: config.New()},
		modkit.WithPorts[domain.Repository](repo),
		modkit.WithPorts[domain.Loader](domain.LoaderFunc(func(_ string, ts time.Time) (*cvedb.Database, error) {
			return cvedb.New(ts, nil), nil
		})),
		modkit.WithPorts[domain.FeedWriter](domain.FeedWriterFunc(func(_ string, _ *cvedb.Database, n feed.Name, _ int) (feed.Result, error) {
			written = append(written, n)
			return feed.Result{Name: n}, nil
		})),
		modkit.WithPorts(func() time.Time { return now }),
	)
	require.NoError(t, err)
	require.Equal(t, "release", m.Name())

	ports, ok := modkit.PortsOf[Ports](m)
	require.True(t, ok)

	rep, err := ports.Runner.Run(context.Background(), domain.Options{Path: filepath.Join(t.TempDir(), "out"), XZPreset: 9})
	require.NoError(t, err)
	require.Equal(t, 1, repo.synced)
	require.Equal(t, time.Date(2022, time.January, 2, 0, 0, 0, 0, time.UTC), repo.date)
	require.Equal(t, "deadbeef", rep.Revision.Hash)
	require.Len(t, written, (2022-1999+1)+3)
}

func TestNewDefaultWiring(t *testing.T) {
	t.Setenv("CVE_RELEASE_REPO_DIR", filepath.Join(t.TempDir(), "clone"))
	t.Setenv("CVE_RELEASE_GITHUB_API_URL", "")

	m, err := New(modkit.Deps{Cfg: config.New()}, modkit.WithName("rel"))
	require.NoError(t, err)
	require.Equal(t, "rel", m.Name())
	require.NotNil(t, m.Ports().(Ports).Runner)
}

func TestNewRejectsBadGitHubURL(t *testing.T) {
	t.Setenv("CVE_RELEASE_GITHUB_API_URL", "://bad")
	_, err := New(modkit.Deps{Cfg: config.New()})
	require.Error(t, err)
	require.Equal(t, perr.ExitUsage, perr.ExitCode(err))
}

func TestLazyRepoResolvesBranchOnce(t *testing.T) {
	res := &fakeResolver{branch: "develop"}
	l := &lazyRepo{opts: feedRepoOptions(t), resolver: res}

	_, err := l.Checkout(context.Background(), time.Now())
	require.True(t, perr.IsCode(err, perr.ErrorCodeCheckout))
	_, _ = l.Checkout(context.Background(), time.Now())

	require.Equal(t, 1, res.calls)
	require.Equal(t, "develop", l.repo.Branch())
	require.Equal(t, l.opts.Dir, l.Dir())
}

func TestLazyRepoKeepsConfiguredBranch(t *testing.T) {
	res := &fakeResolver{branch: "develop"}
	o := feedRepoOptions(t)
	o.Branch = "release"
	l := &lazyRepo{opts: o, resolver: res}

	_, _ = l.Checkout(context.Background(), time.Now())
	require.Zero(t, res.calls)
	require.Equal(t, "release", l.repo.Branch())
}
