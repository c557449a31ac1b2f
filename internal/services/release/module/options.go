package module

import (
	"os"
	"path/filepath"
	"time"

	"cverelease/internal/adapters/feedrepo"
	"cverelease/internal/platform/config"
)

// Options holds configuration for the release module
type Options struct {
	RepoURL    string
	RepoDir    string
	RepoBranch string

	// Progress streams remote clone/fetch progress to stderr
	Progress bool

	// GitHub API access used to resolve the default branch
	GitHubAPIURL  string
	GitHubToken   string
	GitHubTimeout time.Duration
}

// FromConfig reads options from CVE_RELEASE_* plus GITHUB_TOKEN
func FromConfig(cfg config.Conf) Options {
	rc := cfg.Prefix("CVE_RELEASE_")
	return Options{
		RepoURL:       rc.MayString("REPO_URL", feedrepo.DefaultURL),
		RepoDir:       rc.MayString("REPO_DIR", defaultRepoDir()),
		RepoBranch:    rc.MayString("REPO_BRANCH", ""),
		Progress:      rc.MayBool("PROGRESS", false),
		GitHubAPIURL:  rc.MayString("GITHUB_API_URL", ""),
		GitHubToken:   cfg.Prefix("GITHUB_").MayString("TOKEN", ""),
		GitHubTimeout: rc.MayDuration("GITHUB_TIMEOUT", 10*time.Second),
	}
}

// defaultRepoDir keeps the clone in the user cache so it survives between releases
func defaultRepoDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "cve-make-release", "nvd-json-data-feeds")
}
