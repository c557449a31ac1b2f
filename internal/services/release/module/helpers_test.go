package module

import (
	"path/filepath"
	"testing"

	"cverelease/internal/adapters/feedrepo"
)

func feedRepoOptions(t *testing.T) feedrepo.Options {
	t.Helper()
	return feedrepo.Options{
		URL: "https://github.com/fkie-cad/nvd-json-data-feeds.git",
		Dir: filepath.Join(t.TempDir(), "missing"),
	}
}
