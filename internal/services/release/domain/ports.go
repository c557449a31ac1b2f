package domain

import (
	"context"
	"time"

	"cverelease/internal/core/cvedb"
	"cverelease/internal/core/feed"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context, opts Options) (Report, error)
}

// Repository is the local clone of the feed repository
type Repository interface {
	// Sync clones or fetches the tracked branch
	Sync(ctx context.Context) error

	// Checkout moves the worktree to the state of date
	Checkout(ctx context.Context, date time.Time) (Revision, error)

	// Dir is the worktree root records are loaded from
	Dir() string
}

// Loader reads the CVE snapshot from a checked-out tree
type Loader interface {
	Load(root string, timestamp time.Time) (*cvedb.Database, error)
}

// FeedWriter writes one feed archive into a directory
type FeedWriter interface {
	Write(destDir string, db *cvedb.Database, name feed.Name, preset int) (feed.Result, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(root string, timestamp time.Time) (*cvedb.Database, error)

// Load calls f
func (f LoaderFunc) Load(root string, timestamp time.Time) (*cvedb.Database, error) {
	return f(root, timestamp)
}

// FeedWriterFunc adapts a function to FeedWriter
type FeedWriterFunc func(destDir string, db *cvedb.Database, name feed.Name, preset int) (feed.Result, error)

// Write calls f
func (f FeedWriterFunc) Write(destDir string, db *cvedb.Database, name feed.Name, preset int) (feed.Result, error) {
	return f(destDir, db, name, preset)
}
