// Package domain holds the types and ports of a release run
package domain

import (
	"time"

	"cverelease/internal/adapters/feedrepo"
	"cverelease/internal/core/feed"
)

// Revision re-exports the checkout result so callers need not import the adapter
type Revision = feedrepo.Revision

// Options are the inputs of one release run, as given on the command line
type Options struct {
	// Path is the output directory; it must be absent or empty
	Path string `flag:"PATH" validate:"required"`

	// Date selects the snapshot day; nil means today and implies Fetch
	Date *time.Time `flag:"date"`

	// Fetch syncs the repository before checkout
	Fetch bool `flag:"fetch"`

	// FeedName restricts the run to a single feed when set
	FeedName string `flag:"feed-name" validate:"omitempty,feedname"`

	XZPreset int `flag:"xz-preset" validate:"min=0,max=9"`
}

// FeedReport describes one written archive
type FeedReport struct {
	Name  feed.Name
	Path  string
	Count int
	Bytes int64
}

// Report summarizes a finished run
type Report struct {
	Timestamp time.Time
	Fetched   bool
	Revision  Revision
	Records   int
	Feeds     []FeedReport
	Elapsed   time.Duration
}
