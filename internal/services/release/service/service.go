// Package service provides the release service implementation
package service

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"cverelease/internal/core/feed"
	perr "cverelease/internal/platform/errors"
	"cverelease/internal/platform/logger"
	ptime "cverelease/internal/platform/time"
	"cverelease/internal/platform/validate"
	"cverelease/internal/services/release/domain"
)

// Service runs one release: sync, checkout, load, then write the feeds
type Service struct {
	Repo   domain.Repository
	Loader domain.Loader
	Writer domain.FeedWriter

	now func() time.Time
}

// New constructs the release service
func New(repo domain.Repository, loader domain.Loader, writer domain.FeedWriter) *Service {
	if repo == nil {
		panic("release.Service requires a non nil Repository")
	}
	if loader == nil {
		panic("release.Service requires a non nil Loader")
	}
	if writer == nil {
		panic("release.Service requires a non nil FeedWriter")
	}
	return &Service{Repo: repo, Loader: loader, Writer: writer, now: time.Now}
}

// WithClock replaces the clock used to pick today's snapshot
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

var registerOnce sync.Once

func registerValidations() {
	registerOnce.Do(func() {
		_ = validate.RegisterValidation("feedname", func(fl validate.FieldLevel) bool {
			return feed.IsValidName(fl.Field().String())
		}, `"{1}" is not a valid {0}. Please choose either a year from 1999 on, or one of 'all', 'recent', or 'modified'`)
	})
}

// Validate checks opts without touching the repository
func Validate(opts domain.Options) error {
	registerValidations()
	return validate.Struct(opts)
}

// Run executes a release. Nothing is synced, checked out or created unless
// opts validate and the output path is absent or empty.
func (s *Service) Run(ctx context.Context, opts domain.Options) (domain.Report, error) {
	start := time.Now()
	log := logger.C(ctx).With().Str("component", "release").Logger()

	if err := Validate(opts); err != nil {
		return domain.Report{}, err
	}
	if err := checkOutputDir(opts.Path); err != nil {
		return domain.Report{}, err
	}

	ts, fetch := s.snapshot(opts)
	rep := domain.Report{Timestamp: ts, Fetched: fetch}

	if err := os.MkdirAll(opts.Path, 0o755); err != nil {
		return rep, perr.WithField(perr.Wrapf(err, perr.ErrorCodeWrite, "create %s", opts.Path), "PATH")
	}

	if fetch {
		log.Info().Msg("Fetching repository")
		if err := s.Repo.Sync(ctx); err != nil {
			return rep, err
		}
	}

	log.Info().Msgf("Checking out repository for timestamp %s", ptime.FormatDay(ts))
	rev, err := s.Repo.Checkout(ctx, ts)
	if err != nil {
		return rep, err
	}
	rep.Revision = rev

	log.Info().Str("dir", s.Repo.Dir()).Msg("Reading CVE records")
	db, err := s.Loader.Load(s.Repo.Dir(), ts)
	if err != nil {
		return rep, err
	}
	rep.Records = db.Len()

	for _, name := range feedsFor(opts, ts) {
		if err := ctx.Err(); err != nil {
			return rep, perr.Wrap(err, perr.ErrorCodeUnknown, "release cancelled")
		}
		log.Info().Msgf("Creating %s archive", name)
		res, err := s.Writer.Write(opts.Path, db, name, opts.XZPreset)
		if err != nil {
			return rep, err
		}
		rep.Feeds = append(rep.Feeds, domain.FeedReport{Name: res.Name, Path: res.Path, Count: res.Count, Bytes: res.Bytes})
	}

	rep.Elapsed = time.Since(start)
	return rep, nil
}

// snapshot returns the day to release and whether a sync is due
func (s *Service) snapshot(opts domain.Options) (time.Time, bool) {
	if opts.Date == nil {
		return ptime.Day(s.now()), true
	}
	return ptime.Day(*opts.Date), opts.Fetch
}

// feedsFor returns the single requested feed or the full set through the snapshot year
func feedsFor(opts domain.Options, ts time.Time) []feed.Name {
	if opts.FeedName != "" {
		return []feed.Name{feed.Name(opts.FeedName)}
	}
	return feed.AllNames(ts.Year())
}

// checkOutputDir accepts a missing path or an empty directory
func checkOutputDir(path string) error {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return perr.WithField(perr.Wrapf(err, perr.ErrorCodeUsage, "stat %s", path), "PATH")
	}
	if !fi.IsDir() {
		return perr.WithField(perr.Usagef("output path %s exists and is not a directory", path), "PATH")
	}

	d, err := os.Open(path)
	if err != nil {
		return perr.WithField(perr.Wrapf(err, perr.ErrorCodeUsage, "open %s", path), "PATH")
	}
	defer func() { _ = d.Close() }()

	if _, err := d.Readdirnames(1); errors.Is(err, io.EOF) {
		return nil
	} else if err != nil {
		return perr.WithField(perr.Wrapf(err, perr.ErrorCodeUsage, "read %s", path), "PATH")
	}
	return perr.WithField(perr.Usagef("output path %s exists and is not empty", path), "PATH")
}
