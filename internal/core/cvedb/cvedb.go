// Package cvedb loads CVE records from a checked-out feed repository into an
// immutable in-memory snapshot and answers the queries feed writing needs.
//
// Layout expected under the repository root:
//
//	CVE-1999/CVE-1999-00xx/CVE-1999-0001.json
//	CVE-2024/CVE-2024-12xx/CVE-2024-1234.json
//
// Anything outside CVE-YYYY directories (README, state files, .git) is ignored.
package cvedb

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	perr "cverelease/internal/platform/errors"
	"cverelease/internal/platform/logger"
	ptime "cverelease/internal/platform/time"
)

// RecencyWindow bounds the recent and modified feeds, following the NVD
// data feed convention of eight days
const RecencyWindow = 8 * 24 * time.Hour

var yearDirRe = regexp.MustCompile(`^CVE-\d{4}$`)

// Database is a read-only snapshot of CVE records as of a calendar day
type Database struct {
	timestamp time.Time
	records   []Record
}

// New builds a snapshot from already parsed records; recs and their raw
// documents are copied, then sorted by id
func New(timestamp time.Time, recs []Record) *Database {
	cp := make([]Record, len(recs))
	for i, r := range recs {
		cp[i] = r.clone()
	}
	slices.SortStableFunc(cp, func(a, b Record) int {
		switch {
		case lessID(a.ID, b.ID):
			return -1
		case lessID(b.ID, a.ID):
			return 1
		default:
			return 0
		}
	})
	return &Database{timestamp: ptime.Day(timestamp), records: cp}
}

// Load reads every CVE record file below root
func Load(root string, timestamp time.Time) (*Database, error) {
	l := logger.Named("cvedb")

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeLoad, "read repository %s", root)
	}

	var recs []Record
	for _, e := range entries {
		if !e.IsDir() || !yearDirRe.MatchString(e.Name()) {
			continue
		}
		dir := filepath.Join(root, e.Name())
		before := len(recs)
		werr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isRecordFile(d.Name()) {
				return nil
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			r, err := ParseRecord(b)
			if err != nil {
				return perr.WithOp(perr.Wrapf(err, perr.ErrorCodeLoad, "parse %s", path), "parse")
			}
			recs = append(recs, r)
			return nil
		})
		if werr != nil {
			if _, ok := perr.As(werr); ok {
				return nil, werr
			}
			return nil, perr.Wrapf(werr, perr.ErrorCodeLoad, "walk %s", dir)
		}
		l.Debug().Str("dir", e.Name()).Int("records", len(recs)-before).Msg("loaded year directory")
	}

	db := New(timestamp, recs)
	l.Info().
		Str("timestamp", db.timestamp.Format(time.DateOnly)).
		Int("records", db.Len()).
		Msg("loaded cve database")
	return db, nil
}

func isRecordFile(name string) bool {
	return strings.HasPrefix(name, "CVE-") && strings.HasSuffix(name, ".json")
}

// Timestamp returns the snapshot day (midnight UTC)
func (db *Database) Timestamp() time.Time { return db.timestamp }

// Len returns the number of records
func (db *Database) Len() int { return len(db.records) }

// Records returns a copy of all records in id order
func (db *Database) Records() []Record { return db.Filter(func(Record) bool { return true }) }

// Filter returns copies of the records matching pred, in id order.
// pred sees the snapshot's own record and must not modify Raw.
// Callers own the returned raw documents; the snapshot is never shared.
func (db *Database) Filter(pred func(Record) bool) []Record {
	out := make([]Record, 0)
	for _, r := range db.records {
		if pred(r) {
			out = append(out, r.clone())
		}
	}
	return out
}

// All returns every record
func (db *Database) All() []Record { return db.Records() }

// PublishedIn returns the records published in the given calendar year (UTC)
func (db *Database) PublishedIn(year int) []Record {
	return db.Filter(func(r Record) bool { return r.Published.Year() == year })
}

// RecentlyPublished returns records published within RecencyWindow before the end of the snapshot day
func (db *Database) RecentlyPublished() []Record {
	from, to := db.window()
	return db.Filter(func(r Record) bool { return within(r.Published, from, to) })
}

// RecentlyModified returns records modified within RecencyWindow before the end of the snapshot day
func (db *Database) RecentlyModified() []Record {
	from, to := db.window()
	return db.Filter(func(r Record) bool { return within(r.LastModified, from, to) })
}

// window is the half-open interval [end of day - RecencyWindow, end of day)
func (db *Database) window() (from, to time.Time) {
	to = ptime.EndOfDay(db.timestamp)
	return to.Add(-RecencyWindow), to
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
