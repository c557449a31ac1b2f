package feed

import (
	"regexp"
	"strconv"

	"cverelease/internal/core/cvedb"
	perr "cverelease/internal/platform/errors"
)

// Name identifies a feed: a four digit year from FirstYear on, or one of the aggregate names
type Name string

// Aggregate feed names
const (
	NameAll      Name = "all"
	NameRecent   Name = "recent"
	NameModified Name = "modified"
)

// FirstYear is the oldest yearly feed
const FirstYear = 1999

var yearRe = regexp.MustCompile(`^\d{4}$`)

// IsValidName reports whether s is in the feed name vocabulary
func IsValidName(s string) bool {
	_, err := ParseName(s)
	return err == nil
}

// ParseName validates s and returns it as a Name
func ParseName(s string) (Name, error) {
	switch n := Name(s); n {
	case NameAll, NameRecent, NameModified:
		return n, nil
	}
	if yearRe.MatchString(s) {
		if y, _ := strconv.Atoi(s); y >= FirstYear {
			return Name(s), nil
		}
	}
	return "", perr.WithField(perr.Usagef(
		"%s is not a valid --feed-name. Please choose either a year from %d on, or one of 'all', 'recent', or 'modified'",
		strconv.Quote(s), FirstYear), "feed-name")
}

// YearName returns the feed name for a year
func YearName(year int) Name { return Name(strconv.Itoa(year)) }

// Year returns the year of a yearly feed
func (n Name) Year() (int, bool) {
	if !yearRe.MatchString(string(n)) {
		return 0, false
	}
	y, err := strconv.Atoi(string(n))
	return y, err == nil
}

// Label is the feed name as written into archives, e.g. CVE-2020
func (n Name) Label() string { return "CVE-" + string(n) }

// FileName is the archive file name, e.g. CVE-2020.json.xz
func (n Name) FileName() string { return n.Label() + ".json.xz" }

// Select returns the records that belong to the feed
func (n Name) Select(db *cvedb.Database) []cvedb.Record {
	switch n {
	case NameAll:
		return db.All()
	case NameRecent:
		return db.RecentlyPublished()
	case NameModified:
		return db.RecentlyModified()
	}
	if y, ok := n.Year(); ok {
		return db.PublishedIn(y)
	}
	return nil
}

// AllNames lists every feed of a full release through the given year:
// each year from FirstYear, then all, recent and modified
func AllNames(through int) []Name {
	out := make([]Name, 0, max(through-FirstYear+1, 0)+3)
	for y := FirstYear; y <= through; y++ {
		out = append(out, YearName(y))
	}
	return append(out, NameAll, NameRecent, NameModified)
}
