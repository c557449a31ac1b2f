package cvedb

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	perr "cverelease/internal/platform/errors"
)

// Record is one CVE document as stored in the feed repository.
// Raw is the compacted original JSON; only the fields needed for
// feed selection are decoded.
type Record struct {
	ID           string
	Published    time.Time
	LastModified time.Time
	Raw          json.RawMessage
}

// clone returns r with its own copy of Raw
func (r Record) clone() Record {
	r.Raw = bytes.Clone(r.Raw)
	return r
}

type recordHeader struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	LastModified string `json:"lastModified"`
}

// timestamp layouts seen in NVD documents; zone-less values are UTC
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// ParseRecord decodes a single CVE document
func ParseRecord(b []byte) (Record, error) {
	var h recordHeader
	if err := json.Unmarshal(b, &h); err != nil {
		return Record{}, perr.Wrap(err, perr.ErrorCodeLoad, "decode record")
	}
	if strings.TrimSpace(h.ID) == "" {
		return Record{}, perr.Loadf("record without id")
	}
	pub, err := parseTime(h.Published)
	if err != nil {
		return Record{}, perr.WithField(perr.Wrapf(err, perr.ErrorCodeLoad, "%s: published", h.ID), "published")
	}
	mod, err := parseTime(h.LastModified)
	if err != nil {
		return Record{}, perr.WithField(perr.Wrapf(err, perr.ErrorCodeLoad, "%s: lastModified", h.ID), "lastModified")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return Record{}, perr.Wrapf(err, perr.ErrorCodeLoad, "%s: compact", h.ID)
	}
	return Record{ID: h.ID, Published: pub, LastModified: mod, Raw: buf.Bytes()}, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, perr.Loadf("missing timestamp")
	}
	var first error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if first == nil {
			first = err
		}
	}
	return time.Time{}, first
}

// idKey splits CVE-YYYY-NNNN into numeric parts for ordering; ok is false
// for ids that do not follow the pattern
func idKey(id string) (year, seq int, ok bool) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 || !strings.EqualFold(parts[0], "CVE") {
		return 0, 0, false
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, false
	}
	return y, n, true
}

// lessID orders CVE ids by year then sequence; malformed ids sort after
// well-formed ones, lexically
func lessID(a, b string) bool {
	ay, an, aok := idKey(a)
	by, bn, bok := idKey(b)
	switch {
	case aok && bok:
		if ay != by {
			return ay < by
		}
		if an != bn {
			return an < bn
		}
		return a < b
	case aok != bok:
		return aok
	default:
		return a < b
	}
}
