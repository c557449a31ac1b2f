package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cverelease/internal/core/cvedb"
	perr "cverelease/internal/platform/errors"
	kit "cverelease/internal/platform/testkit"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func rec(id string, published, modified time.Time) cvedb.Record {
	raw := fmt.Sprintf(`{"id":%q,"published":%q,"lastModified":%q}`,
		id, published.Format("2006-01-02T15:04:05.000"), modified.Format("2006-01-02T15:04:05.000"))
	return cvedb.Record{ID: id, Published: published, LastModified: modified, Raw: json.RawMessage(raw)}
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }

func sampleDB(t *testing.T) *cvedb.Database {
	t.Helper()
	return cvedb.New(kit.Date(t, "2020-06-15"), []cvedb.Record{
		rec("CVE-2019-1000", day(2019, 5, 1), day(2020, 6, 12)),
		rec("CVE-2020-0001", day(2020, 1, 2), day(2020, 1, 2)),
		rec("CVE-2020-0002", day(2020, 6, 10), day(2020, 6, 10)),
		rec("CVE-2019-2000", day(2020, 2, 3), day(2020, 2, 3)),
		rec("CVE-2018-0001", day(2018, 7, 7), day(2018, 7, 7)),
	})
}

func itemIDs(t *testing.T, doc Document) []string {
	t.Helper()
	out := make([]string, len(doc.Items))
	for i, raw := range doc.Items {
		var h struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(raw, &h))
		out[i] = h.ID
	}
	return out
}

func TestWriteYearFeedOnlyContainsThatYear(t *testing.T) {
	dir := t.TempDir()
	res, err := Write(dir, sampleDB(t), "2020", 1)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "CVE-2020.json.xz"), res.Path)
	require.Equal(t, 3, res.Count)
	require.Positive(t, res.Bytes)

	doc, err := Read(res.Path)
	require.NoError(t, err)
	require.Equal(t, "2020-06-15", doc.Timestamp)
	require.Equal(t, "CVE-2020", doc.FeedName)
	require.Equal(t, 3, doc.Count)
	want := []string{"CVE-2019-2000", "CVE-2020-0001", "CVE-2020-0002"}
	if diff := cmp.Diff(want, itemIDs(t, doc)); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteAggregateFeeds(t *testing.T) {
	dir := t.TempDir()
	db := sampleDB(t)

	cases := map[Name][]string{
		NameAll:      {"CVE-2018-0001", "CVE-2019-1000", "CVE-2019-2000", "CVE-2020-0001", "CVE-2020-0002"},
		NameRecent:   {"CVE-2020-0002"},
		NameModified: {"CVE-2019-1000", "CVE-2020-0002"},
		"1999":       {},
	}
	for name, want := range cases {
		t.Run(string(name), func(t *testing.T) {
			res, err := Write(dir, db, name, 0)
			require.NoError(t, err)
			doc, err := Read(res.Path)
			require.NoError(t, err)
			require.Equal(t, name.Label(), doc.FeedName)
			require.Equal(t, len(want), doc.Count)
			require.Equal(t, want, itemIDs(t, doc))
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, len(cases), "no .part files are left behind")
}

func TestWriteRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	db := sampleDB(t)

	_, err := Write(dir, db, "1998", DefaultPreset)
	require.True(t, perr.IsCode(err, perr.ErrorCodeUsage))

	for _, p := range []int{-1, 10} {
		_, err = Write(dir, db, NameAll, p)
		require.True(t, perr.IsCode(err, perr.ErrorCodeUsage), "preset %d", p)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWriteFailureLeavesNoArchive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	_, err := Write(dir, sampleDB(t), NameAll, 0)
	require.Error(t, err)
	require.True(t, perr.IsCode(err, perr.ErrorCodeWrite))
	_, statErr := os.Stat(filepath.Join(dir, NameAll.FileName()))
	require.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestWriterConfigPresets(t *testing.T) {
	for p := 0; p <= 9; p++ {
		cfg, err := WriterConfig(p)
		require.NoError(t, err, "preset %d", p)
		require.Equal(t, presetDictCap[p], cfg.DictCap)
	}
}

func TestWriteRejectsFileAsDestination(t *testing.T) {
	dir := t.TempDir()
	kit.WriteFile(t, dir, "out", []byte("x"))
	dest := filepath.Join(dir, "out")

	_, err := Write(dest, sampleDB(t), NameAll, 0)
	require.True(t, perr.IsCode(err, perr.ErrorCodeWrite))
	require.ErrorContains(t, err, "is not a directory")
	_, statErr := os.Stat(filepath.Join(dest, NameAll.FileName()+".part"))
	require.Error(t, statErr)
}
