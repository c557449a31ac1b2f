// Package feed turns a CVE snapshot into named, xz-compressed release archives
package feed

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cverelease/internal/core/cvedb"
	perr "cverelease/internal/platform/errors"
	"cverelease/internal/platform/logger"

	"github.com/ulikunitz/xz"
)

// DefaultPreset matches the xz command line default used for releases
const DefaultPreset = 9

// dictionary sizes of the reference xz presets 0..9
var presetDictCap = [...]int{
	256 << 10,
	1 << 20,
	2 << 20,
	4 << 20,
	4 << 20,
	8 << 20,
	8 << 20,
	16 << 20,
	32 << 20,
	64 << 20,
}

// Result describes one written archive
type Result struct {
	Name  Name
	Path  string
	Count int
	Bytes int64
}

// WriterConfig returns the xz configuration for a preset
func WriterConfig(preset int) (xz.WriterConfig, error) {
	if preset < 0 || preset >= len(presetDictCap) {
		return xz.WriterConfig{}, perr.WithField(perr.Usagef("xz preset %d out of range 0..9", preset), "xz-preset")
	}
	cfg := xz.WriterConfig{DictCap: presetDictCap[preset], CheckSum: xz.CRC64}
	if err := cfg.Verify(); err != nil {
		return xz.WriterConfig{}, perr.Wrap(err, perr.ErrorCodeWrite, "xz config")
	}
	return cfg, nil
}

// Write serializes the records of feed name into destDir/CVE-<name>.json.xz.
// Data goes to a .part file that is renamed into place only after the
// compressor and the file closed cleanly; on failure nothing is left behind.
func Write(destDir string, db *cvedb.Database, name Name, preset int) (Result, error) {
	if _, err := ParseName(string(name)); err != nil {
		return Result{}, err
	}
	cfg, err := WriterConfig(preset)
	if err != nil {
		return Result{}, err
	}

	if fi, err := os.Stat(destDir); err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeWrite, "output directory %s", destDir)
	} else if !fi.IsDir() {
		return Result{}, perr.Writef("output path %s is not a directory", destDir)
	}

	records := name.Select(db)
	final := filepath.Join(destDir, name.FileName())
	tmp := final + ".part"

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeWrite, "create %s", tmp)
	}
	committed := false
	defer func() {
		if !committed {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	zw, err := cfg.NewWriter(out)
	if err != nil {
		return Result{}, perr.Wrap(err, perr.ErrorCodeWrite, "xz writer")
	}
	bw := bufio.NewWriterSize(zw, 1<<20)
	if err := encode(bw, db.Timestamp(), name, records); err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeWrite, "encode %s", name.Label())
	}
	if err := bw.Flush(); err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeWrite, "flush %s", tmp)
	}
	if err := zw.Close(); err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeWrite, "finish xz stream %s", tmp)
	}
	if err := out.Sync(); err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeWrite, "sync %s", tmp)
	}
	if err := out.Close(); err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeWrite, "close %s", tmp)
	}
	if err := os.Rename(tmp, final); err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeWrite, "rename %s", tmp)
	}
	committed = true

	res := Result{Name: name, Path: final, Count: len(records)}
	if fi, err := os.Stat(final); err == nil {
		res.Bytes = fi.Size()
	}
	logger.Named("feed").Debug().
		Str("feed", name.Label()).
		Str("path", final).
		Int("records", res.Count).
		Int64("bytes", res.Bytes).
		Int("xz_preset", preset).
		Msg("archive written")
	return res, nil
}

// encode streams the archive document; record bodies are copied verbatim
//
//	{"timestamp":"2020-06-15","feed_name":"CVE-2020","cve_count":2,"cve_items":[{...},{...}]}
func encode(w io.Writer, ts time.Time, name Name, records []cvedb.Record) error {
	label, err := json.Marshal(name.Label())
	if err != nil {
		return err
	}
	head := `{"timestamp":"` + ts.Format(time.DateOnly) + `","feed_name":` + string(label) +
		`,"cve_count":` + strconv.Itoa(len(records)) + `,"cve_items":[`
	if _, err := io.WriteString(w, head); err != nil {
		return err
	}
	for i, r := range records {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if _, err := w.Write(r.Raw); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "]}\n")
	return err
}

// Document is the decoded form of an archive, used by readers and tests
type Document struct {
	Timestamp string            `json:"timestamp"`
	FeedName  string            `json:"feed_name"`
	Count     int               `json:"cve_count"`
	Items     []json.RawMessage `json:"cve_items"`
}

// Read decompresses and decodes an archive written by Write
func Read(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = f.Close() }()

	zr, err := xz.NewReader(bufio.NewReader(f))
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
