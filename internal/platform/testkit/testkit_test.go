package testkit

import (
	"os"
	"testing"
	"time"
)

func TestMustPanic(t *testing.T) {
	t.Parallel()

	MustPanic(t, func() {
		panic("boom")
	})
}

func TestMustContain(t *testing.T) {
	t.Parallel()

	MustContain(t, "Creating 2020 archive", "2020")
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	p := WriteFile(t, root, "CVE-2020/CVE-2020-00xx/CVE-2020-0001.json", []byte(`{}`))
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "{}" {
		t.Fatalf("ReadFile(%s) = %q, %v", p, b, err)
	}
}

func TestDate(t *testing.T) {
	t.Parallel()

	d := Date(t, "2020-06-15")
	if !d.Equal(time.Date(2020, time.June, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Date = %v", d)
	}
}
