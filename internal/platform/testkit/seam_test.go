package testkit

import (
	"testing"
	"time"
)

var clock = func() time.Time { return time.Now() }

func TestSwap_RestoresSeam(t *testing.T) {
	fixed := time.Date(2020, time.June, 15, 12, 0, 0, 0, time.UTC)

	t.Run("swapped", func(t *testing.T) {
		Serial(t)
		Swap(t, &clock, func() time.Time { return fixed })
		if got := clock(); !got.Equal(fixed) {
			t.Fatalf("swap did not take effect, got %v", got)
		}
	})

	if clock().Equal(fixed) {
		t.Fatalf("swap did not restore the original seam")
	}
}

func TestSwap_Value(t *testing.T) {
	n := 10
	t.Run("int", func(t *testing.T) {
		Swap(t, &n, 42)
		if n != 42 {
			t.Fatalf("swap failed, got %d want 42", n)
		}
	})
	if n != 10 {
		t.Fatalf("swap did not restore original, got %d want 10", n)
	}
}
