package arb

import (
	"math"
	"testing"
)

func TestTotalCmp_OrdersNaNDeterministically(t *testing.T) {
	nan := math.NaN()
	neg := -1.0
	pos := 1.0

	if totalCmp(neg, pos) >= 0 {
		t.Fatal("negative must sort before positive")
	}
	if totalCmp(pos, pos) != 0 {
		t.Fatal("equal values must compare equal")
	}
	// NaN must land somewhere consistent, not panic or flip between calls.
	first := totalCmp(nan, pos)
	second := totalCmp(nan, pos)
	if first != second {
		t.Fatal("totalCmp must be deterministic for NaN")
	}
	if totalCmp(nan, nan) != 0 {
		t.Fatal("identical NaN bit patterns must compare equal")
	}
}

func TestTotalCmp_ZeroSigns(t *testing.T) {
	if totalCmp(0.0, math.Copysign(0, -1)) == 0 {
		t.Fatal("total order distinguishes +0 from -0, unlike ==")
	}
}
