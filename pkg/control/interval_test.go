package control

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestIntervalNormalizeDenormalizeRoundTrip(t *testing.T) {
	intervals := []Interval{
		NewInterval(0, 1),
		NewInterval(0.2, 0.8),
		NewInterval(0.5, 0.75),
		NewInterval(0, 0.1),
	}
	for _, iv := range intervals {
		for _, u := range []float64{0, 0.25, 0.5, 0.75, 1} {
			in := iv.Denormalize(Unit(u))
			out := iv.Normalize(in)
			if !almostEqual(out.F(), u) {
				t.Errorf("interval %+v: round trip of %v gave %v", iv, u, out.F())
			}
		}
	}
}

func TestIntervalBoundsMapToBounds(t *testing.T) {
	iv := NewInterval(0.3, 0.9)
	if got := iv.Normalize(iv.Min); got != 0 {
		t.Errorf("lower bound must normalize to 0, got %v", got)
	}
	if got := iv.Normalize(iv.Max); got != 1 {
		t.Errorf("upper bound must normalize to 1, got %v", got)
	}
}

func TestDegenerateIntervalNeverDivides(t *testing.T) {
	iv := NewInterval(0.4, 0.4)
	if !iv.IsDegenerate() {
		t.Fatal("expected degenerate interval")
	}
	if got := iv.Normalize(Unit(0.4)); got != 0 {
		t.Errorf("degenerate normalize must yield 0, got %v", got)
	}
	if got := iv.Denormalize(Unit(0.7)); got != iv.Min {
		t.Errorf("degenerate denormalize must yield lower bound, got %v", got)
	}
}

func TestIntervalSwapsReversedBounds(t *testing.T) {
	iv := NewInterval(0.9, 0.1)
	if iv.Min != Unit(0.1) || iv.Max != Unit(0.9) {
		t.Errorf("bounds not swapped: %+v", iv)
	}
}

func TestIntervalClampTo(t *testing.T) {
	iv := NewInterval(0.25, 0.75)
	cases := []struct{ in, want float64 }{
		{0, 0.25},
		{0.25, 0.25},
		{0.5, 0.5},
		{0.75, 0.75},
		{1, 0.75},
	}
	for _, c := range cases {
		if got := iv.ClampTo(Unit(c.in)); !almostEqual(got.F(), c.want) {
			t.Errorf("ClampTo(%v) = %v, want %v", c.in, got.F(), c.want)
		}
	}
}

func TestStepIntervalClamp(t *testing.T) {
	s := NewStepInterval(2, 5)
	cases := []struct{ in, want int32 }{
		{1, 2},
		{3, 3},
		{9, 5},
		{-1, -2},
		{-7, -5},
	}
	for _, c := range cases {
		if got := s.Clamp(c.in); got != c.want {
			t.Errorf("Clamp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestStepIntervalMinimumIsOne(t *testing.T) {
	s := NewStepInterval(0, 0)
	if s.Min != 1 || s.Max != 1 {
		t.Errorf("expected [1,1], got %+v", s)
	}
}
