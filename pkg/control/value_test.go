package control

import (
	"math"
	"testing"
)

func TestUnitClamping(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.25, 0.25},
		{1, 1},
		{1.5, 1},
	}
	for _, c := range cases {
		if got := Unit(c.in).F(); got != c.want {
			t.Errorf("Unit(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestAbsoluteContinuousClamps(t *testing.T) {
	v := AbsoluteContinuous(2.5)
	if v.Continuous() != 1 {
		t.Errorf("expected clamp to 1, got %v", v.Continuous())
	}
	v = AbsoluteContinuous(-1)
	if v.Continuous() != 0 {
		t.Errorf("expected clamp to 0, got %v", v.Continuous())
	}
}

func TestDiscreteFraction(t *testing.T) {
	cases := []struct {
		actual, max uint32
		want        float64
	}{
		{0, 9, 0},
		{9, 9, 1},
		{3, 9, 3.0 / 9.0},
		{5, 0, 0},  // single position
		{12, 9, 1}, // clamped by constructor path
	}
	for _, c := range cases {
		v := AbsoluteDiscrete(c.actual, c.max)
		if got := v.Continuous().F(); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("AbsoluteDiscrete(%d,%d).Continuous() = %v, want %v",
				c.actual, c.max, got, c.want)
		}
	}
}

func TestValueKinds(t *testing.T) {
	if k := AbsoluteContinuous(0.5).Kind(); k != KindAbsoluteContinuous {
		t.Errorf("unexpected kind %v", k)
	}
	if k := AbsoluteDiscrete(1, 4).Kind(); k != KindAbsoluteDiscrete {
		t.Errorf("unexpected kind %v", k)
	}
	if k := Relative(-3).Kind(); k != KindRelative {
		t.Errorf("unexpected kind %v", k)
	}
	if Relative(-3).Step() != -3 {
		t.Error("relative step lost")
	}
	if AbsoluteContinuous(0.5).Step() != 0 {
		t.Error("absolute value must report zero step")
	}
}

func TestIsPress(t *testing.T) {
	if AbsoluteContinuous(0).IsPress() {
		t.Error("zero value must not count as press")
	}
	if !AbsoluteContinuous(0.7).IsPress() {
		t.Error("non-zero value must count as press")
	}
	if Relative(1).IsPress() {
		t.Error("relative value must not count as press")
	}
}
