package glue

import (
	"math"
	"testing"
	"time"

	"github.com/midiglue/midiglue/pkg/control"
)

// fakeTarget simulates a host target; tests write successful outcomes
// back so the glue sees its own effect, like the real dispatch loop.
type fakeTarget struct {
	v     control.UnitValue
	know  bool
	steps uint32
}

func (f *fakeTarget) Current() (control.UnitValue, bool) { return f.v, f.know }
func (f *fakeTarget) StepCount() uint32                  { return f.steps }

func continuousTarget(v float64) *fakeTarget {
	return &fakeTarget{v: control.Unit(v), know: true}
}

func abs(v float64) control.Value { return control.AbsoluteContinuous(v) }

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func TestNormalModePassThrough(t *testing.T) {
	m := NewMode(Settings{})
	tgt := continuousTarget(0.5)
	out, ok := m.Control(abs(64.0/127.0), tgt, at(0))
	if !ok {
		t.Fatal("expected a target write")
	}
	if math.Abs(out.F()-64.0/127.0) > 1e-9 {
		t.Errorf("got %v, want %v", out.F(), 64.0/127.0)
	}
}

func TestRoundTripScaling(t *testing.T) {
	// Feeding the source interval bounds must hit the target interval
	// bounds, and feedback of those must return the source bounds.
	cases := []struct{ a, b, c, d float64 }{
		{0, 1, 0, 1},
		{0.1, 0.9, 0.2, 0.8},
		{0.25, 0.5, 0, 1},
		{0, 1, 0.4, 0.6},
	}
	for _, cse := range cases {
		m := NewMode(Settings{
			SourceInterval: control.NewInterval(cse.a, cse.b),
			TargetInterval: control.NewInterval(cse.c, cse.d),
		})
		tgt := continuousTarget(0.5)

		out, ok := m.Control(abs(cse.a), tgt, at(0))
		if !ok || math.Abs(out.F()-cse.c) > 1e-9 {
			t.Errorf("[%v,%v]->[%v,%v]: a gave %v ok=%v, want %v", cse.a, cse.b, cse.c, cse.d, out.F(), ok, cse.c)
		}
		out, ok = m.Control(abs(cse.b), tgt, at(1))
		if !ok || math.Abs(out.F()-cse.d) > 1e-9 {
			t.Errorf("[%v,%v]->[%v,%v]: b gave %v ok=%v, want %v", cse.a, cse.b, cse.c, cse.d, out.F(), ok, cse.d)
		}

		fb, ok := m.Feedback(control.Unit(cse.c))
		if !ok || math.Abs(fb.F()-cse.a) > 1e-9 {
			t.Errorf("feedback of %v gave %v ok=%v, want %v", cse.c, fb.F(), ok, cse.a)
		}
		fb, ok = m.Feedback(control.Unit(cse.d))
		if !ok || math.Abs(fb.F()-cse.b) > 1e-9 {
			t.Errorf("feedback of %v gave %v ok=%v, want %v", cse.d, fb.F(), ok, cse.b)
		}
	}
}

func TestReverseAppliesToControlAndFeedback(t *testing.T) {
	m := NewMode(Settings{Reverse: true})
	tgt := continuousTarget(0.5)
	out, ok := m.Control(abs(0.2), tgt, at(0))
	if !ok || math.Abs(out.F()-0.8) > 1e-9 {
		t.Errorf("control gave %v ok=%v, want 0.8", out.F(), ok)
	}
	fb, ok := m.Feedback(control.Unit(0.8))
	if !ok || math.Abs(fb.F()-0.2) > 1e-9 {
		t.Errorf("feedback gave %v ok=%v, want 0.2", fb.F(), ok)
	}
}

func TestOutOfRangeBehaviors(t *testing.T) {
	src := control.NewInterval(0.4, 0.6)
	tgt := continuousTarget(0.5)

	m := NewMode(Settings{SourceInterval: src, OutOfRange: OutOfRangeMinOrMax})
	if out, ok := m.Control(abs(0.9), tgt, at(0)); !ok || out != 1 {
		t.Errorf("MinOrMax above gave %v ok=%v, want 1", out, ok)
	}
	if out, ok := m.Control(abs(0.1), tgt, at(1)); !ok || out != 0 {
		t.Errorf("MinOrMax below gave %v ok=%v, want 0", out, ok)
	}

	m = NewMode(Settings{SourceInterval: src, OutOfRange: OutOfRangeMin})
	if out, ok := m.Control(abs(0.9), tgt, at(2)); !ok || out != 0 {
		t.Errorf("Min gave %v ok=%v, want 0", out, ok)
	}

	m = NewMode(Settings{SourceInterval: src, OutOfRange: OutOfRangeIgnore})
	if _, ok := m.Control(abs(0.9), tgt, at(3)); ok {
		t.Error("Ignore must drop the event")
	}
	if out, ok := m.Control(abs(0.5), tgt, at(4)); !ok || math.Abs(out.F()-0.5) > 1e-9 {
		t.Errorf("in-range value gave %v ok=%v, want 0.5", out, ok)
	}
}

func TestDegenerateIntervalsAreConstant(t *testing.T) {
	m := NewMode(Settings{
		SourceInterval: control.NewInterval(0.5, 0.5),
		TargetInterval: control.NewInterval(0.3, 0.3),
	})
	tgt := continuousTarget(0.5)
	out, ok := m.Control(abs(0.5), tgt, at(0))
	if !ok {
		t.Fatal("expected a write")
	}
	if out.F() != 0.3 {
		t.Errorf("degenerate target interval must emit its bound, got %v", out.F())
	}
	if math.IsNaN(out.F()) {
		t.Error("degenerate interval produced NaN")
	}
	fb, ok := m.Feedback(control.Unit(0.3))
	if !ok || math.IsNaN(fb.F()) {
		t.Errorf("degenerate feedback gave %v ok=%v", fb.F(), ok)
	}
}

func TestToggleFlipsOncePerPressTransition(t *testing.T) {
	m := NewMode(Settings{AbsoluteMode: AbsoluteToggleButton})
	tgt := continuousTarget(0)

	out, ok := m.Control(abs(1), tgt, at(0))
	if !ok || out != 1 {
		t.Fatalf("first press gave %v ok=%v, want 1", out, ok)
	}
	// Held button repeating the press value: no further transition.
	if _, ok := m.Control(abs(1), tgt, at(10)); ok {
		t.Error("held repeat must not flip again")
	}
	if _, ok := m.Control(abs(0.8), tgt, at(20)); ok {
		t.Error("held repeat with different pressure must not flip again")
	}
	// Release produces no write.
	if _, ok := m.Control(abs(0), tgt, at(30)); ok {
		t.Error("release must not write")
	}
	// Second press flips back to the lower bound.
	out, ok = m.Control(abs(1), tgt, at(40))
	if !ok || out != 0 {
		t.Errorf("second press gave %v ok=%v, want 0", out, ok)
	}
}

func TestToggleUsesTargetIntervalBounds(t *testing.T) {
	m := NewMode(Settings{
		AbsoluteMode:   AbsoluteToggleButton,
		TargetInterval: control.NewInterval(0.2, 0.7),
	})
	tgt := continuousTarget(0)
	out, ok := m.Control(abs(1), tgt, at(0))
	if !ok || math.Abs(out.F()-0.7) > 1e-9 {
		t.Errorf("toggle on gave %v, want 0.7", out.F())
	}
	m.Control(abs(0), tgt, at(10))
	out, ok = m.Control(abs(1), tgt, at(20))
	if !ok || math.Abs(out.F()-0.2) > 1e-9 {
		t.Errorf("toggle off gave %v, want 0.2", out.F())
	}
}

func TestRelativeWrap(t *testing.T) {
	tgt := continuousTarget(0)

	m := NewMode(Settings{Wrap: true, StepSizeInterval: control.NewInterval(0.01, 0.01)})
	out, ok := m.Control(control.Relative(-1), tgt, at(0))
	if !ok || out != 1 {
		t.Errorf("wrap decrement from 0 gave %v ok=%v, want 1", out, ok)
	}

	m = NewMode(Settings{Wrap: false, StepSizeInterval: control.NewInterval(0.01, 0.01)})
	out, ok = m.Control(control.Relative(-1), tgt, at(0))
	if !ok || out != 0 {
		t.Errorf("clamp decrement from 0 gave %v ok=%v, want 0", out, ok)
	}
}

func TestRelativeStepSize(t *testing.T) {
	m := NewMode(Settings{StepSizeInterval: control.NewInterval(0.05, 0.05)})
	tgt := continuousTarget(0.5)
	out, ok := m.Control(control.Relative(2), tgt, at(0))
	if !ok || math.Abs(out.F()-0.6) > 1e-9 {
		t.Errorf("step +2 of 0.05 gave %v ok=%v, want 0.6", out.F(), ok)
	}
}

func TestIncrementalButtonSteppedTarget(t *testing.T) {
	// Ten discrete positions, factor [1,1], wrap off: ten presses from 0
	// land on the maximum, the eleventh leaves it there.
	m := NewMode(Settings{
		AbsoluteMode:       AbsoluteIncrementalButton,
		StepFactorInterval: control.NewStepInterval(1, 1),
	})
	tgt := &fakeTarget{v: 0, know: true, steps: 10}
	for i := 0; i < 10; i++ {
		out, ok := m.Control(abs(1), tgt, at(i*100))
		if !ok {
			t.Fatalf("press %d produced no write", i+1)
		}
		tgt.v = out
		m.Control(abs(0), tgt, at(i*100+50)) // release
		want := float64(i+1) / 9.0
		if i == 9 {
			want = 1
		}
		if math.Abs(out.F()-want) > 1e-9 {
			t.Errorf("press %d: value %v, want %v", i+1, out.F(), want)
		}
	}
	if tgt.v != 1 {
		t.Fatalf("after ten presses target is %v, want 1", tgt.v)
	}
	out, ok := m.Control(abs(1), tgt, at(2000))
	if ok {
		tgt.v = out
	}
	if tgt.v != 1 {
		t.Errorf("eleventh press moved the target to %v", tgt.v)
	}
}

func TestRelativeDiscreteWrap(t *testing.T) {
	m := NewMode(Settings{Wrap: true, StepFactorInterval: control.NewStepInterval(1, 1)})
	tgt := &fakeTarget{v: 1, know: true, steps: 5}
	out, ok := m.Control(control.Relative(1), tgt, at(0))
	if !ok || out != 0 {
		t.Errorf("increment past max gave %v ok=%v, want wrap to 0", out, ok)
	}
}

func TestMakeRelativeFirstEventIsZeroDelta(t *testing.T) {
	m := NewMode(Settings{
		AbsoluteMode:     AbsoluteMakeRelative,
		StepSizeInterval: control.NewInterval(0.01, 0.01),
	})
	tgt := continuousTarget(0.5)
	if _, ok := m.Control(abs(0.3), tgt, at(0)); ok {
		t.Error("first event must be treated as zero delta")
	}
	out, ok := m.Control(abs(0.4), tgt, at(100))
	if !ok || math.Abs(out.F()-0.6) > 1e-9 {
		t.Errorf("delta +0.1 gave %v ok=%v, want 0.6", out.F(), ok)
	}
}

func TestPickupIgnoresUntilCrossing(t *testing.T) {
	m := NewMode(Settings{Takeover: TakeoverPickUp})
	tgt := continuousTarget(0.5)

	// Approaching from below without crossing: no writes.
	if _, ok := m.Control(abs(0.1), tgt, at(0)); ok {
		t.Error("0.1 must not write yet")
	}
	if _, ok := m.Control(abs(0.3), tgt, at(10)); ok {
		t.Error("0.3 must not write yet")
	}
	// Crossing 0.5 picks up.
	out, ok := m.Control(abs(0.6), tgt, at(20))
	if !ok || math.Abs(out.F()-0.6) > 1e-9 {
		t.Fatalf("crossing gave %v ok=%v, want 0.6", out.F(), ok)
	}
	tgt.v = out
	// From here on input tracks exactly.
	for i, v := range []float64{0.55, 0.7, 0.2} {
		out, ok := m.Control(abs(v), tgt, at(30+i*10))
		if !ok || math.Abs(out.F()-v) > 1e-9 {
			t.Errorf("tracking %v gave %v ok=%v", v, out.F(), ok)
		}
		tgt.v = out
	}
}

func TestPickupExactHitWrites(t *testing.T) {
	m := NewMode(Settings{Takeover: TakeoverPickUp})
	tgt := continuousTarget(0.5)
	out, ok := m.Control(abs(0.5), tgt, at(0))
	if !ok || out.F() != 0.5 {
		t.Errorf("exact hit gave %v ok=%v", out.F(), ok)
	}
}

func TestParallelTakeoverMovesByDelta(t *testing.T) {
	m := NewMode(Settings{Takeover: TakeoverParallel})
	tgt := continuousTarget(0.5)
	if _, ok := m.Control(abs(0.1), tgt, at(0)); ok {
		t.Error("first event has no delta and must not write")
	}
	out, ok := m.Control(abs(0.2), tgt, at(10))
	if !ok || math.Abs(out.F()-0.6) > 1e-9 {
		t.Errorf("delta +0.1 gave %v ok=%v, want 0.6", out.F(), ok)
	}
}

func TestCatchUpConvergesAtRangeEnd(t *testing.T) {
	m := NewMode(Settings{Takeover: TakeoverCatchUp})
	tgt := continuousTarget(0.5)
	m.Control(abs(0.2), tgt, at(0)) // record position
	// Moving the control to its max must land the target at its max.
	out, ok := m.Control(abs(1), tgt, at(10))
	if !ok {
		t.Fatal("expected write")
	}
	if math.Abs(out.F()-1) > 1e-9 {
		t.Errorf("catch-up at range end gave %v, want 1", out.F())
	}
}

func TestLongTimeNoSeeApproachesAfterIdle(t *testing.T) {
	m := NewMode(Settings{Takeover: TakeoverLongTimeNoSee})
	tgt := continuousTarget(0.0)
	m.Control(abs(0.8), tgt, at(0))
	// Two seconds later the control is idle: the next event approaches
	// rather than jumps or waits.
	out, ok := m.Control(abs(0.8), tgt, at(2000))
	if !ok {
		t.Fatal("idle event must write")
	}
	if out.F() <= 0 || out.F() >= 0.8 {
		t.Errorf("approach value %v must lie strictly between target and input", out.F())
	}
}

func TestAccelerationMonotonicity(t *testing.T) {
	// Faster repeats must produce larger or equal continuous steps.
	step := func(gap time.Duration) float64 {
		m := NewMode(Settings{StepSizeInterval: control.NewInterval(0.01, 0.10)})
		tgt := continuousTarget(0.2)
		if out, ok := m.Control(control.Relative(1), tgt, at(0)); ok {
			tgt.v = out
		}
		base := tgt.v.F()
		out, ok := m.Control(control.Relative(1), tgt, t0.Add(gap))
		if !ok {
			t.Fatalf("gap %v produced no step", gap)
		}
		return out.F() - base
	}
	gaps := []time.Duration{
		5 * time.Millisecond,
		20 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
	}
	prev := math.Inf(1)
	for _, g := range gaps {
		d := step(g)
		if d <= 0 {
			t.Fatalf("gap %v: non-positive step %v", g, d)
		}
		if d > prev+1e-12 {
			t.Errorf("gap %v: step %v exceeds faster gap's step %v", g, d, prev)
		}
		prev = d
	}
}

func TestTargetSequenceStepping(t *testing.T) {
	seq := []control.UnitValue{0, 0.25, 0.5, 0.75, 1}
	m := NewMode(Settings{TargetSequence: seq, Wrap: true})
	tgt := continuousTarget(0)
	var got []float64
	for i := 0; i < 6; i++ {
		out, ok := m.Control(control.Relative(1), tgt, at(i*100))
		if !ok {
			t.Fatalf("sequence step %d produced nothing", i)
		}
		tgt.v = out
		got = append(got, out.F())
	}
	want := []float64{0.25, 0.5, 0.75, 1, 0, 0.25}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("sequence produced %v, want %v", got, want)
			break
		}
	}
}

func TestUnresolvedTargetBlocksRelative(t *testing.T) {
	m := NewMode(Settings{})
	tgt := &fakeTarget{know: false}
	if _, ok := m.Control(control.Relative(1), tgt, at(0)); ok {
		t.Error("relative step against unknown target value must not write")
	}
}

func TestResetDiscardsRuntimeState(t *testing.T) {
	m := NewMode(Settings{AbsoluteMode: AbsoluteToggleButton})
	tgt := continuousTarget(0)
	m.Control(abs(1), tgt, at(0))
	if !m.ToggleLatch() {
		t.Fatal("latch should be set")
	}
	m.Reset()
	if m.ToggleLatch() {
		t.Error("reset must clear the latch")
	}
	out, ok := m.Control(abs(1), tgt, at(100))
	if !ok || out != 1 {
		t.Errorf("post-reset press gave %v ok=%v, want fresh flip to 1", out, ok)
	}
}
