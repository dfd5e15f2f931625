package glue

import (
	"math"
	"time"

	"github.com/midiglue/midiglue/pkg/control"
)

// Control runs the control-direction pipeline for one incoming value and
// returns the final normalized value to write to the target. ok=false
// means the event was consumed without a target invocation (filtered,
// out of range, takeover not picked up yet, target unknown).
func (m *Mode) Control(in control.Value, t Target, now time.Time) (control.UnitValue, bool) {
	if in.Kind() == control.KindRelative {
		step := in.Step()
		if step == 0 || !m.encoderAccepts(step) {
			return 0, false
		}
		if m.s.Reverse {
			step = -step
		}
		return m.relative(step, t, now)
	}

	u, ok := m.applySourceInterval(in.Continuous())
	if !ok {
		return 0, false
	}
	u, ok = m.fireFilter(u, now)
	if !ok {
		return 0, false
	}
	return m.absolute(u, t, now)
}

// PollFire advances time-based fire modes (after-timeout variants).
// Processors call it once per cycle; it returns a target value when the
// hold duration crossed the configured timeout.
func (m *Mode) PollFire(t Target, now time.Time) (control.UnitValue, bool) {
	if !m.st.pressed {
		return 0, false
	}
	f := m.s.Fire
	held := now.Sub(m.st.pressedAt)
	switch f.Kind {
	case FireAfterTimeout:
		if m.st.fired || held < f.Timeout {
			return 0, false
		}
		m.st.fired = true
		return m.absolute(m.st.pressValue, t, now)
	case FireAfterTimeoutKeepFiring:
		if held < f.Timeout {
			return 0, false
		}
		if !m.st.fired {
			m.st.fired = true
			m.st.lastFireAt = now
			return m.absolute(m.st.pressValue, t, now)
		}
		if f.Rate > 0 && now.Sub(m.st.lastFireAt) >= f.Rate {
			m.st.lastFireAt = now
			return m.absolute(m.st.pressValue, t, now)
		}
		return 0, false
	default:
		return 0, false
	}
}

func (m *Mode) encoderAccepts(step int32) bool {
	switch m.s.EncoderFilter {
	case EncoderIncrementOnly:
		return step > 0
	case EncoderDecrementOnly:
		return step < 0
	default:
		return true
	}
}

// applySourceInterval remaps the raw value onto the logical unit range,
// applying the out-of-range policy. Step 1 of the pipeline.
func (m *Mode) applySourceInterval(v control.UnitValue) (control.UnitValue, bool) {
	iv := m.s.SourceInterval
	if !iv.Contains(v) {
		switch m.s.OutOfRange {
		case OutOfRangeIgnore:
			return 0, false
		case OutOfRangeMin:
			return 0, true
		default:
			v = iv.ClampTo(v)
		}
	}
	return iv.Normalize(v), true
}

// fireFilter applies button filters and fire-mode gating. It runs before
// the absolute-mode branch and may swallow the event entirely or replay
// a remembered press value on release.
func (m *Mode) fireFilter(u control.UnitValue, now time.Time) (control.UnitValue, bool) {
	press := u > 0
	switch m.s.ButtonFilter {
	case ButtonPressOnly:
		if !press {
			return 0, false
		}
	case ButtonReleaseOnly:
		if press {
			return 0, false
		}
	}

	f := m.s.Fire
	switch f.Kind {
	case FireNormal:
		if f.MinDuration == 0 && f.MaxDuration == 0 {
			return u, true
		}
		if press {
			m.st.pressed = true
			m.st.pressValue = u
			m.st.pressedAt = now
			return 0, false
		}
		if !m.st.pressed {
			return 0, false
		}
		m.st.pressed = false
		d := now.Sub(m.st.pressedAt)
		if d < f.MinDuration || (f.MaxDuration > 0 && d > f.MaxDuration) {
			return 0, false
		}
		return m.st.pressValue, true
	case FireAfterTimeout, FireAfterTimeoutKeepFiring:
		if press {
			if !m.st.pressed {
				m.st.pressed = true
				m.st.pressValue = u
				m.st.pressedAt = now
				m.st.fired = false
			}
		} else {
			m.st.pressed = false
		}
		// Firing happens in PollFire only.
		return 0, false
	case FireOnSinglePress:
		if press {
			m.st.pressed = true
			m.st.pressValue = u
			m.st.pressedAt = now
			return 0, false
		}
		if !m.st.pressed {
			return 0, false
		}
		m.st.pressed = false
		if f.MaxDuration > 0 && now.Sub(m.st.pressedAt) > f.MaxDuration {
			return 0, false
		}
		return m.st.pressValue, true
	case FireOnDoublePress:
		if !press {
			return 0, false
		}
		if !m.st.lastPressAt.IsZero() && now.Sub(m.st.lastPressAt) <= f.DoublePressWindow {
			m.st.lastPressAt = time.Time{}
			return u, true
		}
		m.st.lastPressAt = now
		return 0, false
	}
	return u, true
}

// absolute runs the absolute-mode branch (step 2) and everything after.
func (m *Mode) absolute(u control.UnitValue, t Target, now time.Time) (control.UnitValue, bool) {
	switch m.s.AbsoluteMode {
	case AbsoluteToggleButton:
		if u == 0 {
			m.st.buttonDown = false
			return 0, false
		}
		if m.st.buttonDown {
			// Held button repeating its press value: at most one flip.
			return 0, false
		}
		m.st.buttonDown = true
		m.st.toggleLatch = !m.st.toggleLatch
		on := m.st.toggleLatch
		if m.s.Reverse {
			on = !on
		}
		if on {
			return m.s.TargetInterval.Max, true
		}
		return m.s.TargetInterval.Min, true

	case AbsoluteIncrementalButton:
		if u == 0 {
			m.st.buttonDown = false
			return 0, false
		}
		if m.st.buttonDown {
			return 0, false
		}
		m.st.buttonDown = true
		step := int32(1)
		if m.s.Reverse {
			step = -1
		}
		return m.relative(step, t, now)

	case AbsoluteMakeRelative:
		prev, have := m.st.lastAbs, m.st.haveLastAbs
		m.st.lastAbs = u
		m.st.haveLastAbs = true
		if !have {
			// First event has no predecessor: zero delta.
			return 0, false
		}
		delta := u.F() - prev.F()
		if delta == 0 {
			return 0, false
		}
		if m.s.Reverse {
			delta = -delta
		}
		return m.relativeContinuousDelta(delta, t)

	default: // AbsoluteNormal
		if m.s.Reverse {
			u = u.Inverse()
		}
		if m.s.ControlTransform != nil {
			cur, _ := t.Current()
			out, err := m.s.ControlTransform.Transform(u.F(), cur.F())
			if err != nil {
				return 0, false
			}
			u = control.Unit(out)
		}
		v := m.s.TargetInterval.Denormalize(u)
		v, ok := m.applyTakeover(v, t, now)
		if !ok {
			return 0, false
		}
		return m.roundToSteps(v, t), true
	}
}

// relative runs the relative pipeline (step 3) for a native or
// synthesized step and maps the result into the target interval.
func (m *Mode) relative(step int32, t Target, now time.Time) (control.UnitValue, bool) {
	if len(m.s.TargetSequence) > 0 {
		return m.sequenceStep(step, t)
	}
	accel := m.accelFraction(now)
	if n := t.StepCount(); n > 1 {
		return m.relativeDiscrete(step, accel, n, t)
	}
	si := m.s.StepSizeInterval
	size := si.Min.F() + accel*(si.Max.F()-si.Min.F())
	return m.relativeContinuousDelta(float64(step)*size, t)
}

// relativeContinuousDelta moves the target by delta within the target
// interval, wrapping or clamping at the bounds.
func (m *Mode) relativeContinuousDelta(delta float64, t Target) (control.UnitValue, bool) {
	c, know := t.Current()
	if !know {
		return 0, false
	}
	iv := m.s.TargetInterval
	nv := iv.ClampTo(c).F() + delta
	switch {
	case nv > iv.Max.F():
		if m.s.Wrap {
			nv = iv.Min.F()
		} else {
			nv = iv.Max.F()
		}
	case nv < iv.Min.F():
		if m.s.Wrap {
			nv = iv.Max.F()
		} else {
			nv = iv.Min.F()
		}
	}
	return m.roundToSteps(control.Unit(nv), t), true
}

// relativeDiscrete steps a discrete target by whole positions, keeping a
// fractional remainder so sub-step deltas accumulate.
func (m *Mode) relativeDiscrete(step int32, accel float64, n uint32, t Target) (control.UnitValue, bool) {
	fi := m.s.StepFactorInterval
	factor := float64(fi.Min) + accel*float64(fi.Max-fi.Min)
	total := float64(step)*factor + m.st.remainder
	whole := math.Trunc(total)
	m.st.remainder = total - whole
	if whole == 0 {
		return 0, false
	}
	c, know := t.Current()
	if !know {
		return 0, false
	}
	maxIdx := int64(n - 1)
	iv := m.s.TargetInterval
	lo := int64(math.Ceil(iv.Min.F() * float64(maxIdx)))
	hi := int64(math.Floor(iv.Max.F() * float64(maxIdx)))
	if hi < lo {
		hi = lo
	}
	idx := int64(math.Round(c.F()*float64(maxIdx))) + int64(whole)
	switch {
	case idx > hi:
		if m.s.Wrap {
			idx = lo
		} else {
			idx = hi
		}
	case idx < lo:
		if m.s.Wrap {
			idx = hi
		} else {
			idx = lo
		}
	}
	return control.Unit(float64(idx) / float64(maxIdx)), true
}

// sequenceStep advances through an explicit target value sequence.
func (m *Mode) sequenceStep(step int32, t Target) (control.UnitValue, bool) {
	seq := m.s.TargetSequence
	if !m.st.seqInit {
		m.st.seqInit = true
		if c, know := t.Current(); know {
			m.st.seqIndex = nearestSequenceIndex(seq, c)
		}
	}
	last := len(seq) - 1
	idx := m.st.seqIndex + int(step)
	switch {
	case idx > last:
		if m.s.Wrap {
			idx = 0
		} else {
			idx = last
		}
	case idx < 0:
		if m.s.Wrap {
			idx = last
		} else {
			idx = 0
		}
	}
	m.st.seqIndex = idx
	return seq[idx], true
}

func nearestSequenceIndex(seq []control.UnitValue, v control.UnitValue) int {
	best, bestDist := 0, math.Inf(1)
	for i, s := range seq {
		if d := math.Abs(s.F() - v.F()); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// accelFraction converts the time since the previous step into the
// acceleration fraction, recording the step time.
func (m *Mode) accelFraction(now time.Time) float64 {
	prev := m.st.lastStepAt
	m.st.lastStepAt = now
	if prev.IsZero() || !now.After(prev) {
		if prev.IsZero() {
			return 0
		}
		return 1 // same-instant repeat counts as fastest
	}
	return m.s.Accel(now.Sub(prev))
}

// roundToSteps snaps the value onto the target's step grid (step 6).
func (m *Mode) roundToSteps(v control.UnitValue, t Target) control.UnitValue {
	n := t.StepCount()
	if n < 2 {
		return v
	}
	maxIdx := float64(n - 1)
	return control.Unit(math.Round(v.F()*maxIdx) / maxIdx)
}
