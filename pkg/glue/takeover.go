package glue

import (
	"time"

	"github.com/midiglue/midiglue/pkg/control"
)

// longTimeNoSeeIdle is how long a control must rest before the
// long-time-no-see policy starts approaching instead of picking up.
const longTimeNoSeeIdle = time.Second

// catchUpRatio is the per-event approach fraction of the
// long-time-no-see policy.
const catchUpRatio = 0.5

// applyTakeover reconciles the proposed target value v with the target's
// current value (step 5). Both values are in target space. The previous
// control position is recorded regardless of outcome so the next event
// can detect crossing and deltas.
func (m *Mode) applyTakeover(v control.UnitValue, t Target, now time.Time) (control.UnitValue, bool) {
	prev, have := m.st.lastAbs, m.st.haveLastAbs
	prevAt := m.st.lastAbsAt
	m.st.lastAbs = v
	m.st.haveLastAbs = true
	m.st.lastAbsAt = now

	if m.s.Takeover == TakeoverJump {
		return v, true
	}
	c, know := t.Current()
	if !know {
		return v, true
	}

	switch m.s.Takeover {
	case TakeoverPickUp:
		if pickedUp(prev, have, v, c) {
			return v, true
		}
		return 0, false

	case TakeoverLongTimeNoSee:
		if have && now.Sub(prevAt) < longTimeNoSeeIdle {
			if pickedUp(prev, have, v, c) {
				return v, true
			}
			return 0, false
		}
		// Idle control: approach the input instead of waiting for a
		// crossing, halving the distance per event.
		if v == c {
			return v, true
		}
		return control.Unit(c.F() + (v.F()-c.F())*catchUpRatio), true

	case TakeoverParallel:
		if !have {
			return 0, false
		}
		delta := v.F() - prev.F()
		if delta == 0 {
			return 0, false
		}
		return m.s.TargetInterval.ClampTo(control.Unit(c.F() + delta)), true

	case TakeoverCatchUp:
		if !have {
			return 0, false
		}
		delta := v.F() - prev.F()
		if delta == 0 {
			return 0, false
		}
		// Scale the delta by the ratio of remaining headroom so control
		// and target meet at the range end.
		var factor float64
		if delta > 0 {
			if room := 1 - prev.F(); room > 0 {
				factor = (1 - c.F()) / room
			} else {
				factor = 1
			}
		} else {
			if room := prev.F(); room > 0 {
				factor = c.F() / room
			} else {
				factor = 1
			}
		}
		return m.s.TargetInterval.ClampTo(control.Unit(c.F() + delta*factor)), true

	default:
		return v, true
	}
}

// pickedUp reports whether the control position v has reached or crossed
// the target value c since the previous position.
func pickedUp(prev control.UnitValue, have bool, v, c control.UnitValue) bool {
	if v == c {
		return true
	}
	if !have {
		return false
	}
	return (prev <= c && v >= c) || (prev >= c && v <= c)
}
