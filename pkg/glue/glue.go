// Package glue implements the stateful transformation stage between a
// source and a target: interval scaling, absolute/relative conversion,
// stepping, toggling, takeover, fire modes and value sequencing. One Mode
// instance belongs to exactly one mapping on one processor; it is never
// shared across threads.
package glue

import (
	"time"

	"github.com/midiglue/midiglue/pkg/control"
)

// AbsoluteMode selects how absolute control values drive the target.
type AbsoluteMode uint8

const (
	// AbsoluteNormal passes the scaled value through.
	AbsoluteNormal AbsoluteMode = iota
	// AbsoluteToggleButton flips a latch on every press transition.
	AbsoluteToggleButton
	// AbsoluteIncrementalButton turns each press into a relative step.
	AbsoluteIncrementalButton
	// AbsoluteMakeRelative derives relative deltas from consecutive
	// absolute values (performance-control style).
	AbsoluteMakeRelative
)

// OutOfRangeBehavior decides what happens to values outside the source
// interval.
type OutOfRangeBehavior uint8

const (
	// OutOfRangeMinOrMax clamps to the nearest bound.
	OutOfRangeMinOrMax OutOfRangeBehavior = iota
	// OutOfRangeMin maps any outside value to the minimum.
	OutOfRangeMin
	// OutOfRangeIgnore drops the event.
	OutOfRangeIgnore
)

// TakeoverMode reconciles an absolute controller position with a target
// value that has diverged from it.
type TakeoverMode uint8

const (
	// TakeoverJump applies the incoming value immediately.
	TakeoverJump TakeoverMode = iota
	// TakeoverPickUp ignores input until it crosses the target value.
	TakeoverPickUp
	// TakeoverLongTimeNoSee approaches the input gradually after the
	// control has been idle.
	TakeoverLongTimeNoSee
	// TakeoverParallel moves the target by the control's delta.
	TakeoverParallel
	// TakeoverCatchUp scales deltas so control and target converge at
	// the range ends.
	TakeoverCatchUp
)

// ButtonFilter gates press/release events ahead of the pipeline.
type ButtonFilter uint8

const (
	ButtonFilterNone ButtonFilter = iota
	ButtonPressOnly
	ButtonReleaseOnly
)

// EncoderFilter gates relative steps by direction.
type EncoderFilter uint8

const (
	EncoderFilterNone EncoderFilter = iota
	EncoderIncrementOnly
	EncoderDecrementOnly
)

// FireKind selects the button timing behavior.
type FireKind uint8

const (
	// FireNormal fires on press (optionally gated by a press-duration
	// interval evaluated on release).
	FireNormal FireKind = iota
	// FireAfterTimeout fires once when the button has been held for
	// Timeout.
	FireAfterTimeout
	// FireAfterTimeoutKeepFiring fires after Timeout and keeps firing
	// every Rate while held.
	FireAfterTimeoutKeepFiring
	// FireOnSinglePress fires on release when the press was shorter
	// than MaxDuration.
	FireOnSinglePress
	// FireOnDoublePress fires when two presses arrive within
	// DoublePressWindow.
	FireOnDoublePress
)

// DefaultDoublePressWindow is used when a double-press fire mode does
// not configure its own window.
const DefaultDoublePressWindow = 300 * time.Millisecond

// FireMode bundles the button timing configuration.
type FireMode struct {
	Kind              FireKind
	MinDuration       time.Duration // FireNormal press-duration gate
	MaxDuration       time.Duration // FireNormal gate / FireOnSinglePress limit
	Timeout           time.Duration // FireAfterTimeout*
	Rate              time.Duration // FireAfterTimeoutKeepFiring
	DoublePressWindow time.Duration // FireOnDoublePress
}

// Transformation is a user-supplied value formula. input is the incoming
// value, current the value it is about to replace; both normalized. The
// production implementation is the Lua evaluator in pkg/script.
type Transformation interface {
	Transform(input, current float64) (float64, error)
}

// AccelerationCurve maps the time since the previous step onto a factor
// in [0,1] that picks the effective step within the configured step
// interval (0 selects the minimum, 1 the maximum). The exact curve is a
// replaceable policy; only monotonicity is relied upon.
type AccelerationCurve func(sincePrevious time.Duration) float64

// DefaultAcceleration is linear between 150 ms (no acceleration) and
// 10 ms (full acceleration).
func DefaultAcceleration(since time.Duration) float64 {
	const slow = 150 * time.Millisecond
	const fast = 10 * time.Millisecond
	if since >= slow {
		return 0
	}
	if since <= fast {
		return 1
	}
	return float64(slow-since) / float64(slow-fast)
}

// Settings is the immutable configuration of a glue section. The zero
// value is normalized by NewMode into sensible defaults (full intervals,
// single steps, jump takeover).
type Settings struct {
	AbsoluteMode       AbsoluteMode
	SourceInterval     control.Interval
	TargetInterval     control.Interval
	StepSizeInterval   control.Interval     // continuous targets
	StepFactorInterval control.StepInterval // discrete targets
	Reverse            bool
	Wrap               bool
	OutOfRange         OutOfRangeBehavior
	Takeover           TakeoverMode
	RoundTargetValue   bool
	ButtonFilter       ButtonFilter
	EncoderFilter      EncoderFilter
	Fire               FireMode
	ControlTransform   Transformation
	FeedbackTransform  Transformation
	// TargetSequence, when non-empty, replaces the continuous range with
	// an explicit cycle of target values driven by relative steps.
	TargetSequence []control.UnitValue
	Accel          AccelerationCurve
}

// state is the per-mapping runtime substate. It lives next to the mode
// in whichever processor owns the mapping copy and is discarded when the
// mapping deactivates.
type state struct {
	toggleLatch bool
	buttonDown  bool // press-transition detection for toggle/incremental

	lastAbs     control.UnitValue // last absolute value seen (make-relative, takeover)
	haveLastAbs bool
	lastAbsAt   time.Time

	remainder  float64   // fractional step carry
	lastStepAt time.Time // acceleration reference

	pressed     bool
	pressValue  control.UnitValue
	pressedAt   time.Time
	lastPressAt time.Time // double press detection
	fired       bool      // timeout fire already happened for this hold
	lastFireAt  time.Time // keep-firing rate limit

	seqIndex int
	seqInit  bool
}

// Target is the narrow view of a target the glue stage needs.
type Target interface {
	// Current returns the target's current normalized value; ok=false
	// when the value is unknown (unresolved target).
	Current() (control.UnitValue, bool)
	// StepCount returns the number of discrete positions, 0 for
	// continuous targets.
	StepCount() uint32
}

// Mode is a glue section: settings plus runtime state.
type Mode struct {
	s  Settings
	st state
}

// NewMode builds a mode, normalizing zero-value settings fields.
func NewMode(s Settings) *Mode {
	if s.SourceInterval == (control.Interval{}) {
		s.SourceInterval = control.FullInterval
	}
	if s.TargetInterval == (control.Interval{}) {
		s.TargetInterval = control.FullInterval
	}
	if s.StepSizeInterval == (control.Interval{}) {
		s.StepSizeInterval = control.NewInterval(0.01, 0.01)
	}
	if s.StepFactorInterval == (control.StepInterval{}) {
		s.StepFactorInterval = control.NewStepInterval(1, 1)
	}
	if s.Accel == nil {
		s.Accel = DefaultAcceleration
	}
	if s.Fire.Kind == FireOnDoublePress && s.Fire.DoublePressWindow == 0 {
		s.Fire.DoublePressWindow = DefaultDoublePressWindow
	}
	return &Mode{s: s}
}

// Settings returns the mode configuration.
func (m *Mode) Settings() Settings { return m.s }

// Reset discards all runtime state (toggle latch, step memory, press
// timing). Called when the owning mapping deactivates so no state
// carries across activation cycles.
func (m *Mode) Reset() {
	m.st = state{}
}

// ToggleLatch reports the current toggle state, for feedback of toggle
// mappings whose target cannot be read.
func (m *Mode) ToggleLatch() bool { return m.st.toggleLatch }

// NeedsPolling reports whether the mode fires on hold duration and must
// therefore be polled every cycle, not only on events.
func (m *Mode) NeedsPolling() bool {
	return m.s.Fire.Kind == FireAfterTimeout || m.s.Fire.Kind == FireAfterTimeoutKeepFiring
}
