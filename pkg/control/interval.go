package control

// Interval is a closed sub-range of the unit interval. Min may equal Max
// (degenerate); mapping out of a degenerate interval yields the lower
// bound rather than dividing by zero.
type Interval struct {
	Min UnitValue
	Max UnitValue
}

// FullInterval spans the whole unit range.
var FullInterval = Interval{Min: 0, Max: 1}

// NewInterval builds an interval, swapping the bounds if given reversed.
func NewInterval(min, max float64) Interval {
	a, b := Unit(min), Unit(max)
	if a > b {
		a, b = b, a
	}
	return Interval{Min: a, Max: b}
}

// Width returns Max - Min.
func (i Interval) Width() float64 { return float64(i.Max - i.Min) }

// IsDegenerate reports whether the interval has zero width.
func (i Interval) IsDegenerate() bool { return i.Min >= i.Max }

// IsFull reports whether the interval spans the whole unit range.
func (i Interval) IsFull() bool { return i.Min == 0 && i.Max == 1 }

// Contains reports whether u lies within the interval bounds.
func (i Interval) Contains(u UnitValue) bool { return u >= i.Min && u <= i.Max }

// Normalize maps a value inside the interval onto the full unit range.
// Values outside the interval are clamped first; callers that need a
// different out-of-range policy must check Contains beforehand.
func (i Interval) Normalize(u UnitValue) UnitValue {
	if i.IsDegenerate() {
		return 0
	}
	if u <= i.Min {
		return 0
	}
	if u >= i.Max {
		return 1
	}
	return UnitValue(float64(u-i.Min) / i.Width())
}

// Denormalize maps a full-range unit value into the interval.
func (i Interval) Denormalize(u UnitValue) UnitValue {
	if i.IsDegenerate() {
		return i.Min
	}
	return Unit(float64(i.Min) + u.F()*i.Width())
}

// ClampTo moves u onto the nearest interval bound if it lies outside.
func (i Interval) ClampTo(u UnitValue) UnitValue {
	if u < i.Min {
		return i.Min
	}
	if u > i.Max {
		return i.Max
	}
	return u
}

// StepInterval is a step-magnitude range used for discrete stepping
// (encoder step factors). Bounds are positive magnitudes; direction is
// carried by the step sign and the glue reverse flag.
type StepInterval struct {
	Min int32
	Max int32
}

// NewStepInterval builds a step interval, swapping reversed bounds and
// raising the minimum to 1.
func NewStepInterval(min, max int32) StepInterval {
	if min > max {
		min, max = max, min
	}
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return StepInterval{Min: min, Max: max}
}

// Clamp restricts the magnitude of step to the interval, preserving sign.
func (s StepInterval) Clamp(step int32) int32 {
	neg := step < 0
	if neg {
		step = -step
	}
	if step < s.Min {
		step = s.Min
	}
	if step > s.Max {
		step = s.Max
	}
	if neg {
		return -step
	}
	return step
}
