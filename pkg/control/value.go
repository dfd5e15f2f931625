// Package control defines the normalized value model shared by sources,
// glue sections and targets: unit values in [0,1], discrete fractions and
// signed relative steps.
package control

import "fmt"

// UnitValue is a continuous value in the closed unit interval.
// Constructors clamp, so a UnitValue obtained through this package is
// always in range.
type UnitValue float64

// Unit clamps v into [0,1].
func Unit(v float64) UnitValue {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return UnitValue(v)
}

// F returns the value as a plain float64.
func (u UnitValue) F() float64 { return float64(u) }

// Inverse returns 1 - u.
func (u UnitValue) Inverse() UnitValue { return UnitValue(1) - u }

// DiscreteValue is an index into a fixed number of steps.
// Max is the highest valid index, so a control with N positions has Max N-1.
type DiscreteValue struct {
	Actual uint32
	Max    uint32
}

// Fraction converts the discrete position to a unit value.
// A single-position control maps to 0.
func (d DiscreteValue) Fraction() UnitValue {
	if d.Max == 0 {
		return 0
	}
	if d.Actual >= d.Max {
		return 1
	}
	return UnitValue(float64(d.Actual) / float64(d.Max))
}

// Kind discriminates the Value union.
type Kind uint8

const (
	KindAbsoluteContinuous Kind = iota
	KindAbsoluteDiscrete
	KindRelative
)

func (k Kind) String() string {
	switch k {
	case KindAbsoluteContinuous:
		return "AbsoluteContinuous"
	case KindAbsoluteDiscrete:
		return "AbsoluteDiscrete"
	case KindRelative:
		return "Relative"
	default:
		return "Unknown"
	}
}

// Value is the tagged union of everything a control can say: an absolute
// continuous position, an absolute discrete position or a signed relative
// step. The zero Value is an absolute continuous 0.
type Value struct {
	kind Kind
	cont UnitValue
	disc DiscreteValue
	rel  int32
}

// AbsoluteContinuous builds an absolute value, clamping into [0,1].
func AbsoluteContinuous(v float64) Value {
	return Value{kind: KindAbsoluteContinuous, cont: Unit(v)}
}

// AbsoluteContinuousUnit builds an absolute value from an already clamped unit value.
func AbsoluteContinuousUnit(u UnitValue) Value {
	return Value{kind: KindAbsoluteContinuous, cont: u}
}

// AbsoluteDiscrete builds a discrete position. actual is clamped to max.
func AbsoluteDiscrete(actual, max uint32) Value {
	if actual > max {
		actual = max
	}
	return Value{kind: KindAbsoluteDiscrete, disc: DiscreteValue{Actual: actual, Max: max}}
}

// Relative builds a signed step. A zero step is legal and means "no change".
func Relative(step int32) Value {
	return Value{kind: KindRelative, rel: step}
}

// Kind returns the union tag.
func (v Value) Kind() Kind { return v.kind }

// IsAbsolute reports whether the value is continuous or discrete absolute.
func (v Value) IsAbsolute() bool { return v.kind != KindRelative }

// Continuous returns the continuous payload. For a discrete value it
// returns the equivalent fraction, for a relative value 0.
func (v Value) Continuous() UnitValue {
	switch v.kind {
	case KindAbsoluteContinuous:
		return v.cont
	case KindAbsoluteDiscrete:
		return v.disc.Fraction()
	default:
		return 0
	}
}

// Discrete returns the discrete payload and whether the value carries one.
func (v Value) Discrete() (DiscreteValue, bool) {
	if v.kind != KindAbsoluteDiscrete {
		return DiscreteValue{}, false
	}
	return v.disc, true
}

// Step returns the relative payload, 0 for absolute values.
func (v Value) Step() int32 {
	if v.kind != KindRelative {
		return 0
	}
	return v.rel
}

// IsPress reports whether an absolute value counts as a button press,
// i.e. lies above the conventional on threshold.
func (v Value) IsPress() bool {
	return v.IsAbsolute() && v.Continuous() > 0
}

func (v Value) String() string {
	switch v.kind {
	case KindAbsoluteContinuous:
		return fmt.Sprintf("abs(%.4f)", float64(v.cont))
	case KindAbsoluteDiscrete:
		return fmt.Sprintf("disc(%d/%d)", v.disc.Actual, v.disc.Max)
	default:
		return fmt.Sprintf("rel(%+d)", v.rel)
	}
}
