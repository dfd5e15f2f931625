package mapping

import "math"

// modifierOnThreshold: a parameter counts as "on" above zero.
const modifierOnThreshold = 0.0

// bankSteps quantizes a parameter slot into bank indices 0..99.
const bankSteps = 100

// ActivationKind discriminates activation condition variants.
type ActivationKind uint8

const (
	// ActivationAlways keeps the mapping permanently active.
	ActivationAlways ActivationKind = iota
	// ActivationModifiers requires a combination of parameter on/off
	// states.
	ActivationModifiers
	// ActivationBank requires one parameter to sit on a given bank
	// index.
	ActivationBank
	// ActivationExpression evaluates a boolean formula over parameter
	// values.
	ActivationExpression
)

// ModifierRequirement requires one parameter slot to be on (or off).
type ModifierRequirement struct {
	ParamIndex uint32
	On         bool
}

// ConditionEvaluator evaluates boolean activation expressions against
// the compartment parameter values. Implemented in pkg/script.
type ConditionEvaluator interface {
	EvalCondition(expression string, params []float64) (bool, error)
}

// ActivationCondition is a predicate over compartment parameter values.
// The zero value is always-true.
type ActivationCondition struct {
	Kind       ActivationKind
	Modifiers  []ModifierRequirement
	BankParam  uint32
	BankIndex  uint32
	Expression string
}

// References reports whether the condition depends on parameter slot i;
// the main processor re-evaluates conditions only for referenced slots.
func (c ActivationCondition) References(i uint32) bool {
	switch c.Kind {
	case ActivationModifiers:
		for _, m := range c.Modifiers {
			if m.ParamIndex == i {
				return true
			}
		}
		return false
	case ActivationBank:
		return c.BankParam == i
	case ActivationExpression:
		// Expressions may reference any slot.
		return true
	default:
		return false
	}
}

// IsSatisfied evaluates the condition. eval may be nil when no
// expression conditions are in use; an unevaluable expression counts as
// inactive rather than failing.
func (c ActivationCondition) IsSatisfied(params *Parameters, eval ConditionEvaluator) bool {
	switch c.Kind {
	case ActivationModifiers:
		for _, m := range c.Modifiers {
			on := params.Get(m.ParamIndex) > modifierOnThreshold
			if on != m.On {
				return false
			}
		}
		return true
	case ActivationBank:
		return BankIndexOf(params.Get(c.BankParam)) == c.BankIndex
	case ActivationExpression:
		if eval == nil {
			return false
		}
		values := params.Values()
		ok, err := eval.EvalCondition(c.Expression, values[:])
		if err != nil {
			return false
		}
		return ok
	default:
		return true
	}
}

// BankIndexOf quantizes a normalized parameter value into a bank index.
func BankIndexOf(v float64) uint32 {
	idx := math.Round(v * (bankSteps - 1))
	if idx < 0 {
		return 0
	}
	return uint32(idx)
}
