// Package target models the controllable end of a mapping: a closed set
// of target kinds over the host capability interfaces, with lazy
// resolution that distinguishes "entity missing" from every other
// failure.
package target

import (
	"errors"

	"github.com/midiglue/midiglue/pkg/control"
)

// ErrUnresolved signals that the referenced host entity cannot currently
// be found. Not fatal: the mapping stays inert until resolution succeeds
// again.
var ErrUnresolved = errors.New("target: referenced host entity not found")

// Target is a resolved handle to a controllable host value or action.
type Target interface {
	// Current returns the target's normalized value; ok=false when the
	// target has no readable value (e.g. trigger actions).
	Current() (control.UnitValue, bool)
	// StepCount returns the number of discrete positions, 0 for
	// continuous targets. Together with Current this satisfies
	// glue.Target.
	StepCount() uint32
	// Set writes a normalized value and reports whether host state
	// actually changed.
	Set(v control.UnitValue) (changed bool, err error)
	// SupportsRealtimeInvocation reports whether Set may run on the
	// audio callback.
	SupportsRealtimeInvocation() bool
	// IsAvailable reports whether the underlying host entity still
	// exists.
	IsAvailable() bool
}
