// Package host declares the narrow interface this engine consumes from
// its embedding audio-production host: addressed parameters, entity
// enumeration for selector resolution and main-thread change
// notifications. The engine never reaches past these interfaces.
package host

import "errors"

// ErrWriteRejected is returned when the host refuses a parameter write,
// e.g. for a read-only parameter. Never retried automatically.
var ErrWriteRejected = errors.New("host: parameter write rejected")

// Parameter is one host-exposed controllable value, normalized to [0,1].
type Parameter interface {
	Name() string
	// Value returns the current normalized value. Must be callable from
	// the real-time thread when RealtimeSafe reports true.
	Value() float64
	// SetValue writes a normalized value and reports whether the stored
	// value actually changed (retrigger detection).
	SetValue(v float64) (changed bool, err error)
	// StepCount returns the number of discrete positions, 0 for
	// continuous parameters.
	StepCount() uint32
	// RealtimeSafe reports whether Value/SetValue may be invoked from
	// the audio callback: same execution context, no main-thread
	// resolution step required.
	RealtimeSafe() bool
}

// EntityKind classifies enumerable host entities.
type EntityKind uint8

const (
	EntityTrack EntityKind = iota
	EntityDevice
	EntityRoute
)

// Entity is one enumerable host object.
type Entity struct {
	ID       uint32
	Name     string
	Position int
}

// ChangeKind classifies host change notifications.
type ChangeKind uint8

const (
	// ChangeParameterValue: a parameter moved (by automation, UI or this
	// engine's own write).
	ChangeParameterValue ChangeKind = iota
	// ChangeStructure: entities appeared/disappeared; cached target
	// resolutions must be invalidated.
	ChangeStructure
	// ChangeSelection: the selected entity of some kind changed.
	ChangeSelection
)

// ChangeEvent is delivered on the main thread by Subscribe.
type ChangeEvent struct {
	Kind    ChangeKind
	ParamID uint32
	Entity  EntityKind
}

// Environment is the full capability set the engine consumes.
type Environment interface {
	ParameterByID(id uint32) (Parameter, bool)
	ParameterByName(name string) (Parameter, bool)
	ParameterAt(position int) (Parameter, bool)

	// InvokeAction triggers a named host action (transport commands and
	// the like). Main thread only.
	InvokeAction(name string) error

	Entities(kind EntityKind) []Entity
	SelectedEntity(kind EntityKind) (position int, ok bool)
	SelectEntity(kind EntityKind, position int) error

	// Subscribe registers a main-thread change listener and returns an
	// unsubscribe function.
	Subscribe(fn func(ChangeEvent)) (unsubscribe func())
}
