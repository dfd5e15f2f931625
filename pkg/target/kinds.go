package target

import (
	"github.com/midiglue/midiglue/pkg/control"
	"github.com/midiglue/midiglue/pkg/host"
	"github.com/midiglue/midiglue/pkg/source"
)

// ParameterTarget controls one host parameter.
type ParameterTarget struct {
	p host.Parameter
}

// NewParameterTarget wraps a resolved host parameter.
func NewParameterTarget(p host.Parameter) *ParameterTarget {
	return &ParameterTarget{p: p}
}

func (t *ParameterTarget) Current() (control.UnitValue, bool) {
	return control.Unit(t.p.Value()), true
}

func (t *ParameterTarget) StepCount() uint32 { return t.p.StepCount() }

func (t *ParameterTarget) Set(v control.UnitValue) (bool, error) {
	return t.p.SetValue(v.F())
}

func (t *ParameterTarget) SupportsRealtimeInvocation() bool { return t.p.RealtimeSafe() }

func (t *ParameterTarget) IsAvailable() bool { return true }

// Parameter exposes the wrapped host parameter (for feedback routing).
func (t *ParameterTarget) Parameter() host.Parameter { return t.p }

// ActionTarget invokes a named host action on every press. It has no
// readable value and must run on the main thread.
type ActionTarget struct {
	env  host.Environment
	name string
}

// NewActionTarget builds a trigger target for a named host action.
func NewActionTarget(env host.Environment, name string) *ActionTarget {
	return &ActionTarget{env: env, name: name}
}

func (t *ActionTarget) Current() (control.UnitValue, bool) { return 0, false }

func (t *ActionTarget) StepCount() uint32 { return 0 }

func (t *ActionTarget) Set(v control.UnitValue) (bool, error) {
	if v == 0 {
		// Releases do not trigger.
		return false, nil
	}
	if err := t.env.InvokeAction(t.name); err != nil {
		return false, err
	}
	return true, nil
}

func (t *ActionTarget) SupportsRealtimeInvocation() bool { return false }

func (t *ActionTarget) IsAvailable() bool { return true }

// SelectionTarget navigates the host's selection of one entity kind.
// The normalized value maps onto the entity list position; relative
// steps therefore walk the selection.
type SelectionTarget struct {
	env  host.Environment
	kind host.EntityKind
}

// NewSelectionTarget builds a selection-navigation target.
func NewSelectionTarget(env host.Environment, kind host.EntityKind) *SelectionTarget {
	return &SelectionTarget{env: env, kind: kind}
}

func (t *SelectionTarget) count() int { return len(t.env.Entities(t.kind)) }

func (t *SelectionTarget) Current() (control.UnitValue, bool) {
	n := t.count()
	if n == 0 {
		return 0, false
	}
	pos, ok := t.env.SelectedEntity(t.kind)
	if !ok {
		return 0, false
	}
	return control.AbsoluteDiscrete(uint32(pos), uint32(n-1)).Continuous(), true
}

func (t *SelectionTarget) StepCount() uint32 { return uint32(t.count()) }

func (t *SelectionTarget) Set(v control.UnitValue) (bool, error) {
	n := t.count()
	if n == 0 {
		return false, ErrUnresolved
	}
	pos := int(v.F()*float64(n-1) + 0.5)
	cur, ok := t.env.SelectedEntity(t.kind)
	if ok && cur == pos {
		return false, nil
	}
	if err := t.env.SelectEntity(t.kind, pos); err != nil {
		return false, err
	}
	return true, nil
}

func (t *SelectionTarget) SupportsRealtimeInvocation() bool { return false }

func (t *SelectionTarget) IsAvailable() bool { return t.count() > 0 }

// VirtualSink receives the events a virtual target emits. The engine
// implements it by routing the event back into mapping dispatch.
type VirtualSink interface {
	EmitVirtual(ev source.VirtualEvent)
}

// VirtualTarget forwards values onto a virtual control. Controller
// compartments use it to drive the virtual sources of the main
// compartment. It remembers the last written value so relative steps
// work across the virtual hop.
type VirtualTarget struct {
	id   source.VirtualID
	sink VirtualSink
	last control.UnitValue
	have bool
}

// NewVirtualTarget builds a virtual target emitting into sink.
func NewVirtualTarget(id source.VirtualID, sink VirtualSink) *VirtualTarget {
	return &VirtualTarget{id: id, sink: sink}
}

func (t *VirtualTarget) Current() (control.UnitValue, bool) {
	return t.last, t.have
}

func (t *VirtualTarget) StepCount() uint32 { return 0 }

func (t *VirtualTarget) Set(v control.UnitValue) (bool, error) {
	changed := !t.have || t.last != v
	t.last = v
	t.have = true
	t.sink.EmitVirtual(source.VirtualEvent{ID: t.id, Value: control.AbsoluteContinuousUnit(v)})
	return changed, nil
}

// The sink push is lock-free, so the write may happen on the audio
// callback.
func (t *VirtualTarget) SupportsRealtimeInvocation() bool { return true }

func (t *VirtualTarget) IsAvailable() bool { return true }
