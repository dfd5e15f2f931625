package engine

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/midiglue/midiglue/pkg/control"
	"github.com/midiglue/midiglue/pkg/glue"
	"github.com/midiglue/midiglue/pkg/source"
	"github.com/midiglue/midiglue/pkg/target"
)

// RTMapping is the processing form of one active mapping: stateless
// source, stateful glue mode, resolved target. The glue state belongs to
// exactly one processor, decided by MainOwned; the other side never
// touches it.
type RTMapping struct {
	Index  int
	ID     uuid.UUID
	Source source.Source
	Mode   *glue.Mode
	// Target is nil while unresolved. Never reassigned after the
	// snapshot is published; resolution retries go through Desc.
	Target target.Target
	Desc   target.Descriptor
	// MainOwned mappings (OSC, keyboard sources) are dispatched by the
	// main processor only.
	MainOwned       bool
	ControlEnabled  bool
	FeedbackEnabled bool
	Style           source.FeedbackStyle
}

// GlueTarget adapts the resolved target for the glue stage; unresolved
// targets read as unknown, which blocks relative movement until
// resolution succeeds.
func (m *RTMapping) GlueTarget() glue.Target {
	if m.Target == nil {
		return unknownTarget{}
	}
	return m.Target
}

type unknownTarget struct{}

func (unknownTarget) Current() (control.UnitValue, bool) { return 0, false }
func (unknownTarget) StepCount() uint32                  { return 0 }

// Snapshot is an immutable projection of the active mappings,
// pre-indexed by source address. Built on the main thread, adopted by
// the real-time processor between blocks, structurally never mutated
// afterwards.
type Snapshot struct {
	Version   uint64
	Mappings  []*RTMapping
	byAddress map[source.Address][]*RTMapping
	byVirtual map[source.VirtualID][]*RTMapping
}

// NewSnapshot indexes the mappings by their source addresses and, for
// mappings aimed at virtual controls, by the virtual id.
func NewSnapshot(version uint64, mappings []*RTMapping) *Snapshot {
	s := &Snapshot{
		Version:   version,
		Mappings:  mappings,
		byAddress: make(map[source.Address][]*RTMapping, len(mappings)),
		byVirtual: make(map[source.VirtualID][]*RTMapping),
	}
	for _, m := range mappings {
		a := m.Source.Address()
		s.byAddress[a] = append(s.byAddress[a], m)
		if m.Desc.Kind == target.KindVirtual {
			s.byVirtual[m.Desc.VirtualID] = append(s.byVirtual[m.Desc.VirtualID], m)
		}
	}
	return s
}

// MappingsFor returns the mappings listening on addr, in compartment
// order. The returned slice is shared and must not be mutated.
func (s *Snapshot) MappingsFor(addr source.Address) []*RTMapping {
	return s.byAddress[addr]
}

// MappingsForVirtual returns the mappings whose target is the virtual
// control id; feedback crosses the hop through them.
func (s *Snapshot) MappingsForVirtual(id source.VirtualID) []*RTMapping {
	return s.byVirtual[id]
}

// SnapshotSlot is the single-slot handoff between the processors. The
// main side publishes, the real-time side takes at block start; a newer
// publish simply replaces an untaken one, so the real-time side always
// adopts the freshest state.
type SnapshotSlot struct {
	pending atomic.Pointer[Snapshot]
}

// Publish offers a snapshot to the real-time side.
func (s *SnapshotSlot) Publish(sn *Snapshot) { s.pending.Store(sn) }

// Take removes and returns the pending snapshot, nil if none.
func (s *SnapshotSlot) Take() *Snapshot { return s.pending.Swap(nil) }
