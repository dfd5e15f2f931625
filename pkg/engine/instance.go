package engine

import (
	"github.com/midiglue/midiglue/pkg/diag"
	"github.com/midiglue/midiglue/pkg/source"
)

// Instance ties one engine together: backbone, both processors and the
// rings between them. Device layers inject events here; the instance
// routes them to the processor that owns the source kind.
type Instance struct {
	bb   *Backbone
	main *MainProcessor
	rt   *RealTimeProcessor
}

// NewInstance builds a complete engine instance. The instance itself
// serves as the virtual sink, so virtual targets re-enter dispatch.
func NewInstance(bb *Backbone, cfg Config) *Instance {
	if bb == nil {
		bb = NewBackbone(nil)
	}
	i := &Instance{bb: bb}
	i.main = NewMainProcessor(bb, cfg)
	i.rt = NewRealTimeProcessor(i.main.slot, i.main.rtIn, i.main.relay, bb.Counters)
	i.main.resolver.SetVirtualSink(i)
	return i
}

// Backbone returns the shared services.
func (i *Instance) Backbone() *Backbone { return i.bb }

// Main returns the main processor.
func (i *Instance) Main() *MainProcessor { return i.main }

// RealTime returns the real-time processor.
func (i *Instance) RealTime() *RealTimeProcessor { return i.rt }

// InjectEvent hands an inbound event to the owning processor: OSC and
// keyboard events go to the main processor, everything else to the
// real-time ring. Safe from any goroutine; never blocks.
func (i *Instance) InjectEvent(ev source.Event) {
	switch ev.Kind {
	case source.EventOsc, source.EventKey:
		if !i.main.mainIn.Push(ev) {
			i.bb.Counters.AddEventDropped()
		}
	default:
		if !i.main.rtIn.Push(ev) {
			i.bb.Counters.AddEventDropped()
		}
		if i.main.Learning() {
			// Mirror for the learn scanner; main-owned events are seen
			// there anyway.
			i.main.mainIn.Push(ev)
		}
	}
}

// EmitVirtual implements target.VirtualSink: virtual target writes
// re-enter the real-time dispatch as virtual events.
func (i *Instance) EmitVirtual(ev source.VirtualEvent) {
	if !i.main.rtIn.Push(source.Event{Kind: source.EventVirtual, Virtual: ev}) {
		i.bb.Counters.AddEventDropped()
	}
}

// Stats returns a copy of the diagnostic counters.
func (i *Instance) Stats() diag.Stats { return i.bb.Counters.Snapshot() }

// Close releases the host subscription.
func (i *Instance) Close() { i.main.Close() }
