package engine

import (
	"time"

	"github.com/midiglue/midiglue/pkg/control"
	"github.com/midiglue/midiglue/pkg/diag"
	"github.com/midiglue/midiglue/pkg/source"
)

// RelayKind classifies messages the real-time processor hands over to
// the main processor.
type RelayKind uint8

const (
	// RelayControlReady: glue produced a final value for a target that
	// must be invoked on the main thread (or is still unresolved).
	RelayControlReady RelayKind = iota
	// RelayTargetWritten: a real-time-safe target was written; the main
	// processor turns this into feedback and echo-suppression state.
	RelayTargetWritten
)

// RelayMessage travels on the relay ring from the real-time processor to
// the main processor. Mapping indexes into the snapshot of the given
// version; the main processor discards messages from stale versions.
type RelayMessage struct {
	Kind    RelayKind
	Version uint64
	Mapping int
	Value   control.UnitValue
}

// RealTimeProcessor dispatches events on the audio callback. It never
// allocates, locks or logs; anything it cannot do under those rules it
// relays to the main processor. One block cycle: adopt a pending
// snapshot, drain the event ring in arrival order, advance time-based
// fire modes.
type RealTimeProcessor struct {
	slot     *SnapshotSlot
	in       *Ring[source.Event]
	relay    *Ring[RelayMessage]
	counters *diag.Counters
	current  *Snapshot
}

// NewRealTimeProcessor wires a real-time processor to its rings.
func NewRealTimeProcessor(slot *SnapshotSlot, in *Ring[source.Event], relay *Ring[RelayMessage], counters *diag.Counters) *RealTimeProcessor {
	return &RealTimeProcessor{slot: slot, in: in, relay: relay, counters: counters}
}

// ProcessBlock runs one cycle with the given block timestamp.
func (p *RealTimeProcessor) ProcessBlock(now time.Time) {
	start := time.Now()
	if sn := p.slot.Take(); sn != nil {
		p.current = sn
		p.counters.AddSnapshotSwap()
	}
	for {
		ev, ok := p.in.Pop()
		if !ok {
			break
		}
		p.counters.AddEventsIn(1)
		if p.current != nil {
			p.dispatch(ev, now)
		}
	}
	if p.current != nil {
		p.pollFire(now)
	}
	p.counters.AddBlock()
	p.counters.RecordBlockDuration(uint64(time.Since(start)))
}

// Version returns the version of the adopted snapshot, 0 before the
// first adoption.
func (p *RealTimeProcessor) Version() uint64 {
	if p.current == nil {
		return 0
	}
	return p.current.Version
}

func (p *RealTimeProcessor) dispatch(ev source.Event, now time.Time) {
	var buf [source.MaxEventAddresses]source.Address
	n := source.EventAddresses(ev, buf[:])
	for i := 0; i < n; i++ {
		for _, m := range p.current.MappingsFor(buf[i]) {
			if m.MainOwned || !m.ControlEnabled {
				continue
			}
			v, ok := m.Source.Decode(ev)
			if !ok {
				continue
			}
			out, ok := m.Mode.Control(v, m.GlueTarget(), now)
			if !ok {
				continue
			}
			p.invoke(m, out)
		}
	}
}

func (p *RealTimeProcessor) pollFire(now time.Time) {
	for _, m := range p.current.Mappings {
		if m.MainOwned || !m.ControlEnabled || !m.Mode.NeedsPolling() {
			continue
		}
		if out, ok := m.Mode.PollFire(m.GlueTarget(), now); ok {
			p.invoke(m, out)
		}
	}
}

func (p *RealTimeProcessor) invoke(m *RTMapping, v control.UnitValue) {
	t := m.Target
	if t == nil || !t.SupportsRealtimeInvocation() {
		if t == nil {
			p.counters.AddTargetUnresolved()
		}
		p.send(RelayMessage{Kind: RelayControlReady, Version: p.current.Version, Mapping: m.Index, Value: v})
		return
	}
	changed, err := t.Set(v)
	if err != nil {
		p.counters.AddWriteRejected()
		return
	}
	if changed {
		p.send(RelayMessage{Kind: RelayTargetWritten, Version: p.current.Version, Mapping: m.Index, Value: v})
	}
}

func (p *RealTimeProcessor) send(msg RelayMessage) {
	if !p.relay.Push(msg) {
		p.counters.AddRelayDropped()
	}
}
