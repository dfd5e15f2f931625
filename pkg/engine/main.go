package engine

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/midiglue/midiglue/pkg/control"
	"github.com/midiglue/midiglue/pkg/glue"
	"github.com/midiglue/midiglue/pkg/host"
	"github.com/midiglue/midiglue/pkg/mapping"
	"github.com/midiglue/midiglue/pkg/source"
	"github.com/midiglue/midiglue/pkg/target"
)

// FeedbackSender delivers encoded feedback messages to output devices.
// Called on the main thread; implementations queue internally if their
// transport blocks.
type FeedbackSender interface {
	SendFeedback(msg source.FeedbackMessage)
}

// Config sizes and wires one engine instance.
type Config struct {
	Env                 host.Environment
	ConditionEvaluator  mapping.ConditionEvaluator
	ExpressionEvaluator target.ExpressionEvaluator
	Feedback            FeedbackSender

	// Ring capacities, rounded up to powers of two. Zero selects the
	// defaults.
	EventRingCapacity int
	RelayRingCapacity int
	MainRingCapacity  int

	EchoWindow time.Duration
}

const (
	defaultEventRingCapacity = 1024
	defaultRelayRingCapacity = 512
	defaultMainRingCapacity  = 256
)

// MainProcessor owns the authoritative mapping state. It edits
// compartments, re-evaluates activation, builds and publishes snapshots,
// dispatches the events that may block (OSC, keyboard), applies relayed
// control values and generates feedback. All methods are main-thread
// only unless noted.
type MainProcessor struct {
	bb       *Backbone
	env      host.Environment
	resolver *target.Resolver
	condEval mapping.ConditionEvaluator
	feedback FeedbackSender

	slot   *SnapshotSlot
	rtIn   *Ring[source.Event]
	mainIn *Ring[source.Event]
	relay  *Ring[RelayMessage]

	compartments [2]*mapping.Compartment
	version      uint64
	active       *Snapshot
	dirty        bool

	echo     *EchoSuppressor
	learn    source.LearnScanner
	learning atomic.Bool

	subscribers map[int]func()
	nextSub     int
	unsubscribe func()
}

// NewMainProcessor builds the main processor and subscribes to host
// change notifications. Close releases the subscription.
func NewMainProcessor(bb *Backbone, cfg Config) *MainProcessor {
	if cfg.EventRingCapacity == 0 {
		cfg.EventRingCapacity = defaultEventRingCapacity
	}
	if cfg.RelayRingCapacity == 0 {
		cfg.RelayRingCapacity = defaultRelayRingCapacity
	}
	if cfg.MainRingCapacity == 0 {
		cfg.MainRingCapacity = defaultMainRingCapacity
	}
	p := &MainProcessor{
		bb:       bb,
		env:      cfg.Env,
		resolver: target.NewResolver(cfg.Env, cfg.ExpressionEvaluator),
		condEval: cfg.ConditionEvaluator,
		feedback: cfg.Feedback,
		slot:     &SnapshotSlot{},
		rtIn:     NewRing[source.Event](cfg.EventRingCapacity),
		mainIn:   NewRing[source.Event](cfg.MainRingCapacity),
		relay:    NewRing[RelayMessage](cfg.RelayRingCapacity),
		compartments: [2]*mapping.Compartment{
			mapping.CompartmentMain:       mapping.NewCompartment(mapping.CompartmentMain, "main"),
			mapping.CompartmentController: mapping.NewCompartment(mapping.CompartmentController, "controller"),
		},
		echo:        NewEchoSuppressor(cfg.EchoWindow),
		subscribers: make(map[int]func()),
	}
	if cfg.Env != nil {
		p.unsubscribe = cfg.Env.Subscribe(p.onHostChange)
	}
	return p
}

// Close releases the host subscription.
func (p *MainProcessor) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
}

// Resolver exposes the target resolver, e.g. to install a virtual sink.
func (p *MainProcessor) Resolver() *target.Resolver { return p.resolver }

// Compartment returns the compartment of the given kind.
func (p *MainProcessor) Compartment(kind mapping.CompartmentKind) *mapping.Compartment {
	return p.compartments[kind]
}

// AddMapping appends a mapping and marks the snapshot dirty.
func (p *MainProcessor) AddMapping(kind mapping.CompartmentKind, m *mapping.Mapping) {
	p.compartments[kind].Add(m)
	p.markDirty()
}

// RemoveMapping deletes a mapping by id and marks the snapshot dirty
// when it existed.
func (p *MainProcessor) RemoveMapping(kind mapping.CompartmentKind, id uuid.UUID) bool {
	if !p.compartments[kind].Remove(id) {
		return false
	}
	p.markDirty()
	return true
}

// SetCompartmentParameter writes a compartment parameter slot. When an
// activation condition references the slot the snapshot is rebuilt on
// the next Poll.
func (p *MainProcessor) SetCompartmentParameter(kind mapping.CompartmentKind, index uint32, v float64) {
	c := p.compartments[kind]
	if !c.Params.Set(index, v) {
		return
	}
	if c.ActivationDependsOn(index) {
		p.markDirty()
	}
}

// MarkDirty schedules a snapshot rebuild for the next Poll, for edits
// done directly on a compartment.
func (p *MainProcessor) MarkDirty() { p.markDirty() }

func (p *MainProcessor) markDirty() { p.dirty = true }

// Subscribe registers a listener for snapshot rebuilds and returns an
// unsubscribe function.
func (p *MainProcessor) Subscribe(fn func()) func() {
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = fn
	return func() { delete(p.subscribers, id) }
}

// Apply rebuilds and publishes the snapshot immediately.
func (p *MainProcessor) Apply() {
	p.rebuild()
}

// ActiveSnapshot returns the most recently built snapshot, nil before
// the first Apply/Poll.
func (p *MainProcessor) ActiveSnapshot() *Snapshot { return p.active }

// Poll runs one main-thread cycle: rebuild if needed, apply relayed
// control values, dispatch main-owned events and advance their fire
// modes.
func (p *MainProcessor) Poll(now time.Time) {
	stop := p.bb.Profiler.Start("main.poll")
	defer stop()

	if p.dirty {
		p.rebuild()
	}
	for {
		msg, ok := p.relay.Pop()
		if !ok {
			break
		}
		p.handleRelay(msg, now)
	}
	for {
		ev, ok := p.mainIn.Pop()
		if !ok {
			break
		}
		if p.learning.Load() {
			p.learn.Feed(ev)
		}
		p.dispatch(ev, now)
	}
	p.pollFire(now)
}

// rebuild derives a fresh snapshot from the compartments and publishes
// it. Glue runtime state does not survive a rebuild; deactivated
// mappings therefore drop their relative accumulation and press timing.
func (p *MainProcessor) rebuild() {
	p.version++
	var rts []*RTMapping
	for _, kind := range []mapping.CompartmentKind{mapping.CompartmentController, mapping.CompartmentMain} {
		c := p.compartments[kind]
		for _, m := range c.Mappings() {
			if !m.ControlEnabled && !m.FeedbackEnabled {
				continue
			}
			if !c.IsActive(m, p.condEval) {
				continue
			}
			rt := &RTMapping{
				Index:           len(rts),
				ID:              m.ID,
				Source:          m.Source,
				Mode:            glue.NewMode(m.Glue),
				Desc:            m.Target,
				MainOwned:       mainOwned(m.Source.Address().Kind),
				ControlEnabled:  m.ControlEnabled,
				FeedbackEnabled: m.FeedbackEnabled,
				Style:           m.Style,
			}
			t, err := p.resolver.Resolve(m.Target)
			switch {
			case err == nil:
				rt.Target = t
			case errors.Is(err, target.ErrUnresolved):
				p.bb.Counters.AddTargetUnresolved()
			default:
				p.bb.Log.Warn("target resolution failed",
					zap.String("mapping", m.Name),
					zap.Stringer("target", m.Target),
					zap.Error(err))
			}
			rts = append(rts, rt)
		}
	}
	sn := NewSnapshot(p.version, rts)
	p.active = sn
	p.slot.Publish(sn)
	p.dirty = false
	p.bb.Log.Debug("snapshot published",
		zap.Uint64("version", sn.Version),
		zap.Int("mappings", len(rts)))
	// Apply-on-activation pass: push current target values out so
	// controllers reflect state that moved while a mapping was inactive.
	// Mappings whose value is unknown (unresolved, write-only) stay
	// silent until the target first changes.
	for _, m := range rts {
		if m.Target == nil {
			continue
		}
		if cur, ok := m.Target.Current(); ok {
			p.emitFeedback(m, cur)
		}
	}
	for _, fn := range p.subscribers {
		fn()
	}
}

// mainOwned reports whether sources on this address kind must be
// dispatched on the main thread.
func mainOwned(kind source.AddressKind) bool {
	return kind == source.AddrOsc || kind == source.AddrKey
}

func (p *MainProcessor) handleRelay(msg RelayMessage, now time.Time) {
	if p.active == nil || msg.Version != p.active.Version {
		// Stale snapshot, the mapping index no longer means anything.
		return
	}
	m := p.active.Mappings[msg.Mapping]
	switch msg.Kind {
	case RelayControlReady:
		t := m.Target
		if t == nil {
			var ok bool
			if t, ok = p.lateResolve(m); !ok {
				return
			}
		}
		p.invoke(m, t, msg.Value, now)
	case RelayTargetWritten:
		if pt, ok := m.Target.(*target.ParameterTarget); ok {
			p.echo.Record(pt.Parameter(), msg.Value.F(), now)
		}
		p.emitFeedback(m, msg.Value)
	}
}

func (p *MainProcessor) dispatch(ev source.Event, now time.Time) {
	if p.active == nil {
		return
	}
	var buf [source.MaxEventAddresses]source.Address
	n := source.EventAddresses(ev, buf[:])
	for i := 0; i < n; i++ {
		for _, m := range p.active.MappingsFor(buf[i]) {
			if !m.MainOwned || !m.ControlEnabled {
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
			t := m.Target
			if t == nil {
				if t, ok = p.lateResolve(m); !ok {
					continue
				}
			}
			p.invoke(m, t, out, now)
		}
	}
}

func (p *MainProcessor) pollFire(now time.Time) {
	if p.active == nil {
		return
	}
	for _, m := range p.active.Mappings {
		if !m.MainOwned || !m.ControlEnabled || !m.Mode.NeedsPolling() {
			continue
		}
		if out, ok := m.Mode.PollFire(m.GlueTarget(), now); ok {
			t := m.Target
			if t == nil {
				if t, ok = p.lateResolve(m); !ok {
					continue
				}
			}
			p.invoke(m, t, out, now)
		}
	}
}

// lateResolve retries resolution for a mapping that was published
// unresolved; the entity may have appeared since the snapshot was
// built. Success schedules a rebuild so the binding becomes permanent.
func (p *MainProcessor) lateResolve(m *RTMapping) (target.Target, bool) {
	t, err := p.resolver.Resolve(m.Desc)
	if err != nil {
		p.bb.Counters.AddTargetUnresolved()
		return nil, false
	}
	p.markDirty()
	return t, true
}

// invoke writes a final control value to a target on the main thread,
// recording echo state and emitting feedback on actual change.
func (p *MainProcessor) invoke(m *RTMapping, t target.Target, v control.UnitValue, now time.Time) {
	if t == nil {
		p.bb.Counters.AddTargetUnresolved()
		return
	}
	changed, err := t.Set(v)
	if err != nil {
		p.bb.Counters.AddWriteRejected()
		p.bb.Log.Warn("target write rejected",
			zap.Stringer("target", m.Desc),
			zap.Float64("value", v.F()),
			zap.Error(err))
		return
	}
	if !changed {
		return
	}
	if pt, ok := t.(*target.ParameterTarget); ok {
		p.echo.Record(pt.Parameter(), v.F(), now)
	}
	p.emitFeedback(m, v)
}

// emitFeedback runs the inverse pipeline for one mapping and sends the
// encoded message. Virtual sources have no wire encoding of their own;
// their value crosses the hop to the controller mappings instead.
func (p *MainProcessor) emitFeedback(m *RTMapping, targetValue control.UnitValue) {
	if !m.FeedbackEnabled || p.feedback == nil {
		return
	}
	fv, ok := m.Mode.Feedback(targetValue)
	if !ok {
		return
	}
	if vs, ok := m.Source.(source.VirtualSource); ok {
		p.relayVirtualFeedback(vs.ID, fv)
		return
	}
	msg, ok := m.Source.Feedback(fv, m.Style)
	if !ok {
		return
	}
	p.feedback.SendFeedback(msg)
}

// relayVirtualFeedback carries feedback across the virtual hop: the
// main mapping's source value is the target value of every controller
// mapping aimed at the same virtual control, each of which encodes it
// for its hardware source.
func (p *MainProcessor) relayVirtualFeedback(id source.VirtualID, v control.UnitValue) {
	if p.active == nil {
		return
	}
	for _, hw := range p.active.MappingsForVirtual(id) {
		if !hw.FeedbackEnabled {
			continue
		}
		hv, ok := hw.Mode.Feedback(v)
		if !ok {
			continue
		}
		msg, ok := hw.Source.Feedback(hv, hw.Style)
		if !ok {
			continue
		}
		p.feedback.SendFeedback(msg)
	}
}

// onHostChange handles host notifications. Delivered on the main thread
// per the host.Environment contract.
func (p *MainProcessor) onHostChange(ev host.ChangeEvent) {
	now := p.bb.Now()
	switch ev.Kind {
	case host.ChangeParameterValue:
		param, ok := p.env.ParameterByID(ev.ParamID)
		if !ok || p.active == nil {
			return
		}
		v := param.Value()
		if p.echo.Suppress(param, v, now) {
			return
		}
		for _, m := range p.active.Mappings {
			pt, ok := m.Target.(*target.ParameterTarget)
			if !ok || pt.Parameter() != param {
				continue
			}
			p.emitFeedback(m, control.Unit(v))
		}
	case host.ChangeStructure:
		p.resolver.Invalidate()
		p.markDirty()
	case host.ChangeSelection:
		if p.active == nil {
			return
		}
		for _, m := range p.active.Mappings {
			if m.Desc.Kind != target.KindSelection || m.Desc.Entity != ev.Entity || m.Target == nil {
				continue
			}
			if cur, ok := m.Target.Current(); ok {
				p.emitFeedback(m, cur)
			}
		}
	}
}

// StartLearn begins capturing inbound events for source learning. While
// learning, every injected event is mirrored to the main processor.
func (p *MainProcessor) StartLearn() {
	p.learn.Reset()
	p.learning.Store(true)
}

// Learning reports whether learn capture is active. Safe from any
// goroutine.
func (p *MainProcessor) Learning() bool { return p.learning.Load() }

// LearnProposal returns the currently proposed source, without
// committing anything.
func (p *MainProcessor) LearnProposal() (source.Source, bool) {
	return p.learn.Proposal()
}

// StopLearn ends learn capture and returns the final proposal.
func (p *MainProcessor) StopLearn() (source.Source, bool) {
	p.learning.Store(false)
	return p.learn.Proposal()
}
