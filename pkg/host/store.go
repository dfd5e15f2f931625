package host

import (
	"math"
	"sync"
	"sync/atomic"
)

// StoreParameter is an in-process Parameter with a lock-free value,
// suitable for real-time reads and writes. Used by the simulation
// environment and by hosts that delegate parameter storage to the
// engine.
type StoreParameter struct {
	id        uint32
	name      string
	stepCount uint32
	readOnly  bool
	rtSafe    bool

	// Normalized value stored as bits for atomic access.
	value uint64
}

// ID returns the parameter id.
func (p *StoreParameter) ID() uint32 { return p.id }

func (p *StoreParameter) Name() string { return p.name }

func (p *StoreParameter) Value() float64 {
	return math.Float64frombits(atomic.LoadUint64(&p.value))
}

func (p *StoreParameter) SetValue(v float64) (bool, error) {
	if p.readOnly {
		return false, ErrWriteRejected
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	old := atomic.SwapUint64(&p.value, math.Float64bits(v))
	return math.Float64frombits(old) != v, nil
}

func (p *StoreParameter) StepCount() uint32 { return p.stepCount }

func (p *StoreParameter) RealtimeSafe() bool { return p.rtSafe }

// ParamSpec describes one parameter added to a Store.
type ParamSpec struct {
	ID        uint32
	Name      string
	Default   float64
	StepCount uint32
	ReadOnly  bool
	// MainThreadOnly marks parameters that must not be touched from the
	// audio callback (cross-context parameters).
	MainThreadOnly bool
}

// Store is an in-process Environment: a parameter registry with ordered
// indexed access, entity lists and a change-notification fan-out. It
// doubles as the test/simulation host.
type Store struct {
	mu       sync.RWMutex
	params   map[uint32]*StoreParameter
	order    []uint32
	byName   map[string]uint32
	entities map[EntityKind][]Entity
	selected map[EntityKind]int
	actions  map[string]func() error

	subMu   sync.Mutex
	subs    map[int]func(ChangeEvent)
	nextSub int
}

// NewStore creates an empty environment.
func NewStore() *Store {
	return &Store{
		params:   make(map[uint32]*StoreParameter),
		byName:   make(map[string]uint32),
		entities: make(map[EntityKind][]Entity),
		selected: make(map[EntityKind]int),
		actions:  make(map[string]func() error),
		subs:     make(map[int]func(ChangeEvent)),
	}
}

// AddParameter registers a parameter; duplicate ids are ignored.
func (s *Store) AddParameter(specs ...ParamSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, spec := range specs {
		if _, exists := s.params[spec.ID]; exists {
			continue
		}
		p := &StoreParameter{
			id:        spec.ID,
			name:      spec.Name,
			stepCount: spec.StepCount,
			readOnly:  spec.ReadOnly,
			rtSafe:    !spec.MainThreadOnly,
		}
		p.value = math.Float64bits(clamp01(spec.Default))
		s.params[spec.ID] = p
		s.order = append(s.order, spec.ID)
		s.byName[spec.Name] = spec.ID
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *Store) ParameterByID(id uint32) (Parameter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.params[id]
	return p, ok
}

func (s *Store) ParameterByName(name string) (Parameter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.params[id], true
}

func (s *Store) ParameterAt(position int) (Parameter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if position < 0 || position >= len(s.order) {
		return nil, false
	}
	return s.params[s.order[position]], true
}

// Count returns the number of registered parameters.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// SetAction registers a named action handler.
func (s *Store) SetAction(name string, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[name] = fn
}

func (s *Store) InvokeAction(name string) error {
	s.mu.RLock()
	fn, ok := s.actions[name]
	s.mu.RUnlock()
	if !ok {
		return ErrWriteRejected
	}
	return fn()
}

// SetEntities replaces the entity list of one kind and notifies a
// structure change.
func (s *Store) SetEntities(kind EntityKind, entities []Entity) {
	s.mu.Lock()
	s.entities[kind] = entities
	s.mu.Unlock()
	s.notify(ChangeEvent{Kind: ChangeStructure, Entity: kind})
}

func (s *Store) Entities(kind EntityKind) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entities[kind]
}

func (s *Store) SelectedEntity(kind EntityKind) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.selected[kind]
	return pos, ok
}

func (s *Store) SelectEntity(kind EntityKind, position int) error {
	s.mu.Lock()
	n := len(s.entities[kind])
	if position < 0 || position >= n {
		s.mu.Unlock()
		return ErrWriteRejected
	}
	s.selected[kind] = position
	s.mu.Unlock()
	s.notify(ChangeEvent{Kind: ChangeSelection, Entity: kind})
	return nil
}

func (s *Store) Subscribe(fn func(ChangeEvent)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// NotifyParameterValue publishes a parameter-value change to all
// subscribers. Hosts (and the engine's own write path) call this on the
// main thread after a value moved.
func (s *Store) NotifyParameterValue(id uint32) {
	s.notify(ChangeEvent{Kind: ChangeParameterValue, ParamID: id})
}

func (s *Store) notify(ev ChangeEvent) {
	s.subMu.Lock()
	fns := make([]func(ChangeEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
