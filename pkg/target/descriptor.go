package target

import (
	"fmt"
	"sync"

	"github.com/midiglue/midiglue/pkg/host"
	"github.com/midiglue/midiglue/pkg/source"
)

// DescriptorKind discriminates the closed set of target kinds. Dispatch
// over targets is a switch on this tag, keeping exhaustiveness checkable.
type DescriptorKind uint8

const (
	KindParamByID DescriptorKind = iota
	KindParamByName
	KindParamByPosition
	KindParamByExpression
	KindAction
	KindSelection
	KindVirtual
)

// Descriptor is the unresolved, serializable form of a target: a
// reference into host state by id, name, position or expression.
type Descriptor struct {
	Kind       DescriptorKind
	ParamID    uint32
	Name       string // parameter name or action name
	Position   int
	Expression string
	Entity     host.EntityKind
	VirtualID  source.VirtualID
}

func (d Descriptor) String() string {
	switch d.Kind {
	case KindParamByID:
		return fmt.Sprintf("param#%d", d.ParamID)
	case KindParamByName:
		return fmt.Sprintf("param %q", d.Name)
	case KindParamByPosition:
		return fmt.Sprintf("param@%d", d.Position)
	case KindParamByExpression:
		return fmt.Sprintf("param<%s>", d.Expression)
	case KindAction:
		return fmt.Sprintf("action %q", d.Name)
	case KindSelection:
		return fmt.Sprintf("selection(kind=%d)", d.Entity)
	case KindVirtual:
		return fmt.Sprintf("virtual %q", string(d.VirtualID))
	default:
		return "unknown"
	}
}

// ExpressionEvaluator resolves a dynamic target expression against the
// current context to a parameter name. The production implementation is
// the Lua evaluator in pkg/script.
type ExpressionEvaluator interface {
	EvalParamRef(expression string) (string, error)
}

// Resolver resolves descriptors against a host environment, caching
// successful resolutions until a host structural change invalidates
// them. Main thread only.
type Resolver struct {
	env  host.Environment
	eval ExpressionEvaluator
	virt VirtualSink

	mu    sync.Mutex
	cache map[Descriptor]Target
}

// NewResolver builds a resolver. eval may be nil if no expression
// descriptors are used.
func NewResolver(env host.Environment, eval ExpressionEvaluator) *Resolver {
	return &Resolver{env: env, eval: eval, cache: make(map[Descriptor]Target)}
}

// SetVirtualSink installs the sink virtual targets emit into. Virtual
// descriptors resolve only after a sink is set.
func (r *Resolver) SetVirtualSink(s VirtualSink) {
	r.mu.Lock()
	r.virt = s
	r.mu.Unlock()
}

// Resolve returns the target for d, from cache when possible. A missing
// host entity yields ErrUnresolved; the descriptor stays resolvable and
// may succeed later.
func (r *Resolver) Resolve(d Descriptor) (Target, error) {
	// Virtual targets carry per-mapping state (the last written value),
	// so every resolution gets its own instance instead of a cached one.
	if d.Kind == KindVirtual {
		return r.resolve(d)
	}
	r.mu.Lock()
	if t, ok := r.cache[d]; ok {
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	t, err := r.resolve(d)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[d] = t
	r.mu.Unlock()
	return t, nil
}

func (r *Resolver) resolve(d Descriptor) (Target, error) {
	switch d.Kind {
	case KindParamByID:
		p, ok := r.env.ParameterByID(d.ParamID)
		if !ok {
			return nil, ErrUnresolved
		}
		return NewParameterTarget(p), nil
	case KindParamByName:
		p, ok := r.env.ParameterByName(d.Name)
		if !ok {
			return nil, ErrUnresolved
		}
		return NewParameterTarget(p), nil
	case KindParamByPosition:
		p, ok := r.env.ParameterAt(d.Position)
		if !ok {
			return nil, ErrUnresolved
		}
		return NewParameterTarget(p), nil
	case KindParamByExpression:
		if r.eval == nil {
			return nil, ErrUnresolved
		}
		name, err := r.eval.EvalParamRef(d.Expression)
		if err != nil {
			return nil, fmt.Errorf("target expression %q: %w", d.Expression, ErrUnresolved)
		}
		p, ok := r.env.ParameterByName(name)
		if !ok {
			return nil, ErrUnresolved
		}
		return NewParameterTarget(p), nil
	case KindAction:
		return NewActionTarget(r.env, d.Name), nil
	case KindSelection:
		return NewSelectionTarget(r.env, d.Entity), nil
	case KindVirtual:
		r.mu.Lock()
		sink := r.virt
		r.mu.Unlock()
		if sink == nil {
			return nil, ErrUnresolved
		}
		return NewVirtualTarget(d.VirtualID, sink), nil
	default:
		return nil, ErrUnresolved
	}
}

// Invalidate drops all cached resolutions. Called on host structural
// changes.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[Descriptor]Target)
	r.mu.Unlock()
}
