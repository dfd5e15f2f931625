// Package script implements the engine's user-formula hooks with Lua:
// control/feedback transformations, activation condition expressions,
// dynamic target references and raw feedback rendering. Every evaluator
// owns its own interpreter state behind a mutex; scripts run on the main
// thread only, never on the audio callback.
package script

import (
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/midiglue/midiglue/pkg/control"
	"github.com/midiglue/midiglue/pkg/source"
)

// ErrNoResult is returned when a script produces neither a return value
// nor the expected output global.
var ErrNoResult = errors.New("script: no result produced")

// evaluator is the shared interpreter core: one Lua state, one compiled
// chunk, one mutex.
type evaluator struct {
	mu sync.Mutex
	ls *lua.LState
	fn *lua.LFunction
}

func newEvaluator(what, code string) (*evaluator, error) {
	ls := lua.NewState()
	fn, err := ls.LoadString(code)
	if err != nil {
		ls.Close()
		return nil, fmt.Errorf("script: compile %s: %w", what, err)
	}
	return &evaluator{ls: ls, fn: fn}, nil
}

// call runs the chunk after setup populated the globals and returns the
// chunk's single return value.
func (e *evaluator) call(setup func(ls *lua.LState)) (lua.LValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	setup(e.ls)
	e.ls.Push(e.fn)
	if err := e.ls.PCall(0, 1, nil); err != nil {
		return lua.LNil, fmt.Errorf("script: %w", err)
	}
	ret := e.ls.Get(-1)
	e.ls.Pop(1)
	return ret, nil
}

// Close releases the interpreter state.
func (e *evaluator) Close() { e.ls.Close() }

// Transformation is a Lua value formula implementing glue.Transformation.
// The chunk sees the input as global x and the current value as global y;
// its return value becomes the output, or the final value of y when it
// returns nothing ("y = x * 2" style).
type Transformation struct {
	ev *evaluator
}

// NewTransformation compiles a transformation chunk.
func NewTransformation(code string) (*Transformation, error) {
	ev, err := newEvaluator("transformation", code)
	if err != nil {
		return nil, err
	}
	return &Transformation{ev: ev}, nil
}

func (t *Transformation) Transform(input, current float64) (float64, error) {
	t.ev.mu.Lock()
	defer t.ev.mu.Unlock()
	ls := t.ev.ls
	ls.SetGlobal("x", lua.LNumber(input))
	ls.SetGlobal("y", lua.LNumber(current))
	ls.Push(t.ev.fn)
	if err := ls.PCall(0, 1, nil); err != nil {
		return 0, fmt.Errorf("script: transformation: %w", err)
	}
	ret := ls.Get(-1)
	ls.Pop(1)
	if n, ok := ret.(lua.LNumber); ok {
		return float64(n), nil
	}
	if n, ok := ls.GetGlobal("y").(lua.LNumber); ok {
		return float64(n), nil
	}
	return 0, ErrNoResult
}

// Close releases the interpreter state.
func (t *Transformation) Close() { t.ev.Close() }

// Condition evaluates boolean activation expressions, implementing
// mapping.ConditionEvaluator. Compartment parameters are exposed as the
// 1-based table p, so "p[1] > 0.5" reads the first slot. Expressions are
// compiled once per distinct string.
type Condition struct {
	mu    sync.Mutex
	ls    *lua.LState
	cache map[string]*lua.LFunction
}

// NewCondition creates a condition evaluator.
func NewCondition() *Condition {
	return &Condition{ls: lua.NewState(), cache: make(map[string]*lua.LFunction)}
}

func (c *Condition) EvalCondition(expression string, params []float64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn, ok := c.cache[expression]
	if !ok {
		var err error
		fn, err = c.ls.LoadString("return " + expression)
		if err != nil {
			return false, fmt.Errorf("script: compile condition %q: %w", expression, err)
		}
		c.cache[expression] = fn
	}
	tbl := c.ls.NewTable()
	for i, v := range params {
		tbl.RawSetInt(i+1, lua.LNumber(v))
	}
	c.ls.SetGlobal("p", tbl)
	c.ls.Push(fn)
	if err := c.ls.PCall(0, 1, nil); err != nil {
		return false, fmt.Errorf("script: condition %q: %w", expression, err)
	}
	ret := c.ls.Get(-1)
	c.ls.Pop(1)
	return lua.LVAsBool(ret), nil
}

// Close releases the interpreter state.
func (c *Condition) Close() { c.ls.Close() }

// ParamRef resolves dynamic target expressions to parameter names,
// implementing target.ExpressionEvaluator. The chunk sees the same p
// table as conditions (via SetParams) and must return a string.
type ParamRef struct {
	mu     sync.Mutex
	ls     *lua.LState
	cache  map[string]*lua.LFunction
	params []float64
}

// NewParamRef creates a target-expression evaluator.
func NewParamRef() *ParamRef {
	return &ParamRef{ls: lua.NewState(), cache: make(map[string]*lua.LFunction)}
}

// SetParams updates the parameter values visible to expressions.
func (r *ParamRef) SetParams(params []float64) {
	r.mu.Lock()
	r.params = append(r.params[:0], params...)
	r.mu.Unlock()
}

func (r *ParamRef) EvalParamRef(expression string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.cache[expression]
	if !ok {
		var err error
		fn, err = r.ls.LoadString("return " + expression)
		if err != nil {
			return "", fmt.Errorf("script: compile target expression %q: %w", expression, err)
		}
		r.cache[expression] = fn
	}
	tbl := r.ls.NewTable()
	for i, v := range r.params {
		tbl.RawSetInt(i+1, lua.LNumber(v))
	}
	r.ls.SetGlobal("p", tbl)
	r.ls.Push(fn)
	if err := r.ls.PCall(0, 1, nil); err != nil {
		return "", fmt.Errorf("script: target expression %q: %w", expression, err)
	}
	ret := r.ls.Get(-1)
	r.ls.Pop(1)
	s, ok := ret.(lua.LString)
	if !ok {
		return "", fmt.Errorf("%w: target expression %q", ErrNoResult, expression)
	}
	return string(s), nil
}

// Close releases the interpreter state.
func (r *ParamRef) Close() { r.ls.Close() }

// Feedback renders raw feedback payloads (sysex displays, LED rings),
// implementing source.FeedbackScript. The chunk sees y (the value),
// text, color and has_color, and returns the payload as a string.
type Feedback struct {
	ev *evaluator
}

// NewFeedback compiles a feedback render chunk.
func NewFeedback(code string) (*Feedback, error) {
	ev, err := newEvaluator("feedback script", code)
	if err != nil {
		return nil, err
	}
	return &Feedback{ev: ev}, nil
}

func (f *Feedback) Render(v control.UnitValue, style source.FeedbackStyle) ([]byte, error) {
	ret, err := f.ev.call(func(ls *lua.LState) {
		ls.SetGlobal("y", lua.LNumber(v.F()))
		ls.SetGlobal("text", lua.LString(style.Text))
		ls.SetGlobal("color", lua.LNumber(style.Color))
		ls.SetGlobal("has_color", lua.LBool(style.HasColor))
	})
	if err != nil {
		return nil, err
	}
	s, ok := ret.(lua.LString)
	if !ok {
		return nil, fmt.Errorf("%w: feedback script", ErrNoResult)
	}
	return []byte(s), nil
}

// Close releases the interpreter state.
func (f *Feedback) Close() { f.ev.Close() }
