package mapping

import "github.com/google/uuid"

// CompartmentKind distinguishes the two mapping layers.
type CompartmentKind uint8

const (
	// CompartmentMain maps (virtual or hardware) controls onto host
	// targets.
	CompartmentMain CompartmentKind = iota
	// CompartmentController maps hardware onto virtual controls.
	CompartmentController
)

// Compartment is an ordered, named collection of mappings plus the
// parameter slots their activation conditions read. Main thread only;
// the engine derives immutable snapshots from it.
type Compartment struct {
	Kind     CompartmentKind
	Name     string
	mappings []*Mapping
	groups   map[uuid.UUID]*Group
	Params   Parameters
}

// NewCompartment creates an empty compartment.
func NewCompartment(kind CompartmentKind, name string) *Compartment {
	return &Compartment{
		Kind:   kind,
		Name:   name,
		groups: make(map[uuid.UUID]*Group),
	}
}

// Add appends a mapping, keeping insertion order.
func (c *Compartment) Add(m *Mapping) {
	c.mappings = append(c.mappings, m)
}

// Remove deletes the mapping with the given id and reports whether it
// existed.
func (c *Compartment) Remove(id uuid.UUID) bool {
	for i, m := range c.mappings {
		if m.ID == id {
			c.mappings = append(c.mappings[:i], c.mappings[i+1:]...)
			return true
		}
	}
	return false
}

// ByID returns the mapping with the given id.
func (c *Compartment) ByID(id uuid.UUID) (*Mapping, bool) {
	for _, m := range c.mappings {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Mappings returns the ordered mapping list. Callers must not mutate
// the returned slice.
func (c *Compartment) Mappings() []*Mapping { return c.mappings }

// Len returns the number of mappings.
func (c *Compartment) Len() int { return len(c.mappings) }

// AddGroup registers a group.
func (c *Compartment) AddGroup(g *Group) {
	c.groups[g.ID] = g
}

// Group returns a group by id.
func (c *Compartment) Group(id uuid.UUID) (*Group, bool) {
	g, ok := c.groups[id]
	return g, ok
}

// IsActive evaluates the effective activation of a mapping: its own
// condition and, when grouped, the group's condition too.
func (c *Compartment) IsActive(m *Mapping, eval ConditionEvaluator) bool {
	if !m.Activation.IsSatisfied(&c.Params, eval) {
		return false
	}
	if m.GroupID != uuid.Nil {
		if g, ok := c.groups[m.GroupID]; ok {
			return g.Activation.IsSatisfied(&c.Params, eval)
		}
	}
	return true
}

// ActivationDependsOn reports whether any mapping's effective activation
// references parameter slot i.
func (c *Compartment) ActivationDependsOn(i uint32) bool {
	for _, m := range c.mappings {
		if m.Activation.References(i) {
			return true
		}
		if m.GroupID != uuid.Nil {
			if g, ok := c.groups[m.GroupID]; ok && g.Activation.References(i) {
				return true
			}
		}
	}
	return false
}
