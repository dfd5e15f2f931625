// Package mapping defines the user-editable mapping graph: mappings
// (source + glue + target + activation metadata), groups, compartment
// parameters and compartments. The graph is owned by the main processor;
// the real-time side only ever sees immutable snapshots derived from it.
package mapping

import (
	"github.com/google/uuid"

	"github.com/midiglue/midiglue/pkg/glue"
	"github.com/midiglue/midiglue/pkg/source"
	"github.com/midiglue/midiglue/pkg/target"
)

// Mapping binds one source, one glue section and one target descriptor,
// plus activation metadata. Created and edited on the main thread only.
type Mapping struct {
	ID              uuid.UUID
	Name            string
	Source          source.Source
	Glue            glue.Settings
	Target          target.Descriptor
	Activation      ActivationCondition
	GroupID         uuid.UUID // uuid.Nil = ungrouped
	ControlEnabled  bool
	FeedbackEnabled bool
	Style           source.FeedbackStyle
	Tags            []string
}

// New creates a mapping with a fresh id and control+feedback enabled.
func New(name string, src source.Source, g glue.Settings, d target.Descriptor) *Mapping {
	return &Mapping{
		ID:              uuid.New(),
		Name:            name,
		Source:          src,
		Glue:            g,
		Target:          d,
		ControlEnabled:  true,
		FeedbackEnabled: true,
	}
}

// HasTag reports whether the mapping carries the given tag.
func (m *Mapping) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Group is a named mapping subset sharing an activation condition.
type Group struct {
	ID         uuid.UUID
	Name       string
	Activation ActivationCondition
}

// NewGroup creates a group with a fresh id.
func NewGroup(name string, activation ActivationCondition) *Group {
	return &Group{ID: uuid.New(), Name: name, Activation: activation}
}
