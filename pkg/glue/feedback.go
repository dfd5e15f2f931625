package glue

import "github.com/midiglue/midiglue/pkg/control"

// Feedback runs the pipeline in reverse for one target value: target
// interval inverse, reverse, feedback transformation, source interval
// inverse. The result is the value the source should encode onto the
// wire. ok=false suppresses feedback (transformation error).
func (m *Mode) Feedback(targetValue control.UnitValue) (control.UnitValue, bool) {
	u := m.s.TargetInterval.Normalize(targetValue)
	if m.s.Reverse {
		u = u.Inverse()
	}
	if m.s.FeedbackTransform != nil {
		out, err := m.s.FeedbackTransform.Transform(u.F(), u.F())
		if err != nil {
			return 0, false
		}
		u = control.Unit(out)
	}
	return m.s.SourceInterval.Denormalize(u), true
}
