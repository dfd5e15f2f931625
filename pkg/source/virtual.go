package source

import "github.com/midiglue/midiglue/pkg/control"

// VirtualID names a virtual control ("ch1/fader", "play"). Controller
// compartments map hardware onto virtual ids, main compartments map
// virtual ids onto targets.
type VirtualID string

// VirtualSource listens to one virtual control id.
type VirtualSource struct {
	ID        VirtualID
	Behaviour Character
}

func (s VirtualSource) Address() Address {
	return Address{Kind: AddrVirtual, Channel: WildcardChannel, Pattern: string(s.ID)}
}

func (s VirtualSource) Character() Character { return s.Behaviour }

func (s VirtualSource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventVirtual || ev.Virtual.ID != s.ID {
		return control.Value{}, false
	}
	return ev.Virtual.Value, true
}

// Feedback has no wire encoding here; the engine carries the value
// across the hop to the controller mappings aimed at this virtual id.
func (s VirtualSource) Feedback(control.UnitValue, FeedbackStyle) (FeedbackMessage, bool) {
	return FeedbackMessage{}, false
}
