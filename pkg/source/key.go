package source

import "github.com/midiglue/midiglue/pkg/control"

// KeySource listens to one keyboard key code; press is 1, release is 0.
// Key codes follow the evdev numbering delivered by the device layer.
type KeySource struct {
	Code uint16
}

func (s KeySource) Address() Address {
	return Address{Kind: AddrKey, Channel: WildcardChannel, Number: s.Code}
}

func (s KeySource) Character() Character { return CharacterButton }

func (s KeySource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventKey || ev.Key.Code != s.Code {
		return control.Value{}, false
	}
	if ev.Key.Pressed {
		return control.AbsoluteContinuous(1), true
	}
	return control.AbsoluteContinuous(0), true
}

// Keyboards have no feedback channel.
func (s KeySource) Feedback(control.UnitValue, FeedbackStyle) (FeedbackMessage, bool) {
	return FeedbackMessage{}, false
}
