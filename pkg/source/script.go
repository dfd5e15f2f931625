package source

import "github.com/midiglue/midiglue/pkg/control"

// FeedbackScript renders a target value into raw outbound MIDI bytes.
// The production implementation lives in pkg/script (Lua); the core only
// sees this interface, keeping the scripting engine off the critical
// path dependencies.
type FeedbackScript interface {
	Render(v control.UnitValue, style FeedbackStyle) ([]byte, error)
}

// ScriptSource is a feedback-only source: it never matches inbound
// events, it exists to drive displays and LED rings whose wire format a
// user script describes.
type ScriptSource struct {
	Name   string
	Script FeedbackScript
}

func (s ScriptSource) Address() Address {
	return Address{Kind: AddrMidiRaw, Channel: WildcardChannel, Pattern: s.Name}
}

func (s ScriptSource) Character() Character { return CharacterRange }

func (s ScriptSource) Decode(Event) (control.Value, bool) {
	return control.Value{}, false
}

func (s ScriptSource) Feedback(v control.UnitValue, style FeedbackStyle) (FeedbackMessage, bool) {
	if s.Script == nil {
		return FeedbackMessage{}, false
	}
	raw, err := s.Script.Render(v, style)
	if err != nil || len(raw) == 0 {
		return FeedbackMessage{}, false
	}
	return FeedbackMessage{Kind: FeedbackMidiRaw, Raw: raw}, true
}
