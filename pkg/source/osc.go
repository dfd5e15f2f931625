package source

import "github.com/midiglue/midiglue/pkg/control"

// OscSource listens to one OSC address and reads one argument. Float and
// int arguments become absolute values, bools become button presses; an
// argument-less message is a press too (common for OSC buttons).
type OscSource struct {
	AddressPattern string
	ArgIndex       int
	Behaviour      Character
	// FeedbackArgs is the number of float arguments emitted on feedback;
	// 0 means one argument.
	FeedbackArgs int
}

func (s OscSource) Address() Address {
	return Address{Kind: AddrOsc, Channel: WildcardChannel, Pattern: s.AddressPattern}
}

func (s OscSource) Character() Character { return s.Behaviour }

func (s OscSource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventOsc || ev.Osc == nil || ev.Osc.Address != s.AddressPattern {
		return control.Value{}, false
	}
	if s.ArgIndex >= len(ev.Osc.Args) {
		if len(ev.Osc.Args) == 0 {
			return control.AbsoluteContinuous(1), true
		}
		return control.Value{}, false
	}
	arg := ev.Osc.Args[s.ArgIndex]
	switch arg.Kind {
	case OscFloat:
		return control.AbsoluteContinuous(arg.Float), true
	case OscInt:
		// Ints are treated as 0..127 by convention when out of unit range.
		if arg.Int > 1 {
			return control.AbsoluteContinuous(float64(arg.Int) / 127.0), true
		}
		return control.AbsoluteContinuous(float64(arg.Int)), true
	case OscBool:
		if arg.Bool {
			return control.AbsoluteContinuous(1), true
		}
		return control.AbsoluteContinuous(0), true
	default:
		return control.Value{}, false
	}
}

func (s OscSource) Feedback(v control.UnitValue, _ FeedbackStyle) (FeedbackMessage, bool) {
	n := s.FeedbackArgs
	if n <= 0 {
		n = 1
	}
	args := make([]OscArg, n)
	for i := range args {
		args[i] = OscArg{Kind: OscFloat, Float: v.F()}
	}
	return FeedbackMessage{
		Kind: FeedbackOsc,
		Osc:  OscEvent{Address: s.AddressPattern, Args: args},
	}, true
}
