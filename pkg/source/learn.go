package source

// LearnScanner taps the decode stage without committing a mapping: feed
// it raw events and it proposes the source a user most likely touched.
// Main-thread only.
type LearnScanner struct {
	last    Event
	hasLast bool

	// Per-CC observation used to tell encoders from faders: relative
	// encodings hover around the zero points instead of sweeping.
	ccAddr    Address
	ccSamples int
	ccHover   int
}

// Feed records one inbound event.
func (s *LearnScanner) Feed(ev Event) {
	if ev.Kind == EventMidi && ev.Midi.Kind() == MidiControlChange {
		addr := Address{Kind: AddrMidiCC, Channel: ev.Midi.Channel(), Number: uint16(ev.Midi.Data1)}
		if addr != s.ccAddr {
			s.ccAddr = addr
			s.ccSamples = 0
			s.ccHover = 0
		}
		s.ccSamples++
		v := ev.Midi.Data2
		if (v >= 1 && v <= 8) || (v >= 56 && v <= 72) || v >= 120 {
			s.ccHover++
		}
	}
	s.last = ev
	s.hasLast = true
}

// LastEvent returns the most recent event seen, for raw preview display.
func (s *LearnScanner) LastEvent() (Event, bool) {
	return s.last, s.hasLast
}

// Proposal guesses a source for the last seen event. ok is false when
// nothing decodable arrived yet.
func (s *LearnScanner) Proposal() (Source, bool) {
	if !s.hasLast {
		return nil, false
	}
	switch s.last.Kind {
	case EventMidi:
		m := s.last.Midi
		switch m.Kind() {
		case MidiControlChange:
			src := CCSource{Channel: m.Channel(), Controller: m.Data1}
			if s.ccSamples >= 6 && s.ccHover == s.ccSamples {
				src.Encoding = EncodingTwosComplement
			}
			return src, true
		case MidiNoteOn, MidiNoteOff:
			return NoteSource{Channel: m.Channel(), Key: m.Data1}, true
		case MidiPitchBend:
			return PitchBendSource{Channel: m.Channel()}, true
		case MidiProgramChange:
			return ProgramChangeSource{Channel: m.Channel()}, true
		case MidiChannelPressure:
			return ChannelPressureSource{Channel: m.Channel()}, true
		case MidiPolyPressure:
			return PolyPressureSource{Channel: m.Channel(), Key: m.Data1}, true
		}
	case EventMidi14:
		return CCSource{Channel: s.last.Midi14.Channel, Controller: s.last.Midi14.Controller, FourteenBit: true}, true
	case EventMidiPN:
		pn := s.last.PN
		return PNSource{Channel: pn.Channel, Number: pn.Number, Registered: pn.Registered, FourteenBit: pn.FourteenBit}, true
	case EventOsc:
		return OscSource{AddressPattern: s.last.Osc.Address}, true
	case EventKey:
		return KeySource{Code: s.last.Key.Code}, true
	case EventVirtual:
		return VirtualSource{ID: s.last.Virtual.ID}, true
	}
	return nil, false
}

// Reset clears all observations.
func (s *LearnScanner) Reset() {
	*s = LearnScanner{}
}
