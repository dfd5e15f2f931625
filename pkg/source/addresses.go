package source

// MaxEventAddresses is the largest number of address keys one event can
// match (exact channel plus wildcard channel probes).
const MaxEventAddresses = 4

// EventAddresses fills buf with the index keys ev can match and returns
// how many were written. buf must hold MaxEventAddresses entries; the
// function never allocates, so the real-time processor can call it per
// event with a stack buffer.
func EventAddresses(ev Event, buf []Address) int {
	n := 0
	put := func(a Address) {
		buf[n] = a
		n++
	}
	withWildcard := func(a Address) {
		put(a)
		if a.Channel != WildcardChannel {
			a.Channel = WildcardChannel
			put(a)
		}
	}
	switch ev.Kind {
	case EventMidi:
		m := ev.Midi
		switch m.Kind() {
		case MidiControlChange:
			withWildcard(Address{Kind: AddrMidiCC, Channel: m.Channel(), Number: uint16(m.Data1)})
		case MidiNoteOn, MidiNoteOff:
			withWildcard(Address{Kind: AddrMidiNote, Channel: m.Channel(), Number: uint16(m.Data1)})
		case MidiPitchBend:
			withWildcard(Address{Kind: AddrMidiPitchBend, Channel: m.Channel()})
		case MidiProgramChange:
			withWildcard(Address{Kind: AddrMidiProgramChange, Channel: m.Channel()})
		case MidiChannelPressure:
			withWildcard(Address{Kind: AddrMidiChannelPressure, Channel: m.Channel()})
		case MidiPolyPressure:
			withWildcard(Address{Kind: AddrMidiPolyPressure, Channel: m.Channel(), Number: uint16(m.Data1)})
		case MidiSystem:
			switch m.Status {
			case StatusStart, StatusStop, StatusContinue:
				put(Address{Kind: AddrMidiClockTransport, Channel: WildcardChannel})
			}
		}
		if m.IsChannelMessage() {
			withWildcard(Address{
				Kind:    AddrMidiRaw,
				Channel: m.Channel(),
				Number:  uint16(m.Status)<<8 | uint16(m.Data1),
			})
		}
	case EventMidi14:
		withWildcard(Address{Kind: AddrMidiCC, Channel: ev.Midi14.Channel, Number: uint16(ev.Midi14.Controller)})
	case EventMidiPN:
		withWildcard(Address{Kind: AddrMidiPN, Channel: ev.PN.Channel, Number: ev.PN.Number})
	case EventOsc:
		put(Address{Kind: AddrOsc, Channel: WildcardChannel, Pattern: ev.Osc.Address})
	case EventKey:
		put(Address{Kind: AddrKey, Channel: WildcardChannel, Number: ev.Key.Code})
	case EventVirtual:
		put(Address{Kind: AddrVirtual, Channel: WildcardChannel, Pattern: string(ev.Virtual.ID)})
	}
	return n
}
