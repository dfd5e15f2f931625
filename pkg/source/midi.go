package source

import "github.com/midiglue/midiglue/pkg/control"

// RelativeEncoding selects how a relative CC encodes its step. Encoders
// disagree on the wire format, so the encoding must be configured
// explicitly; it is never guessed from traffic.
type RelativeEncoding uint8

const (
	// EncodingAbsolute treats the CC as a plain absolute control.
	EncodingAbsolute RelativeEncoding = iota
	// EncodingTwosComplement: 1..63 increment, 127..65 decrement.
	EncodingTwosComplement
	// EncodingSignedBit: 0..63 increment, 64..127 decrement by value-64.
	EncodingSignedBit
	// EncodingOffset64: 64 is zero, above increments, below decrements.
	EncodingOffset64
)

func decodeRelative(enc RelativeEncoding, v byte) (int32, bool) {
	switch enc {
	case EncodingTwosComplement:
		if v == 0 {
			return 0, false
		}
		if v < 64 {
			return int32(v), true
		}
		return int32(v) - 128, true
	case EncodingSignedBit:
		if v == 0 || v == 64 {
			return 0, false
		}
		if v < 64 {
			return int32(v), true
		}
		return -(int32(v) - 64), true
	case EncodingOffset64:
		if v == 64 {
			return 0, false
		}
		return int32(v) - 64, true
	default:
		return 0, false
	}
}

func encodeRelative(enc RelativeEncoding, step int32) (byte, bool) {
	if step == 0 {
		return 0, false
	}
	switch enc {
	case EncodingTwosComplement:
		if step > 0 {
			if step > 63 {
				step = 63
			}
			return byte(step), true
		}
		if step < -63 {
			step = -63
		}
		return byte(128 + step), true
	case EncodingSignedBit:
		if step > 0 {
			if step > 63 {
				step = 63
			}
			return byte(step), true
		}
		if step < -63 {
			step = -63
		}
		return byte(64 - step), true
	case EncodingOffset64:
		if step > 63 {
			step = 63
		}
		if step < -63 {
			step = -63
		}
		return byte(64 + step), true
	default:
		return 0, false
	}
}

// CCSource listens to a control-change controller. With FourteenBit it
// consumes assembled MSB/LSB pairs; with a relative Encoding it emits
// relative steps instead of absolute positions.
type CCSource struct {
	Channel     byte // WildcardChannel matches any
	Controller  byte
	FourteenBit bool
	Encoding    RelativeEncoding
}

func (s CCSource) Address() Address {
	kind := AddrMidiCC
	return Address{Kind: kind, Channel: s.Channel, Number: uint16(s.Controller)}
}

func (s CCSource) Character() Character {
	if s.Encoding != EncodingAbsolute {
		return CharacterEncoder
	}
	return CharacterRange
}

func (s CCSource) Decode(ev Event) (control.Value, bool) {
	if s.FourteenBit {
		if ev.Kind != EventMidi14 || ev.Midi14.Controller != s.Controller ||
			!matchChannel(s.Channel, ev.Midi14.Channel) {
			return control.Value{}, false
		}
		return control.AbsoluteContinuous(float64(ev.Midi14.Value) / 16383.0), true
	}
	if ev.Kind != EventMidi {
		return control.Value{}, false
	}
	m := ev.Midi
	if m.Kind() != MidiControlChange || m.Data1 != s.Controller || !matchChannel(s.Channel, m.Channel()) {
		return control.Value{}, false
	}
	if s.Encoding != EncodingAbsolute {
		step, ok := decodeRelative(s.Encoding, m.Data2)
		if !ok {
			return control.Value{}, false
		}
		return control.Relative(step), true
	}
	return control.AbsoluteContinuous(float64(m.Data2) / 127.0), true
}

func (s CCSource) Feedback(v control.UnitValue, _ FeedbackStyle) (FeedbackMessage, bool) {
	ch := s.Channel
	if ch == WildcardChannel {
		ch = 0
	}
	if s.Encoding != EncodingAbsolute {
		// Encoders have no absolute position to restore.
		return FeedbackMessage{}, false
	}
	if s.FourteenBit {
		value := uint16(v.F()*16383 + 0.5)
		raw := []byte{
			0xB0 | ch&0x0F, s.Controller & 0x1F, byte(value >> 7 & 0x7F),
			0xB0 | ch&0x0F, (s.Controller & 0x1F) + 32, byte(value & 0x7F),
		}
		return FeedbackMessage{Kind: FeedbackMidiRaw, Raw: raw}, true
	}
	value := byte(v.F()*127 + 0.5)
	return FeedbackMessage{
		Kind: FeedbackMidiShort,
		Midi: NewControlChange(ch, s.Controller, value),
	}, true
}

// NoteSource listens to a note key; velocity becomes the value, note-off
// (or note-on with zero velocity) becomes 0.
type NoteSource struct {
	Channel byte
	Key     byte
}

func (s NoteSource) Address() Address {
	return Address{Kind: AddrMidiNote, Channel: s.Channel, Number: uint16(s.Key)}
}

func (s NoteSource) Character() Character { return CharacterButton }

func (s NoteSource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventMidi {
		return control.Value{}, false
	}
	m := ev.Midi
	if m.Data1 != s.Key || !matchChannel(s.Channel, m.Channel()) {
		return control.Value{}, false
	}
	switch m.Kind() {
	case MidiNoteOn:
		return control.AbsoluteContinuous(float64(m.Data2) / 127.0), true
	case MidiNoteOff:
		return control.AbsoluteContinuous(0), true
	default:
		return control.Value{}, false
	}
}

func (s NoteSource) Feedback(v control.UnitValue, _ FeedbackStyle) (FeedbackMessage, bool) {
	ch := s.Channel
	if ch == WildcardChannel {
		ch = 0
	}
	vel := byte(v.F()*127 + 0.5)
	if vel == 0 {
		return FeedbackMessage{Kind: FeedbackMidiShort, Midi: NewNoteOff(ch, s.Key, 0)}, true
	}
	return FeedbackMessage{Kind: FeedbackMidiShort, Midi: NewNoteOn(ch, s.Key, vel)}, true
}

// PitchBendSource listens to the pitch wheel of one channel.
type PitchBendSource struct {
	Channel byte
}

func (s PitchBendSource) Address() Address {
	return Address{Kind: AddrMidiPitchBend, Channel: s.Channel}
}

func (s PitchBendSource) Character() Character { return CharacterRange }

func (s PitchBendSource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventMidi {
		return control.Value{}, false
	}
	m := ev.Midi
	if m.Kind() != MidiPitchBend || !matchChannel(s.Channel, m.Channel()) {
		return control.Value{}, false
	}
	return control.AbsoluteContinuous(float64(m.PitchBendValue()) / 16383.0), true
}

func (s PitchBendSource) Feedback(v control.UnitValue, _ FeedbackStyle) (FeedbackMessage, bool) {
	ch := s.Channel
	if ch == WildcardChannel {
		ch = 0
	}
	return FeedbackMessage{
		Kind: FeedbackMidiShort,
		Midi: NewPitchBend(ch, uint16(v.F()*16383+0.5)),
	}, true
}

// ProgramChangeSource decodes program numbers as discrete positions.
type ProgramChangeSource struct {
	Channel byte
}

func (s ProgramChangeSource) Address() Address {
	return Address{Kind: AddrMidiProgramChange, Channel: s.Channel}
}

func (s ProgramChangeSource) Character() Character { return CharacterRange }

func (s ProgramChangeSource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventMidi {
		return control.Value{}, false
	}
	m := ev.Midi
	if m.Kind() != MidiProgramChange || !matchChannel(s.Channel, m.Channel()) {
		return control.Value{}, false
	}
	return control.AbsoluteDiscrete(uint32(m.Data1), 127), true
}

func (s ProgramChangeSource) Feedback(v control.UnitValue, _ FeedbackStyle) (FeedbackMessage, bool) {
	ch := s.Channel
	if ch == WildcardChannel {
		ch = 0
	}
	return FeedbackMessage{
		Kind: FeedbackMidiShort,
		Midi: NewProgramChange(ch, byte(v.F()*127+0.5)),
	}, true
}

// ChannelPressureSource decodes aftertouch.
type ChannelPressureSource struct {
	Channel byte
}

func (s ChannelPressureSource) Address() Address {
	return Address{Kind: AddrMidiChannelPressure, Channel: s.Channel}
}

func (s ChannelPressureSource) Character() Character { return CharacterRange }

func (s ChannelPressureSource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventMidi {
		return control.Value{}, false
	}
	m := ev.Midi
	if m.Kind() != MidiChannelPressure || !matchChannel(s.Channel, m.Channel()) {
		return control.Value{}, false
	}
	return control.AbsoluteContinuous(float64(m.Data1) / 127.0), true
}

func (s ChannelPressureSource) Feedback(v control.UnitValue, _ FeedbackStyle) (FeedbackMessage, bool) {
	ch := s.Channel
	if ch == WildcardChannel {
		ch = 0
	}
	return FeedbackMessage{
		Kind: FeedbackMidiShort,
		Midi: NewChannelPressure(ch, byte(v.F()*127+0.5)),
	}, true
}

// PolyPressureSource decodes polyphonic aftertouch for one key.
type PolyPressureSource struct {
	Channel byte
	Key     byte
}

func (s PolyPressureSource) Address() Address {
	return Address{Kind: AddrMidiPolyPressure, Channel: s.Channel, Number: uint16(s.Key)}
}

func (s PolyPressureSource) Character() Character { return CharacterRange }

func (s PolyPressureSource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventMidi {
		return control.Value{}, false
	}
	m := ev.Midi
	if m.Kind() != MidiPolyPressure || m.Data1 != s.Key || !matchChannel(s.Channel, m.Channel()) {
		return control.Value{}, false
	}
	return control.AbsoluteContinuous(float64(m.Data2) / 127.0), true
}

func (s PolyPressureSource) Feedback(control.UnitValue, FeedbackStyle) (FeedbackMessage, bool) {
	return FeedbackMessage{}, false
}

// PNSource listens to assembled registered/non-registered parameter
// numbers; the assembly itself is done by PNScanner ahead of matching.
type PNSource struct {
	Channel     byte
	Number      uint16
	Registered  bool
	FourteenBit bool
}

func (s PNSource) Address() Address {
	return Address{Kind: AddrMidiPN, Channel: s.Channel, Number: s.Number}
}

func (s PNSource) Character() Character { return CharacterRange }

func (s PNSource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventMidiPN {
		return control.Value{}, false
	}
	pn := ev.PN
	if pn.Number != s.Number || pn.Registered != s.Registered ||
		!matchChannel(s.Channel, pn.Channel) {
		return control.Value{}, false
	}
	// The paired fourteen-bit flag decides the resolution, not the wire
	// traffic: a 14-bit source scales by 16383 even if only an MSB arrived.
	if s.FourteenBit {
		return control.AbsoluteContinuous(float64(pn.Value) / 16383.0), true
	}
	return control.AbsoluteContinuous(float64(pn.Value&0x7F) / 127.0), true
}

func (s PNSource) Feedback(v control.UnitValue, _ FeedbackStyle) (FeedbackMessage, bool) {
	ch := s.Channel
	if ch == WildcardChannel {
		ch = 0
	}
	status := 0xB0 | ch&0x0F
	msb, lsb := byte(101), byte(100)
	if !s.Registered {
		msb, lsb = 99, 98
	}
	raw := []byte{
		status, msb, byte(s.Number >> 7 & 0x7F),
		status, lsb, byte(s.Number & 0x7F),
	}
	if s.FourteenBit {
		value := uint16(v.F()*16383 + 0.5)
		raw = append(raw,
			status, 6, byte(value>>7&0x7F),
			status, 38, byte(value&0x7F),
		)
	} else {
		raw = append(raw, status, 6, byte(v.F()*127+0.5))
	}
	return FeedbackMessage{Kind: FeedbackMidiRaw, Raw: raw}, true
}

// ClockTransportSource turns MIDI start/stop/continue into button values:
// start and continue press, stop releases.
type ClockTransportSource struct{}

func (ClockTransportSource) Address() Address {
	return Address{Kind: AddrMidiClockTransport, Channel: WildcardChannel}
}

func (ClockTransportSource) Character() Character { return CharacterButton }

func (ClockTransportSource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventMidi {
		return control.Value{}, false
	}
	switch ev.Midi.Status {
	case StatusStart, StatusContinue:
		return control.AbsoluteContinuous(1), true
	case StatusStop:
		return control.AbsoluteContinuous(0), true
	default:
		return control.Value{}, false
	}
}

func (ClockTransportSource) Feedback(control.UnitValue, FeedbackStyle) (FeedbackMessage, bool) {
	return FeedbackMessage{}, false
}

// RawSource matches an exact short message and emits a press; useful for
// controllers that speak nonstandard messages.
type RawSource struct {
	Match MidiMessage
}

func (s RawSource) Address() Address {
	return Address{
		Kind:    AddrMidiRaw,
		Channel: s.Match.Channel(),
		Number:  uint16(s.Match.Status)<<8 | uint16(s.Match.Data1),
	}
}

func (s RawSource) Character() Character { return CharacterButton }

func (s RawSource) Decode(ev Event) (control.Value, bool) {
	if ev.Kind != EventMidi || ev.Midi != s.Match {
		return control.Value{}, false
	}
	return control.AbsoluteContinuous(1), true
}

func (s RawSource) Feedback(control.UnitValue, FeedbackStyle) (FeedbackMessage, bool) {
	return FeedbackMessage{}, false
}
