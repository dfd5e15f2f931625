package source

import "fmt"

// MidiKind classifies a short MIDI message by its status nibble.
type MidiKind uint8

const (
	MidiNoteOff MidiKind = iota
	MidiNoteOn
	MidiPolyPressure
	MidiControlChange
	MidiProgramChange
	MidiChannelPressure
	MidiPitchBend
	MidiSystem
)

// System real-time status bytes.
const (
	StatusClock    byte = 0xF8
	StatusStart    byte = 0xFA
	StatusContinue byte = 0xFB
	StatusStop     byte = 0xFC
)

// MidiMessage is a short (up to three byte) MIDI message in wire form.
// It is a fixed-size value so it can travel through the real-time rings
// without allocation.
type MidiMessage struct {
	Status byte
	Data1  byte
	Data2  byte
}

// NewControlChange builds a CC message.
func NewControlChange(channel, controller, value byte) MidiMessage {
	return MidiMessage{Status: 0xB0 | channel&0x0F, Data1: controller & 0x7F, Data2: value & 0x7F}
}

// NewNoteOn builds a note-on message.
func NewNoteOn(channel, key, velocity byte) MidiMessage {
	return MidiMessage{Status: 0x90 | channel&0x0F, Data1: key & 0x7F, Data2: velocity & 0x7F}
}

// NewNoteOff builds a note-off message.
func NewNoteOff(channel, key, velocity byte) MidiMessage {
	return MidiMessage{Status: 0x80 | channel&0x0F, Data1: key & 0x7F, Data2: velocity & 0x7F}
}

// NewPitchBend builds a pitch-bend message from a 14-bit value (0..16383,
// 8192 is center).
func NewPitchBend(channel byte, value uint16) MidiMessage {
	return MidiMessage{Status: 0xE0 | channel&0x0F, Data1: byte(value & 0x7F), Data2: byte(value >> 7 & 0x7F)}
}

// NewProgramChange builds a program-change message.
func NewProgramChange(channel, program byte) MidiMessage {
	return MidiMessage{Status: 0xC0 | channel&0x0F, Data1: program & 0x7F}
}

// NewChannelPressure builds a channel-pressure message.
func NewChannelPressure(channel, pressure byte) MidiMessage {
	return MidiMessage{Status: 0xD0 | channel&0x0F, Data1: pressure & 0x7F}
}

// IsChannelMessage reports whether the status byte carries a channel.
func (m MidiMessage) IsChannelMessage() bool { return m.Status >= 0x80 && m.Status < 0xF0 }

// Kind returns the message class.
func (m MidiMessage) Kind() MidiKind {
	if m.Status >= 0xF0 {
		return MidiSystem
	}
	return MidiKind(m.Status>>4) - 8
}

// Channel returns the 0-based channel for channel messages, 0 otherwise.
func (m MidiMessage) Channel() byte {
	if !m.IsChannelMessage() {
		return 0
	}
	return m.Status & 0x0F
}

// PitchBendValue assembles the 14-bit pitch-bend payload.
func (m MidiMessage) PitchBendValue() uint16 {
	return uint16(m.Data1&0x7F) | uint16(m.Data2&0x7F)<<7
}

// Len returns the wire length of the message (1, 2 or 3 bytes).
func (m MidiMessage) Len() int {
	switch m.Kind() {
	case MidiProgramChange, MidiChannelPressure:
		return 2
	case MidiSystem:
		return 1
	default:
		return 3
	}
}

// Bytes writes the message into buf and returns the number of bytes
// written. buf must hold at least three bytes.
func (m MidiMessage) Bytes(buf []byte) int {
	n := m.Len()
	buf[0] = m.Status
	if n > 1 {
		buf[1] = m.Data1
	}
	if n > 2 {
		buf[2] = m.Data2
	}
	return n
}

func (m MidiMessage) String() string {
	switch m.Kind() {
	case MidiControlChange:
		return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d}", m.Channel(), m.Data1, m.Data2)
	case MidiNoteOn:
		return fmt.Sprintf("NoteOn{ch:%d, key:%d, vel:%d}", m.Channel(), m.Data1, m.Data2)
	case MidiNoteOff:
		return fmt.Sprintf("NoteOff{ch:%d, key:%d, vel:%d}", m.Channel(), m.Data1, m.Data2)
	case MidiPitchBend:
		return fmt.Sprintf("PitchBend{ch:%d, val:%d}", m.Channel(), m.PitchBendValue())
	case MidiProgramChange:
		return fmt.Sprintf("ProgramChange{ch:%d, prog:%d}", m.Channel(), m.Data1)
	case MidiChannelPressure:
		return fmt.Sprintf("ChannelPressure{ch:%d, val:%d}", m.Channel(), m.Data1)
	case MidiPolyPressure:
		return fmt.Sprintf("PolyPressure{ch:%d, key:%d, val:%d}", m.Channel(), m.Data1, m.Data2)
	default:
		return fmt.Sprintf("System{0x%02X}", m.Status)
	}
}

// ParseMidi decodes a short message from raw bytes.
func ParseMidi(b []byte) (MidiMessage, bool) {
	if len(b) == 0 || b[0] < 0x80 {
		return MidiMessage{}, false
	}
	m := MidiMessage{Status: b[0]}
	need := m.Len()
	if len(b) < need {
		return MidiMessage{}, false
	}
	if need > 1 {
		m.Data1 = b[1] & 0x7F
	}
	if need > 2 {
		m.Data2 = b[2] & 0x7F
	}
	return m, true
}
