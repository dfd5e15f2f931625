// Package source turns protocol events (MIDI, OSC, keyboard, virtual
// controls) into normalized control values and encodes target values back
// into protocol feedback messages. Sources carry addressing only; all
// processing state lives in the glue stage.
package source

import "github.com/midiglue/midiglue/pkg/control"

// EventKind discriminates the inbound event union.
type EventKind uint8

const (
	EventMidi EventKind = iota
	// EventMidi14 is an assembled 14-bit CC pair (see FourteenBitScanner).
	EventMidi14
	// EventMidiPN is an assembled (N)RPN message (see PNScanner).
	EventMidiPN
	EventOsc
	EventKey
	EventVirtual
)

// Midi14 is an assembled 14-bit control-change value.
type Midi14 struct {
	Channel    byte
	Controller byte // MSB controller number (0..31)
	Value      uint16
}

// PNMessage is an assembled registered/non-registered parameter number
// message.
type PNMessage struct {
	Channel     byte
	Number      uint16
	Value       uint16
	Registered  bool
	FourteenBit bool
}

// OscArgKind tags one OSC argument.
type OscArgKind uint8

const (
	OscFloat OscArgKind = iota
	OscInt
	OscBool
	OscString
	OscNil
)

// OscArg is one decoded OSC argument.
type OscArg struct {
	Kind  OscArgKind
	Float float64
	Int   int64
	Bool  bool
	Str   string
}

// OscEvent is a decoded OSC message. Allocated off the real-time path;
// OSC events are processed by the main processor only.
type OscEvent struct {
	Address string
	Args    []OscArg
}

// KeyEvent is a keyboard event.
type KeyEvent struct {
	Code    uint16
	Pressed bool
}

// VirtualEvent addresses a virtual control by id with an already
// normalized value.
type VirtualEvent struct {
	ID    VirtualID
	Value control.Value
}

// Event is the union of everything the processors can receive. Fixed-size
// payloads (MIDI) dominate the real-time path; pointer payloads (OSC) only
// occur on the main thread.
type Event struct {
	Kind    EventKind
	Midi    MidiMessage
	Midi14  Midi14
	PN      PNMessage
	Osc     *OscEvent
	Key     KeyEvent
	Virtual VirtualEvent
}

// AddressKind classifies source addresses for snapshot indexing.
type AddressKind uint8

const (
	AddrMidiCC AddressKind = iota
	AddrMidiNote
	AddrMidiPitchBend
	AddrMidiProgramChange
	AddrMidiChannelPressure
	AddrMidiPolyPressure
	AddrMidiPN
	AddrMidiClockTransport
	AddrMidiRaw
	AddrOsc
	AddrKey
	AddrVirtual
)

// WildcardChannel matches any MIDI channel.
const WildcardChannel byte = 0xFF

// Address identifies what a source listens to. It is comparable so
// snapshots can pre-index mappings by it.
type Address struct {
	Kind    AddressKind
	Channel byte
	Number  uint16
	Pattern string // OSC address or virtual id, empty otherwise
}

// Character describes how a control physically behaves; glue consults it
// when choosing defaults and the learn scanner reports it.
type Character uint8

const (
	CharacterRange Character = iota
	CharacterButton
	CharacterEncoder
)

// FeedbackStyle carries styling metadata (colors, text) opaque to the
// core; sources that can render it do, everyone else ignores it.
type FeedbackStyle struct {
	Color    uint32 // 0x00RRGGBB
	HasColor bool
	Text     string
}

// FeedbackKind discriminates outbound feedback payloads.
type FeedbackKind uint8

const (
	FeedbackNone FeedbackKind = iota
	FeedbackMidiShort
	FeedbackMidiRaw
	FeedbackOsc
)

// FeedbackMessage is an outbound protocol message produced by a source's
// feedback encoder.
type FeedbackMessage struct {
	Kind FeedbackKind
	Midi MidiMessage
	Raw  []byte // sysex or script output
	Osc  OscEvent
}

// Source decodes inbound events into control values and encodes feedback.
// Implementations are stateless; Decode must ignore events that do not
// match the configured address by returning ok=false.
type Source interface {
	// Address returns the index key this source listens on.
	Address() Address
	// Character reports the physical behavior of the addressed control.
	Character() Character
	// Decode extracts a control value from a matching event.
	Decode(ev Event) (control.Value, bool)
	// Feedback encodes a target value into an outbound message. Sources
	// without feedback capability return ok=false, which is not an error.
	Feedback(v control.UnitValue, style FeedbackStyle) (FeedbackMessage, bool)
}

func matchChannel(want, got byte) bool {
	return want == WildcardChannel || want == got
}
