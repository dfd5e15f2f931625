package source

// FourteenBitScanner assembles MSB/LSB control-change pairs (controllers
// 0..31 paired with 32..63) into Midi14 events. One scanner per input
// port; all state is fixed-size, so scanning is allocation-free.
type FourteenBitScanner struct {
	msbValue [16][32]byte
	msbSeen  [16][32]bool
}

// Feed consumes a CC message. If it completes a 14-bit pair the
// assembled event is returned with ok=true. MSB messages are remembered
// but still delivered to 7-bit sources by the caller.
func (s *FourteenBitScanner) Feed(m MidiMessage) (Midi14, bool) {
	if m.Kind() != MidiControlChange {
		return Midi14{}, false
	}
	ch := m.Channel()
	switch {
	case m.Data1 < 32:
		s.msbValue[ch][m.Data1] = m.Data2
		s.msbSeen[ch][m.Data1] = true
		return Midi14{}, false
	case m.Data1 < 64:
		msbController := m.Data1 - 32
		if !s.msbSeen[ch][msbController] {
			return Midi14{}, false
		}
		value := uint16(s.msbValue[ch][msbController])<<7 | uint16(m.Data2)
		return Midi14{Channel: ch, Controller: msbController, Value: value}, true
	default:
		return Midi14{}, false
	}
}

// Reset forgets all pending MSB halves.
func (s *FourteenBitScanner) Reset() {
	*s = FourteenBitScanner{}
}

// PNScanner assembles registered/non-registered parameter-number message
// sequences (CC 98..101 select, CC 6/38 carry data) into PNMessage
// events. One scanner per input port.
type PNScanner struct {
	number     [16]uint16
	registered [16]bool
	selected   [16]bool
	dataMSB    [16]byte
	haveMSB    [16]bool
}

const pnNull = 0x3FFF

// Feed consumes a CC message and returns an assembled parameter-number
// event when a data byte arrives for a selected number. A data-LSB after
// a data-MSB upgrades the previous value to 14 bit.
func (s *PNScanner) Feed(m MidiMessage) (PNMessage, bool) {
	if m.Kind() != MidiControlChange {
		return PNMessage{}, false
	}
	ch := m.Channel()
	switch m.Data1 {
	case 101, 99: // number MSB
		s.setNumber(ch, m.Data1 == 101, uint16(m.Data2)<<7|s.number[ch]&0x7F)
		return PNMessage{}, false
	case 100, 98: // number LSB
		s.setNumber(ch, m.Data1 == 100, s.number[ch]&^uint16(0x7F)|uint16(m.Data2))
		return PNMessage{}, false
	case 6: // data MSB
		if !s.selected[ch] || s.number[ch] == pnNull {
			return PNMessage{}, false
		}
		s.dataMSB[ch] = m.Data2
		s.haveMSB[ch] = true
		return PNMessage{
			Channel:    ch,
			Number:     s.number[ch],
			Value:      uint16(m.Data2) << 7,
			Registered: s.registered[ch],
		}, true
	case 38: // data LSB
		if !s.selected[ch] || !s.haveMSB[ch] {
			return PNMessage{}, false
		}
		return PNMessage{
			Channel:     ch,
			Number:      s.number[ch],
			Value:       uint16(s.dataMSB[ch])<<7 | uint16(m.Data2),
			Registered:  s.registered[ch],
			FourteenBit: true,
		}, true
	default:
		return PNMessage{}, false
	}
}

func (s *PNScanner) setNumber(ch byte, registered bool, number uint16) {
	s.number[ch] = number
	s.registered[ch] = registered
	s.selected[ch] = true
	s.haveMSB[ch] = false
}

// Reset forgets all selected numbers.
func (s *PNScanner) Reset() {
	*s = PNScanner{}
}
