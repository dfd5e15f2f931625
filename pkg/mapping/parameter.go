package mapping

// ParameterCount is the fixed number of parameter slots per compartment.
const ParameterCount = 100

// Parameters are the named float slots of a compartment, referenced by
// activation conditions and dynamic target expressions. Values are
// normalized to [0,1]. The struct is a plain value so snapshots can copy
// it wholesale.
type Parameters struct {
	values [ParameterCount]float64
	names  [ParameterCount]string
}

// Get returns the value of slot i, 0 for out-of-range indices.
func (p *Parameters) Get(i uint32) float64 {
	if i >= ParameterCount {
		return 0
	}
	return p.values[i]
}

// Set stores a clamped value in slot i and reports whether it changed.
func (p *Parameters) Set(i uint32, v float64) bool {
	if i >= ParameterCount {
		return false
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	if p.values[i] == v {
		return false
	}
	p.values[i] = v
	return true
}

// Name returns the display name of slot i, empty when unnamed.
func (p *Parameters) Name(i uint32) string {
	if i >= ParameterCount || p.names[i] == "" {
		return ""
	}
	return p.names[i]
}

// SetName assigns a display name to slot i.
func (p *Parameters) SetName(i uint32, name string) {
	if i < ParameterCount {
		p.names[i] = name
	}
}

// Values returns a copy of all slot values.
func (p *Parameters) Values() [ParameterCount]float64 {
	return p.values
}
