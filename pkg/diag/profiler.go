package diag

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Profiler times named engine sections. It takes a mutex on record, so it
// belongs on the main thread; the real-time path uses Counters instead.
type Profiler struct {
	mu           sync.RWMutex
	measurements map[string]*Measurement
	enabled      atomic.Bool
}

// Measurement holds timing statistics for one profiled section.
type Measurement struct {
	Count uint64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration
}

// Average returns the mean duration.
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// NewProfiler creates an enabled profiler.
func NewProfiler() *Profiler {
	p := &Profiler{measurements: make(map[string]*Measurement)}
	p.enabled.Store(true)
	return p
}

// SetEnabled enables or disables profiling.
func (p *Profiler) SetEnabled(enabled bool) { p.enabled.Store(enabled) }

// Start begins timing a named section and returns the stop function.
func (p *Profiler) Start(name string) func() {
	if !p.enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.record(name, time.Since(start))
	}
}

// Time measures one function call.
func (p *Profiler) Time(name string, fn func()) {
	stop := p.Start(name)
	defer stop()
	fn()
}

func (p *Profiler) record(name string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.measurements[name]
	if !ok {
		m = &Measurement{Min: elapsed, Max: elapsed}
		p.measurements[name] = m
	}
	m.Count++
	m.Total += elapsed
	m.Last = elapsed
	if elapsed < m.Min {
		m.Min = elapsed
	}
	if elapsed > m.Max {
		m.Max = elapsed
	}
}

// Measurement returns a copy of the statistics for one section.
func (p *Profiler) Measurement(name string) (Measurement, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.measurements[name]
	if !ok {
		return Measurement{}, false
	}
	return *m, true
}

// Reset clears all measurements.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measurements = make(map[string]*Measurement)
}

// Report renders all measurements, sorted by name.
func (p *Profiler) Report() string {
	p.mu.RLock()
	names := make([]string, 0, len(p.measurements))
	for name := range p.measurements {
		names = append(names, name)
	}
	copies := make(map[string]Measurement, len(names))
	for _, name := range names {
		copies[name] = *p.measurements[name]
	}
	p.mu.RUnlock()

	if len(names) == 0 {
		return "no measurements recorded"
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		m := copies[name]
		fmt.Fprintf(&b, "%s: count=%d avg=%v min=%v max=%v last=%v\n",
			name, m.Count, m.Average(), m.Min, m.Max, m.Last)
	}
	return b.String()
}
