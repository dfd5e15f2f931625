package engine

import (
	"math"
	"time"

	"github.com/midiglue/midiglue/pkg/host"
)

// echoEpsilon tolerates float drift between the written and reported
// parameter value.
const echoEpsilon = 1e-6

// DefaultEchoWindow bounds how long an own write suppresses a matching
// change notification. One processing cycle plus slack.
const DefaultEchoWindow = 50 * time.Millisecond

// EchoSuppressor filters the engine's own parameter writes out of the
// host change stream, so feedback is generated for foreign changes
// (automation, UI) exactly once and own writes are not fed back twice.
// Main thread only.
type EchoSuppressor struct {
	window  time.Duration
	entries map[host.Parameter]echoEntry
}

type echoEntry struct {
	value float64
	at    time.Time
}

// NewEchoSuppressor creates a suppressor; window <= 0 selects the
// default.
func NewEchoSuppressor(window time.Duration) *EchoSuppressor {
	if window <= 0 {
		window = DefaultEchoWindow
	}
	return &EchoSuppressor{
		window:  window,
		entries: make(map[host.Parameter]echoEntry),
	}
}

// Record notes an own write of v to p.
func (e *EchoSuppressor) Record(p host.Parameter, v float64, now time.Time) {
	e.entries[p] = echoEntry{value: v, at: now}
}

// Suppress reports whether a change notification for p with value v
// echoes a recent own write. A match consumes the record.
func (e *EchoSuppressor) Suppress(p host.Parameter, v float64, now time.Time) bool {
	ent, ok := e.entries[p]
	if !ok {
		return false
	}
	if now.Sub(ent.at) > e.window {
		delete(e.entries, p)
		return false
	}
	if math.Abs(ent.value-v) > echoEpsilon {
		// The parameter moved past our write, a foreign change.
		return false
	}
	delete(e.entries, p)
	return true
}
