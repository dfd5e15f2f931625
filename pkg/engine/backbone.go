package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/midiglue/midiglue/pkg/diag"
)

// Backbone bundles the cross-cutting services the processors share:
// logger, counters, profiler and the clock. Passed explicitly, never
// reached through globals. The logger is main-thread only; the
// real-time side reports through the counters.
type Backbone struct {
	Log      *zap.Logger
	Counters *diag.Counters
	Profiler *diag.Profiler
	Clock    func() time.Time
}

// NewBackbone builds a backbone around the given logger; nil selects a
// no-op logger.
func NewBackbone(log *zap.Logger) *Backbone {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backbone{
		Log:      log,
		Counters: &diag.Counters{},
		Profiler: diag.NewProfiler(),
		Clock:    time.Now,
	}
}

// Now returns the backbone clock's current time.
func (b *Backbone) Now() time.Time { return b.Clock() }
