// Package diag provides allocation-free diagnostics for the engine: the
// real-time thread bumps atomic counters, the main thread drains them
// into structured logs.
package diag

import "sync/atomic"

// Counters holds the engine's error and throughput counters. All fields
// are manipulated atomically; bumping one is safe on the audio callback.
type Counters struct {
	eventsIn         atomic.Uint64
	eventsDropped    atomic.Uint64
	relayDropped     atomic.Uint64
	feedbackDropped  atomic.Uint64
	targetUnresolved atomic.Uint64
	writeRejected    atomic.Uint64
	snapshotSwaps    atomic.Uint64
	blocks           atomic.Uint64
	maxBlockNanos    atomic.Uint64
}

// Stats is a point-in-time copy of all counters.
type Stats struct {
	EventsIn         uint64
	EventsDropped    uint64
	RelayDropped     uint64
	FeedbackDropped  uint64
	TargetUnresolved uint64
	WriteRejected    uint64
	SnapshotSwaps    uint64
	Blocks           uint64
	MaxBlockNanos    uint64
}

func (c *Counters) AddEventsIn(n uint64)   { c.eventsIn.Add(n) }
func (c *Counters) AddEventDropped()       { c.eventsDropped.Add(1) }
func (c *Counters) AddRelayDropped()       { c.relayDropped.Add(1) }
func (c *Counters) AddFeedbackDropped()    { c.feedbackDropped.Add(1) }
func (c *Counters) AddTargetUnresolved()   { c.targetUnresolved.Add(1) }
func (c *Counters) AddWriteRejected()      { c.writeRejected.Add(1) }
func (c *Counters) AddSnapshotSwap()       { c.snapshotSwaps.Add(1) }
func (c *Counters) AddBlock()              { c.blocks.Add(1) }

// RecordBlockDuration keeps the worst observed block processing time.
func (c *Counters) RecordBlockDuration(nanos uint64) {
	for {
		cur := c.maxBlockNanos.Load()
		if nanos <= cur || c.maxBlockNanos.CompareAndSwap(cur, nanos) {
			return
		}
	}
}

// Snapshot copies all counters.
func (c *Counters) Snapshot() Stats {
	return Stats{
		EventsIn:         c.eventsIn.Load(),
		EventsDropped:    c.eventsDropped.Load(),
		RelayDropped:     c.relayDropped.Load(),
		FeedbackDropped:  c.feedbackDropped.Load(),
		TargetUnresolved: c.targetUnresolved.Load(),
		WriteRejected:    c.writeRejected.Load(),
		SnapshotSwaps:    c.snapshotSwaps.Load(),
		Blocks:           c.blocks.Load(),
		MaxBlockNanos:    c.maxBlockNanos.Load(),
	}
}
