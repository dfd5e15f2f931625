// Package device connects transports to the engine: MIDI ports via
// gomidi, OSC endpoints and (on linux) evdev keyboards. Inbound events
// are injected into the engine without blocking; feedback is queued per
// output device so a slow transport never stalls the main thread.
package device

import (
	"github.com/midiglue/midiglue/pkg/source"
)

// EventSink receives decoded inbound events. The engine instance
// implements it; injection is lock-free and safe from device callbacks.
type EventSink interface {
	InjectEvent(ev source.Event)
}

// feedbackQueueCapacity bounds the per-output feedback backlog; overflow
// drops the oldest messages, matching the input rings.
const feedbackQueueCapacity = 256
