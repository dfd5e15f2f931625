package device

import (
	"fmt"
	"sync"

	midi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/midiglue/midiglue/pkg/engine"
	"github.com/midiglue/midiglue/pkg/source"
)

// Registry owns the MIDI driver and every open port.
type Registry struct {
	log  *zap.Logger
	drv  *rtmididrv.Driver
	sink EventSink

	mu      sync.Mutex
	inputs  []*MidiInput
	outputs []*MidiOutput
}

// NewRegistry opens the MIDI driver.
func NewRegistry(log *zap.Logger, sink EventSink) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("device: open midi driver: %w", err)
	}
	return &Registry{log: log, drv: drv, sink: sink}, nil
}

// InputPorts lists the names of the available MIDI input ports.
func (r *Registry) InputPorts() ([]string, error) {
	ins, err := r.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("device: list midi inputs: %w", err)
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

// OutputPorts lists the names of the available MIDI output ports.
func (r *Registry) OutputPorts() ([]string, error) {
	outs, err := r.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("device: list midi outputs: %w", err)
	}
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	return names, nil
}

// OpenInput starts listening on the named port (substring match, gomidi
// convention) and injects its events into the sink.
func (r *Registry) OpenInput(name string) (*MidiInput, error) {
	in, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("device: midi input %q: %w", name, err)
	}
	d := &MidiInput{name: in.String(), log: r.log, sink: r.sink}
	stop, err := midi.ListenTo(in, d.handle, midi.UseSysEx())
	if err != nil {
		return nil, fmt.Errorf("device: listen on %q: %w", name, err)
	}
	d.stop = stop
	r.mu.Lock()
	r.inputs = append(r.inputs, d)
	r.mu.Unlock()
	r.log.Info("midi input opened", zap.String("port", d.name))
	return d, nil
}

// OpenOutput opens the named output port and returns a feedback sender
// for it.
func (r *Registry) OpenOutput(name string) (*MidiOutput, error) {
	out, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("device: midi output %q: %w", name, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("device: sender for %q: %w", name, err)
	}
	d := newMidiOutput(out.String(), r.log, send, out)
	r.mu.Lock()
	r.outputs = append(r.outputs, d)
	r.mu.Unlock()
	r.log.Info("midi output opened", zap.String("port", d.name))
	return d, nil
}

// Close stops all ports and releases the driver.
func (r *Registry) Close() error {
	r.mu.Lock()
	inputs := r.inputs
	outputs := r.outputs
	r.inputs, r.outputs = nil, nil
	r.mu.Unlock()

	var err error
	for _, in := range inputs {
		in.Close()
	}
	for _, out := range outputs {
		err = multierr.Append(err, out.Close())
	}
	return multierr.Append(err, r.drv.Close())
}

// MidiInput listens on one port. It owns the per-port scanners, so
// 14-bit pairs and (N)RPN sequences are assembled on the device
// goroutine and reach the engine as ready events.
type MidiInput struct {
	name string
	log  *zap.Logger
	sink EventSink
	stop func()

	scan14 source.FourteenBitScanner
	scanPN source.PNScanner
}

// Name returns the port name.
func (d *MidiInput) Name() string { return d.name }

// handle runs on the driver's callback goroutine. It never blocks.
func (d *MidiInput) handle(msg midi.Message, _ int32) {
	raw := []byte(msg)
	if len(raw) > 0 && raw[0] == 0xF0 {
		// Sysex carries no control semantics here.
		return
	}
	m, ok := source.ParseMidi(raw)
	if !ok {
		return
	}
	d.sink.InjectEvent(source.Event{Kind: source.EventMidi, Midi: m})
	if v14, ok := d.scan14.Feed(m); ok {
		d.sink.InjectEvent(source.Event{Kind: source.EventMidi14, Midi14: v14})
	}
	if pn, ok := d.scanPN.Feed(m); ok {
		d.sink.InjectEvent(source.Event{Kind: source.EventMidiPN, PN: pn})
	}
}

// Close stops listening.
func (d *MidiInput) Close() {
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
}

// MidiOutput queues feedback messages and writes them to one port from
// its own goroutine, implementing engine.FeedbackSender.
type MidiOutput struct {
	name  string
	log   *zap.Logger
	send  func(midi.Message) error
	port  drivers.Out
	queue *engine.Ring[source.FeedbackMessage]
	wake  chan struct{}
	done  chan struct{}

	closeOnce sync.Once
}

func newMidiOutput(name string, log *zap.Logger, send func(midi.Message) error, port drivers.Out) *MidiOutput {
	d := &MidiOutput{
		name:  name,
		log:   log,
		send:  send,
		port:  port,
		queue: engine.NewRing[source.FeedbackMessage](feedbackQueueCapacity),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

// Name returns the port name.
func (d *MidiOutput) Name() string { return d.name }

// SendFeedback queues one message. Non-MIDI payloads are ignored.
func (d *MidiOutput) SendFeedback(msg source.FeedbackMessage) {
	switch msg.Kind {
	case source.FeedbackMidiShort, source.FeedbackMidiRaw:
	default:
		return
	}
	d.queue.Push(msg)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *MidiOutput) loop() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}
		for {
			msg, ok := d.queue.Pop()
			if !ok {
				break
			}
			raw, ok := feedbackBytes(msg)
			if !ok {
				continue
			}
			if err := d.send(midi.Message(raw)); err != nil {
				d.log.Warn("midi send failed",
					zap.String("port", d.name),
					zap.Error(err))
			}
		}
	}
}

// feedbackBytes converts a feedback message into its wire bytes.
func feedbackBytes(msg source.FeedbackMessage) ([]byte, bool) {
	switch msg.Kind {
	case source.FeedbackMidiShort:
		var buf [3]byte
		n := msg.Midi.Bytes(buf[:])
		return buf[:n], true
	case source.FeedbackMidiRaw:
		return msg.Raw, len(msg.Raw) > 0
	default:
		return nil, false
	}
}

// Close stops the writer goroutine and closes the port.
func (d *MidiOutput) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		err = d.port.Close()
	})
	return err
}
