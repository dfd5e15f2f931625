//go:build linux

package device

import (
	"fmt"

	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"

	"github.com/midiglue/midiglue/pkg/source"
)

// Keyboard reads key events from one evdev input device.
type Keyboard struct {
	log  *zap.Logger
	sink EventSink
	dev  *evdev.InputDevice
	path string
}

// ListKeyboards returns the paths and names of the available input
// devices.
func ListKeyboards() (paths, names []string, err error) {
	devices, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, nil, fmt.Errorf("device: list input devices: %w", err)
	}
	for _, d := range devices {
		paths = append(paths, d.Path)
		names = append(names, d.Name)
	}
	return paths, names, nil
}

// OpenKeyboard opens an evdev device ("/dev/input/event3") and starts
// injecting its key events.
func OpenKeyboard(log *zap.Logger, sink EventSink, path string) (*Keyboard, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("device: open keyboard %s: %w", path, err)
	}
	k := &Keyboard{log: log, sink: sink, dev: dev, path: path}
	go k.loop()
	name, _ := dev.Name()
	log.Info("keyboard opened", zap.String("path", path), zap.String("name", name))
	return k, nil
}

func (k *Keyboard) loop() {
	for {
		ev, err := k.dev.ReadOne()
		if err != nil {
			// Device closed or unplugged.
			k.log.Debug("keyboard read ended",
				zap.String("path", k.path),
				zap.Error(err))
			return
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		// Value 2 is auto-repeat; sources synthesize their own repeats.
		if ev.Value != 0 && ev.Value != 1 {
			continue
		}
		k.sink.InjectEvent(source.Event{
			Kind: source.EventKey,
			Key: source.KeyEvent{
				Code:    uint16(ev.Code),
				Pressed: ev.Value == 1,
			},
		})
	}
}

// Close releases the device, which also ends the read loop.
func (k *Keyboard) Close() error {
	return k.dev.Close()
}
