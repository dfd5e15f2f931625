//go:build !linux

package device

import (
	"errors"

	"go.uber.org/zap"
)

// Keyboard capture uses evdev and only exists on linux.
type Keyboard struct{}

var errNoEvdev = errors.New("device: keyboard capture requires linux evdev")

func ListKeyboards() (paths, names []string, err error) { return nil, nil, errNoEvdev }

func OpenKeyboard(*zap.Logger, EventSink, string) (*Keyboard, error) { return nil, errNoEvdev }

func (k *Keyboard) Close() error { return nil }
