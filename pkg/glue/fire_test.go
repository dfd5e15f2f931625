package glue

import (
	"testing"
	"time"

	"github.com/midiglue/midiglue/pkg/control"
)

func TestButtonPressOnlyFilter(t *testing.T) {
	m := NewMode(Settings{ButtonFilter: ButtonPressOnly})
	tgt := continuousTarget(0)
	if _, ok := m.Control(abs(0), tgt, at(0)); ok {
		t.Error("release must be dropped")
	}
	if out, ok := m.Control(abs(1), tgt, at(10)); !ok || out != 1 {
		t.Errorf("press gave %v ok=%v", out, ok)
	}
}

func TestButtonReleaseOnlyFilter(t *testing.T) {
	m := NewMode(Settings{ButtonFilter: ButtonReleaseOnly})
	tgt := continuousTarget(0)
	if _, ok := m.Control(abs(1), tgt, at(0)); ok {
		t.Error("press must be dropped")
	}
	if out, ok := m.Control(abs(0), tgt, at(10)); !ok || out != 0 {
		t.Errorf("release gave %v ok=%v", out, ok)
	}
}

func TestPressDurationGate(t *testing.T) {
	settings := Settings{
		Fire: FireMode{
			Kind:        FireNormal,
			MinDuration: 100 * time.Millisecond,
			MaxDuration: 500 * time.Millisecond,
		},
	}
	tgt := continuousTarget(0)

	// Too short: nothing fires.
	m := NewMode(settings)
	if _, ok := m.Control(abs(1), tgt, at(0)); ok {
		t.Error("press must be swallowed while gating")
	}
	if _, ok := m.Control(abs(0), tgt, at(50)); ok {
		t.Error("50ms hold is below the minimum")
	}

	// In range: fires the remembered press value on release.
	m = NewMode(settings)
	m.Control(abs(0.9), tgt, at(0))
	out, ok := m.Control(abs(0), tgt, at(200))
	if !ok {
		t.Fatal("200ms hold must fire")
	}
	if out.F() != 0.9 {
		t.Errorf("fired %v, want remembered press value 0.9", out.F())
	}

	// Too long: nothing fires.
	m = NewMode(settings)
	m.Control(abs(1), tgt, at(0))
	if _, ok := m.Control(abs(0), tgt, at(800)); ok {
		t.Error("800ms hold exceeds the maximum")
	}
}

func TestFireAfterTimeout(t *testing.T) {
	m := NewMode(Settings{
		Fire: FireMode{Kind: FireAfterTimeout, Timeout: 300 * time.Millisecond},
	})
	tgt := continuousTarget(0)

	if _, ok := m.Control(abs(1), tgt, at(0)); ok {
		t.Error("press itself must not fire")
	}
	if _, ok := m.PollFire(tgt, at(100)); ok {
		t.Error("poll before timeout must not fire")
	}
	out, ok := m.PollFire(tgt, at(350))
	if !ok || out != 1 {
		t.Errorf("poll after timeout gave %v ok=%v", out, ok)
	}
	if _, ok := m.PollFire(tgt, at(400)); ok {
		t.Error("timeout must fire only once per hold")
	}
	// Release then a fresh hold re-arms.
	m.Control(abs(0), tgt, at(500))
	m.Control(abs(1), tgt, at(600))
	if _, ok := m.PollFire(tgt, at(1000)); !ok {
		t.Error("fresh hold must fire again after timeout")
	}
}

func TestFireAfterTimeoutReleasedEarlyNeverFires(t *testing.T) {
	m := NewMode(Settings{
		Fire: FireMode{Kind: FireAfterTimeout, Timeout: 300 * time.Millisecond},
	})
	tgt := continuousTarget(0)
	m.Control(abs(1), tgt, at(0))
	m.Control(abs(0), tgt, at(100))
	if _, ok := m.PollFire(tgt, at(400)); ok {
		t.Error("released button must not fire on a later poll")
	}
}

func TestFireAfterTimeoutKeepFiring(t *testing.T) {
	m := NewMode(Settings{
		Fire: FireMode{
			Kind:    FireAfterTimeoutKeepFiring,
			Timeout: 100 * time.Millisecond,
			Rate:    50 * time.Millisecond,
		},
	})
	tgt := continuousTarget(0)
	m.Control(abs(1), tgt, at(0))

	fires := 0
	for ms := 0; ms <= 400; ms += 10 {
		if _, ok := m.PollFire(tgt, at(ms)); ok {
			fires++
		}
	}
	// First fire at ~100ms, then every 50ms up to 400ms.
	if fires < 5 || fires > 8 {
		t.Errorf("expected repeated firing, got %d fires", fires)
	}
}

func TestFireOnSinglePress(t *testing.T) {
	m := NewMode(Settings{
		Fire: FireMode{Kind: FireOnSinglePress, MaxDuration: 200 * time.Millisecond},
	})
	tgt := continuousTarget(0)

	m.Control(abs(1), tgt, at(0))
	out, ok := m.Control(abs(0), tgt, at(100))
	if !ok || out != 1 {
		t.Errorf("short press gave %v ok=%v", out, ok)
	}

	m.Control(abs(1), tgt, at(1000))
	if _, ok := m.Control(abs(0), tgt, at(1500)); ok {
		t.Error("long press must not fire in single-press mode")
	}
}

func TestFireOnDoublePress(t *testing.T) {
	m := NewMode(Settings{Fire: FireMode{Kind: FireOnDoublePress}})
	tgt := continuousTarget(0)

	if _, ok := m.Control(abs(1), tgt, at(0)); ok {
		t.Error("first press must not fire")
	}
	m.Control(abs(0), tgt, at(50))
	out, ok := m.Control(abs(1), tgt, at(150))
	if !ok || out != 1 {
		t.Errorf("second press within window gave %v ok=%v", out, ok)
	}

	// A lone press long after must start a new detection cycle.
	m.Control(abs(0), tgt, at(200))
	if _, ok := m.Control(abs(1), tgt, at(2000)); ok {
		t.Error("press outside window must not fire")
	}
}

func TestFireModesComposeWithToggle(t *testing.T) {
	// Double press driving a toggle: each detected double press flips once.
	m := NewMode(Settings{
		AbsoluteMode: AbsoluteToggleButton,
		Fire:         FireMode{Kind: FireOnDoublePress},
	})
	tgt := continuousTarget(0)

	m.Control(abs(1), tgt, at(0))
	m.Control(abs(0), tgt, at(40))
	out, ok := m.Control(abs(1), tgt, at(120))
	if !ok || out != 1 {
		t.Fatalf("double press gave %v ok=%v, want toggle on", out, ok)
	}
}

func TestEncoderFilter(t *testing.T) {
	tgt := continuousTarget(0.5)

	m := NewMode(Settings{EncoderFilter: EncoderIncrementOnly})
	if _, ok := m.Control(control.Relative(-1), tgt, at(0)); ok {
		t.Error("decrement must be dropped")
	}
	if _, ok := m.Control(control.Relative(1), tgt, at(10)); !ok {
		t.Error("increment must pass")
	}

	m = NewMode(Settings{EncoderFilter: EncoderDecrementOnly})
	if _, ok := m.Control(control.Relative(1), tgt, at(0)); ok {
		t.Error("increment must be dropped")
	}
	if _, ok := m.Control(control.Relative(-1), tgt, at(10)); !ok {
		t.Error("decrement must pass")
	}
}
