package engine

import (
	"testing"
	"time"

	"github.com/midiglue/midiglue/pkg/host"
)

func echoParam(t *testing.T) host.Parameter {
	t.Helper()
	s := host.NewStore()
	s.AddParameter(host.ParamSpec{ID: 1, Name: "p"})
	p, _ := s.ParameterByID(1)
	return p
}

func TestEchoSuppressesMatchingChange(t *testing.T) {
	e := NewEchoSuppressor(0)
	p := echoParam(t)
	now := time.Now()

	e.Record(p, 0.5, now)
	if !e.Suppress(p, 0.5, now.Add(time.Millisecond)) {
		t.Error("matching change not suppressed")
	}
	// The record is consumed, a second identical change is foreign.
	if e.Suppress(p, 0.5, now.Add(2*time.Millisecond)) {
		t.Error("consumed record suppressed again")
	}
}

func TestEchoIgnoresForeignValue(t *testing.T) {
	e := NewEchoSuppressor(0)
	p := echoParam(t)
	now := time.Now()

	e.Record(p, 0.5, now)
	if e.Suppress(p, 0.75, now.Add(time.Millisecond)) {
		t.Error("different value suppressed")
	}
}

func TestEchoRecordExpires(t *testing.T) {
	e := NewEchoSuppressor(10 * time.Millisecond)
	p := echoParam(t)
	now := time.Now()

	e.Record(p, 0.5, now)
	if e.Suppress(p, 0.5, now.Add(20*time.Millisecond)) {
		t.Error("expired record suppressed")
	}
}

func TestEchoUnknownParameter(t *testing.T) {
	e := NewEchoSuppressor(0)
	if e.Suppress(echoParam(t), 0.5, time.Now()) {
		t.Error("never-recorded parameter suppressed")
	}
}
