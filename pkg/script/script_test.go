package script

import (
	"math"
	"testing"

	"github.com/midiglue/midiglue/pkg/source"
)

func TestTransformationReturnValue(t *testing.T) {
	tr, err := NewTransformation("return x * 2")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	got, err := tr.Transform(0.25, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.5 {
		t.Errorf("got %v, want 0.5", got)
	}
}

func TestTransformationAssignsY(t *testing.T) {
	tr, err := NewTransformation("y = 1 - x")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	got, err := tr.Transform(0.25, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.75 {
		t.Errorf("got %v, want 0.75", got)
	}
}

func TestTransformationSeesCurrentValue(t *testing.T) {
	tr, err := NewTransformation("return math.min(y + x, 1)")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	got, err := tr.Transform(0.3, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.8) > 1e-9 {
		t.Errorf("got %v, want 0.8", got)
	}
}

func TestTransformationCompileError(t *testing.T) {
	if _, err := NewTransformation("return ((("); err == nil {
		t.Fatal("broken chunk compiled")
	}
}

func TestTransformationRuntimeError(t *testing.T) {
	tr, err := NewTransformation("error('boom')")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	if _, err := tr.Transform(0, 0); err == nil {
		t.Fatal("runtime error not reported")
	}
}

func TestConditionReadsParams(t *testing.T) {
	c := NewCondition()
	defer c.Close()

	params := []float64{0.7, 0}
	ok, err := c.EvalCondition("p[1] > 0.5 and p[2] == 0", params)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("condition should hold")
	}

	params[0] = 0.2
	ok, err = c.EvalCondition("p[1] > 0.5 and p[2] == 0", params)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("condition should no longer hold")
	}
}

func TestConditionCompileError(t *testing.T) {
	c := NewCondition()
	defer c.Close()
	if _, err := c.EvalCondition("p[1] >", nil); err == nil {
		t.Fatal("broken expression compiled")
	}
}

func TestParamRefSelectsName(t *testing.T) {
	r := NewParamRef()
	defer r.Close()

	r.SetParams([]float64{0.9})
	name, err := r.EvalParamRef(`p[1] > 0.5 and "volume" or "pan"`)
	if err != nil {
		t.Fatal(err)
	}
	if name != "volume" {
		t.Errorf("got %q, want volume", name)
	}

	r.SetParams([]float64{0.1})
	name, err = r.EvalParamRef(`p[1] > 0.5 and "volume" or "pan"`)
	if err != nil {
		t.Fatal(err)
	}
	if name != "pan" {
		t.Errorf("got %q, want pan", name)
	}
}

func TestParamRefRejectsNonString(t *testing.T) {
	r := NewParamRef()
	defer r.Close()
	if _, err := r.EvalParamRef("42"); err == nil {
		t.Fatal("numeric result accepted as parameter name")
	}
}

func TestFeedbackRendersSysex(t *testing.T) {
	f, err := NewFeedback(`return string.char(0xF0, 0x42, math.floor(y * 127 + 0.5), 0xF7)`)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	raw, err := f.Render(0.5, source.FeedbackStyle{})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xF0, 0x42, 64, 0xF7}
	if len(raw) != len(want) {
		t.Fatalf("payload %v, want %v", raw, want)
	}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("payload %v, want %v", raw, want)
		}
	}
}

func TestFeedbackSeesStyle(t *testing.T) {
	f, err := NewFeedback(`if has_color then return text .. ":" .. tostring(color) end return text`)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	raw, err := f.Render(0, source.FeedbackStyle{Text: "MUTE", Color: 255, HasColor: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "MUTE:255" {
		t.Errorf("payload %q, want MUTE:255", raw)
	}
}

func TestFeedbackScriptDrivesScriptSource(t *testing.T) {
	f, err := NewFeedback(`return string.char(0xF0, math.floor(y * 127 + 0.5), 0xF7)`)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	src := source.ScriptSource{Name: "display", Script: f}
	msg, ok := src.Feedback(1, source.FeedbackStyle{})
	if !ok {
		t.Fatal("script source produced no feedback")
	}
	if msg.Kind != source.FeedbackMidiRaw || len(msg.Raw) != 3 || msg.Raw[1] != 127 {
		t.Errorf("message %+v, want raw sysex with 127", msg)
	}
}
