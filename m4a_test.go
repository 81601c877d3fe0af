package m4a

import (
	"errors"
	"testing"

	"github.com/retrosound/m4a-synth/internal/loaderr"
)

func TestNewEngineRejectsBadSampleRate(t *testing.T) {
	if _, err := NewEngine(0); err == nil {
		t.Fatal("expected an error for sampleRate=0")
	}
	if _, err := NewEngine(-44100); err == nil {
		t.Fatal("expected an error for a negative sampleRate")
	}
}

func TestNewEngineDefaults(t *testing.T) {
	e, err := NewEngine(44100)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if e.SampleRate() != 44100 {
		t.Fatalf("SampleRate = %d, want 44100", e.SampleRate())
	}
	if e.MasterVolume() != 15 {
		t.Fatalf("MasterVolume = %d, want 15", e.MasterVolume())
	}
	if e.MaxPCMChannels() != 5 {
		t.Fatalf("MaxPCMChannels = %d, want 5", e.MaxPCMChannels())
	}
}

func TestLoadVoiceGroupMissingRootIsNotFound(t *testing.T) {
	e, err := NewEngine(44100)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	err = e.LoadVoiceGroup("/no/such/project/root", "voicegroup_test", nil)
	if !errors.Is(err, loaderr.NotFound) {
		t.Fatalf("err = %v, want loaderr.NotFound", err)
	}
}

func TestProcessRendersWithoutPanicking(t *testing.T) {
	e, err := NewEngine(44100)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	outL := make([]float32, 256)
	outR := make([]float32, 256)
	e.NoteOn(0, 60, 100)
	e.Process(outL, outR)
	e.NoteOff(0, 60)
	e.AllSoundOff()
}

func TestStateRoundTripAppliesTuningKnobs(t *testing.T) {
	e, err := NewEngine(44100, WithMaxPCMChannels(3), WithReverbAmount(40))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.SetMasterVolume(9)
	e.SetAnalogFilter(true)

	blob := e.SaveState()

	restored, err := NewEngine(44100)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := restored.RestoreState(blob, nil); err != nil {
		t.Fatalf("RestoreState: %v", err)
	}
	if restored.MasterVolume() != 9 {
		t.Fatalf("restored MasterVolume = %d, want 9", restored.MasterVolume())
	}
	if restored.MaxPCMChannels() != 3 {
		t.Fatalf("restored MaxPCMChannels = %d, want 3", restored.MaxPCMChannels())
	}
	if restored.ReverbAmount() != 40 {
		t.Fatalf("restored ReverbAmount = %d, want 40", restored.ReverbAmount())
	}
	if !restored.AnalogFilter() {
		t.Fatal("restored AnalogFilter = false, want true")
	}
}

func TestStateRoundTripWithNoVoiceGroupSkipsReload(t *testing.T) {
	e, err := NewEngine(44100)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	blob := e.SaveState()

	restored, err := NewEngine(44100)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := restored.RestoreState(blob, nil); err != nil {
		t.Fatalf("RestoreState with no voicegroup recorded: %v", err)
	}
}
