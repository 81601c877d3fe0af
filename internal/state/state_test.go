package state

import (
	"errors"
	"testing"

	"github.com/retrosound/m4a-synth/internal/loaderr"
)

func TestRoundTrip(t *testing.T) {
	want := State{
		ProjectRoot:      "/home/user/pokeemerald",
		VoicegroupName:   "voicegroup_brendan",
		ReverbAmount:     64,
		MasterVolume:     15,
		SongMasterVolume: 127,
		AnalogFilter:     true,
		MaxPCMChannels:   5,
	}

	got, err := Decode(Encode(want))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestRoundTripEmptyStrings(t *testing.T) {
	want := State{MaxPCMChannels: 1}
	got, err := Decode(Encode(want))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestForwardCompatibleTrailingBytes(t *testing.T) {
	blob := Encode(State{ProjectRoot: "proj", MaxPCMChannels: 5})
	blob = append(blob, 0xDE, 0xAD, 0xBE, 0xEF) // bytes a future version might add

	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode with trailing bytes: %v", err)
	}
	if got.ProjectRoot != "proj" || got.MaxPCMChannels != 5 {
		t.Fatalf("got %+v, want ProjectRoot=proj MaxPCMChannels=5", got)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	blob := Encode(State{})
	blob[0] ^= 0xFF
	_, err := Decode(blob)
	if !errors.Is(err, loaderr.FormatError) {
		t.Fatalf("err = %v, want loaderr.FormatError", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	cases := [][]byte{
		nil,
		{0, 1, 2},
		Encode(State{ProjectRoot: "abc"})[:8], // cuts off inside the first string's length prefix
	}
	for i, blob := range cases {
		if _, err := Decode(blob); !errors.Is(err, loaderr.FormatError) {
			t.Fatalf("case %d: err = %v, want loaderr.FormatError", i, err)
		}
	}
}
