// Package state encodes and decodes the host's persisted plugin state: the
// project root, the installed voicegroup's name, and the engine's
// byte-sized tuning knobs. It is the only thing a host needs to save and
// restore to bring a session back exactly as the user left it.
package state

import (
	"encoding/binary"

	"github.com/retrosound/m4a-synth/internal/loaderr"
)

// magic/version guard against decoding an unrelated or future-incompatible
// blob; version bumps only when a field's wire position or meaning
// changes, never for the optional trailing bytes.
const (
	magic   uint32 = 0x4D344153 // "M4AS"
	version uint16 = 1
)

// State is a plugin's persisted session: enough to re-open a project,
// reload its voicegroup, and restore the engine's tuning knobs without
// replaying every MIDI CC the user sent.
type State struct {
	ProjectRoot    string
	VoicegroupName string

	ReverbAmount     uint8
	MasterVolume     uint8
	SongMasterVolume uint8
	AnalogFilter     bool
	MaxPCMChannels   uint8
}

// Encode serializes s into the length-prefixed binary layout: a 4-byte
// magic, a 2-byte version, the two length-prefixed strings (4-byte LE
// length + UTF-8 bytes), then the five tuning-knob bytes. Matches the
// teacher's EncodeWAVFloat32LE style of writing directly into a
// preallocated, offset-addressed byte slice rather than building up a
// bytes.Buffer.
func Encode(s State) []byte {
	size := 4 + 2 + 4 + len(s.ProjectRoot) + 4 + len(s.VoicegroupName) + 5
	out := make([]byte, size)

	binary.LittleEndian.PutUint32(out[0:], magic)
	binary.LittleEndian.PutUint16(out[4:], version)

	off := 6
	off = putString(out, off, s.ProjectRoot)
	off = putString(out, off, s.VoicegroupName)

	out[off] = s.ReverbAmount
	out[off+1] = s.MasterVolume
	out[off+2] = s.SongMasterVolume
	out[off+3] = boolByte(s.AnalogFilter)
	out[off+4] = s.MaxPCMChannels

	return out
}

// Decode parses a blob produced by Encode. Per spec.md §6.5, trailing
// bytes beyond the five tuning-knob bytes are tolerated and ignored, so a
// future version that appends new fields still round-trips through an
// older Decode. A blob shorter than the fixed header, or whose magic or
// version doesn't match, is reported as loaderr.FormatError.
func Decode(data []byte) (State, error) {
	var s State
	if len(data) < 6 {
		return s, loaderr.Wrap(loaderr.FormatError, "state: truncated header", nil)
	}
	if got := binary.LittleEndian.Uint32(data[0:]); got != magic {
		return s, loaderr.Wrap(loaderr.FormatError, "state: bad magic", nil)
	}
	if got := binary.LittleEndian.Uint16(data[4:]); got != version {
		return s, loaderr.Wrap(loaderr.FormatError, "state: unsupported version", nil)
	}

	off := 6
	var err error
	s.ProjectRoot, off, err = getString(data, off)
	if err != nil {
		return State{}, err
	}
	s.VoicegroupName, off, err = getString(data, off)
	if err != nil {
		return State{}, err
	}

	if off+5 > len(data) {
		return State{}, loaderr.Wrap(loaderr.FormatError, "state: truncated tuning knobs", nil)
	}
	s.ReverbAmount = data[off]
	s.MasterVolume = data[off+1]
	s.SongMasterVolume = data[off+2]
	s.AnalogFilter = data[off+3] != 0
	s.MaxPCMChannels = data[off+4]

	// Bytes past this point, if any, belong to a newer version's fields
	// we don't know about yet; ignored on purpose.
	return s, nil
}

func putString(out []byte, off int, s string) int {
	binary.LittleEndian.PutUint32(out[off:], uint32(len(s)))
	off += 4
	copy(out[off:], s)
	return off + len(s)
}

func getString(data []byte, off int) (string, int, error) {
	if off+4 > len(data) {
		return "", off, loaderr.Wrap(loaderr.FormatError, "state: truncated string length", nil)
	}
	n := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	if n < 0 || off+n > len(data) {
		return "", off, loaderr.Wrap(loaderr.FormatError, "state: truncated string body", nil)
	}
	return string(data[off : off+n]), off + n, nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
