package voicegroup

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retrosound/m4a-synth/internal/loaderr"
)

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o755))
}

func mustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	mustMkdirAll(t, filepath.Dir(path))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func mustWriteText(t *testing.T, path, contents string) {
	t.Helper()
	mustWriteFile(t, path, []byte(contents))
}

// binSample builds a minimal native .bin sample file: 16-byte header
// followed by the given signed-8-bit data.
func binSample(samples []byte) []byte {
	hdr := make([]byte, 16)
	binary.LittleEndian.PutUint32(hdr[4:8], 22050*1024)
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(samples)))
	return append(hdr, samples...)
}

// riffSine8 builds a minimal valid 8-bit PCM mono RIFF/WAVE file with 4 samples.
func riffSine8() []byte {
	data := []byte{128, 138, 148, 158}
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:2], 1) // PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:4], 1) // mono
	binary.LittleEndian.PutUint32(fmtChunk[4:8], 22050)
	binary.LittleEndian.PutUint32(fmtChunk[8:12], 22050)
	binary.LittleEndian.PutUint16(fmtChunk[12:14], 1)
	binary.LittleEndian.PutUint16(fmtChunk[14:16], 8)

	var buf []byte
	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, 0, 0, 0, 0) // size placeholder, unchecked by loader
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, riffChunkBytes("fmt ", fmtChunk)...)
	buf = append(buf, riffChunkBytes("data", data)...)
	return buf
}

func riffChunkBytes(id string, data []byte) []byte {
	out := make([]byte, 8+len(data))
	copy(out[0:4], id)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(data)))
	copy(out[8:], data)
	if len(data)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func TestLoadDirectSoundVoice(t *testing.T) {
	root := t.TempDir()
	mustWriteText(t, filepath.Join(root, "sound/direct_sound_data.inc"),
		"gSample1::\n\t.incbin \"sound/voice/sample1.bin\"\n")
	mustWriteFile(t, filepath.Join(root, "sound/voice/sample1.bin"), binSample([]byte{0, 10, 20, 30}))
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/lead.inc"),
		"\tvoice_directsound 60, 0, gSample1, 0, 0, 15, 0\n")

	vg, err := Load(root, "lead", nil)
	require.NoError(t, err)

	v := vg.Voices[0]
	require.Equal(t, KindDirectSound, v.Kind)
	require.NotNil(t, v.Wav, "want a resolved sample")
	require.EqualValues(t, 4, v.Wav.Size)
	require.EqualValues(t, 15, v.Sustain)
}

func TestLoadDirectSoundPrefersSiblingWav(t *testing.T) {
	root := t.TempDir()
	mustWriteText(t, filepath.Join(root, "sound/direct_sound_data.inc"),
		"gSample1::\n\t.incbin \"sound/voice/sample1.bin\"\n")
	mustWriteFile(t, filepath.Join(root, "sound/voice/sample1.bin"), binSample([]byte{1, 2, 3}))
	mustWriteFile(t, filepath.Join(root, "sound/voice/sample1.wav"), riffSine8())
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/lead.inc"),
		"\tvoice_directsound 60, 0, gSample1, 0, 0, 0, 0\n")

	vg, err := Load(root, "lead", nil)
	require.NoError(t, err)
	require.NotNil(t, vg.Voices[0].Wav)
	require.EqualValues(t, 4, vg.Voices[0].Wav.Size, "expected the .wav, not the .bin, to win")
}

func TestLoadSquareAndNoiseVoices(t *testing.T) {
	root := t.TempDir()
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/drums.inc"),
		"\tvoice_square_1 60, 0, 0, 2, 1, 2, 8, 3\n"+
			"\tvoice_square_2 61, 0, 1, 0, 0, 0, 0\n"+
			"\tvoice_noise 62, 0, 1, 0, 0, 0, 0\n")

	vg, err := Load(root, "drums", nil)
	require.NoError(t, err)

	require.Equal(t, KindSquare1, vg.Voices[0].Kind)
	require.EqualValues(t, 2, vg.Voices[0].Duty)
	require.Equal(t, KindSquare2, vg.Voices[1].Kind)
	require.Equal(t, KindNoise, vg.Voices[2].Kind)
	require.True(t, vg.Voices[2].Period7)
}

func TestLoadKeySplitResolvesSubVoicegroupAndTable(t *testing.T) {
	root := t.TempDir()
	mustWriteText(t, filepath.Join(root, "sound/keysplit_tables.inc"),
		"\tkeysplit foo, 0\n\tsplit 0, 60\n\tsplit 1, 128\n")
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/child.inc"),
		"\tvoice_square_1 60, 0, 0, 0, 0, 0, 0, 0\n")
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/parent.inc"),
		"\tvoice_keysplit voicegroup_child, keysplit_foo\n")

	vg, err := Load(root, "parent", nil)
	require.NoError(t, err)

	v := vg.Voices[0]
	require.Equal(t, KindKeySplit, v.Kind)
	require.NotNil(t, v.SubGroup, "want resolved child voicegroup")
	require.Equal(t, KindSquare1, v.SubGroup[0].Kind)
	require.NotNil(t, v.KeySplitTable)
	require.EqualValues(t, 0, v.KeySplitTable[0])
	require.EqualValues(t, 1, v.KeySplitTable[127])
}

func TestLoadRejectsSelfReferentialKeySplit(t *testing.T) {
	root := t.TempDir()
	mustWriteText(t, filepath.Join(root, "sound/keysplit_tables.inc"),
		"\tkeysplit foo, 0\n\tsplit 0, 128\n")
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/self.inc"),
		"\tvoice_keysplit voicegroup_self, keysplit_foo\n")

	vg, err := Load(root, "self", nil)
	require.NoError(t, err)

	v := vg.Voices[0]
	require.Equal(t, KindKeySplit, v.Kind)
	require.Nil(t, v.SubGroup, "a cyclic reference must not recurse")
}

func TestLoadRejectsNestedKeySplit(t *testing.T) {
	root := t.TempDir()
	mustWriteText(t, filepath.Join(root, "sound/keysplit_tables.inc"),
		"\tkeysplit foo, 0\n\tsplit 0, 128\n")
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/inner.inc"),
		"\tvoice_keysplit voicegroup_leaf, keysplit_foo\n")
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/leaf.inc"),
		"\tvoice_square_1 60, 0, 0, 0, 0, 0, 0, 0\n")
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/outer.inc"),
		"\tvoice_keysplit voicegroup_inner, keysplit_foo\n")

	vg, err := Load(root, "outer", nil)
	require.NoError(t, err)

	v := vg.Voices[0]
	require.Equal(t, KindKeySplit, v.Kind)
	require.NotNil(t, v.SubGroup, "want the one-level-deep inner voicegroup")

	// inner's own voice_keysplit line is nested (depth 1 when it runs), so
	// it must resolve to a KeySplit voice with no further sub-group.
	inner := v.SubGroup[0]
	require.Equal(t, KindKeySplit, inner.Kind)
	require.Nil(t, inner.SubGroup, "nested key-split must be rejected")
}

func TestLoadCrySampleBypassesCacheAndWavPreference(t *testing.T) {
	root := t.TempDir()
	mustWriteText(t, filepath.Join(root, "sound/direct_sound_data.inc"),
		"gCry1::\n\t.incbin \"sound/cry/cry1.bin\"\n")
	mustWriteFile(t, filepath.Join(root, "sound/cry/cry1.bin"), binSample([]byte{5, 6, 7}))
	// A sibling .wav exists but cry voices must ignore it.
	mustWriteFile(t, filepath.Join(root, "sound/cry/cry1.wav"), riffSine8())
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/cries.inc"), "\tcry gCry1\n")

	vg, err := Load(root, "cries", nil)
	require.NoError(t, err)

	v := vg.Voices[0]
	require.Equal(t, KindCry, v.Kind)
	require.NotNil(t, v.Wav)
	require.EqualValues(t, 3, v.Wav.Size, "expected the .bin, not the sibling .wav")
}

func TestLoadProgrammableWaveVoice(t *testing.T) {
	root := t.TempDir()
	mustWriteText(t, filepath.Join(root, "sound/programmable_wave_data.inc"),
		"gWave1::\n\t.incbin \"sound/voice/wave1.bin\"\n")
	packed := make([]byte, 16)
	for i := range packed {
		packed[i] = byte(i)
	}
	mustWriteFile(t, filepath.Join(root, "sound/voice/wave1.bin"), packed)
	mustWriteText(t, filepath.Join(root, "sound/voicegroups/synth.inc"),
		"\tvoice_programmable_wave 60, 0, gWave1, 0, 0, 0, 0\n")

	vg, err := Load(root, "synth", nil)
	require.NoError(t, err)

	v := vg.Voices[0]
	require.Equal(t, KindProgrammableWave, v.Kind)
	require.Len(t, v.WaveTable, 33)
	require.EqualValues(t, 0, v.WaveTable[0])
	require.EqualValues(t, 0, v.WaveTable[1])
}

func TestLoadUnknownVoicegroupReturnsNotFound(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "sound/voicegroups"))

	_, err := Load(root, "nonexistent", nil)
	require.ErrorIs(t, err, loaderr.NotFound)
}

func TestLoadMissingProjectRootReturnsNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"), "anything", nil)
	require.ErrorIs(t, err, loaderr.NotFound)
}

func TestLoadStopsAtNextLabelInMonolithicFile(t *testing.T) {
	root := t.TempDir()
	mustWriteText(t, filepath.Join(root, "sound/voice_groups.inc"),
		"vgA::\n\tvoice_square_1 60, 0, 0, 0, 0, 0, 0, 0\n"+
			"vgB::\n\tvoice_square_2 61, 0, 1, 0, 0, 0, 0\n")

	vg, err := Load(root, "vgA", nil)
	require.NoError(t, err)
	require.Equal(t, KindSquare1, vg.Voices[0].Kind, "vgA's own voice")
	require.Equal(t, KindNone, vg.Voices[1].Kind, "vgB's content must not leak into vgA")
}
