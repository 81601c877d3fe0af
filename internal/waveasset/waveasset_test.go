package waveasset

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadBin(t *testing.T) {
	dir := t.TempDir()
	var buf []byte
	hdr := make([]byte, 16)
	binary.LittleEndian.PutUint16(hdr[0:2], 0)
	binary.LittleEndian.PutUint16(hdr[2:4], 0xC000)
	binary.LittleEndian.PutUint32(hdr[4:8], 22050*1024)
	binary.LittleEndian.PutUint32(hdr[8:12], 2)
	binary.LittleEndian.PutUint32(hdr[12:16], 5)
	buf = append(buf, hdr...)
	buf = append(buf, []byte{0, 10, 20, 30, 40}...)
	p := writeFile(t, dir, "s.bin", buf)

	w, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if !w.Looping() {
		t.Fatal("expected looping sample")
	}
	if w.Size != 5 || len(w.Data) != 6 {
		t.Fatalf("size=%d len(data)=%d", w.Size, len(w.Data))
	}
	if w.Data[5] != w.Data[4] {
		t.Fatalf("guard sample mismatch: %d vs %d", w.Data[5], w.Data[4])
	}
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

func TestLoadWAV8BitPCM(t *testing.T) {
	dir := t.TempDir()
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:2], 1) // integer PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:4], 1) // mono
	binary.LittleEndian.PutUint32(fmtChunk[4:8], 22050)
	binary.LittleEndian.PutUint32(fmtChunk[8:12], 22050)
	binary.LittleEndian.PutUint16(fmtChunk[12:14], 1)
	binary.LittleEndian.PutUint16(fmtChunk[14:16], 8)

	dataChunk := []byte{128, 138, 148, 118}

	var body []byte
	body = append(body, riffChunkBytes("fmt ", fmtChunk)...)
	body = append(body, riffChunkBytes("data", dataChunk)...)

	var file []byte
	file = append(file, []byte("RIFF")...)
	sizePos := len(file)
	file = append(file, 0, 0, 0, 0)
	file = append(file, []byte("WAVE")...)
	file = append(file, body...)
	binary.LittleEndian.PutUint32(file[sizePos:], uint32(len(file)-8))

	p := writeFile(t, dir, "s.wav", file)
	w, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if w.Size != 4 {
		t.Fatalf("size=%d want 4", w.Size)
	}
	// 128 (centre) -> 0, 138 -> positive, 118 -> negative
	if w.Data[0] != 0 {
		t.Fatalf("sample 0 = %d want 0", w.Data[0])
	}
	if w.Data[1] <= 0 || w.Data[3] >= 0 {
		t.Fatalf("unexpected signs: %v", w.Data[:4])
	}
	wantFreq := uint32(math.Round(22050 * 1024))
	if w.Freq != wantFreq {
		t.Fatalf("freq=%d want %d", w.Freq, wantFreq)
	}
}

func TestLoadProgWave(t *testing.T) {
	dir := t.TempDir()
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(i<<4 | (15 - i))
	}
	p := writeFile(t, dir, "w.pcm", raw)
	w, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if w.Size != 32 || len(w.Data) != 33 {
		t.Fatalf("size=%d len=%d", w.Size, len(w.Data))
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "x.ogg", []byte("junk"))
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
