package wavfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriterWritesHeaderAndSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := Create(path, 16000, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := w.WriteInterleaved([]float32{0.5, -0.5, 0.0}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := w.SamplesWritten(); got != 3 {
		t.Fatalf("samples written = %d, want 3", got)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	wantSize := int64(44 + 3*2)
	if info.Size() != wantSize {
		t.Fatalf("file size = %d, want %d", info.Size(), wantSize)
	}
}

func TestWriterWritePlanarInterleaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	w, err := Create(path, 16000, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer w.Close()

	if err := w.WritePlanar([][]float32{{1, 2, 3}, {10, 20, 30}}); err != nil {
		t.Fatalf("write planar: %v", err)
	}
	if got := w.SamplesWritten(); got != 6 {
		t.Fatalf("samples written = %d, want 6", got)
	}
}
