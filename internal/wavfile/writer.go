// Package wavfile implements a streaming mono/multi-channel PCM16 WAV
// writer, used by the diagnostic capture tools to dump raw and filtered
// audio side by side for A/B listening.
package wavfile

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// Writer streams float32 samples to disk as PCM16, writing a placeholder
// header up front and patching it in on Close/Finalize once the sample
// count is known.
type Writer struct {
	file           *os.File
	filePath       string
	sampleRate     int
	channels       int
	samplesWritten int64
	mu             sync.Mutex
}

// Create opens filePath and reserves space for the WAV header.
func Create(filePath string, sampleRate, channels int) (*Writer, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("wavfile: create %s: %w", filePath, err)
	}

	w := &Writer{file: file, filePath: filePath, sampleRate: sampleRate, channels: channels}
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

const bitsPerSample = 16

func (w *Writer) writeHeader() error {
	if _, err := w.file.Seek(0, 0); err != nil {
		return err
	}

	byteRate := w.sampleRate * w.channels * bitsPerSample / 8
	blockAlign := w.channels * bitsPerSample / 8
	dataSize := uint32(w.samplesWritten * int64(bitsPerSample/8))

	w.file.WriteString("RIFF")
	binary.Write(w.file, binary.LittleEndian, uint32(36+dataSize))
	w.file.WriteString("WAVE")

	w.file.WriteString("fmt ")
	binary.Write(w.file, binary.LittleEndian, uint32(16))
	binary.Write(w.file, binary.LittleEndian, uint16(1))
	binary.Write(w.file, binary.LittleEndian, uint16(w.channels))
	binary.Write(w.file, binary.LittleEndian, uint32(w.sampleRate))
	binary.Write(w.file, binary.LittleEndian, uint32(byteRate))
	binary.Write(w.file, binary.LittleEndian, uint16(blockAlign))
	binary.Write(w.file, binary.LittleEndian, uint16(bitsPerSample))

	w.file.WriteString("data")
	return binary.Write(w.file, binary.LittleEndian, dataSize)
}

// WriteInterleaved writes already-interleaved float32 samples, clamped to
// [-1, 1] before PCM16 conversion.
func (w *Writer) WriteInterleaved(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		if err := binary.Write(w.file, binary.LittleEndian, int16(s*32767)); err != nil {
			return err
		}
		w.samplesWritten++
	}
	return nil
}

// WritePlanar interleaves and writes per-channel planar buffers, all
// expected to hold the same number of frames.
func (w *Writer) WritePlanar(planes [][]float32) error {
	if len(planes) == 0 {
		return nil
	}
	frames := len(planes[0])
	interleaved := make([]float32, frames*len(planes))
	for f := 0; f < frames; f++ {
		for c, plane := range planes {
			if f < len(plane) {
				interleaved[f*len(planes)+c] = plane[f]
			}
		}
	}
	return w.WriteInterleaved(interleaved)
}

// SamplesWritten reports the number of PCM samples written so far
// (across all channels).
func (w *Writer) SamplesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samplesWritten
}

// Finalize patches the header with the final sample count.
func (w *Writer) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeHeader()
}

// Close finalizes the header and closes the underlying file.
func (w *Writer) Close() error {
	w.Finalize()
	return w.file.Close()
}

// FilePath returns the path this writer was created with.
func (w *Writer) FilePath() string {
	return w.filePath
}
