package resample

import (
	"math"
	"testing"
)

func TestLinearSameRateIsCopy(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Linear(in, 16000, 16000)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("expected passthrough copy, got %v", out)
		}
	}
	out[0] = 9
	if in[0] == 9 {
		t.Fatal("Linear must not alias the source slice")
	}
}

func TestLinearDownsampleLength(t *testing.T) {
	in := make([]float32, 48000)
	out := Linear(in, 48000, 16000)
	if len(out) != 16000 {
		t.Fatalf("expected 16000 samples, got %d", len(out))
	}
}

func TestLinearDownsampleStartsAtFirstSample(t *testing.T) {
	// 2 source samples at rate 2 downsampled to rate 1: single output
	// sample should equal the first source sample (srcPos=0).
	in := []float32{0.0, 1.0}
	out := Linear(in, 2, 1)
	if len(out) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(out))
	}
	if math.Abs(float64(out[0])-0.0) > 1e-6 {
		t.Fatalf("expected 0.0, got %v", out[0])
	}
}

func TestToMono16k(t *testing.T) {
	channel0 := make([]float32, 48000)
	out := ToMono16k(channel0, 48000)
	if len(out) != 16000 {
		t.Fatalf("expected 16000 samples, got %d", len(out))
	}
}
