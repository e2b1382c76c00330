// Package asr defines the opaque ASR engine contract the detection stage
// calls into, plus a concrete sherpa-onnx backed implementation and a
// reload-on-model-change manager.
package asr

import "context"

// Params are the ASR knobs forwarded to the inference call: sampling
// strategy, language, initial prompt, thread count, temperature, token
// thresholds, max tokens.
type Params struct {
	Language       string
	InitialPrompt  string
	Threads        int
	Temperature    float32
	MaxTokens      int
	NoSpeechThold  float32
	SamplingGreedy bool
}

// DefaultParams mirrors the settings dictionary's ASR numeric knob
// defaults.
func DefaultParams() Params {
	return Params{
		Language:       "en",
		Threads:        4,
		Temperature:    0.0,
		MaxTokens:      32,
		NoSpeechThold:  0.6,
		SamplingGreedy: true,
	}
}

// Result is the first-segment inference outcome the detection stage reads:
// text, token probabilities, and time offsets.
type Result struct {
	Text        string
	TokenProbs  []float32
	StartMs     int64
	EndMs       int64
}

// Engine is the opaque inference collaborator. Construction happens
// outside this interface (construct-from-file-path or construct-from-buffer);
// Engine itself only covers the per-window inference call and teardown.
type Engine interface {
	// Infer runs inference over a mono 16kHz buffer and returns the first
	// segment. A non-nil error signals engine failure; the caller discards
	// the context.
	Infer(ctx context.Context, params Params, mono []float32) (Result, error)
	Close() error
	Name() string
}

// Constructor builds an Engine bound to a resolved model file path.
type Constructor func(modelPath string) (Engine, error)
