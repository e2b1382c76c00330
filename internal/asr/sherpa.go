package asr

import (
	"context"
	"fmt"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// SherpaEngine wraps a sherpa-onnx offline recognizer configured for a
// Whisper encoder/decoder pair. It is the concrete Engine the production
// filter wires up by default; tests use a stub Engine instead.
type SherpaEngine struct {
	recognizer *sherpa.OfflineRecognizer
	modelPath  string
}

// NewSherpaEngine constructs a recognizer from the base path of an
// exported Whisper <base>-encoder.onnx / <base>-decoder.onnx /
// <base>-tokens.txt triple, the path models.Store.ResolvePath returns.
func NewSherpaEngine(modelPath string) (Engine, error) {
	base := modelPath

	config := sherpa.OfflineRecognizerConfig{
		FeatConfig: sherpa.FeatureConfig{
			SampleRate: ASRSampleRate,
			FeatureDim: 80,
		},
		ModelConfig: sherpa.OfflineModelConfig{
			Whisper: sherpa.OfflineWhisperModelConfig{
				Encoder: base + "-encoder.onnx",
				Decoder: base + "-decoder.onnx",
				Language: "en",
				Task:     "transcribe",
			},
			Tokens:     base + "-tokens.txt",
			NumThreads: 4,
			Provider:   "cpu",
			Debug:      0,
		},
		DecodingMethod: "greedy_search",
	}

	recognizer := sherpa.NewOfflineRecognizer(&config)
	if recognizer == nil {
		return nil, fmt.Errorf("asr: failed to construct sherpa recognizer for %s", modelPath)
	}

	return &SherpaEngine{recognizer: recognizer, modelPath: modelPath}, nil
}

// ASRSampleRate is the rate the recognizer's feature extractor expects.
const ASRSampleRate = 16000

func (e *SherpaEngine) Infer(ctx context.Context, params Params, mono []float32) (Result, error) {
	if e.recognizer == nil {
		return Result{}, fmt.Errorf("asr: engine closed")
	}
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	stream := sherpa.NewOfflineStream(e.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(ASRSampleRate, mono)
	e.recognizer.Decode(stream)

	result := stream.GetResult()
	if result == nil {
		return Result{}, fmt.Errorf("asr: recognizer returned no result")
	}

	return Result{Text: result.Text}, nil
}

func (e *SherpaEngine) Close() error {
	if e.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(e.recognizer)
		e.recognizer = nil
	}
	return nil
}

func (e *SherpaEngine) Name() string {
	return "sherpa-whisper:" + e.modelPath
}
