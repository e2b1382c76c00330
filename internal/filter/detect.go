package filter

import (
	"context"

	"cleanstream/internal/classify"
	"cleanstream/internal/resample"
	"cleanstream/internal/vad"
)

// detect runs the VAD pre-gate and ASR classification over one assembled
// window. It returns the classified verdict and whether inference was
// skipped by the VAD gate.
func (f *Filter) detect(ctx context.Context, w windowResult) (classify.Class, bool) {
	settings := f.currentSettings()

	if len(w.scratch) == 0 || len(w.scratch[0]) == 0 {
		return classify.Silence, true
	}

	mono := resample.ToMono16k(w.scratch[0], f.hostSampleRate)

	if settings.VADEnabled && vad.IsSilence(mono) {
		return classify.Silence, true
	}

	result, err := f.asrMgr.Infer(ctx, f.asrMgr.CurrentParams(), mono)
	if err != nil {
		f.logger.Printf("filter: inference failed, dropping context: %v", err)
		return classify.Unknown, false
	}

	if settings.LogWords && result.Text != "" {
		f.logger.Printf("filter: classified text %q", result.Text)
	}

	return f.matcher.Classify(result.Text), false
}
