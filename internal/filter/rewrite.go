package filter

import (
	"math"

	"cleanstream/internal/classify"
)

// firstBoundary is the start of the editable range within the newly
// popped segment. Dynamic word-boundary refinement is left disabled here,
// same as upstream.
const firstBoundary = 0

// rewrite is the rewrite stage. It snapshots the assembled window and,
// for FILLER/BEEP verdicts with do_silence enabled, edits the range
// [overlapN+firstBoundary, overlapN+newFramesThisWindow) — the portion of
// the window that was freshly popped this round, never the
// carried-forward overlap prefix.
func (f *Filter) rewrite(w windowResult, class classify.Class) [][]float32 {
	candidate := make([][]float32, len(w.scratch))
	for c := range w.scratch {
		candidate[c] = append([]float32(nil), w.scratch[c]...)
	}

	settings := f.currentSettings()
	if !settings.DoSilence {
		return candidate
	}

	switch class {
	case classify.Filler:
		for c := range candidate {
			for i := firstBoundary; i < w.newFramesThisWindow; i++ {
				candidate[c][w.overlapN+i] = 0
			}
		}
	case classify.Beep:
		for c := range candidate {
			for i := firstBoundary; i < w.newFramesThisWindow; i++ {
				phase := 2 * math.Pi * 440 * float64(i) / float64(f.hostSampleRate)
				candidate[c][w.overlapN+i] = float32(0.5 * math.Sin(phase))
			}
		}
	}

	return candidate
}
