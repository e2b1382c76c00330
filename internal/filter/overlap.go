package filter

import "time"

// adjustOverlap is the adaptive overlap controller: it shrinks overlap
// when inference falls behind realtime and grows it back, within
// [MinOverlapMs, 0.75*newMs], once inference keeps up again.
func (f *Filter) adjustOverlap(elapsed time.Duration, newFramesThisWindow int, inferenceSkipped bool) {
	newMs := float64(newFramesThisWindow) * 1000.0 / float64(f.hostSampleRate)
	elapsedMs := float64(elapsed) / float64(time.Millisecond)

	switch {
	case elapsedMs > newMs:
		f.overlapMs = max(f.overlapMs-10, MinOverlapMs)
	case !inferenceSkipped:
		cap := int(0.75 * newMs)
		f.overlapMs = min(f.overlapMs+10, cap)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
