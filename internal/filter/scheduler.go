package filter

import (
	"context"
	"time"

	"cleanstream/internal/ring"
)

// windowFrames returns WindowFrames = host_sample_rate * BufferMs/1000.
func (f *Filter) windowFrames() int {
	return f.hostSampleRate * BufferMs / 1000
}

func (f *Filter) overlapFrames() int {
	return f.overlapMs * f.hostSampleRate / 1000
}

// runWorker is the analysis scheduler's main loop.
func (f *Filter) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !f.asrMgr.Active() {
			return
		}

		f.inputMu.Lock()
		size := f.inputRings.Channel(0).Size()
		f.inputMu.Unlock()

		if size >= f.windowFrames() {
			f.processWindow(ctx)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(WorkerPollIntervalMs * time.Millisecond):
		}
	}
}

// windowResult carries the output of window assembly into detection and
// rewrite.
type windowResult struct {
	scratch             [][]float32
	newFramesThisWindow int
	lastWindowFrames    int
	windowStartTs       uint64
	overlapN            int
}

// processWindow assembles one overlapped window, classifies it, applies
// the rewrite, publishes output, and updates the overlap controller.
func (f *Filter) processWindow(ctx context.Context) {
	w := f.assembleWindow()
	if w.newFramesThisWindow == 0 {
		// Zero PacketInfos were poppable this round; no-op, not a deadlock.
		return
	}

	start := time.Now()
	class, inferenceSkipped := f.detect(ctx, w)
	candidate := f.rewrite(w, class)
	elapsed := time.Since(start)

	f.publish(w, candidate)
	f.adjustOverlap(elapsed, w.newFramesThisWindow, inferenceSkipped)

	f.firstWindow = false
	f.prevScratch = w.scratch
	f.prevOverlapN = w.overlapN
}

// assembleWindow assembles one overlapped analysis window, holding the
// input mutex for the whole operation.
func (f *Filter) assembleWindow() windowResult {
	windowFrames := f.windowFrames()
	overlapN := 0
	if !f.firstWindow {
		overlapN = f.overlapFrames()
	}

	neededNewFrames := windowFrames
	if !f.firstWindow {
		neededNewFrames = windowFrames - overlapN
	}
	if neededNewFrames < 0 {
		neededNewFrames = 0
	}

	f.inputMu.Lock()
	defer f.inputMu.Unlock()

	var newFramesThisWindow int
	var windowStartTs uint64
	haveTimestamp := false

	for {
		info, ok := f.inputPackets.PopFront()
		if !ok {
			break
		}
		if newFramesThisWindow+int(info.Frames) > neededNewFrames {
			f.inputPackets.PushFront(info)
			break
		}
		if !haveTimestamp {
			windowStartTs = info.Timestamp
			haveTimestamp = true
		}
		newFramesThisWindow += int(info.Frames)
	}

	scratch := make([][]float32, f.numChannels)
	for c := 0; c < f.numChannels; c++ {
		buf := make([]float32, windowFrames)
		offset := 0
		if !f.firstWindow && overlapN > 0 && len(f.prevScratch) > c {
			prev := f.prevScratch[c]
			tail := prev[len(prev)-overlapN:]
			copy(buf, tail)
			offset = overlapN
		}
		if newFramesThisWindow > 0 {
			popped := f.inputRings.Channel(c).PopFront(newFramesThisWindow)
			copy(buf[offset:], popped)
		}
		scratch[c] = buf[:offset+newFramesThisWindow]
	}

	lastWindowFrames := newFramesThisWindow
	if !f.firstWindow {
		lastWindowFrames = newFramesThisWindow + overlapN
	}

	return windowResult{
		scratch:             scratch,
		newFramesThisWindow: newFramesThisWindow,
		lastWindowFrames:    lastWindowFrames,
		windowStartTs:       windowStartTs,
		overlapN:            overlapN,
	}
}

// publish appends the rewritten samples to the output side under the
// output mutex.
func (f *Filter) publish(w windowResult, candidate [][]float32) {
	f.outputMu.Lock()
	defer f.outputMu.Unlock()

	f.outputPackets.PushBack(ring.PacketInfo{
		Frames:    uint32(w.newFramesThisWindow),
		Timestamp: w.windowStartTs,
	})
	for c := 0; c < f.numChannels && c < len(candidate); c++ {
		f.outputRings.Channel(c).PushBack(candidate[c][w.overlapN : w.overlapN+w.newFramesThisWindow])
	}
}
