package filter

// Packet is the host plugin contract's packet format: planar float32
// samples per channel, a frame count, and a monotonically non-decreasing
// timestamp.
type Packet struct {
	Channels  [][]float32
	Frames    uint32
	Timestamp uint64
}

// BufferMs is the analysis window length in milliseconds.
const BufferMs = 1010

// InitialOverlapMs is the starting overlap before the adaptive controller
// has run.
const InitialOverlapMs = 340

// MinOverlapMs is the adaptive controller's floor.
const MinOverlapMs = 100

// WorkerPollIntervalMs is how long, in milliseconds, the worker sleeps
// when starved of a full window.
const WorkerPollIntervalMs = 10
