// Package ring implements the FIFO storage primitives shared by the input
// and output sides of the packet pipeline: a per-channel float32 sample
// queue and a PacketInfo queue tracking frame counts and timestamps.
package ring

import "fmt"

// PacketInfo tracks one host audio packet as it moves through a FIFO.
type PacketInfo struct {
	Frames    uint32
	Timestamp uint64
}

// PacketQueue is a FIFO of PacketInfo records. It supports pushing to
// either end, which the window assembler relies on to return an
// over-popped record to the front.
type PacketQueue struct {
	items []PacketInfo
}

// PushBack appends a record to the tail of the queue.
func (q *PacketQueue) PushBack(p PacketInfo) {
	q.items = append(q.items, p)
}

// PushFront returns a record to the head of the queue.
func (q *PacketQueue) PushFront(p PacketInfo) {
	q.items = append([]PacketInfo{p}, q.items...)
}

// PopFront removes and returns the head record. ok is false on an empty queue.
func (q *PacketQueue) PopFront() (p PacketInfo, ok bool) {
	if len(q.items) == 0 {
		return PacketInfo{}, false
	}
	p = q.items[0]
	q.items = q.items[1:]
	return p, true
}

// Len returns the number of queued records.
func (q *PacketQueue) Len() int {
	return len(q.items)
}

// SampleFIFO is a growable byte-FIFO of float32 samples for one channel.
// Popped prefixes are periodically compacted out of the backing array so
// long-running filters don't retain memory proportional to total frames
// ever pushed.
type SampleFIFO struct {
	buf    []float32
	offset int
}

// PushBack appends samples to the tail.
func (f *SampleFIFO) PushBack(samples []float32) {
	f.buf = append(f.buf, samples...)
}

// Size returns the number of samples currently queued.
func (f *SampleFIFO) Size() int {
	return len(f.buf) - f.offset
}

// PopFront removes and returns exactly n samples from the head. It panics
// if n exceeds Size(), matching the source contract that an over-pop is a
// programming error.
func (f *SampleFIFO) PopFront(n int) []float32 {
	if n > f.Size() {
		panic(fmt.Sprintf("ring: pop_front(%d) exceeds size %d", n, f.Size()))
	}
	out := make([]float32, n)
	copy(out, f.buf[f.offset:f.offset+n])
	f.offset += n
	f.compact()
	return out
}

// Peek returns the first n samples without removing them.
func (f *SampleFIFO) Peek(n int) []float32 {
	if n > f.Size() {
		panic(fmt.Sprintf("ring: peek(%d) exceeds size %d", n, f.Size()))
	}
	out := make([]float32, n)
	copy(out, f.buf[f.offset:f.offset+n])
	return out
}

// compact drops already-consumed prefix once it grows past half the
// backing array, so PushBack/PopFront stay amortized O(1).
func (f *SampleFIFO) compact() {
	if f.offset < 1024 || f.offset*2 < len(f.buf) {
		return
	}
	remaining := len(f.buf) - f.offset
	copy(f.buf, f.buf[f.offset:])
	f.buf = f.buf[:remaining]
	f.offset = 0
}

// ChannelRing bundles one SampleFIFO per channel. Input and output sides
// each own one instance; layout is planar, never interleaved.
type ChannelRing struct {
	channels []SampleFIFO
}

// NewChannelRing allocates a ring for the given channel count.
func NewChannelRing(numChannels int) *ChannelRing {
	return &ChannelRing{channels: make([]SampleFIFO, numChannels)}
}

// Channel returns the FIFO for channel c.
func (r *ChannelRing) Channel(c int) *SampleFIFO {
	return &r.channels[c]
}

// NumChannels returns the channel count.
func (r *ChannelRing) NumChannels() int {
	return len(r.channels)
}
