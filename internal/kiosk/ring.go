package kiosk

import "sync"

// chunkRing is the pre-capture ring: the microphone source runs continuously
// and its chunks land here whenever no capture is active, so the pipeline is
// already warm when the user presses the button. The ring is discarded at
// capture start; stale audio never leaks into a capture.
type chunkRing struct {
	mu     sync.Mutex
	chunks [][]byte
	next   int
	filled bool
}

func newChunkRing(capacity int) *chunkRing {
	if capacity <= 0 {
		capacity = 32
	}
	return &chunkRing{chunks: make([][]byte, capacity)}
}

func (r *chunkRing) push(chunk []byte) {
	r.mu.Lock()
	r.chunks[r.next] = chunk
	r.next++
	if r.next == len(r.chunks) {
		r.next = 0
		r.filled = true
	}
	r.mu.Unlock()
}

// discard drops all buffered chunks.
func (r *chunkRing) discard() {
	r.mu.Lock()
	for i := range r.chunks {
		r.chunks[i] = nil
	}
	r.next = 0
	r.filled = false
	r.mu.Unlock()
}

// len returns the number of buffered chunks.
func (r *chunkRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filled {
		return len(r.chunks)
	}
	return r.next
}

// sampleBuffer accumulates the raw audio of one capture. Chunks are appended
// by the delivery goroutine; the finalization step drains the buffer exactly
// once to compute the captured duration. A drained buffer rejects further
// appends, so late chunks from a cancelled delivery cannot corrupt the next
// capture.
type sampleBuffer struct {
	mu      sync.Mutex
	data    [][]byte
	bytes   int
	drained bool
}

func newSampleBuffer() *sampleBuffer {
	return &sampleBuffer{}
}

// append adds one chunk. Returns false if the buffer was already drained.
func (b *sampleBuffer) append(chunk []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drained {
		return false
	}
	b.data = append(b.data, chunk)
	b.bytes += len(chunk)
	return true
}

// drain returns the buffered chunks and total byte count, and permanently
// closes the buffer. A second drain returns nothing.
func (b *sampleBuffer) drain() (chunks [][]byte, totalBytes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drained {
		return nil, 0
	}
	b.drained = true
	chunks = b.data
	totalBytes = b.bytes
	b.data = nil
	return chunks, totalBytes
}
