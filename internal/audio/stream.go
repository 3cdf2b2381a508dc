package audio

import "sync"

// StreamBuffer accumulates samples from a producer while a playback
// consumer pulls them out through a monotonically advancing cursor.
// It is safe for one producer and one consumer running concurrently.
type StreamBuffer struct {
	mu      sync.Mutex
	samples []float32
	cursor  int
	closed  bool
}

// NewStreamBuffer creates an empty buffer.
func NewStreamBuffer() *StreamBuffer {
	return &StreamBuffer{}
}

// Append adds samples produced by the engine. Appends after Close are dropped.
func (b *StreamBuffer) Append(samples []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.samples = append(b.samples, samples...)
}

// Fill copies unread samples into out starting at the cursor and zero-fills
// whatever is left. It returns how many real samples were copied.
func (b *StreamBuffer) Fill(out []float32) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := copy(out, b.samples[b.cursor:])
	b.cursor += n
	clear(out[n:])
	return n
}

// Buffered returns the number of samples appended so far.
func (b *StreamBuffer) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Unread returns the number of samples not yet pulled by Fill.
func (b *StreamBuffer) Unread() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples) - b.cursor
}

// Cursor returns the read position.
func (b *StreamBuffer) Cursor() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// Close marks the producer as finished.
func (b *StreamBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Drained reports whether the producer is finished and every sample has
// been read.
func (b *StreamBuffer) Drained() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed && b.cursor >= len(b.samples)
}

// Snapshot returns a copy of everything appended so far.
func (b *StreamBuffer) Snapshot() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	return out
}
