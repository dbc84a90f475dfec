package ui

import (
	"io"
	"sync"
)

// AudioRingBuffer is a thread-safe byte ring implementing io.Reader. The
// diagnostic loop writes converted samples via Write(); oto's player pulls
// them through Read(). Read blocks when empty; Write drops the oldest bytes
// on overflow so a stalled audio device never stalls the machine loop.
type AudioRingBuffer struct {
	buf      []byte
	readPos  int
	writePos int
	count    int
	capacity int
	mu       sync.Mutex
	cond     *sync.Cond
	closed   bool
}

// NewAudioRingBuffer creates a ring buffer with the given capacity in bytes.
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	rb := &AudioRingBuffer{
		buf:      make([]byte, capacity),
		capacity: capacity,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write adds data to the buffer. Non-blocking; on overflow the oldest bytes
// are discarded to make room.
func (rb *AudioRingBuffer) Write(p []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return
	}

	n := len(p)
	if n == 0 {
		return
	}

	if n > rb.capacity {
		p = p[n-rb.capacity:]
		n = rb.capacity
	}

	overflow := rb.count + n - rb.capacity
	if overflow > 0 {
		rb.readPos = (rb.readPos + overflow) % rb.capacity
		rb.count -= overflow
	}

	firstChunk := rb.capacity - rb.writePos
	if firstChunk >= n {
		copy(rb.buf[rb.writePos:], p)
	} else {
		copy(rb.buf[rb.writePos:], p[:firstChunk])
		copy(rb.buf[0:], p[firstChunk:])
	}
	rb.writePos = (rb.writePos + n) % rb.capacity
	rb.count += n

	rb.cond.Signal()
}

// Read implements io.Reader. Blocks until data is available or the buffer
// is closed. Returns io.EOF when closed and empty.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	n := len(p)
	if n > rb.count {
		n = rb.count
	}

	firstChunk := rb.capacity - rb.readPos
	if firstChunk >= n {
		copy(p, rb.buf[rb.readPos:rb.readPos+n])
	} else {
		copy(p, rb.buf[rb.readPos:])
		copy(p[firstChunk:], rb.buf[:n-firstChunk])
	}
	rb.readPos = (rb.readPos + n) % rb.capacity
	rb.count -= n

	return n, nil
}

// Buffered returns the number of bytes currently in the buffer.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Close signals shutdown. Subsequent Reads return io.EOF once the buffer is
// empty, and any goroutine blocked in Read wakes up.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
