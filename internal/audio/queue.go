package audio

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueClosed is returned by Pop once the queue is closed and drained.
var ErrQueueClosed = errors.New("audio queue closed")

// Frame is one captured block of mono S16LE PCM.
type Frame struct {
	Sequence  int
	PCM       []byte
	Timestamp time.Time
}

// Queue is a FIFO hand-off between a single capture producer and a single
// consumer. Push never blocks; Pop blocks until a frame arrives.
type Queue struct {
	mu       sync.Mutex
	frames   []Frame
	capacity int
	closed   bool
	dropped  uint64
	notify   chan struct{}
}

// NewQueue creates a queue. A capacity of zero leaves it unbounded.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Push appends a frame. It reports false when the frame was dropped because the
// queue is closed or at capacity.
func (q *Queue) Push(frame Frame) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if q.capacity > 0 && len(q.frames) >= q.capacity {
		q.dropped++
		q.mu.Unlock()
		return false
	}
	q.frames = append(q.frames, frame)
	q.mu.Unlock()
	q.signal()
	return true
}

// Pop removes the oldest frame, waiting for one if the queue is empty.
func (q *Queue) Pop(ctx context.Context) (Frame, error) {
	for {
		q.mu.Lock()
		if len(q.frames) > 0 {
			frame := q.frames[0]
			q.frames[0] = Frame{}
			q.frames = q.frames[1:]
			q.mu.Unlock()
			return frame, nil
		}
		if q.closed {
			q.mu.Unlock()
			return Frame{}, ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Close stops accepting frames. Frames already queued remain poppable.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Full reports whether a bounded queue is at capacity.
func (q *Queue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity > 0 && len(q.frames) >= q.capacity
}

func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
