package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(0)
	for i := 0; i < 1000; i++ {
		if !q.Push(Frame{Sequence: i}) {
			t.Fatalf("unbounded queue rejected frame %d", i)
		}
	}
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		frame, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if frame.Sequence != i {
			t.Fatalf("expected sequence %d, got %d", i, frame.Sequence)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue(0)
	got := make(chan Frame, 1)
	go func() {
		frame, err := q.Pop(context.Background())
		if err == nil {
			got <- frame
		}
	}()

	select {
	case <-got:
		t.Fatal("pop returned before any push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(Frame{Sequence: 7, PCM: []byte{1, 2}})
	select {
	case frame := <-got:
		if frame.Sequence != 7 {
			t.Fatalf("unexpected frame %d", frame.Sequence)
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not wake after push")
	}
}

func TestQueuePopHonoursContext(t *testing.T) {
	q := NewQueue(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Pop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestQueueCloseDrainsThenFails(t *testing.T) {
	q := NewQueue(0)
	q.Push(Frame{Sequence: 1})
	q.Push(Frame{Sequence: 2})
	q.Close()

	if q.Push(Frame{Sequence: 3}) {
		t.Fatal("push after close should be rejected")
	}
	for want := 1; want <= 2; want++ {
		frame, err := q.Pop(context.Background())
		if err != nil {
			t.Fatalf("pop queued frame: %v", err)
		}
		if frame.Sequence != want {
			t.Fatalf("expected %d, got %d", want, frame.Sequence)
		}
	}
	if _, err := q.Pop(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestQueueBoundedDropsIncoming(t *testing.T) {
	q := NewQueue(2)
	q.Push(Frame{Sequence: 1})
	q.Push(Frame{Sequence: 2})
	if !q.Full() {
		t.Fatal("expected queue to be full")
	}
	if q.Push(Frame{Sequence: 3}) {
		t.Fatal("expected overflow frame to be dropped")
	}
	if q.Dropped() != 1 {
		t.Fatalf("expected 1 dropped frame, got %d", q.Dropped())
	}
	frame, _ := q.Pop(context.Background())
	if frame.Sequence != 1 {
		t.Fatalf("expected oldest frame kept, got %d", frame.Sequence)
	}
}

func TestQueueConcurrentProducer(t *testing.T) {
	q := NewQueue(0)
	const total = 5000
	go func() {
		for i := 0; i < total; i++ {
			q.Push(Frame{Sequence: i})
		}
		q.Close()
	}()

	next := 0
	for {
		frame, err := q.Pop(context.Background())
		if errors.Is(err, ErrQueueClosed) {
			break
		}
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if frame.Sequence != next {
			t.Fatalf("out of order: expected %d, got %d", next, frame.Sequence)
		}
		next++
	}
	if next != total {
		t.Fatalf("expected %d frames, got %d", total, next)
	}
}
