package microphone

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/loqalabs/loqa-captions/internal/audio"
)

func TestCaptureCopiesCallbackBuffer(t *testing.T) {
	m := New(16000, 4, slog.New(slog.NewTextHandler(io.Discard, nil)))
	q := audio.NewQueue(1)

	in := []int16{1, -1, 256, 0}
	m.capture(q, in)
	in[0] = 99
	m.capture(q, in)

	frame, err := q.Pop(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if frame.Sequence != 0 || frame.PCM[0] != 1 || len(frame.PCM) != 8 {
		t.Fatalf("unexpected frame %+v", frame)
	}
	if q.Dropped() != 1 {
		t.Fatalf("expected second frame dropped by the bounded queue, got %d", q.Dropped())
	}
}

func TestCloseWithoutStart(t *testing.T) {
	m := New(16000, 4, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
