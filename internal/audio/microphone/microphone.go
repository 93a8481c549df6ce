// Package microphone captures the default input device through PortAudio. It
// is kept apart from package audio so code that only needs the frame queue
// builds without the PortAudio C library.
package microphone

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/loqalabs/loqa-captions/internal/audio"
)

const dropLogInterval = 5 * time.Second

// Microphone feeds a PortAudio callback stream into an audio.Queue. The
// callback runs on the audio I/O thread and never blocks.
type Microphone struct {
	sampleRate int
	frameSize  int
	logger     *slog.Logger

	mu        sync.Mutex
	stream    *portaudio.Stream
	sequence  int
	lastDrop  time.Time
	closeOnce sync.Once
}

func New(sampleRate, frameSize int, logger *slog.Logger) *Microphone {
	return &Microphone{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		logger:     logger.With(slog.String("component", "microphone")),
	}
}

func (m *Microphone) Name() string { return "microphone" }

func (m *Microphone) Start(_ context.Context, q *audio.Queue) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), m.frameSize, func(in []int16) {
		m.capture(q, in)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}

	m.mu.Lock()
	m.stream = stream
	m.mu.Unlock()
	m.logger.Info("audio capture started",
		slog.Int("sample_rate", m.sampleRate),
		slog.Int("frame_size", m.frameSize))
	return nil
}

// capture copies the callback buffer; PortAudio reuses it for the next block.
func (m *Microphone) capture(q *audio.Queue, in []int16) {
	frame := audio.Frame{
		Sequence:  m.sequence,
		PCM:       audio.Int16ToPCM(in),
		Timestamp: time.Now(),
	}
	m.sequence++
	if q.Push(frame) {
		return
	}
	if time.Since(m.lastDrop) >= dropLogInterval {
		m.lastDrop = time.Now()
		m.logger.Warn("audio queue full, dropping frames", slog.Uint64("dropped_total", q.Dropped()))
	}
}

func (m *Microphone) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		stream := m.stream
		m.mu.Unlock()
		if stream == nil {
			return
		}
		if stopErr := stream.Stop(); stopErr != nil {
			err = fmt.Errorf("stop input stream: %w", stopErr)
		}
		_ = stream.Close()
		_ = portaudio.Terminate()
		m.logger.Info("audio capture stopped")
	})
	return err
}
