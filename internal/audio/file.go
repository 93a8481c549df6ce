package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// FileSource replays a mono 16-bit WAV file through the frame queue. The queue
// is closed once the file is exhausted so the consumer can drain and finish.
type FileSource struct {
	path       string
	sampleRate int
	frameSize  int
	realtime   bool
	logger     *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewFileSource(path string, sampleRate, frameSize int, realtime bool, logger *slog.Logger) *FileSource {
	return &FileSource{
		path:       path,
		sampleRate: sampleRate,
		frameSize:  frameSize,
		realtime:   realtime,
		logger:     logger.With(slog.String("component", "file-source")),
		done:       make(chan struct{}),
	}
}

func (f *FileSource) Name() string { return "file:" + f.path }

func (f *FileSource) Start(ctx context.Context, q *Queue) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}
	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		file.Close()
		return fmt.Errorf("%s is not a valid wav file", f.path)
	}
	if int(dec.SampleRate) != f.sampleRate {
		file.Close()
		return fmt.Errorf("%s: sample rate %d does not match configured %d", f.path, dec.SampleRate, f.sampleRate)
	}
	if dec.NumChans != 1 || dec.BitDepth != bitDepth {
		file.Close()
		return fmt.Errorf("%s: expected mono 16-bit pcm, got %d channels at %d bits", f.path, dec.NumChans, dec.BitDepth)
	}

	ctx, f.cancel = context.WithCancel(ctx)
	go f.run(ctx, file, dec, q)
	f.logger.Info("audio replay started", slog.String("path", f.path), slog.Bool("realtime", f.realtime))
	return nil
}

func (f *FileSource) run(ctx context.Context, file *os.File, dec *wav.Decoder, q *Queue) {
	defer close(f.done)
	defer q.Close()
	defer file.Close()

	buf := &goaudio.IntBuffer{
		Format:         dec.Format(),
		Data:           make([]int, f.frameSize),
		SourceBitDepth: bitDepth,
	}

	var tick <-chan time.Time
	if f.realtime {
		ticker := time.NewTicker(FrameDuration(f.frameSize*2, f.sampleRate))
		defer ticker.Stop()
		tick = ticker.C
	}

	for sequence := 0; ; sequence++ {
		n, err := dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			f.err = fmt.Errorf("decode wav: %w", err)
			return
		}
		if n == 0 {
			return
		}
		frame := Frame{Sequence: sequence, PCM: IntsToPCM(buf.Data[:n]), Timestamp: time.Now()}

		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		}
		// A file can wait for room; only the live callback must never block.
		for q.Full() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
		if ctx.Err() != nil {
			return
		}
		q.Push(frame)
	}
}

// Wait blocks until replay finishes and returns any decode error.
func (f *FileSource) Wait() error {
	<-f.done
	return f.err
}

func (f *FileSource) Close() error {
	if f.cancel == nil {
		return nil
	}
	f.cancel()
	<-f.done
	return nil
}
