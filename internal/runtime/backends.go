package runtime

import (
	"fmt"
	"log/slog"

	"github.com/loqalabs/loqa-captions/internal/audio"
	"github.com/loqalabs/loqa-captions/internal/audio/microphone"
	"github.com/loqalabs/loqa-captions/internal/config"
	"github.com/loqalabs/loqa-captions/internal/stt"
	"github.com/loqalabs/loqa-captions/internal/stt/vosk"
)

// newRecognizer builds the recognizer selected by cfg.Mode.
func newRecognizer(cfg config.STTConfig, sampleRate int, logger *slog.Logger) (stt.Recognizer, error) {
	switch cfg.Mode {
	case "vosk":
		rec, err := vosk.New(cfg, sampleRate, logger)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case "exec":
		return stt.NewExecRecognizer(cfg, sampleRate)
	case "mock":
		return stt.NewMockRecognizer(cfg.MockPhrases, cfg.MockFramesEvery), nil
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.Mode)
	}
}

func (r *Runtime) newSource(logger *slog.Logger) audio.Source {
	a := r.cfg.Audio
	if a.Source == "file" {
		return audio.NewFileSource(a.FilePath, a.SampleRate, a.FrameSize, a.Realtime, logger)
	}
	return microphone.New(a.SampleRate, a.FrameSize, logger)
}
