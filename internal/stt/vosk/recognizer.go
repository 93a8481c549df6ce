// Package vosk adapts the Vosk streaming recognizer to stt.Recognizer. It is
// the only package that links the Vosk C library.
package vosk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	voskapi "github.com/alphacep/vosk-api/go"
	"github.com/loqalabs/loqa-captions/internal/config"
	"github.com/loqalabs/loqa-captions/internal/stt"
)

// Recognizer streams frames through a Kaldi recognizer.
type Recognizer struct {
	model  *voskapi.VoskModel
	rec    *voskapi.VoskRecognizer
	logger *slog.Logger
}

var _ stt.Recognizer = (*Recognizer)(nil)

type voskFinal struct {
	Text string `json:"text"`
}

type voskPartial struct {
	Partial string `json:"partial"`
}

// New loads the model at cfg.ModelPath, or config.DefaultVoskModelPath when
// it is empty.
func New(cfg config.STTConfig, sampleRate int, logger *slog.Logger) (*Recognizer, error) {
	modelPath := cfg.ModelPath
	if modelPath == "" {
		modelPath = config.DefaultVoskModelPath
	}
	if err := stt.CheckModelPath(modelPath); err != nil {
		return nil, err
	}
	voskapi.SetLogLevel(-1)

	logger = logger.With(slog.String("component", "vosk"))
	logger.Info("loading recognizer model", slog.String("path", modelPath))
	model, err := voskapi.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model: %w", err)
	}
	rec, err := voskapi.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("create vosk recognizer: %w", err)
	}
	if cfg.Words {
		rec.SetWords(1)
	} else {
		rec.SetWords(0)
	}
	return &Recognizer{model: model, rec: rec, logger: logger}, nil
}

func (v *Recognizer) AcceptFrame(_ context.Context, pcm []byte) (stt.Result, error) {
	switch v.rec.AcceptWaveform(pcm) {
	case 1:
		return decodeFinal(v.rec.Result())
	case 0:
		var partial voskPartial
		if err := json.Unmarshal([]byte(v.rec.PartialResult()), &partial); err != nil {
			return stt.Result{}, fmt.Errorf("decode partial result: %w", err)
		}
		return stt.Result{Kind: stt.Partial, Text: strings.TrimSpace(partial.Partial)}, nil
	default:
		return stt.Result{}, fmt.Errorf("vosk rejected waveform of %d bytes", len(pcm))
	}
}

func (v *Recognizer) Flush(_ context.Context) (stt.Result, error) {
	return decodeFinal(v.rec.FinalResult())
}

func (v *Recognizer) Close() error {
	v.rec.Free()
	v.model.Free()
	return nil
}

func decodeFinal(raw string) (stt.Result, error) {
	var final voskFinal
	if err := json.Unmarshal([]byte(raw), &final); err != nil {
		return stt.Result{}, fmt.Errorf("decode final result: %w", err)
	}
	return stt.Result{Kind: stt.Final, Text: strings.TrimSpace(final.Text)}, nil
}
