package runtime

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-captions/internal/audio"
	"github.com/loqalabs/loqa-captions/internal/config"
	"github.com/loqalabs/loqa-captions/internal/eventstore"
	"github.com/loqalabs/loqa-captions/internal/stt"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeSilence(t *testing.T, samples int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := audio.WriteWAV(f, make([]byte, samples*2), 16000, 1); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func fileConfig(t *testing.T, frames int) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.Source = "file"
	cfg.Audio.Realtime = false
	cfg.Audio.FrameSize = 1600
	cfg.Audio.FilePath = writeSilence(t, frames*cfg.Audio.FrameSize)
	cfg.STT.Mode = "mock"
	cfg.STT.MockPhrases = []string{"alpha beta gamma delta epsilon"}
	cfg.STT.MockFramesEvery = 1
	cfg.LLM.Mode = "mock"
	cfg.Summary.WordTrigger = 10
	cfg.Summary.RetainWords = 0
	return cfg
}

func TestRunReplaysFile(t *testing.T) {
	cfg := fileConfig(t, 6)
	cfg.EventStore.RetentionMode = "persistent"
	cfg.EventStore.Path = filepath.Join(t.TempDir(), "journal.db")

	var out bytes.Buffer
	rt := New(cfg, newLogger(), &out)
	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	if got := strings.Count(text, "[CAPTION]  alpha beta gamma delta epsilon"); got != 6 {
		t.Fatalf("expected 6 captions, got %d:\n%s", got, text)
	}
	if got := strings.Count(text, "[SUMMARY]\n • Speaker discussed alpha"); got != 3 {
		t.Fatalf("expected 3 summaries, got %d:\n%s", got, text)
	}

	store, err := eventstore.Open(context.Background(), cfg.EventStore, newLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	entries, err := store.ListSession(context.Background(), rt.SessionID(), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 9 {
		t.Fatalf("expected 6 captions and 3 summaries journaled, got %d", len(entries))
	}
}

func TestRunWithEmbeddedBus(t *testing.T) {
	cfg := fileConfig(t, 2)
	cfg.Bus.Enabled = true
	cfg.Bus.Embedded = true
	cfg.Bus.Port = -1
	cfg.Bus.StoreDir = t.TempDir()

	var out bytes.Buffer
	if err := New(cfg, newLogger(), &out).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "[CAPTION]") {
		t.Fatalf("expected captions, got:\n%s", out.String())
	}
}

func TestRunMissingFileIsAudioError(t *testing.T) {
	cfg := fileConfig(t, 1)
	cfg.Audio.FilePath = filepath.Join(t.TempDir(), "missing.wav")
	err := New(cfg, newLogger(), io.Discard).Run(context.Background())
	if !errors.Is(err, ErrAudioInput) {
		t.Fatalf("expected audio input error, got %v", err)
	}
}

func TestRunMissingModel(t *testing.T) {
	cfg := fileConfig(t, 1)
	cfg.STT.Mode = "vosk"
	cfg.STT.ModelPath = filepath.Join(t.TempDir(), "no-model")
	err := New(cfg, newLogger(), io.Discard).Run(context.Background())
	if !errors.Is(err, stt.ErrModelNotFound) {
		t.Fatalf("expected missing model error, got %v", err)
	}
	if !strings.Contains(err.Error(), cfg.STT.ModelPath) {
		t.Fatalf("expected model path in error, got %v", err)
	}
}

func TestNewRecognizerUnknownMode(t *testing.T) {
	if _, err := newRecognizer(config.STTConfig{Mode: "whisper"}, 16000, newLogger()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := fileConfig(t, 50)
	cfg.Audio.Realtime = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New(cfg, newLogger(), io.Discard).Run(ctx); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}
