package vosk

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-captions/internal/config"
	"github.com/loqalabs/loqa-captions/internal/stt"
)

func TestNewMissingModel(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "vosk-model-small-en-us-0.15")
	_, err := New(config.STTConfig{Mode: "vosk", ModelPath: missing}, 16000, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if !errors.Is(err, stt.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Fatalf("expected error to name the model path, got %v", err)
	}
}

func TestDecodeFinal(t *testing.T) {
	res, err := decodeFinal(`{"text" : " hello world "}`)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsFinal() || res.Text != "hello world" {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := decodeFinal("not json"); err == nil {
		t.Fatal("expected decode error")
	}
}
