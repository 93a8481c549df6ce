// Package stt defines the streaming recognizer contract shared by the caption
// loop and its backends. Backends that link C libraries live in subpackages.
package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrModelNotFound is returned when the configured recognizer model is absent.
var ErrModelNotFound = errors.New("recognizer model not found")

// ResultKind distinguishes committed text from in-progress guesses.
type ResultKind int

const (
	Partial ResultKind = iota
	Final
)

func (k ResultKind) String() string {
	if k == Final {
		return "final"
	}
	return "partial"
}

// Result captures recognizer output for one accepted frame.
type Result struct {
	Kind ResultKind
	Text string
}

func (r Result) IsFinal() bool { return r.Kind == Final }

// Recognizer abstracts streaming STT backends. After a Final result the
// backend starts a new utterance.
type Recognizer interface {
	AcceptFrame(ctx context.Context, pcm []byte) (Result, error)
	// Flush commits whatever audio is still pending as a final result.
	Flush(ctx context.Context) (Result, error)
	Close() error
}

// CheckModelPath reports ErrModelNotFound, naming path, when the model
// directory is missing.
func CheckModelPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w at %s", ErrModelNotFound, path)
		}
		return fmt.Errorf("stat recognizer model: %w", err)
	}
	return nil
}
