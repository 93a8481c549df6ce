package stt

import (
	"context"
	"fmt"
	"strings"
)

// mockRecognizer replays scripted phrases: each phrase spans framesPerPhrase
// frames, growing as partials and committed on the last frame.
type mockRecognizer struct {
	phrases         []string
	framesPerPhrase int
	frame           int
	phrase          int
}

func NewMockRecognizer(phrases []string, framesPerPhrase int) Recognizer {
	if framesPerPhrase <= 0 {
		framesPerPhrase = 1
	}
	return &mockRecognizer{phrases: phrases, framesPerPhrase: framesPerPhrase}
}

func (m *mockRecognizer) AcceptFrame(_ context.Context, _ []byte) (Result, error) {
	text := m.current()
	m.frame++
	if m.frame >= m.framesPerPhrase {
		m.frame = 0
		m.phrase++
		return Result{Kind: Final, Text: text}, nil
	}
	words := strings.Fields(text)
	n := len(words) * m.frame / m.framesPerPhrase
	return Result{Kind: Partial, Text: strings.Join(words[:n], " ")}, nil
}

func (m *mockRecognizer) Flush(_ context.Context) (Result, error) {
	if m.frame == 0 {
		return Result{Kind: Final}, nil
	}
	text := m.current()
	m.frame = 0
	m.phrase++
	return Result{Kind: Final, Text: text}, nil
}

func (m *mockRecognizer) Close() error { return nil }

func (m *mockRecognizer) current() string {
	if len(m.phrases) == 0 {
		return fmt.Sprintf("mock utterance %d", m.phrase+1)
	}
	return m.phrases[m.phrase%len(m.phrases)]
}
