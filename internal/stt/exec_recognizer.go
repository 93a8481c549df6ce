package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/loqalabs/loqa-captions/internal/audio"
	"github.com/loqalabs/loqa-captions/internal/config"
	"github.com/mattn/go-shellwords"
)

// execRecognizer turns a batch transcription command into a streaming
// recognizer: frames are buffered into fixed windows, each window is committed
// as a final result, and interim windows are transcribed for partials.
type execRecognizer struct {
	cmd        []string
	cfg        config.STTConfig
	sampleRate int

	mu           sync.Mutex
	utterance    []byte
	sincePartial time.Duration
	lastPartial  string
}

type execResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func NewExecRecognizer(cfg config.STTConfig, sampleRate int) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	if cfg.ModelPath != "" {
		if err := CheckModelPath(cfg.ModelPath); err != nil {
			return nil, err
		}
	}
	return &execRecognizer{cmd: args, cfg: cfg, sampleRate: sampleRate}, nil
}

func (r *execRecognizer) AcceptFrame(ctx context.Context, pcm []byte) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.utterance = append(r.utterance, pcm...)
	frameDur := audio.FrameDuration(len(pcm), r.sampleRate)
	r.sincePartial += frameDur

	window := time.Duration(r.cfg.WindowMS) * time.Millisecond
	if audio.FrameDuration(len(r.utterance), r.sampleRate) >= window {
		return r.commitLocked(ctx)
	}

	interval := time.Duration(r.cfg.PartialEveryMS) * time.Millisecond
	if interval > 0 && r.sincePartial >= interval {
		r.sincePartial = 0
		text, err := r.transcribe(ctx, r.utterance, false)
		if err != nil {
			return Result{Kind: Partial, Text: r.lastPartial}, err
		}
		r.lastPartial = text
	}
	return Result{Kind: Partial, Text: r.lastPartial}, nil
}

func (r *execRecognizer) Flush(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.utterance) == 0 {
		return Result{Kind: Final}, nil
	}
	return r.commitLocked(ctx)
}

func (r *execRecognizer) Close() error { return nil }

// commitLocked transcribes the buffered window and starts a new utterance even
// when the command fails, so one bad window is not retried forever.
func (r *execRecognizer) commitLocked(ctx context.Context) (Result, error) {
	pcm := r.utterance
	r.utterance = nil
	r.sincePartial = 0
	r.lastPartial = ""

	text, err := r.transcribe(ctx, pcm, true)
	if err != nil {
		return Result{Kind: Final}, err
	}
	return Result{Kind: Final, Text: text}, nil
}

func (r *execRecognizer) transcribe(ctx context.Context, pcm []byte, final bool) (string, error) {
	file, err := os.CreateTemp(os.TempDir(), "loqa_stt_*.wav")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audio.WriteWAV(file, pcm, r.sampleRate, 1); err != nil {
		return "", err
	}

	base := r.cmd[0]
	cmdArgs := append([]string{}, r.cmd[1:]...)
	cmdArgs = append(cmdArgs, "--audio", file.Name())
	if r.cfg.ModelPath != "" {
		cmdArgs = append(cmdArgs, "--model", r.cfg.ModelPath)
	}
	if r.cfg.Language != "" {
		cmdArgs = append(cmdArgs, "--language", r.cfg.Language)
	}
	if !final {
		cmdArgs = append(cmdArgs, "--partial")
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("stt command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("decode stt response: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
