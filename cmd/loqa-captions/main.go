package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/loqalabs/loqa-captions/internal/config"
	"github.com/loqalabs/loqa-captions/internal/runtime"
	"github.com/loqalabs/loqa-captions/internal/stt"
)

var version = "0.1.0-dev"

const defaultConfigPath = "loqa-captions.yaml"

func main() {
	var (
		configPath   string
		audioFile    string
		listSessions bool
		showSession  string
		showVersion  bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (default "+defaultConfigPath+" if present)")
	flag.StringVar(&audioFile, "file", "", "Replay a mono 16-bit WAV file instead of the microphone")
	flag.BoolVar(&listSessions, "list-sessions", false, "List journaled sessions and exit")
	flag.StringVar(&showSession, "show-session", "", "Print the journaled captions and summaries of a session and exit")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	if configPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			configPath = defaultConfigPath
		}
	}

	cfg, err := config.Load(configPath)
	if err == nil && audioFile != "" {
		cfg.Audio.Source = "file"
		cfg.Audio.FilePath = audioFile
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Telemetry.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if listSessions || showSession != "" {
		if err := printJournal(context.Background(), cfg.EventStore, os.Stdout, showSession, logger); err != nil {
			fmt.Fprintf(os.Stderr, "journal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := runtime.New(cfg, logger, os.Stdout)
	err = rt.Run(ctx)
	if code := report(os.Stdout, os.Stderr, err, ctx.Err() != nil, cfg.STT.ModelPath, logger); code != 0 {
		os.Exit(code)
	}
}

// report prints the outcome of a run next to the captions and returns the
// process exit code.
func report(out, errOut io.Writer, err error, interrupted bool, modelPath string, logger *slog.Logger) int {
	switch {
	case errors.Is(err, stt.ErrModelNotFound):
		fmt.Fprintf(errOut, "Vosk model not found at %s. Download and unzip into that path.\n", modelPath)
		return 1
	case errors.Is(err, runtime.ErrAudioInput):
		msg := strings.TrimPrefix(err.Error(), runtime.ErrAudioInput.Error()+": ")
		fmt.Fprintf(out, "Error with audio input: %s\n", msg)
		return 1
	case err != nil:
		logger.Error("runtime exited with error", slog.String("error", err.Error()))
		return 1
	case interrupted:
		fmt.Fprintln(out, "\nStopped by user.")
	}
	return 0
}
