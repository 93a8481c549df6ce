// Package runtime wires configuration, audio input, recognizer, summarizer
// and output sinks into one captioning session.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-captions/internal/audio"
	"github.com/loqalabs/loqa-captions/internal/bus"
	"github.com/loqalabs/loqa-captions/internal/caption"
	"github.com/loqalabs/loqa-captions/internal/config"
	"github.com/loqalabs/loqa-captions/internal/eventstore"
	"github.com/loqalabs/loqa-captions/internal/llm"
	"github.com/loqalabs/loqa-captions/internal/natsserver"
	"github.com/loqalabs/loqa-captions/internal/protocol"
	"github.com/loqalabs/loqa-captions/internal/summary"
)

// ErrAudioInput marks failures of the capture device or replay file.
var ErrAudioInput = errors.New("audio input")

type Runtime struct {
	cfg       config.Config
	logger    *slog.Logger
	out       io.Writer
	sessionID string

	httpServer *http.Server
	busClient  atomic.Pointer[bus.Client]
	ready      atomic.Bool
	wg         sync.WaitGroup
}

// New prepares a session writing captions to out.
func New(cfg config.Config, logger *slog.Logger, out io.Writer) *Runtime {
	return &Runtime{
		cfg:       cfg,
		logger:    logger,
		out:       out,
		sessionID: uuid.NewString(),
	}
}

func (r *Runtime) SessionID() string { return r.sessionID }

// Run captions audio until ctx is cancelled or a file source is exhausted.
// A cancelled context is a normal stop and returns nil.
func (r *Runtime) Run(ctx context.Context) error {
	logger := r.logger.With(slog.String("session_id", r.sessionID))

	shutdownTelemetry, metricsHandler, err := setupTelemetry(ctx, r.cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", slogError(err))
		}
	}()

	if r.cfg.HTTP.Enabled {
		r.startHTTP(metricsHandler, logger)
		defer r.stopHTTP(logger)
	}

	recognizer, err := newRecognizer(r.cfg.STT, r.cfg.Audio.SampleRate, logger)
	if err != nil {
		return fmt.Errorf("create recognizer: %w", err)
	}
	defer func() {
		if err := recognizer.Close(); err != nil {
			logger.Warn("recognizer close failed", slogError(err))
		}
	}()

	generator, err := llm.New(r.cfg.LLM)
	if err != nil {
		return fmt.Errorf("create summarizer backend: %w", err)
	}
	request := llm.OptionsFromConfig(r.cfg.LLM)
	request.SessionID = r.sessionID
	summarizer := summary.New(generator, summary.Options{
		MaxChunkWords: r.cfg.Summary.MaxChunkWords,
		MinWords:      r.cfg.Summary.MinSummaryWords,
		Timeout:       time.Duration(r.cfg.Summary.TimeoutMS) * time.Millisecond,
		Request:       request,
	}, logger)

	source := r.newSource(logger)
	sink, closeSinks, err := r.openSinks(ctx, source.Name(), logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	queue := audio.NewQueue(r.cfg.Audio.QueueCapacity)
	loop := caption.NewLoop(queue, recognizer, summarizer, sink, caption.Options{
		SessionID: r.sessionID,
		Policy: caption.Policy{
			WordTrigger:      r.cfg.Summary.WordTrigger,
			Interval:         time.Duration(r.cfg.Summary.TimeTriggerSecs) * time.Second,
			MinIntervalWords: r.cfg.Summary.TimeTriggerWords,
		},
		RetainWords:      r.cfg.Summary.RetainWords,
		SummarizeOnDrain: r.cfg.Audio.Source == "file",
	}, logger)

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	if err := source.Start(ctx, queue); err != nil {
		queue.Close()
		<-loopDone
		return fmt.Errorf("%w: %w", ErrAudioInput, err)
	}
	r.ready.Store(true)
	logger.Info("captioning started", slog.String("source", source.Name()))

	loopErr := <-loopDone
	r.ready.Store(false)

	closeErr := source.Close()
	queue.Close()
	if waiter, ok := source.(interface{ Wait() error }); ok && ctx.Err() == nil {
		if err := waiter.Wait(); err != nil {
			return fmt.Errorf("%w: %w", ErrAudioInput, err)
		}
	}
	if closeErr != nil {
		logger.Warn("audio source close failed", slogError(closeErr))
	}

	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return fmt.Errorf("caption loop: %w", loopErr)
	}
	logger.Info("captioning stopped", slog.Uint64("frames_dropped", queue.Dropped()))
	return nil
}

// openSinks builds the terminal sink plus the optional bus and journal sinks.
// The returned func releases whatever was opened.
func (r *Runtime) openSinks(ctx context.Context, sourceName string, logger *slog.Logger) (caption.Sink, func(), error) {
	sinks := caption.MultiSink{caption.NewTerminal(r.out)}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if r.cfg.Bus.Enabled {
		busCfg := r.cfg.Bus
		embedded, err := natsserver.Start(busCfg, logger)
		if err != nil {
			return nil, closeAll, fmt.Errorf("start embedded nats: %w", err)
		}
		if embedded != nil {
			closers = append(closers, embedded.Shutdown)
			busCfg.Servers = []string{embedded.ClientURL()}
		}
		client, err := bus.Connect(ctx, busCfg, logger)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, client.Close)
		if err := client.EnsureStream(protocol.StreamCaptions, protocol.SubjectCaptionFinal, protocol.SubjectSummary); err != nil {
			logger.Warn("caption stream unavailable, publishing without retention", slogError(err))
		}
		r.busClient.Store(client)
		sinks = append(sinks, caption.NewBusSink(client, busCfg.PublishPartials))
	}

	store, err := eventstore.Open(ctx, r.cfg.EventStore, logger)
	if err != nil {
		closeAll()
		return nil, func() {}, fmt.Errorf("open event store: %w", err)
	}
	closers = append(closers, func() {
		if err := store.Close(); err != nil {
			logger.Warn("event store close failed", slogError(err))
		}
	})
	if store.Enabled() {
		if err := store.StartSession(ctx, r.sessionID, sourceName); err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("start journal session: %w", err)
		}
		sinks = append(sinks, caption.NewJournalSink(store))
	}

	return sinks, closeAll, nil
}

func (r *Runtime) startHTTP(metrics http.Handler, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slogError(err))
		}
	}()
	logger.Info("http server listening", slog.String("addr", addr))
}

func (r *Runtime) stopHTTP(logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", slogError(err))
	}
	r.wg.Wait()
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	client := r.busClient.Load()
	if r.ready.Load() && (client == nil || client.Healthy()) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
