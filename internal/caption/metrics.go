package caption

import (
	"context"
	"time"

	"github.com/loqalabs/loqa-captions/internal/audio"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type loopMetrics struct {
	frames        metric.Int64Counter
	recognizerErr metric.Int64Counter
	captions      metric.Int64Counter
	words         metric.Int64Counter
	summaries     metric.Int64Counter
	chunkFailures metric.Int64Counter
	latency       metric.Float64Histogram
}

func newLoopMetrics(q *audio.Queue) (*loopMetrics, error) {
	meter := otel.Meter("github.com/loqalabs/loqa-captions/caption")
	m := &loopMetrics{}
	var err error
	if m.frames, err = meter.Int64Counter("loqa.audio.frames_consumed", metric.WithDescription("Audio frames taken off the queue")); err != nil {
		return nil, err
	}
	if m.recognizerErr, err = meter.Int64Counter("loqa.stt.errors", metric.WithDescription("Recognizer failures")); err != nil {
		return nil, err
	}
	if m.captions, err = meter.Int64Counter("loqa.captions.final", metric.WithDescription("Final captions emitted")); err != nil {
		return nil, err
	}
	if m.words, err = meter.Int64Counter("loqa.captions.words", metric.WithDescription("Words appended to the transcript buffer")); err != nil {
		return nil, err
	}
	if m.summaries, err = meter.Int64Counter("loqa.summary.runs", metric.WithDescription("Summarization passes")); err != nil {
		return nil, err
	}
	if m.chunkFailures, err = meter.Int64Counter("loqa.summary.chunk_failures", metric.WithDescription("Summary chunks that failed")); err != nil {
		return nil, err
	}
	if m.latency, err = meter.Float64Histogram("loqa.summary.duration", metric.WithUnit("s"), metric.WithDescription("Summarization pass latency")); err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge("loqa.audio.queue_depth",
		metric.WithDescription("Frames waiting for the caption loop"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(q.Len()))
			return nil
		}))
	if err != nil {
		return nil, err
	}
	_, err = meter.Int64ObservableCounter("loqa.audio.frames_dropped",
		metric.WithDescription("Frames dropped by a bounded queue"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(q.Dropped()))
			return nil
		}))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *loopMetrics) frame(ctx context.Context) {
	if m == nil {
		return
	}
	m.frames.Add(ctx, 1)
}

func (m *loopMetrics) recognizerError(ctx context.Context) {
	if m == nil {
		return
	}
	m.recognizerErr.Add(ctx, 1)
}

func (m *loopMetrics) caption(ctx context.Context, words int) {
	if m == nil {
		return
	}
	m.captions.Add(ctx, 1)
	m.words.Add(ctx, int64(words))
}

func (m *loopMetrics) summary(ctx context.Context, elapsed time.Duration, failedChunks int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.summaries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if failedChunks > 0 {
		m.chunkFailures.Add(ctx, int64(failedChunks))
	}
	m.latency.Record(ctx, elapsed.Seconds())
}
