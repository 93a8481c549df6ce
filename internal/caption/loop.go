// Package caption runs the consumer loop that turns queued audio into live
// captions and rolling summaries.
package caption

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-captions/internal/audio"
	"github.com/loqalabs/loqa-captions/internal/stt"
	"github.com/loqalabs/loqa-captions/internal/summary"
)

// Summarizer condenses buffered transcript text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (summary.Summary, error)
}

type Options struct {
	SessionID   string
	Policy      Policy
	RetainWords int
	// SummarizeOnDrain runs a last summary when the queue closes with enough
	// buffered words for the interval trigger.
	SummarizeOnDrain bool
	Clock            func() time.Time
}

// Loop is the single consumer of the frame queue. Its buffer and timestamps
// are only touched from Run.
type Loop struct {
	queue      *audio.Queue
	recognizer stt.Recognizer
	summarizer Summarizer
	sink       Sink
	opts       Options
	logger     *slog.Logger
	metrics    *loopMetrics

	buffer      Buffer
	lastSummary time.Time
}

func NewLoop(q *audio.Queue, recognizer stt.Recognizer, summarizer Summarizer, sink Sink, opts Options, logger *slog.Logger) *Loop {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	l := &Loop{
		queue:      q,
		recognizer: recognizer,
		summarizer: summarizer,
		sink:       sink,
		opts:       opts,
		logger:     logger.With(slog.String("component", "caption-loop")),
	}
	metrics, err := newLoopMetrics(q)
	if err != nil {
		l.logger.Warn("failed to initialize metrics", slogError(err))
	}
	l.metrics = metrics
	return l
}

// Run consumes frames until ctx ends or the queue is closed and drained. A
// drained queue is a clean finish; cancellation returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	l.buffer = Buffer{}
	l.lastSummary = l.opts.Clock()
	l.emit(ctx, Event{Kind: EventListening})

	for {
		frame, err := l.queue.Pop(ctx)
		if errors.Is(err, audio.ErrQueueClosed) {
			l.drain(ctx)
			return nil
		}
		if err != nil {
			return err
		}
		l.handleFrame(ctx, frame)
	}
}

// Buffered returns the current transcript buffer text.
func (l *Loop) Buffered() string { return l.buffer.Text() }

func (l *Loop) handleFrame(ctx context.Context, frame audio.Frame) {
	l.metrics.frame(ctx)

	result, err := l.recognizer.AcceptFrame(ctx, frame.PCM)
	if err != nil {
		l.metrics.recognizerError(ctx)
		l.logger.Warn("recognizer failed", slog.Int("sequence", frame.Sequence), slogError(err))
		result = stt.Result{Kind: result.Kind}
	}
	l.handleResult(ctx, result)

	now := l.opts.Clock()
	if l.opts.Policy.ShouldSummarize(l.buffer.WordCount(), now.Sub(l.lastSummary)) {
		l.summarize(ctx, now, true)
	}
}

func (l *Loop) handleResult(ctx context.Context, result stt.Result) {
	if result.IsFinal() {
		if result.Text == "" {
			return
		}
		added := l.buffer.Append(result.Text)
		l.metrics.caption(ctx, added)
		l.emit(ctx, Event{Kind: EventCaption, Text: result.Text, Words: l.buffer.WordCount()})
		return
	}
	l.emit(ctx, Event{Kind: EventPartial, Text: result.Text})
}

func (l *Loop) summarize(ctx context.Context, now time.Time, resume bool) {
	words := l.buffer.WordCount()
	l.emit(ctx, Event{Kind: EventSummaryStarted, Words: words})

	start := time.Now()
	result, err := l.summarizer.Summarize(ctx, l.buffer.Text())
	l.metrics.summary(ctx, time.Since(start), len(result.Failed), err)
	for _, failed := range result.Failed {
		l.emit(ctx, Event{Kind: EventWarning, Text: "summarizer error for chunk", Err: failed.Err})
	}
	if err != nil {
		l.logger.Error("summarization failed", slogError(err))
		l.emit(ctx, Event{Kind: EventError, Text: "summarization failed", Err: err})
	} else {
		l.emit(ctx, Event{
			Kind:    EventSummary,
			Text:    result.Text,
			Bullets: result.Bullets,
			Words:   words,
			Chunks:  result.Chunks,
			Failed:  len(result.Failed),
		})
	}

	l.buffer.Truncate(l.opts.RetainWords)
	l.lastSummary = now
	if resume {
		l.emit(ctx, Event{Kind: EventResumed, Words: l.buffer.WordCount()})
	}
}

// drain commits audio still held by the recognizer once input has ended.
func (l *Loop) drain(ctx context.Context) {
	result, err := l.recognizer.Flush(ctx)
	if err != nil {
		l.logger.Warn("recognizer flush failed", slogError(err))
	} else if result.IsFinal() {
		l.handleResult(ctx, result)
	}
	if l.opts.SummarizeOnDrain && l.buffer.WordCount() > l.opts.Policy.MinIntervalWords {
		l.summarize(ctx, l.opts.Clock(), false)
	}
}

func (l *Loop) emit(ctx context.Context, evt Event) {
	evt.SessionID = l.opts.SessionID
	evt.At = l.opts.Clock()
	if err := l.sink.Emit(ctx, evt); err != nil {
		l.logger.Warn("failed to emit event", slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
