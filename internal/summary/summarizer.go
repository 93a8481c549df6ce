// Package summary condenses transcript text into bullet-point summaries by
// running bounded chunks through a language model.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loqalabs/loqa-captions/internal/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const systemPrompt = "You summarize live speech transcripts. Reply with a concise summary of at least %d words written as plain sentences, with no preamble or list markers."

// Options tunes chunking and model requests.
type Options struct {
	MaxChunkWords int
	MinWords      int
	Timeout       time.Duration
	Request       llm.Request
}

// ChunkError records a chunk whose summarization failed.
type ChunkError struct {
	Index int
	Words int
	Err   error
}

func (e ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (%d words): %v", e.Index, e.Words, e.Err)
}

func (e ChunkError) Unwrap() error { return e.Err }

// Summary is the outcome of one summarization pass.
type Summary struct {
	Text    string
	Bullets []string
	Chunks  int
	Failed  []ChunkError
}

// Empty reports whether no summary text was produced.
func (s Summary) Empty() bool { return s.Text == "" }

// Summarizer runs each chunk independently; a failed chunk contributes nothing
// and does not stop the remaining chunks.
type Summarizer struct {
	generator llm.Generator
	opts      Options
	logger    *slog.Logger
	tracer    trace.Tracer
}

func New(generator llm.Generator, opts Options, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		generator: generator,
		opts:      opts,
		logger:    logger.With(slog.String("component", "summarizer")),
		tracer:    otel.Tracer("github.com/loqalabs/loqa-captions/summary"),
	}
}

// Summarize condenses text. An empty input yields an empty summary. The
// returned error is non-nil only when ctx ends before all chunks ran.
func (s *Summarizer) Summarize(ctx context.Context, text string) (Summary, error) {
	words := Words(text)
	if len(words) == 0 {
		return Summary{}, nil
	}
	chunks := SplitChunks(words, s.opts.MaxChunkWords)

	ctx, span := s.tracer.Start(ctx, "summary.generate", trace.WithAttributes(
		attribute.Int("summary.words", len(words)),
		attribute.Int("summary.chunks", len(chunks)),
	))
	defer span.End()

	result := Summary{Chunks: len(chunks)}
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			return result, err
		}
		out, err := s.summarizeChunk(ctx, i, chunk)
		if err != nil {
			s.logger.Warn("summarizer error for chunk",
				slog.Int("chunk", i),
				slog.Int("words", len(chunk)),
				slogError(err))
			result.Failed = append(result.Failed, ChunkError{Index: i, Words: len(chunk), Err: err})
			out = ""
		}
		if out != "" {
			parts = append(parts, out)
		}
	}

	result.Text = strings.Join(parts, " ")
	result.Bullets = Bulletify(result.Text)
	span.SetAttributes(attribute.Int("summary.failed_chunks", len(result.Failed)))
	return result, nil
}

func (s *Summarizer) summarizeChunk(ctx context.Context, index int, chunk []string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "summary.chunk", trace.WithAttributes(
		attribute.Int("summary.chunk.index", index),
		attribute.Int("summary.chunk.words", len(chunk)),
	))
	defer span.End()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	req := s.opts.Request
	req.Prompt = strings.Join(chunk, " ")
	req.System = fmt.Sprintf(systemPrompt, s.opts.MinWords)

	out, err := llm.Collect(ctx, s.generator, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chunk failed")
		return "", err
	}
	return out, nil
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
