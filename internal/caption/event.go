package caption

import (
	"context"
	"errors"
	"time"
)

type EventKind int

const (
	EventListening EventKind = iota
	EventPartial
	EventCaption
	EventSummaryStarted
	EventSummary
	EventResumed
	EventWarning
	EventError
)

// Event is one observable step of the caption loop.
type Event struct {
	Kind      EventKind
	SessionID string
	Text      string
	Bullets   []string
	Words     int
	Chunks    int
	Failed    int
	Err       error
	At        time.Time
}

// Sink consumes loop events. Emit runs on the consumer goroutine, so sinks
// must not block for long.
type Sink interface {
	Emit(ctx context.Context, evt Event) error
}

// MultiSink fans events out to every sink, collecting their errors.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, evt Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
