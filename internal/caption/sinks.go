package caption

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/loqalabs/loqa-captions/internal/eventstore"
	"github.com/loqalabs/loqa-captions/internal/protocol"
)

// Publisher sends JSON messages to subscribers. *bus.Client satisfies it.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// BusSink publishes captions and summaries.
type BusSink struct {
	pub      Publisher
	partials bool
}

// NewBusSink returns a sink publishing on pub. Partials are only published
// when partials is true.
func NewBusSink(pub Publisher, partials bool) *BusSink {
	return &BusSink{pub: pub, partials: partials}
}

func (s *BusSink) Emit(_ context.Context, evt Event) error {
	switch evt.Kind {
	case EventPartial:
		if !s.partials || evt.Text == "" {
			return nil
		}
		return s.pub.PublishJSON(protocol.SubjectCaptionPartial, captionMessage(evt))
	case EventCaption:
		return s.pub.PublishJSON(protocol.SubjectCaptionFinal, captionMessage(evt))
	case EventSummary:
		return s.pub.PublishJSON(protocol.SubjectSummary, summaryMessage(evt))
	}
	return nil
}

// Journal persists session entries. *eventstore.Store satisfies it.
type Journal interface {
	Append(ctx context.Context, entry eventstore.Entry) error
}

// JournalSink records captions, summaries and errors.
type JournalSink struct {
	journal Journal
}

func NewJournalSink(journal Journal) *JournalSink {
	return &JournalSink{journal: journal}
}

func (s *JournalSink) Emit(ctx context.Context, evt Event) error {
	entry := eventstore.Entry{SessionID: evt.SessionID, Text: evt.Text, CreatedAt: evt.At}
	switch evt.Kind {
	case EventCaption:
		entry.Kind = eventstore.KindCaption
	case EventSummary:
		entry.Kind = eventstore.KindSummary
		payload, err := json.Marshal(summaryMessage(evt))
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		entry.Payload = payload
	case EventError:
		entry.Kind = eventstore.KindError
		if evt.Err != nil {
			entry.Text = fmt.Sprintf("%s: %v", evt.Text, evt.Err)
		}
	default:
		return nil
	}
	return s.journal.Append(ctx, entry)
}

func captionMessage(evt Event) protocol.Caption {
	return protocol.Caption{
		SessionID: evt.SessionID,
		Text:      evt.Text,
		Partial:   evt.Kind == EventPartial,
		Timestamp: evt.At,
	}
}

func summaryMessage(evt Event) protocol.Summary {
	return protocol.Summary{
		SessionID:    evt.SessionID,
		Text:         evt.Text,
		Bullets:      evt.Bullets,
		Words:        evt.Words,
		Chunks:       evt.Chunks,
		FailedChunks: evt.Failed,
		Timestamp:    evt.At,
	}
}
