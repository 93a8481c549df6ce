package caption

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/loqalabs/loqa-captions/internal/config"
	"github.com/loqalabs/loqa-captions/internal/eventstore"
	"github.com/loqalabs/loqa-captions/internal/protocol"
)

type published struct {
	subject string
	value   any
}

type recordingPublisher struct {
	msgs []published
}

func (p *recordingPublisher) PublishJSON(subject string, v any) error {
	p.msgs = append(p.msgs, published{subject: subject, value: v})
	return nil
}

func TestBusSinkSubjects(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewBusSink(pub, false)
	ctx := context.Background()
	at := time.Unix(10, 0)

	events := []Event{
		{Kind: EventListening},
		{Kind: EventPartial, Text: "hel"},
		{Kind: EventCaption, SessionID: "s", Text: "hello", At: at},
		{Kind: EventSummaryStarted},
		{Kind: EventSummary, SessionID: "s", Text: "Hi.", Bullets: []string{"Hi."}, Words: 7, Chunks: 1, At: at},
	}
	for _, evt := range events {
		if err := sink.Emit(ctx, evt); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	if len(pub.msgs) != 2 {
		t.Fatalf("expected caption and summary only, got %d messages", len(pub.msgs))
	}
	caption, ok := pub.msgs[0].value.(protocol.Caption)
	if pub.msgs[0].subject != protocol.SubjectCaptionFinal || !ok || caption.Partial || caption.Text != "hello" {
		t.Fatalf("unexpected caption message %+v", pub.msgs[0])
	}
	summary, ok := pub.msgs[1].value.(protocol.Summary)
	if pub.msgs[1].subject != protocol.SubjectSummary || !ok || summary.Words != 7 || !summary.Timestamp.Equal(at) {
		t.Fatalf("unexpected summary message %+v", pub.msgs[1])
	}
}

func TestBusSinkPartials(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewBusSink(pub, true)
	if err := sink.Emit(context.Background(), Event{Kind: EventPartial, Text: "hel"}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Emit(context.Background(), Event{Kind: EventPartial}); err != nil {
		t.Fatal(err)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].subject != protocol.SubjectCaptionPartial {
		t.Fatalf("expected one partial message, got %+v", pub.msgs)
	}
}

func TestJournalSinkRecordsSession(t *testing.T) {
	ctx := context.Background()
	cfg := config.EventStoreConfig{Path: filepath.Join(t.TempDir(), "journal.db"), RetentionMode: "persistent"}
	store, err := eventstore.Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.StartSession(ctx, "s-1", "file"); err != nil {
		t.Fatal(err)
	}

	sink := NewJournalSink(store)
	events := []Event{
		{Kind: EventPartial, SessionID: "s-1", Text: "ignored"},
		{Kind: EventCaption, SessionID: "s-1", Text: "hello world"},
		{Kind: EventSummary, SessionID: "s-1", Text: "Greeting.", Bullets: []string{"Greeting."}},
		{Kind: EventError, SessionID: "s-1", Text: "summarization failed", Err: errors.New("boom")},
	}
	for _, evt := range events {
		if err := sink.Emit(ctx, evt); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	entries, err := store.ListSession(ctx, "s-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Kind != eventstore.KindCaption || entries[1].Kind != eventstore.KindSummary || entries[2].Kind != eventstore.KindError {
		t.Fatalf("unexpected kinds %s %s %s", entries[0].Kind, entries[1].Kind, entries[2].Kind)
	}
	if len(entries[1].Payload) == 0 {
		t.Fatal("expected summary payload")
	}
	if entries[2].Text != "summarization failed: boom" {
		t.Fatalf("unexpected error text %q", entries[2].Text)
	}
}
