package caption

import (
	"strings"
	"testing"
	"time"
)

func TestBufferAppendCountsWords(t *testing.T) {
	var b Buffer
	texts := []string{"hello world", "  spaced   out  words ", "", "one"}
	want := 0
	for _, text := range texts {
		before := b.WordCount()
		added := b.Append(text)
		want += len(strings.Fields(text))
		if b.WordCount() != before+len(strings.Fields(text)) || added != len(strings.Fields(text)) {
			t.Fatalf("append %q: count %d, added %d", text, b.WordCount(), added)
		}
	}
	if b.WordCount() != want {
		t.Fatalf("expected %d words, got %d", want, b.WordCount())
	}
	if b.Text() != "hello world spaced out words one" {
		t.Fatalf("unexpected text %q", b.Text())
	}
}

func TestBufferTruncate(t *testing.T) {
	tests := []struct {
		words, keep, want int
	}{
		{0, 30, 0},
		{10, 30, 10},
		{30, 30, 30},
		{31, 30, 30},
		{130, 30, 30},
		{5, 0, 0},
	}
	for _, tt := range tests {
		var b Buffer
		b.Append(wordsN(tt.words))
		b.Truncate(tt.keep)
		if b.WordCount() != tt.want {
			t.Fatalf("truncate %d to %d: got %d", tt.words, tt.keep, b.WordCount())
		}
	}

	var b Buffer
	b.Append("a b c d e")
	b.Truncate(2)
	if b.Text() != "d e" {
		t.Fatalf("expected trailing words kept, got %q", b.Text())
	}
}

func TestPolicy(t *testing.T) {
	p := Policy{WordTrigger: 120, Interval: 45 * time.Second, MinIntervalWords: 5}
	tests := []struct {
		name  string
		words int
		since time.Duration
		want  bool
	}{
		{"word trigger regardless of time", 120, 0, true},
		{"above word trigger", 400, time.Second, true},
		{"below both", 119, 44 * time.Second, false},
		{"interval with enough words", 6, 45 * time.Second, true},
		{"interval with five words", 5, time.Hour, false},
		{"interval with no words", 0, time.Hour, false},
	}
	for _, tt := range tests {
		if got := p.ShouldSummarize(tt.words, tt.since); got != tt.want {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func wordsN(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "w"
	}
	return strings.Join(words, " ")
}
