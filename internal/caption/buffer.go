package caption

import (
	"strings"
	"time"
)

// Buffer holds final transcript words since the last summary.
type Buffer struct {
	words []string
}

// Append adds the whitespace-separated words of text and returns how many
// were added.
func (b *Buffer) Append(text string) int {
	words := strings.Fields(text)
	b.words = append(b.words, words...)
	return len(words)
}

func (b *Buffer) WordCount() int { return len(b.words) }

func (b *Buffer) Text() string { return strings.Join(b.words, " ") }

// Truncate keeps only the last keep words.
func (b *Buffer) Truncate(keep int) {
	if keep < 0 {
		keep = 0
	}
	if len(b.words) <= keep {
		return
	}
	tail := make([]string, keep)
	copy(tail, b.words[len(b.words)-keep:])
	b.words = tail
}

// Policy decides when buffered speech is summarized.
type Policy struct {
	WordTrigger int
	Interval    time.Duration
	// MinIntervalWords is the count the buffer must exceed for the interval
	// trigger to fire.
	MinIntervalWords int
}

func (p Policy) ShouldSummarize(words int, sinceLast time.Duration) bool {
	if words >= p.WordTrigger {
		return true
	}
	return sinceLast >= p.Interval && words > p.MinIntervalWords
}
