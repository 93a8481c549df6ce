package summary

import (
	"strings"
	"unicode"
)

// Words splits text on whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// SplitChunks slices words into consecutive chunks of at most maxWords words.
func SplitChunks(words []string, maxWords int) [][]string {
	if len(words) == 0 {
		return nil
	}
	if maxWords <= 0 {
		return [][]string{words}
	}
	chunks := make([][]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := min(start+maxWords, len(words))
		chunks = append(chunks, words[start:end])
	}
	return chunks
}

// Bulletify splits a paragraph into sentences at '.', '!' or '?' followed by
// whitespace. Blank fragments are dropped.
func Bulletify(text string) []string {
	runes := []rune(text)
	var bullets []string
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		if !isSentenceEnd(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		bullets = appendTrimmed(bullets, string(runes[start:i+1]))
		start = i + 1
	}
	return appendTrimmed(bullets, string(runes[start:]))
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func appendTrimmed(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}
