package llm

import (
	"context"
	"fmt"
	"strings"
)

const mockSummaryWords = 12

type mockGenerator struct{}

// NewMockGenerator returns a generator that echoes the opening words of the
// prompt as a one-sentence summary.
func NewMockGenerator() Generator { return &mockGenerator{} }

func (m *mockGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	words := strings.Fields(req.Prompt)
	if len(words) > mockSummaryWords {
		words = words[:mockSummaryWords]
	}
	content := fmt.Sprintf("Speaker discussed %s.", strings.Join(words, " "))
	return consumer(Chunk{
		SessionID: req.SessionID,
		Content:   content,
		Partial:   false,
		TraceID:   req.TraceID,
	})
}
