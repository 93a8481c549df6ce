package protocol

import "time"

// Caption is a recognizer result broadcast on the bus.
type Caption struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Partial   bool      `json:"partial"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is a rolling summary of recent speech.
type Summary struct {
	SessionID    string    `json:"session_id"`
	Text         string    `json:"text"`
	Bullets      []string  `json:"bullets"`
	Words        int       `json:"words"`
	Chunks       int       `json:"chunks"`
	FailedChunks int       `json:"failed_chunks,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

const (
	SubjectCaptionPartial = "loqa.captions.partial"
	SubjectCaptionFinal   = "loqa.captions.final"
	SubjectSummary        = "loqa.summary"
)

// StreamCaptions retains final captions and summaries for late subscribers
// when the broker has JetStream.
const StreamCaptions = "LOQA_CAPTIONS"
