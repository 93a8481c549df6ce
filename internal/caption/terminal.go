package caption

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const clearLine = "\x1b[K"

// Terminal renders events as caption lines. Partials overwrite the current
// line; everything else is appended.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
	tty bool
}

func NewTerminal(out io.Writer) *Terminal {
	t := &Terminal{out: out}
	if f, ok := out.(*os.File); ok {
		t.tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return t
}

func (t *Terminal) Emit(_ context.Context, evt Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	switch evt.Kind {
	case EventListening:
		b.WriteString("\n--- Listening (live captions + rolling summaries). Press Ctrl+C to stop. ---\n\n")
	case EventPartial:
		b.WriteString("\r")
		if t.tty {
			b.WriteString(clearLine)
		}
		b.WriteString("[PARTIAL] ")
		b.WriteString(evt.Text)
	case EventCaption:
		fmt.Fprintf(&b, "\n[CAPTION]  %s\n", evt.Text)
	case EventSummaryStarted:
		b.WriteString("\n\n--- Generating rolling summary of recent speech ---\n")
	case EventSummary:
		if evt.Text == "" {
			b.WriteString("[SUMMARY] (empty)\n")
			break
		}
		b.WriteString("[SUMMARY]\n")
		for _, bullet := range evt.Bullets {
			fmt.Fprintf(&b, " • %s\n", bullet)
		}
	case EventResumed:
		b.WriteString("\n--- Listening (resumed) ---\n")
	case EventWarning:
		fmt.Fprintf(&b, "[WARN] %s: %v\n", evt.Text, evt.Err)
	case EventError:
		fmt.Fprintf(&b, "[ERROR] %s: %v\n", evt.Text, evt.Err)
	default:
		return nil
	}
	_, err := io.WriteString(t.out, b.String())
	return err
}
