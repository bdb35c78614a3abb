package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/go-assistant/internal/history"
)

// Counter estimates the input cost of one message.
type Counter interface {
	Count(m history.Message) int
}

// HeuristicCounter is the default deterministic estimator: rune count of the content
// plus a fixed per-message overhead.
type HeuristicCounter struct{}

// Fixed per-message overhead; changing this requires updating the guard test.
const messageOverhead = 4

func (HeuristicCounter) Count(m history.Message) int {
	return utf8.RuneCountInString(m.Content) + messageOverhead
}
