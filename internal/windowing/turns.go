// Package windowing trims stored conversation history to an input budget before it is sent to the model.
//
// History is cut only at exchange boundaries. An exchange is a user message plus the
// assistant messages that follow it, so a window always opens on a user turn.
package windowing

import (
	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/history"
)

// Group describes a contiguous span of messages [Start, End) in the original slice.
type Group struct {
	Start int // inclusive index into msgs
	End   int // exclusive index into msgs
}

// GroupTurns splits msgs into exchanges. Messages before the first user message
// belong to no group and are reported by the returned offset.
func GroupTurns(msgs []history.Message) (groups []Group, orphans int) {
	start := -1
	for i, m := range msgs {
		if m.Role != domain.RoleUser {
			continue
		}
		if start >= 0 {
			groups = append(groups, Group{Start: start, End: i})
		} else {
			orphans = i
		}
		start = i
	}
	if start < 0 {
		return nil, len(msgs)
	}
	groups = append(groups, Group{Start: start, End: len(msgs)})
	return groups, orphans
}
