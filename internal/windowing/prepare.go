package windowing

import "github.com/petasbytes/go-assistant/internal/history"

// Stats summarizes the result of window preparation.
//
// Fields:
// - Total: estimated cost of included groups only.
// - Budget: the input budget used.
// - IncludedGroups: number of groups included.
// - SkippedGroups: total groups minus IncludedGroups.
// - Orphans: leading non-user messages dropped.
// - OverBudgetNewest: true when the newest group alone exceeds Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	Orphans          int
	OverBudgetNewest bool
}

// Trimmed reports whether anything was left out of the window.
func (s Stats) Trimmed() bool {
	return s.SkippedGroups > 0 || s.Orphans > 0
}

// PrepareSendWindow returns a subslice of msgs (oldest→newest) that fits within
// budget using c, without splitting exchanges.
//
// Rules:
//   - Include whole groups scanning newest→oldest while total ≤ budget.
//   - The newest group is always included; OverBudgetNewest marks that it alone exceeds budget.
//   - budget ≤ 0 disables the limit; only orphans are dropped.
func PrepareSendWindow(msgs []history.Message, budget int, c Counter) ([]history.Message, Stats) {
	groups, orphans := GroupTurns(msgs)
	stats := Stats{Budget: budget, Orphans: orphans}
	if len(groups) == 0 {
		return nil, stats
	}

	startIdx := len(groups)
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := 0
		for _, m := range msgs[groups[gi].Start:groups[gi].End] {
			cost += c.Count(m)
		}
		if stats.IncludedGroups == 0 && budget > 0 && cost > budget {
			stats.OverBudgetNewest = true
		} else if budget > 0 && stats.Total+cost > budget {
			break
		}
		stats.Total += cost
		stats.IncludedGroups++
		startIdx = gi
	}

	stats.SkippedGroups = len(groups) - stats.IncludedGroups
	return msgs[groups[startIdx].Start:], stats
}
