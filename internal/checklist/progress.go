package checklist

import (
	"strconv"
	"strings"

	"github.com/steveyegge/onboardbuddy/internal/types"
)

// Milestones are the completion percentages that notify the manager.
var Milestones = []int{25, 50, 75, 100}

// ProgressBar renders ten cells for pct (0..100) followed by " {pct}%".
func ProgressBar(pct int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct / 10
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + " " + strconv.Itoa(pct) + "%"
}

// CrossedMilestones returns the milestones passed on the way from before to
// after (before < m <= after). A percentage that skips past a threshold still
// reports it; moving backwards or standing still reports nothing.
func CrossedMilestones(before, after int) []int {
	var out []int
	for _, m := range Milestones {
		if before < m && m <= after {
			out = append(out, m)
		}
	}
	return out
}

// Transition captures a checklist's progress around one item mutation.
type Transition struct {
	Before types.Progress
	After  types.Progress
}

// Milestones returns the thresholds crossed by this transition.
func (t Transition) Milestones() []int {
	return CrossedMilestones(t.Before.Percent(), t.After.Percent())
}
