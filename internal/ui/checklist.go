package ui

import (
	"fmt"
	"strings"

	"github.com/steveyegge/onboardbuddy/internal/checklist"
	"github.com/steveyegge/onboardbuddy/internal/pulse"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

const listDateLayout = "2006-01-02"

// ChecklistRow is the one-line summary used by `buddy checklist list`.
func ChecklistRow(cl *types.Checklist) string {
	p := cl.Progress()
	return fmt.Sprintf("%s  %-20s %s → %s  %d/%d %s  %s",
		RenderAccent(cl.ID),
		cl.Role,
		cl.ManagerID,
		cl.EmployeeID,
		p.Completed, p.Total,
		RenderPercent(p.Percent()),
		RenderMuted(cl.CreatedAt.Format(listDateLayout)))
}

// ChecklistDetail renders a checklist grouped by category.
func ChecklistDetail(cl *types.Checklist) string {
	var b strings.Builder
	p := cl.Progress()
	fmt.Fprintf(&b, "%s\n", RenderTitle("Onboarding checklist: "+cl.Role))
	fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("ID"), cl.ID)
	fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("Employee"), cl.EmployeeID)
	fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("Manager"), cl.ManagerID)
	fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("Created"), cl.CreatedAt.Format(listDateLayout))
	fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("Progress"), checklist.ProgressBar(p.Percent()))

	for _, g := range cl.Categories() {
		gp := types.ProgressOf(g.Items)
		fmt.Fprintf(&b, "\n%s %s\n", RenderCategory(g.Name), RenderMuted(fmt.Sprintf("(%d/%d)", gp.Completed, gp.Total)))
		for _, it := range g.Items {
			if it.Completed {
				fmt.Fprintf(&b, "  %s %s\n", RenderDone(IconDone), RenderMuted(it.Text))
				continue
			}
			fmt.Fprintf(&b, "  %s %s\n", IconTodo, it.Text)
		}
	}
	return b.String()
}

// PulseQuestions lists the question bank for `buddy pulse questions`.
func PulseQuestions(bank *pulse.Bank) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", RenderTitle(strings.Trim(bank.Title, "*📊 ")))
	for _, q := range bank.Questions {
		name := q.Dimension
		if q.Inverted {
			name += " (inverted)"
		}
		fmt.Fprintf(&b, "\n%s\n  %s\n", RenderCategory(name), q.Text)
		for _, level := range []types.PulseLevel{types.PulseLow, types.PulseMedium, types.PulseHigh} {
			fmt.Fprintf(&b, "  %s %-6s %s\n", RenderMuted("•"), level, q.Label(level))
		}
	}
	return b.String()
}
