package blockkit

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/steveyegge/onboardbuddy/internal/checklist"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

const dateLayout = "Jan 2, 2006"

func itemLine(it *types.ChecklistItem) string {
	if it.Completed {
		line := "✅ " + it.Text
		if it.CompletedAt != nil {
			line += fmt.Sprintf(" _(completed: %s)_", it.CompletedAt.Format(dateLayout))
		}
		return line
	}
	return "⬜ " + it.Text
}

// categoryBlocks renders one category's lines. When the combined text would
// exceed a section's limit it is split into a completed block and a pending
// block, each truncated on its own.
func categoryBlocks(g types.CategoryGroup) []slack.Block {
	pct := types.ProgressOf(g.Items).Percent()
	head := fmt.Sprintf("*%s*: %d%% complete\n%s", g.Name, pct, checklist.ProgressBar(pct))

	var done, pending []string
	for _, it := range g.Items {
		if it.Completed {
			done = append(done, itemLine(it))
		} else {
			pending = append(pending, itemLine(it))
		}
	}

	var all []string
	for _, it := range g.Items {
		all = append(all, itemLine(it))
	}
	full := head + "\n" + strings.Join(all, "\n")
	if len(full) <= MaxSectionText {
		return []slack.Block{Section(full)}
	}

	blocks := []slack.Block{Section(head)}
	if len(done) > 0 {
		blocks = append(blocks, Section("*Completed:*\n"+strings.Join(done, "\n")))
	}
	if len(pending) > 0 {
		blocks = append(blocks, Section("*Pending:*\n"+strings.Join(pending, "\n")))
	}
	return blocks
}

// RenderProgress renders the read-only progress summary of a checklist.
// The result may exceed MaxBlocksPerBatch; callers send it through Batch.
func RenderProgress(cl *types.Checklist) []slack.Block {
	p := cl.Progress()
	blocks := []slack.Block{
		Header("Onboarding Progress: " + cl.Role),
		Section(fmt.Sprintf("*Overall*: %d of %d tasks complete\n%s",
			p.Completed, p.Total, checklist.ProgressBar(p.Percent()))),
		Context(fmt.Sprintf("Employee: <@%s> | Manager: <@%s>", cl.EmployeeID, cl.ManagerID)),
		slack.NewDividerBlock(),
	}
	for _, g := range cl.Categories() {
		blocks = append(blocks, categoryBlocks(g)...)
		blocks = append(blocks, slack.NewDividerBlock())
	}
	return blocks
}

// MilestoneText is the manager notification sent when an employee's
// checklist crosses pct.
func MilestoneText(cl *types.Checklist, pct int) string {
	p := cl.Progress()
	if pct >= 100 {
		return fmt.Sprintf("🎉 <@%s> has completed their *%s* onboarding checklist (%d/%d tasks).",
			cl.EmployeeID, cl.Role, p.Completed, p.Total)
	}
	return fmt.Sprintf("🎯 <@%s> is %d%% through their *%s* onboarding checklist (%d/%d tasks).\n%s",
		cl.EmployeeID, pct, cl.Role, p.Completed, p.Total, checklist.ProgressBar(p.Percent()))
}

// TaskCompletedText notifies a manager that an employee finished one task.
func TaskCompletedText(cl *types.Checklist, it *types.ChecklistItem) string {
	return fmt.Sprintf("<@%s> has completed the task \"%s\" on their %s onboarding checklist.",
		cl.EmployeeID, Truncate(it.Text, 500), cl.Role)
}
