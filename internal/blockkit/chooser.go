package blockkit

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/steveyegge/onboardbuddy/internal/types"
)

// RenderChooser lists an employee's checklists with a button per checklist,
// used when a progress lookup matches more than one.
func RenderChooser(employeeID string, lists []*types.Checklist) []slack.Block {
	blocks := []slack.Block{
		Section(fmt.Sprintf("<@%s> has %d onboarding checklists. Which one would you like to see?", employeeID, len(lists))),
	}
	for _, cl := range lists {
		p := cl.Progress()
		text := fmt.Sprintf("*%s*\n%d/%d tasks (%d%%) · created %s",
			cl.Role, p.Completed, p.Total, p.Percent(), cl.CreatedAt.Format(dateLayout))
		btn := slack.NewButtonBlockElement(ActionViewEmployee+cl.ID, cl.ID,
			plain("View "+cl.Role, MaxButtonText))
		blocks = append(blocks, slack.NewSectionBlock(mrkdwn(text), nil, slack.NewAccessory(btn)))
	}
	return blocks
}
