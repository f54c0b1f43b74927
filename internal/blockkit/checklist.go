package blockkit

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/steveyegge/onboardbuddy/internal/types"
)

// WelcomeText introduces a freshly assigned checklist.
func WelcomeText(managerID string) string {
	return fmt.Sprintf("Welcome to your onboarding journey! Your manager <@%s> has created this checklist to help you get started. Check off items as you complete them.", managerID)
}

// ToggleActionID is the action id of an item's checkbox.
func ToggleActionID(itemID string) string {
	if len(itemID) > ActionIDItemChars {
		itemID = itemID[:ActionIDItemChars]
	}
	return ActionToggle + itemID
}

// ItemBlock renders one item with a checkbox whose option value is the full
// item ID. A completed item starts with the option selected.
func ItemBlock(it *types.ChecklistItem) *slack.SectionBlock {
	opt := slack.NewOptionBlockObject(it.ID, plain("Complete", MaxOptionText), nil)
	box := slack.NewCheckboxGroupsBlockElement(ToggleActionID(it.ID), opt)
	if it.Completed {
		box.InitialOptions = []*slack.OptionBlockObject{opt}
	}
	text := it.Text
	if it.Completed {
		text = "~" + text + "~"
	}
	return slack.NewSectionBlock(mrkdwn(text), nil, slack.NewAccessory(box),
		slack.SectionBlockOptionBlockID("item:"+it.ID))
}

// ViewProgressBlock is the trailing button that opens the progress summary.
func ViewProgressBlock(checklistID string) *slack.ActionBlock {
	btn := slack.NewButtonBlockElement(ActionViewProgress+checklistID, checklistID,
		plain("View Progress Summary", MaxButtonText))
	btn.Style = slack.StylePrimary
	return slack.NewActionBlock("progress:"+checklistID, btn)
}

// RenderChecklist renders the interactive checklist as one or more messages.
//
// No batch holds more than MaxBlocksPerBatch blocks. The header and welcome
// always travel with the first category, a category header always travels
// with its first item, and the view-progress button joins the last batch when
// there is room for it, otherwise it is sent alone.
func RenderChecklist(cl *types.Checklist) [][]slack.Block {
	// Build indivisible units, then pack them greedily.
	var units [][]slack.Block
	lead := []slack.Block{
		Header("Onboarding Checklist: " + cl.Role),
		Section(WelcomeText(cl.ManagerID)),
	}

	for i, group := range cl.Categories() {
		p := types.ProgressOf(group.Items)
		head := Section(fmt.Sprintf("*%s* (%d/%d)", group.Name, p.Completed, p.Total))

		first := []slack.Block{}
		if i == 0 {
			first = append(first, lead...)
		} else {
			first = append(first, slack.NewDividerBlock())
		}
		first = append(first, head, ItemBlock(group.Items[0]))
		units = append(units, first)

		for _, it := range group.Items[1:] {
			units = append(units, []slack.Block{ItemBlock(it)})
		}
	}
	if len(units) == 0 {
		units = append(units, append(lead, Section("_This checklist has no items yet._")))
	}

	var batches [][]slack.Block
	var current []slack.Block
	for _, u := range units {
		if len(current)+len(u) > MaxBlocksPerBatch {
			batches = append(batches, current)
			current = nil
		}
		current = append(current, u...)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	action := ViewProgressBlock(cl.ID)
	last := len(batches) - 1
	if len(batches[last]) < MaxBlocksPerBatch {
		batches[last] = append(batches[last], action)
	} else {
		batches = append(batches, []slack.Block{action})
	}
	return batches
}
