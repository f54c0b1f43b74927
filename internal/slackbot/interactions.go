package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/steveyegge/onboardbuddy/internal/blockkit"
	"github.com/steveyegge/onboardbuddy/internal/checklist"
	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/types"
	"github.com/steveyegge/onboardbuddy/internal/webhook"
)

const itemBlockPrefix = "item:"

// Interaction returns the work for a block_actions callback. Other
// interaction types are ignored.
func (b *Bot) Interaction(cb slack.InteractionCallback) webhook.Job {
	if cb.Type != slack.InteractionTypeBlockActions {
		b.logger.Debug("ignoring interaction", "type", cb.Type)
		return nil
	}
	actions := cb.ActionCallback.BlockActions
	if len(actions) == 0 {
		return nil
	}
	return func(ctx context.Context) {
		for _, action := range actions {
			b.handleAction(ctx, cb, action)
		}
	}
}

func (b *Bot) handleAction(ctx context.Context, cb slack.InteractionCallback, action *slack.BlockAction) {
	id := action.ActionID
	switch {
	case strings.HasPrefix(id, blockkit.ActionToggle):
		count(ctx, slackMetrics.interactions, "action", "toggle")
		b.handleToggle(ctx, cb, action)
	case strings.HasPrefix(id, blockkit.ActionViewProgress):
		count(ctx, slackMetrics.interactions, "action", "view_progress")
		b.handleViewProgress(ctx, cb, action)
	case strings.HasPrefix(id, blockkit.ActionViewEmployee):
		count(ctx, slackMetrics.interactions, "action", "view_employee")
		b.handleViewEmployee(ctx, cb, action)
	default:
		if q, level, ok := b.pulses.Bank().ParseAction(id); ok {
			count(ctx, slackMetrics.interactions, "action", "pulse")
			b.handlePulseAnswer(ctx, cb, q.Dimension, level)
			return
		}
		count(ctx, slackMetrics.interactions, "action", "unrecognized")
		b.logger.Warn("unrecognized action", "action_id", id, "user", cb.User.ID)
	}
}

func interactionChannel(cb slack.InteractionCallback) string {
	if cb.Container.ChannelID != "" {
		return cb.Container.ChannelID
	}
	return cb.Channel.ID
}

func interactionMessageTS(cb slack.InteractionCallback) string {
	if cb.Container.MessageTs != "" {
		return cb.Container.MessageTs
	}
	return cb.Message.Timestamp
}

// toggleTarget resolves the item an action refers to: the full ID from the
// checkbox option or its block, then the button value, then the truncated
// action id prefix.
func (b *Bot) toggleTarget(ctx context.Context, action *slack.BlockAction) (*types.Checklist, *types.ChecklistItem, error) {
	var candidates []string
	for _, opt := range action.SelectedOptions {
		candidates = append(candidates, opt.Value)
	}
	if rest, ok := strings.CutPrefix(action.BlockID, itemBlockPrefix); ok {
		candidates = append(candidates, rest)
	}
	candidates = append(candidates, action.Value)

	for _, id := range candidates {
		if id == "" {
			continue
		}
		cl, it, err := b.store.ResolveItem(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if it != nil {
			return cl, it, nil
		}
	}

	// Legacy controls only carried a truncated ID in the action id.
	prefix := strings.TrimPrefix(action.ActionID, blockkit.ActionToggle)
	if prefix == "" {
		return nil, nil, storage.ErrNotFound
	}
	cl, it, err := b.store.ResolveItemByIDPrefix(ctx, prefix)
	if err != nil {
		return nil, nil, err
	}
	if it == nil {
		return nil, nil, storage.ErrNotFound
	}
	return cl, it, nil
}

func (b *Bot) handleToggle(ctx context.Context, cb slack.InteractionCallback, action *slack.BlockAction) {
	userID := cb.User.ID
	channelID := interactionChannel(cb)

	found, it, err := b.toggleTarget(ctx, action)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Error("resolve checklist item", "action_id", action.ActionID, "error", err)
		}
		b.ephemeral(ctx, channelID, userID, "Sorry, I couldn't find that checklist item. It may have been removed.")
		return
	}
	if userID != found.EmployeeID && userID != found.ManagerID {
		b.ephemeral(ctx, channelID, userID, "Sorry, only the employee and their manager can update this checklist.")
		return
	}

	unlock := b.lockChecklist(found.ID)
	before, err := b.store.GetByID(ctx, found.ID)
	if err != nil {
		unlock()
		b.logger.Error("load checklist", "checklist", found.ID, "error", err)
		b.ephemeral(ctx, channelID, userID, "Sorry, I couldn't update that item. Please try again.")
		return
	}
	wasCompleted := before.Item(it.ID) != nil && before.Item(it.ID).Completed

	var ok, completed bool
	if action.Type == slack.ActionType(slack.METCheckboxGroups) {
		completed = len(action.SelectedOptions) > 0
		ok, err = b.store.SetItemCompletion(ctx, found.ID, it.ID, completed)
	} else {
		ok, completed, err = b.store.ToggleItem(ctx, found.ID, it.ID)
	}
	var after *types.Checklist
	if err == nil && ok {
		after, err = b.store.GetByID(ctx, found.ID)
	}
	unlock()

	if err != nil || !ok {
		b.logger.Error("update checklist item", "checklist", found.ID, "item", it.ID, "found", ok, "error", err)
		b.ephemeral(ctx, channelID, userID, "Sorry, I couldn't update that item. Please try again.")
		return
	}
	item := after.Item(it.ID)
	b.logger.Info("checklist item updated", "checklist", after.ID, "item", it.ID, "completed", completed, "by", userID)

	// 1. Confirm to the user.
	verb := "complete"
	if !completed {
		verb = "not complete"
	}
	b.ephemeral(ctx, channelID, userID, fmt.Sprintf("Marked \"%s\" as %s. Progress: %s",
		blockkit.Truncate(item.Text, 200), verb, checklist.ProgressBar(after.Progress().Percent())))

	// 2. Notify the manager.
	if completed && !wasCompleted && after.ManagerID != "" {
		if err := b.dm(ctx, after.ManagerID, blockkit.TaskCompletedText(after, item)); err != nil {
			b.logger.Warn("task completion DM", "manager", after.ManagerID, "error", err)
		}
	}
	tr := checklist.Transition{Before: before.Progress(), After: after.Progress()}
	for _, m := range tr.Milestones() {
		if err := b.dm(ctx, after.ManagerID, blockkit.MilestoneText(after, m)); err != nil {
			b.logger.Warn("milestone DM", "manager", after.ManagerID, "milestone", m, "error", err)
			continue
		}
		b.logger.Info("milestone reached", "checklist", after.ID, "milestone", m)
	}

	// 3. Refresh the message the click came from.
	b.refreshChecklistMessage(ctx, cb, after, it.ID)
}

// refreshChecklistMessage re-renders the batch holding itemID in place.
func (b *Bot) refreshChecklistMessage(ctx context.Context, cb slack.InteractionCallback, cl *types.Checklist, itemID string) {
	channelID, ts := interactionChannel(cb), interactionMessageTS(cb)
	if channelID == "" || ts == "" {
		return
	}
	batch := batchWithBlock(blockkit.RenderChecklist(cl), itemBlockPrefix+itemID)
	if batch == nil {
		return
	}
	fallback := fmt.Sprintf("Onboarding checklist: %s (%d%%)", cl.Role, cl.Progress().Percent())
	if err := b.gateway.UpdateMessage(ctx, channelID, ts, fallback, batch); err != nil {
		b.logger.Warn("refresh checklist message", "checklist", cl.ID, "error", err)
	}
}

func batchWithBlock(batches [][]slack.Block, blockID string) []slack.Block {
	for _, batch := range batches {
		for _, blk := range batch {
			if blk.ID() == blockID {
				return batch
			}
		}
	}
	return nil
}

// resolveChecklist finds the checklist a progress button refers to, falling
// back to the requester's newest checklist.
func (b *Bot) resolveChecklist(ctx context.Context, value, prefix, requesterID string) (*types.Checklist, error) {
	if value != "" {
		cl, err := b.store.GetByID(ctx, value)
		if err == nil {
			return cl, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}
	if prefix != "" {
		all, err := b.store.FindByEmployeeAndManager(ctx, "", "")
		if err != nil {
			return nil, err
		}
		for _, cl := range all {
			if strings.HasPrefix(cl.ID, prefix) {
				return cl, nil
			}
		}
	}
	own, err := b.store.FindByEmployeeAndManager(ctx, requesterID, "")
	if err != nil {
		return nil, err
	}
	if len(own) == 0 {
		return nil, storage.ErrNotFound
	}
	return own[len(own)-1], nil
}

func (b *Bot) handleViewProgress(ctx context.Context, cb slack.InteractionCallback, action *slack.BlockAction) {
	userID, channelID := cb.User.ID, interactionChannel(cb)
	prefix := strings.TrimPrefix(action.ActionID, blockkit.ActionViewProgress)

	cl, err := b.resolveChecklist(ctx, action.Value, prefix, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Error("resolve checklist", "action_id", action.ActionID, "error", err)
		}
		b.ephemeral(ctx, channelID, userID, "Sorry, I couldn't find that checklist.")
		return
	}
	if userID != cl.EmployeeID && userID != cl.ManagerID {
		b.ephemeral(ctx, channelID, userID, "Sorry, you can only view progress for your own checklists or those of your direct reports.")
		return
	}
	b.sendProgress(ctx, channelID, cl.ID)
}

func (b *Bot) handleViewEmployee(ctx context.Context, cb slack.InteractionCallback, action *slack.BlockAction) {
	userID, channelID := cb.User.ID, interactionChannel(cb)
	id := action.Value
	if id == "" {
		id = strings.TrimPrefix(action.ActionID, blockkit.ActionViewEmployee)
	}
	cl, err := b.store.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Error("load checklist", "checklist", id, "error", err)
		}
		b.ephemeral(ctx, channelID, userID, "Sorry, I couldn't find that checklist.")
		return
	}
	if userID != cl.ManagerID {
		b.ephemeral(ctx, channelID, userID, "Sorry, only the manager who created this checklist can view it here.")
		return
	}
	b.sendProgress(ctx, channelID, cl.ID)
}

func (b *Bot) handlePulseAnswer(ctx context.Context, cb slack.InteractionCallback, dimension string, level types.PulseLevel) {
	userID, channelID := cb.User.ID, interactionChannel(cb)
	err := b.store.RecordPulse(ctx, types.PulseResponse{
		UserID:     userID,
		Dimension:  dimension,
		Level:      level,
		RecordedAt: b.now(),
	})
	if err != nil {
		b.logger.Error("record pulse", "user", userID, "dimension", dimension, "error", err)
		b.ephemeral(ctx, channelID, userID, "Sorry, I couldn't record your response. Please try again.")
		return
	}
	b.logger.Info("pulse recorded", "user", userID, "dimension", dimension, "level", level)

	q, _ := b.pulses.Bank().Get(dimension)
	thanks := blockkit.PulseThanksText(q, level)
	if ts := interactionMessageTS(cb); ts != "" && channelID != "" {
		err := b.gateway.UpdateMessage(ctx, channelID, ts, thanks, []slack.Block{blockkit.Section(thanks)})
		if err == nil {
			return
		}
		b.logger.Warn("replace pulse message", "error", err)
	}
	b.ephemeral(ctx, channelID, userID, thanks)
}

func (b *Bot) ephemeral(ctx context.Context, channelID, userID, text string) {
	if channelID == "" {
		if err := b.dm(ctx, userID, text); err != nil {
			b.logger.Error("send DM", "user", userID, "error", err)
		}
		return
	}
	if err := b.gateway.SendEphemeral(ctx, channelID, userID, text); err != nil {
		b.logger.Error("send ephemeral", "channel", channelID, "user", userID, "error", err)
	}
}
