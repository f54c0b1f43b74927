package slackbot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/slack-go/slack"

	"github.com/steveyegge/onboardbuddy/internal/blockkit"
	"github.com/steveyegge/onboardbuddy/internal/checklist"
	"github.com/steveyegge/onboardbuddy/internal/logging"
	"github.com/steveyegge/onboardbuddy/internal/pulse"
	"github.com/steveyegge/onboardbuddy/internal/webhook"
)

// Slash commands.
const (
	CmdAsk             = "/askbuddy"
	CmdCreateChecklist = "/create-checklist"
	CmdCheckProgress   = "/check-progress"
	CmdRAIDashboard    = "/rai-dashboard"
	CmdPulse           = "/pulse"
	CmdEnroll          = "/enroll"
	CmdInsights        = "/insights"
	CmdDemo            = "/demo"
)

const (
	unknownCommandText = "I don't recognize that command. Try /askbuddy, /create-checklist, /check-progress, /rai-dashboard, /pulse, /enroll, /insights or /demo."
	notManagerText     = "Sorry, only managers can %s. To be recognized as a manager, please update your Slack profile title to include terms like 'manager', 'director', or 'lead'."
	createUsageText    = "Please specify who this checklist is for using the format: `/create-checklist [role] for @username`"
	progressUsageText  = "Please specify a user: `/check-progress @username`"
	userNotFoundText   = "I couldn't find user @%s. Please verify the username and try again."
	commandErrorText   = "Sorry, I encountered an error processing your command."
	askUsageText       = "Please include a question, for example `/askbuddy Where do I find the holiday calendar?`"
)

// Command acknowledges a slash command and returns the work to run after
// the acknowledgement is written.
func (b *Bot) Command(cmd slack.SlashCommand) (webhook.CommandResponse, webhook.Job) {
	count(context.Background(), slackMetrics.commands, "command", cmd.Command)
	b.logger.Debug("slash command", "command", cmd.Command, "user", cmd.UserID, "channel", cmd.ChannelID)

	inChannel := func(text string) webhook.CommandResponse {
		return webhook.CommandResponse{ResponseType: slack.ResponseTypeInChannel, Text: text}
	}

	switch cmd.Command {
	case CmdAsk:
		return inChannel(fmt.Sprintf("I'm looking up the answer to your question, <@%s>. This might take a moment...", cmd.UserID)),
			b.commandJob(cmd, b.handleAsk)
	case CmdCreateChecklist:
		return inChannel("Creating your checklist..."),
			b.commandJob(cmd, b.handleCreateChecklist)
	case CmdCheckProgress:
		return inChannel("Checking progress..."),
			b.commandJob(cmd, b.handleCheckProgress)
	case CmdRAIDashboard:
		return inChannel("Generating Responsible AI dashboard..."),
			b.commandJob(cmd, b.handleRAIDashboard)
	case CmdPulse:
		return webhook.Ephemeral("Sending a well-being pulse..."),
			b.commandJob(cmd, b.handlePulse)
	case CmdEnroll:
		return webhook.Ephemeral("Setting up your well-being check-ins..."),
			b.commandJob(cmd, b.handleEnroll)
	case CmdInsights:
		return inChannel("Gathering team well-being insights..."),
			b.commandJob(cmd, b.handleInsights)
	case CmdDemo:
		return inChannel("Starting the well-being demo..."),
			b.commandJob(cmd, b.handleDemo)
	}
	return webhook.Ephemeral(unknownCommandText), nil
}

// commandJob runs handle for cmd. A panic is logged and the invoking channel
// still gets a reply.
func (b *Bot) commandJob(cmd slack.SlashCommand, handle func(context.Context, slack.SlashCommand)) webhook.Job {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("command panicked", "command", cmd.Command, "user", cmd.UserID,
					"panic", r, "stack", string(debug.Stack()))
				b.reply(ctx, cmd.ChannelID, commandErrorText)
			}
		}()
		handle(ctx, cmd)
	}
}

// requireManager reports whether cmd's user may perform action, telling them
// why not when they may not.
func (b *Bot) requireManager(ctx context.Context, cmd slack.SlashCommand, action string) bool {
	if b.isManager(ctx, cmd.UserID) {
		return true
	}
	b.logger.Info("manager command refused", "command", cmd.Command, "user", cmd.UserID)
	b.reply(ctx, cmd.ChannelID, fmt.Sprintf(notManagerText, action))
	return false
}

func isManagerSelfCheck(text string) bool {
	q := strings.ToLower(strings.Trim(strings.TrimSpace(text), "?!. "))
	return q == "am i a manager" || q == "check if i am a manager" || q == "am i manager"
}

func (b *Bot) handleAsk(ctx context.Context, cmd slack.SlashCommand) {
	question := strings.TrimSpace(cmd.Text)
	if question == "" {
		b.reply(ctx, cmd.ChannelID, askUsageText)
		return
	}
	if isManagerSelfCheck(question) {
		b.answerManagerSelfCheck(ctx, cmd)
		return
	}

	ans := b.llm.Ask(ctx, question)
	if ans.Err != nil {
		b.reply(ctx, cmd.ChannelID, ans.Text)
		return
	}
	b.tracker.Record(ans.Metrics)

	if !b.isManager(ctx, cmd.UserID) {
		b.reply(ctx, cmd.ChannelID, ans.Text)
		return
	}
	if _, err := b.gateway.SendMessageWithBlocks(ctx, cmd.ChannelID, ans.Text, blockkit.RenderAnswer(ans.Text, ans.Metrics)); err != nil {
		b.logger.Error("send answer", "channel", cmd.ChannelID, "question", logging.Truncate(question, 50), "error", err)
	}
}

func (b *Bot) answerManagerSelfCheck(ctx context.Context, cmd slack.SlashCommand) {
	if b.isManager(ctx, cmd.UserID) {
		b.reply(ctx, cmd.ChannelID, "✅ Yes, you're recognized as a manager. You can use `/create-checklist`, `/check-progress` and `/rai-dashboard`.")
		return
	}
	title, err := b.gateway.UserTitle(ctx, cmd.UserID)
	if err != nil {
		b.logger.Warn("lookup title", "user", cmd.UserID, "error", err)
	}
	if title == "" {
		title = "(not set)"
	}
	b.reply(ctx, cmd.ChannelID, fmt.Sprintf(
		"❌ You're not currently recognized as a manager. Your profile title is: %s\n\nTo be recognized as a manager, update your Slack profile title to include terms like 'manager', 'director', or 'lead'.", title))
}

func (b *Bot) handleCreateChecklist(ctx context.Context, cmd slack.SlashCommand) {
	if !b.requireManager(ctx, cmd, "create onboarding checklists") {
		return
	}
	spec := checklist.ParseRoleSpec(cmd.Text)
	role := checklist.NormalizeRole(spec.Role)
	if !spec.HasTarget() || role == "" {
		b.reply(ctx, cmd.ChannelID, createUsageText)
		return
	}

	user, err := b.gateway.GetUserProfile(ctx, spec.Target)
	if err != nil {
		b.logger.Info("checklist target not found", "target", spec.Target, "error", err)
		b.reply(ctx, cmd.ChannelID, fmt.Sprintf(userNotFoundText, strings.TrimPrefix(spec.Target, "@")))
		return
	}

	ans := b.llm.Ask(ctx, checklist.GenerationQuery(role))
	if ans.Err != nil {
		b.reply(ctx, cmd.ChannelID, "Sorry, I couldn't generate the checklist right now. Please try again in a few minutes.")
		return
	}
	items := checklist.ParseItems(ans.Text)
	if len(items) == 0 {
		b.logger.Warn("generated checklist had no items", "role", role, "answer", logging.Truncate(ans.Text, 50))
		b.reply(ctx, cmd.ChannelID, "Sorry, I couldn't find any checklist items for that role. Please try again.")
		return
	}

	id, err := b.store.Create(ctx, user.ID, cmd.UserID, role, items)
	if err != nil {
		b.logger.Error("create checklist", "employee", user.ID, "error", err)
		b.reply(ctx, cmd.ChannelID, commandErrorText)
		return
	}
	cl, err := b.store.GetByID(ctx, id)
	if err != nil {
		b.logger.Error("reload checklist", "checklist", id, "error", err)
		b.reply(ctx, cmd.ChannelID, commandErrorText)
		return
	}
	b.logger.Info("checklist created", "checklist", id, "employee", user.ID, "manager", cmd.UserID, "role", role, "items", len(items))

	dm, err := b.gateway.OpenDirectMessageChannel(ctx, user.ID)
	if err == nil {
		_, err = b.gateway.SendBatches(ctx, dm, "Your onboarding checklist: "+role, blockkit.RenderChecklist(cl))
	}
	if err != nil {
		b.logger.Error("deliver checklist", "checklist", id, "employee", user.ID, "error", err)
		b.reply(ctx, cmd.ChannelID, fmt.Sprintf("The checklist was saved but I couldn't message <@%s>. Please check that I can send them direct messages.", user.ID))
		return
	}

	b.reply(ctx, cmd.ChannelID, fmt.Sprintf(
		"✅ Onboarding checklist for %s has been sent to <@%s>\nYou can check their progress anytime with `/check-progress @%s`",
		role, user.ID, user.Name))
}

func (b *Bot) handleCheckProgress(ctx context.Context, cmd slack.SlashCommand) {
	if !b.requireManager(ctx, cmd, "check onboarding progress") {
		return
	}
	target := strings.TrimSpace(cmd.Text)
	if target == "" {
		b.reply(ctx, cmd.ChannelID, progressUsageText)
		return
	}
	user, err := b.gateway.GetUserProfile(ctx, target)
	if err != nil {
		b.logger.Info("progress target not found", "target", target, "error", err)
		b.reply(ctx, cmd.ChannelID, fmt.Sprintf(userNotFoundText, strings.TrimPrefix(target, "@")))
		return
	}

	lists, err := b.store.FindByEmployeeAndManager(ctx, user.ID, cmd.UserID)
	if err != nil {
		b.logger.Error("find checklists", "employee", user.ID, "error", err)
		b.reply(ctx, cmd.ChannelID, commandErrorText)
		return
	}
	switch len(lists) {
	case 0:
		b.reply(ctx, cmd.ChannelID, fmt.Sprintf("No onboarding checklists found for <@%s>", user.ID))
	case 1:
		b.sendProgress(ctx, cmd.ChannelID, lists[0].ID)
	default:
		if _, err := b.gateway.SendMessageWithBlocks(ctx, cmd.ChannelID, "Choose a checklist", blockkit.RenderChooser(user.ID, lists)); err != nil {
			b.logger.Error("send chooser", "channel", cmd.ChannelID, "error", err)
		}
	}
}

func (b *Bot) sendProgress(ctx context.Context, channelID, checklistID string) {
	cl, err := b.store.GetByID(ctx, checklistID)
	if err != nil {
		b.logger.Error("load checklist", "checklist", checklistID, "error", err)
		b.reply(ctx, channelID, "Sorry, I couldn't load that checklist.")
		return
	}
	batches := blockkit.Batch(blockkit.RenderProgress(cl), blockkit.MaxBlocksPerBatch)
	fallback := fmt.Sprintf("Onboarding progress: %s (%d%%)", cl.Role, cl.Progress().Percent())
	if _, err := b.gateway.SendBatches(ctx, channelID, fallback, batches); err != nil {
		b.logger.Error("send progress", "checklist", cl.ID, "error", err)
	}
}

func (b *Bot) handleRAIDashboard(ctx context.Context, cmd slack.SlashCommand) {
	if !b.requireManager(ctx, cmd, "access the Responsible AI dashboard") {
		return
	}
	if _, err := b.gateway.SendMessageWithBlocks(ctx, cmd.ChannelID, "Responsible AI dashboard", blockkit.RenderRAIDashboard(b.tracker.Summary())); err != nil {
		b.logger.Error("send rai dashboard", "channel", cmd.ChannelID, "error", err)
	}
}

// SendPulse implements pulse.Sender.
func (b *Bot) SendPulse(ctx context.Context, channelID string, q pulse.Question) error {
	_, err := b.gateway.SendMessageWithBlocks(ctx, channelID, "Quick well-being pulse: "+q.Text, blockkit.RenderPulse(b.pulses.Bank().Title, q))
	return err
}

func (b *Bot) handlePulse(ctx context.Context, cmd slack.SlashCommand) {
	q, ok := b.pulses.Bank().Get(pulse.DefaultDimension)
	if !ok {
		b.reply(ctx, cmd.ChannelID, commandErrorText)
		return
	}
	if err := b.SendPulse(ctx, cmd.ChannelID, q); err != nil {
		b.logger.Error("send pulse", "channel", cmd.ChannelID, "error", err)
	}
}

func (b *Bot) handleEnroll(ctx context.Context, cmd slack.SlashCommand) {
	spec := strings.TrimSpace(cmd.Text)
	if lower := strings.ToLower(spec); strings.HasPrefix(lower, "at ") {
		spec = strings.TrimSpace(spec[3:])
	}

	channelID, err := b.gateway.OpenDirectMessageChannel(ctx, cmd.UserID)
	if err != nil {
		b.logger.Warn("open pulse DM, using command channel", "user", cmd.UserID, "error", err)
		channelID = cmd.ChannelID
	}
	times, err := b.pulses.Enroll(ctx, cmd.UserID, channelID, spec)
	if err != nil {
		b.logger.Info("enroll failed", "user", cmd.UserID, "spec", spec, "error", err)
		b.reply(ctx, cmd.ChannelID, fmt.Sprintf(
			"I couldn't schedule those check-ins: %v\nTry `/enroll` for two random times, or `/enroll at 10am and 3pm`.", err))
		return
	}
	b.reply(ctx, cmd.ChannelID, fmt.Sprintf(
		"✅ *You're enrolled in well-being pulses!*\n\nYou'll get a short check-in each workday at %s.\n\nType `/insights` anytime to see aggregated team insights.",
		pulse.FormatTimes(times)))
}

func (b *Bot) handleInsights(ctx context.Context, cmd slack.SlashCommand) {
	if err := b.sendInsights(ctx, cmd.ChannelID); err != nil {
		b.logger.Error("send insights", "channel", cmd.ChannelID, "error", err)
		b.reply(ctx, cmd.ChannelID, commandErrorText)
	}
}

func (b *Bot) sendInsights(ctx context.Context, channelID string) error {
	responses, err := b.store.ListPulses(ctx, "")
	if err != nil {
		return fmt.Errorf("list pulses: %w", err)
	}
	in := pulse.Summarize(b.pulses.Bank(), responses, b.now(), pulse.DefaultWindowDays)
	_, err = b.gateway.SendMessageWithBlocks(ctx, channelID, "Team well-being insights", blockkit.RenderInsights(in))
	return err
}

func (b *Bot) handleDemo(ctx context.Context, cmd slack.SlashCommand) {
	for i, step := range pulse.DemoScript() {
		if err := b.sleep(ctx, step.Pause); err != nil {
			b.logger.Info("demo interrupted", "step", i, "error", err)
			return
		}
		var err error
		switch step.Kind {
		case pulse.StepMessage:
			_, err = b.gateway.SendMessage(ctx, cmd.ChannelID, step.Text)
		case pulse.StepPulse:
			_, err = b.pulses.SendNow(ctx, cmd.ChannelID)
		case pulse.StepInsights:
			err = b.sendInsights(ctx, cmd.ChannelID)
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error("demo step failed", "step", i, "error", err)
		}
	}
}
