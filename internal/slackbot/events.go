package slackbot

import (
	"context"
	"regexp"
	"strings"

	"github.com/slack-go/slack/slackevents"

	"github.com/steveyegge/onboardbuddy/internal/webhook"
)

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+(?:\|[^>]*)?>`)

const helpText = "Hi! I'm Buddy, your onboarding assistant. Ask me anything about working here, or use one of these commands:\n" +
	"• `/askbuddy [question]` to ask a question\n" +
	"• `/create-checklist [role] for @username` to create an onboarding checklist (managers)\n" +
	"• `/check-progress @username` to see checklist progress (managers)\n" +
	"• `/rai-dashboard` for responsible-AI metrics (managers)\n" +
	"• `/pulse`, `/enroll` and `/insights` for well-being check-ins"

// incoming is the part of a message-like event the bot acts on.
type incoming struct {
	user, channel, text string
}

// Event returns the work for an Events API callback, or nil when the event
// is not for the bot.
func (b *Bot) Event(ev slackevents.EventsAPIEvent) webhook.Job {
	if ev.Type != slackevents.CallbackEvent {
		return nil
	}
	var in incoming
	switch e := ev.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		if e.BotID != "" {
			return nil
		}
		in = incoming{user: e.User, channel: e.Channel, text: e.Text}
	case *slackevents.MessageEvent:
		if e.SubType != "" || e.BotID != "" || e.ChannelType != "im" {
			return nil
		}
		in = incoming{user: e.User, channel: e.Channel, text: e.Text}
	default:
		return nil
	}
	if in.user == "" || in.user == b.botUserID || strings.HasPrefix(strings.TrimSpace(in.text), "/") {
		return nil
	}
	count(context.Background(), slackMetrics.events, "type", ev.InnerEvent.Type)
	return func(ctx context.Context) { b.handleQuestion(ctx, in) }
}

func (b *Bot) handleQuestion(ctx context.Context, in incoming) {
	question := strings.TrimSpace(mentionPattern.ReplaceAllString(in.text, ""))
	if question == "" {
		b.reply(ctx, in.channel, helpText)
		return
	}
	ans := b.llm.Ask(ctx, question)
	if ans.Err == nil {
		b.tracker.Record(ans.Metrics)
	}
	b.reply(ctx, in.channel, ans.Text)
}
