package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/onboardbuddy/internal/blockkit"
	"github.com/steveyegge/onboardbuddy/internal/llm"
	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

const generatedChecklist = `Before your first day:
- Sign the offer letter
- Set up your laptop
First week:
- Meet your team
- Read the engineering handbook`

func (h *harness) seedChecklist(t *testing.T, n, completed int) *types.Checklist {
	t.Helper()
	ctx := context.Background()
	items := make([]storage.NewItem, n)
	for i := range items {
		items[i] = storage.NewItem{Text: fmt.Sprintf("Task %d", i+1), Category: "Week 1"}
	}
	id, err := h.store.Create(ctx, "U123", "UMGR", "software-engineer", items)
	require.NoError(t, err)
	cl, err := h.store.GetByID(ctx, id)
	require.NoError(t, err)
	for _, it := range cl.Items[:completed] {
		ok, err := h.store.SetItemCompletion(ctx, id, it.ID, true)
		require.NoError(t, err)
		require.True(t, ok)
	}
	cl, err = h.store.GetByID(ctx, id)
	require.NoError(t, err)
	return cl
}

func checkboxAction(it *types.ChecklistItem, checked bool) *slack.BlockAction {
	a := &slack.BlockAction{
		ActionID: blockkit.ToggleActionID(it.ID),
		BlockID:  itemBlockPrefix + it.ID,
		Type:     slack.ActionType(slack.METCheckboxGroups),
	}
	if checked {
		a.SelectedOptions = []slack.OptionBlockObject{{Value: it.ID}}
	}
	return a
}

func TestCreateChecklistByManager(t *testing.T) {
	h := newHarness(t)
	h.model.answer = generatedChecklist

	ack := h.run(t, CmdCreateChecklist, "UMGR", "software-engineer for <@U123|alice>")
	assert.Equal(t, "Creating your checklist...", ack)

	lists, err := h.store.FindByEmployeeAndManager(context.Background(), "U123", "UMGR")
	require.NoError(t, err)
	require.Len(t, lists, 1)
	cl := lists[0]
	assert.Equal(t, "software-engineer", cl.Role)
	require.Len(t, cl.Items, 4)
	assert.Equal(t, "Before your first day", cl.Items[0].Category)
	assert.Equal(t, "Read the engineering handbook", cl.Items[3].Text)

	require.Equal(t, 1, h.model.calls())
	assert.Contains(t, h.model.prompts[0], "software-engineer")

	dms := h.api.messagesTo("DU123")
	require.NotEmpty(t, dms)
	assert.Contains(t, dms[0].Blocks, "checkboxes")
	assert.Contains(t, dms[0].Blocks, cl.Items[0].ID)

	assert.Equal(t, 1, h.api.countContaining("CUMGR",
		"✅ Onboarding checklist for software-engineer has been sent to <@U123>"))
}

func TestCreateChecklistByHandle(t *testing.T) {
	h := newHarness(t)
	h.model.answer = generatedChecklist

	h.run(t, CmdCreateChecklist, "UMGR", "Product Manager for @alice")

	lists, err := h.store.FindByEmployeeAndManager(context.Background(), "U123", "UMGR")
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "product-manager", lists[0].Role)
}

func TestCreateChecklistRejectsNonManager(t *testing.T) {
	h := newHarness(t)
	h.model.answer = generatedChecklist

	h.run(t, CmdCreateChecklist, "UENG", "software-engineer for <@U123>")

	lists, err := h.store.FindByEmployeeAndManager(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, lists)
	assert.Zero(t, h.model.calls())
	assert.Equal(t, 1, h.api.countContaining("CUENG", "only managers can create onboarding checklists"))
	assert.Empty(t, h.api.messagesTo("DU123"))
}

func TestCreateChecklistUsageAndUnknownUser(t *testing.T) {
	h := newHarness(t)

	h.run(t, CmdCreateChecklist, "UMGR", "software-engineer")
	assert.Equal(t, 1, h.api.countContaining("CUMGR", "/create-checklist [role] for @username"))

	h.run(t, CmdCreateChecklist, "UMGR", "designer for @nobody")
	assert.Equal(t, 1, h.api.countContaining("CUMGR", "I couldn't find user @nobody"))
	assert.Zero(t, h.model.calls())
}

func TestCreateChecklistModelFailure(t *testing.T) {
	h := newHarness(t)
	h.model.err = errors.New("boom")

	h.run(t, CmdCreateChecklist, "UMGR", "designer for <@U123>")

	lists, _ := h.store.FindByEmployeeAndManager(context.Background(), "", "")
	assert.Empty(t, lists)
	assert.Equal(t, 1, h.api.countContaining("CUMGR", "couldn't generate the checklist"))
}

func TestToggleFinalItemFiresOneMilestone(t *testing.T) {
	h := newHarness(t)
	cl := h.seedChecklist(t, 4, 3)
	require.Equal(t, 75, cl.Progress().Percent())
	last := cl.Items[3]

	h.interact(t, blockAction("U123", "DU123", checkboxAction(last, true)))

	got, err := h.store.GetByID(context.Background(), cl.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress().Percent())
	assert.NotNil(t, got.Item(last.ID).CompletedAt)

	assert.Equal(t, 1, h.api.countContaining("DUMGR", "🎉"))
	assert.Zero(t, h.api.countContaining("DUMGR", "🎯"))
	assert.Equal(t, 1, h.api.countContaining("DUMGR", `has completed the task "Task 4"`))
	assert.Contains(t, h.api.ephemeralTexts(), `Marked "Task 4" as complete. Progress: ██████████ 100%`)

	require.Len(t, h.api.UpdatedMessages, 1)
	assert.Equal(t, "1234567890.000042", h.api.UpdatedMessages[0].Timestamp)
	assert.Contains(t, h.api.UpdatedMessages[0].Blocks, last.ID)

	// Slack redelivering the same click must not notify again.
	before := len(h.api.messagesTo("DUMGR"))
	h.interact(t, blockAction("U123", "DU123", checkboxAction(last, true)))
	assert.Len(t, h.api.messagesTo("DUMGR"), before)
}

func TestToggleSkippingThresholdsReportsEach(t *testing.T) {
	h := newHarness(t)
	cl := h.seedChecklist(t, 2, 0)

	h.interact(t, blockAction("U123", "DU123", checkboxAction(cl.Items[0], true)))
	assert.Equal(t, 2, h.api.countContaining("DUMGR", "🎯"), "0%→50% crosses 25 and 50")
}

func TestUncheckThenRecheckNotifiesAgain(t *testing.T) {
	h := newHarness(t)
	cl := h.seedChecklist(t, 2, 2)
	it := cl.Items[1]

	h.interact(t, blockAction("U123", "DU123", checkboxAction(it, false)))
	assert.Empty(t, h.api.messagesTo("DUMGR"))
	assert.Contains(t, h.api.ephemeralTexts(), `Marked "Task 2" as not complete. Progress: █████░░░░░ 50%`)

	h.interact(t, blockAction("U123", "DU123", checkboxAction(it, true)))
	assert.Equal(t, 1, h.api.countContaining("DUMGR", "🎉"))
}

func TestToggleButtonFlipsState(t *testing.T) {
	h := newHarness(t)
	cl := h.seedChecklist(t, 4, 0)
	it := cl.Items[0]

	btn := &slack.BlockAction{ActionID: blockkit.ToggleActionID(it.ID), Value: it.ID, Type: slack.ActionType(slack.METButton)}
	h.interact(t, blockAction("UMGR", "CUMGR", btn))

	got, err := h.store.GetByID(context.Background(), cl.ID)
	require.NoError(t, err)
	assert.True(t, got.Item(it.ID).Completed)
	assert.Equal(t, 1, h.api.countContaining("DUMGR", "🎯"))
}

func TestToggleRefusesStranger(t *testing.T) {
	h := newHarness(t)
	cl := h.seedChecklist(t, 2, 0)

	h.interact(t, blockAction("UENG", "CUENG", checkboxAction(cl.Items[0], true)))

	got, err := h.store.GetByID(context.Background(), cl.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Progress().Completed)
	assert.Contains(t, h.api.ephemeralTexts(), "Sorry, only the employee and their manager can update this checklist.")
}

func TestToggleUnknownItem(t *testing.T) {
	h := newHarness(t)
	h.seedChecklist(t, 1, 0)

	a := &slack.BlockAction{ActionID: blockkit.ActionToggle + "nope", Type: slack.ActionType(slack.METButton), Value: "nope"}
	h.interact(t, blockAction("U123", "DU123", a))
	assert.Contains(t, h.api.ephemeralTexts()[0], "couldn't find that checklist item")
}

// Every checkbox rendered for a large checklist must lead back to its own
// item, even though action ids only carry a truncated ID.
func TestRenderedControlsResolveToTheirItem(t *testing.T) {
	h := newHarness(t)
	cl := h.seedChecklist(t, 210, 0)
	ctx := context.Background()

	seen := 0
	for _, batch := range blockkit.RenderChecklist(cl) {
		require.LessOrEqual(t, len(batch), blockkit.MaxBlocksPerBatch)
		for _, blk := range batch {
			sec, ok := blk.(*slack.SectionBlock)
			if !ok || sec.Accessory == nil || sec.Accessory.CheckboxGroupsBlockElement == nil {
				continue
			}
			box := sec.Accessory.CheckboxGroupsBlockElement
			require.Len(t, box.Options, 1)
			want := box.Options[0].Value

			a := &slack.BlockAction{
				ActionID:        box.ActionID,
				BlockID:         sec.BlockID,
				Type:            slack.ActionType(slack.METCheckboxGroups),
				SelectedOptions: []slack.OptionBlockObject{*box.Options[0]},
			}
			gotCl, gotIt, err := h.bot.toggleTarget(ctx, a)
			require.NoError(t, err)
			assert.Equal(t, cl.ID, gotCl.ID)
			assert.Equal(t, want, gotIt.ID)

			// Unchecking sends no options; the block ID still identifies the item.
			a.SelectedOptions = nil
			_, gotIt, err = h.bot.toggleTarget(ctx, a)
			require.NoError(t, err)
			assert.Equal(t, want, gotIt.ID)
			seen++
		}
	}
	assert.Equal(t, 210, seen)
}

func TestLegacyActionIDPrefixResolves(t *testing.T) {
	h := newHarness(t)
	cl := h.seedChecklist(t, 3, 0)
	it := cl.Items[2]

	a := &slack.BlockAction{ActionID: blockkit.ToggleActionID(it.ID), Type: slack.ActionType(slack.METButton)}
	_, got, err := h.bot.toggleTarget(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.ID, strings.TrimPrefix(a.ActionID, blockkit.ActionToggle)))
}

// A truncated ID in the value or block is not an exact match; only the legacy
// action id falls back to a prefix scan.
func TestToggleValueRequiresExactID(t *testing.T) {
	h := newHarness(t)
	cl := h.seedChecklist(t, 3, 0)
	short := cl.Items[1].ID[:len(cl.Items[1].ID)-3]

	a := &slack.BlockAction{
		ActionID: blockkit.ActionToggle,
		BlockID:  itemBlockPrefix + short,
		Type:     slack.ActionType(slack.METButton),
		Value:    short,
	}
	_, _, err := h.bot.toggleTarget(context.Background(), a)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	a.Value = cl.Items[1].ID
	_, got, err := h.bot.toggleTarget(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, cl.Items[1].ID, got.ID)
}

func TestViewProgress(t *testing.T) {
	h := newHarness(t)
	cl := h.seedChecklist(t, 4, 1)
	btn := func() *slack.BlockAction {
		return &slack.BlockAction{ActionID: blockkit.ActionViewProgress + cl.ID, Value: cl.ID}
	}

	h.interact(t, blockAction("U123", "DU123", btn()))
	msgs := h.api.messagesTo("DU123")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Blocks, "Onboarding Progress: software-engineer")

	h.interact(t, blockAction("UENG", "CUENG", btn()))
	assert.Empty(t, h.api.messagesTo("CUENG"))
	assert.Contains(t, h.api.ephemeralTexts(), "Sorry, you can only view progress for your own checklists or those of your direct reports.")
}

func TestViewProgressFallsBackToOwnNewest(t *testing.T) {
	h := newHarness(t)
	h.seedChecklist(t, 2, 0)
	newest := h.seedChecklist(t, 3, 3)

	a := &slack.BlockAction{ActionID: blockkit.ActionViewProgress + "missing"}
	h.interact(t, blockAction("U123", "DU123", a))

	msgs := h.api.messagesTo("DU123")
	require.Len(t, msgs, 1)
	assert.Equal(t, fmt.Sprintf("Onboarding progress: %s (100%%)", newest.Role), msgs[0].Text)
}

func TestViewEmployeeRequiresManager(t *testing.T) {
	h := newHarness(t)
	cl := h.seedChecklist(t, 2, 0)
	a := func() *slack.BlockAction {
		return &slack.BlockAction{ActionID: blockkit.ActionViewEmployee + cl.ID, Value: cl.ID}
	}

	h.interact(t, blockAction("U123", "DU123", a()))
	assert.Empty(t, h.api.messagesTo("DU123"))

	h.interact(t, blockAction("UMGR", "CUMGR", a()))
	assert.Len(t, h.api.messagesTo("CUMGR"), 1)
}

func TestCheckProgress(t *testing.T) {
	h := newHarness(t)

	h.run(t, CmdCheckProgress, "UMGR", "")
	assert.Equal(t, 1, h.api.countContaining("CUMGR", "/check-progress @username"))

	h.run(t, CmdCheckProgress, "UMGR", "@alice")
	assert.Equal(t, 1, h.api.countContaining("CUMGR", "No onboarding checklists found for <@U123>"))

	h.seedChecklist(t, 2, 1)
	h.run(t, CmdCheckProgress, "UMGR", "<@U123|alice>")
	assert.Equal(t, 1, h.api.countContaining("CUMGR", "Onboarding progress: software-engineer (50%)"))

	h.seedChecklist(t, 2, 0)
	h.run(t, CmdCheckProgress, "UMGR", "@alice")
	msgs := h.api.messagesTo("CUMGR")
	assert.Contains(t, msgs[len(msgs)-1].Blocks, blockkit.ActionViewEmployee)

	h.run(t, CmdCheckProgress, "UENG", "@alice")
	assert.Equal(t, 1, h.api.countContaining("CUENG", "only managers can check onboarding progress"))
}

func TestAskAddsMetricsForManagers(t *testing.T) {
	h := newHarness(t)

	ack := h.run(t, CmdAsk, "UENG", "Where is the handbook?")
	assert.Contains(t, ack, "I'm looking up the answer to your question, <@UENG>")
	eng := h.api.messagesTo("CUENG")
	require.Len(t, eng, 1)
	assert.Equal(t, "Check the employee handbook on the intranet.", eng[0].Text)
	assert.Empty(t, eng[0].Blocks)

	h.run(t, CmdAsk, "UMGR", "Where is the handbook?")
	mgr := h.api.messagesTo("CUMGR")
	require.Len(t, mgr, 1)
	assert.Contains(t, mgr[0].Blocks, "AI Response Metrics")

	assert.Equal(t, 2, h.bot.Tracker().Summary().Answers)
}

func TestAskModelFailureFallsBack(t *testing.T) {
	h := newHarness(t)
	h.model.err = errors.New("unavailable")

	h.run(t, CmdAsk, "UENG", "What is the wifi password?")
	assert.Equal(t, 1, h.api.countContaining("CUENG", "I'm having trouble connecting to my knowledge base"))
	assert.Zero(t, h.bot.Tracker().Summary().Answers)
}

func TestAskAmIAManager(t *testing.T) {
	h := newHarness(t)

	h.run(t, CmdAsk, "UMGR", "am I a manager?")
	assert.Equal(t, 1, h.api.countContaining("CUMGR", "Yes, you're recognized as a manager"))

	h.run(t, CmdAsk, "UENG", "am i a manager")
	assert.Equal(t, 1, h.api.countContaining("CUENG", "Your profile title is: Engineer"))
	assert.Zero(t, h.model.calls())
}

func TestRAIDashboard(t *testing.T) {
	h := newHarness(t)
	h.run(t, CmdAsk, "UENG", "How do I request time off?")

	h.run(t, CmdRAIDashboard, "UMGR", "")
	msgs := h.api.messagesTo("CUMGR")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Blocks, "Responsible AI Dashboard")
	assert.Contains(t, msgs[0].Blocks, "Total Questions Processed")

	h.run(t, CmdRAIDashboard, "UENG", "")
	assert.Equal(t, 1, h.api.countContaining("CUENG", "only managers can access the Responsible AI dashboard"))
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	resp, job := h.bot.Command(slack.SlashCommand{Command: "/dance", UserID: "UENG"})
	assert.Nil(t, job)
	assert.Equal(t, slack.ResponseTypeEphemeral, resp.ResponseType)
	assert.Contains(t, resp.Text, "I don't recognize that command")
}

func TestPulseCommandAndAnswer(t *testing.T) {
	h := newHarness(t)

	h.run(t, CmdPulse, "UENG", "")
	msgs := h.api.messagesTo("CUENG")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Blocks, "energy_high")

	h.interact(t, blockAction("UENG", "CUENG", &slack.BlockAction{ActionID: "stress_high", Value: "high"}))
	got, err := h.store.ListPulses(context.Background(), "UENG")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stress", got[0].Dimension)
	assert.Equal(t, types.PulseHigh, got[0].Level)
	assert.Equal(t, testNow, got[0].RecordedAt)
	require.Len(t, h.api.UpdatedMessages, 1)

	h.interact(t, blockAction("UENG", "CUENG", &slack.BlockAction{ActionID: "pulse_low"}))
	got, _ = h.store.ListPulses(context.Background(), "UENG")
	require.Len(t, got, 2)
	assert.Equal(t, "energy", got[1].Dimension)
}

func TestEnroll(t *testing.T) {
	h := newHarness(t)

	h.run(t, CmdEnroll, "UENG", "at 3pm and 10am")
	enrolled, err := h.store.ListEnrollments(context.Background())
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, "DUENG", enrolled[0].ChannelID)
	assert.Equal(t, []types.PulseTime{{Hour: 10}, {Hour: 15}}, enrolled[0].Times)
	assert.Equal(t, 1, h.api.countContaining("CUENG", "10:00 and 15:00"))

	h.run(t, CmdEnroll, "UENG", "at 11pm")
	assert.Equal(t, 1, h.api.countContaining("CUENG", "I couldn't schedule those check-ins"))
}

func TestInsightsAndDemo(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.RecordPulse(context.Background(), types.PulseResponse{
		UserID: "U123", Dimension: "energy", Level: types.PulseHigh, RecordedAt: testNow.Add(-time.Hour),
	}))

	h.run(t, CmdInsights, "UENG", "")
	msgs := h.api.messagesTo("CUENG")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Blocks, "Team Well-being Insights")

	h.run(t, CmdDemo, "UMGR", "")
	demo := h.api.messagesTo("CUMGR")
	assert.Len(t, demo, 7)
	assert.Contains(t, demo[0].Text, "Welcome to the Buddy well-being demo")
}

func TestEventFilters(t *testing.T) {
	h := newHarness(t)
	callback := func(data any, typ string) slackevents.EventsAPIEvent {
		return slackevents.EventsAPIEvent{
			Type:       slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{Type: typ, Data: data},
		}
	}

	tests := []struct {
		name string
		ev   slackevents.EventsAPIEvent
		want bool
	}{
		{"im message", callback(&slackevents.MessageEvent{User: "U123", Channel: "DU123", ChannelType: "im", Text: "hi"}, "message"), true},
		{"channel message", callback(&slackevents.MessageEvent{User: "U123", Channel: "C1", ChannelType: "channel", Text: "hi"}, "message"), false},
		{"subtype", callback(&slackevents.MessageEvent{User: "U123", ChannelType: "im", SubType: "message_changed"}, "message"), false},
		{"bot id", callback(&slackevents.MessageEvent{User: "U123", ChannelType: "im", BotID: "B1"}, "message"), false},
		{"own user", callback(&slackevents.MessageEvent{User: "UBOTTEST", ChannelType: "im", Text: "hi"}, "message"), false},
		{"slash text", callback(&slackevents.MessageEvent{User: "U123", ChannelType: "im", Text: "/askbuddy x"}, "message"), false},
		{"mention", callback(&slackevents.AppMentionEvent{User: "U123", Channel: "C1", Text: "<@UBOTTEST> hello"}, "app_mention"), true},
		{"url verification", slackevents.EventsAPIEvent{Type: slackevents.URLVerification}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.bot.Event(tt.ev) != nil)
		})
	}
}

func TestMentionAnswersAndHelps(t *testing.T) {
	h := newHarness(t)
	ev := func(text string) slackevents.EventsAPIEvent {
		return slackevents.EventsAPIEvent{
			Type: slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{
				Type: "app_mention",
				Data: &slackevents.AppMentionEvent{User: "U123", Channel: "C1", Text: text},
			},
		}
	}

	h.bot.Event(ev("<@UBOTTEST>"))(context.Background())
	assert.Equal(t, 1, h.api.countContaining("C1", "I'm Buddy, your onboarding assistant"))
	assert.Zero(t, h.model.calls())

	h.bot.Event(ev("<@UBOTTEST|buddy> where is lunch?"))(context.Background())
	assert.Equal(t, 1, h.api.countContaining("C1", "employee handbook"))
	require.Equal(t, 1, h.model.calls())
	assert.Contains(t, h.model.prompts[0], "where is lunch?")
	assert.NotContains(t, h.model.prompts[0], "UBOTTEST")
}

func TestGoRecoversAndWaits(t *testing.T) {
	h := newHarness(t)
	var ran atomic.Int32

	h.bot.Go(func(context.Context) { panic("boom") })
	h.bot.Go(func(ctx context.Context) {
		if _, ok := ctx.Deadline(); ok {
			ran.Add(1)
		}
	})
	h.bot.Go(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.bot.Wait(ctx))
	assert.Equal(t, int32(1), ran.Load())
}

type panickingAnswerer struct{}

func (panickingAnswerer) Ask(context.Context, string) llm.Answer { panic("model client bug") }

func TestCommandPanicStillReplies(t *testing.T) {
	h := newHarness(t)
	h.bot.llm = panickingAnswerer{}

	_, job := h.bot.Command(slack.SlashCommand{
		Command:   CmdAsk,
		Text:      "where is the wiki?",
		UserID:    "U123",
		ChannelID: "CU123",
	})
	require.NotNil(t, job)
	h.bot.Go(job)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.bot.Wait(ctx))

	msgs := h.api.messagesTo("CU123")
	require.Len(t, msgs, 1)
	assert.Equal(t, commandErrorText, msgs[0].Text)
}

func TestPulseSchedulerDeliversThroughBot(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.SaveEnrollment(context.Background(), types.PulseEnrollment{
		UserID: "UENG", ChannelID: "DUENG", Times: []types.PulseTime{{Hour: 10}},
	}))

	n, err := h.bot.Scheduler().Tick(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	msgs := h.api.messagesTo("DUENG")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Quick well-being pulse")
}
