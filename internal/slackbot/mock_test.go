package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"github.com/steveyegge/onboardbuddy/internal/llm"
	"github.com/steveyegge/onboardbuddy/internal/storage/memory"
)

// ---------- Mock Slack API ----------

// postedMessage captures a PostMessage call for assertion.
type postedMessage struct {
	ChannelID string
	Text      string
	Blocks    string // JSON-encoded blocks, empty for plain text
}

// postedEphemeral captures a PostEphemeral call.
type postedEphemeral struct {
	ChannelID string
	UserID    string
	Text      string
}

// updatedMessage captures an UpdateMessage call.
type updatedMessage struct {
	ChannelID string
	Timestamp string
	Text      string
	Blocks    string
}

type mockSlackAPI struct {
	mu sync.Mutex

	// Captured calls
	PostedMessages  []postedMessage
	Ephemerals      []postedEphemeral
	UpdatedMessages []updatedMessage

	// Auto-increment message timestamps
	nextTS int

	// Configurable errors
	postMessageErr error
	blocksErr      error // returned only for posts that carry blocks
	updateErr      error
	openErr        error

	users map[string]slack.User
}

func newMockSlackAPI() *mockSlackAPI {
	m := &mockSlackAPI{users: make(map[string]slack.User)}
	m.addUser("UMGR", "maria", "Engineering Manager")
	m.addUser("U123", "alice", "Software Engineer")
	m.addUser("UENG", "bob", "Engineer")
	return m
}

func (m *mockSlackAPI) addUser(id, name, title string) {
	u := slack.User{ID: id, Name: name, RealName: "Test User " + id}
	u.Profile.Title = title
	u.Profile.DisplayName = name
	m.users[id] = u
}

// applyOptions renders message options the way the client would send them.
func applyOptions(channelID string, options []slack.MsgOption) (text, blocks string) {
	_, vals, err := slack.UnsafeApplyMsgOptions("", channelID, "", options...)
	if err != nil {
		return "", ""
	}
	return vals.Get("text"), vals.Get("blocks")
}

func (m *mockSlackAPI) AuthTestContext(context.Context) (*slack.AuthTestResponse, error) {
	return &slack.AuthTestResponse{UserID: "UBOTTEST", Team: "test"}, nil
}

func (m *mockSlackAPI) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	text, blocks := applyOptions(channelID, options)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postMessageErr != nil {
		return "", "", m.postMessageErr
	}
	if m.blocksErr != nil && blocks != "" && blocks != "null" {
		return "", "", m.blocksErr
	}
	m.nextTS++
	ts := fmt.Sprintf("1234567890.%06d", m.nextTS)
	m.PostedMessages = append(m.PostedMessages, postedMessage{ChannelID: channelID, Text: text, Blocks: blocks})
	return channelID, ts, nil
}

func (m *mockSlackAPI) PostEphemeralContext(_ context.Context, channelID, userID string, options ...slack.MsgOption) (string, error) {
	text, _ := applyOptions(channelID, options)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ephemerals = append(m.Ephemerals, postedEphemeral{ChannelID: channelID, UserID: userID, Text: text})
	return "1234567890.000001", nil
}

func (m *mockSlackAPI) UpdateMessageContext(_ context.Context, channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error) {
	text, blocks := applyOptions(channelID, options)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return "", "", "", m.updateErr
	}
	m.UpdatedMessages = append(m.UpdatedMessages, updatedMessage{ChannelID: channelID, Timestamp: timestamp, Text: text, Blocks: blocks})
	return channelID, timestamp, text, nil
}

func (m *mockSlackAPI) OpenConversationContext(_ context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, false, false, m.openErr
	}
	ch := &slack.Channel{}
	ch.ID = "D" + params.Users[0]
	return ch, false, false, nil
}

func (m *mockSlackAPI) GetUserInfoContext(_ context.Context, userID string) (*slack.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, errors.New("user_not_found")
	}
	return &u, nil
}

func (m *mockSlackAPI) GetUsersContext(context.Context, ...slack.GetUsersOption) ([]slack.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]slack.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

// messagesTo returns the messages posted to channelID.
func (m *mockSlackAPI) messagesTo(channelID string) []postedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postedMessage
	for _, msg := range m.PostedMessages {
		if msg.ChannelID == channelID {
			out = append(out, msg)
		}
	}
	return out
}

// countContaining counts messages to channelID whose text contains substr.
func (m *mockSlackAPI) countContaining(channelID, substr string) int {
	n := 0
	for _, msg := range m.messagesTo(channelID) {
		if strings.Contains(msg.Text, substr) {
			n++
		}
	}
	return n
}

func (m *mockSlackAPI) ephemeralTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Ephemerals))
	for i, e := range m.Ephemerals {
		out[i] = e.Text
	}
	return out
}

// ---------- Fake model ----------

type fakeQuerier struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *fakeQuerier) Query(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeQuerier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// ---------- Harness ----------

var testNow = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

type harness struct {
	bot   *Bot
	api   *mockSlackAPI
	store *memory.MemoryStorage
	model *fakeQuerier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := newMockSlackAPI()
	store := memory.New()
	model := &fakeQuerier{answer: "Check the employee handbook on the intranet."}
	svc := llm.NewService(model, llm.Options{
		Timeout:        2 * time.Second,
		MaxRetries:     -1,
		InitialBackoff: time.Millisecond,
	})
	bot, err := New(Config{
		API:      api,
		Store:    store,
		LLM:      svc,
		Location: time.UTC,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bot.now = func() time.Time { return testNow }
	bot.sleep = func(context.Context, time.Duration) error { return nil }
	if err := bot.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return &harness{bot: bot, api: api, store: store, model: model}
}

// run dispatches a slash command and runs its follow-up synchronously.
func (h *harness) run(t *testing.T, command, userID, text string) string {
	t.Helper()
	resp, job := h.bot.Command(slack.SlashCommand{
		Command:   command,
		Text:      text,
		UserID:    userID,
		ChannelID: "C" + userID,
	})
	if job != nil {
		job(context.Background())
	}
	return resp.Text
}

func blockAction(userID, channelID string, action *slack.BlockAction) slack.InteractionCallback {
	cb := slack.InteractionCallback{
		Type:      slack.InteractionTypeBlockActions,
		User:      slack.User{ID: userID},
		Container: slack.Container{ChannelID: channelID, MessageTs: "1234567890.000042"},
	}
	cb.ActionCallback.BlockActions = []*slack.BlockAction{action}
	return cb
}

// interact dispatches an interaction and runs it synchronously.
func (h *harness) interact(t *testing.T, cb slack.InteractionCallback) {
	t.Helper()
	job := h.bot.Interaction(cb)
	if job == nil {
		t.Fatal("expected a job for block actions")
	}
	job(context.Background())
}
