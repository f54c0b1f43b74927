package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
)

// DefaultFallbackText is the notification text for block messages sent
// without one.
const DefaultFallbackText = "Message with blocks"

// ErrUserNotFound is returned when a user reference matches nobody.
var ErrUserNotFound = errors.New("user not found")

var (
	mentionRefPattern = regexp.MustCompile(`^<@([A-Z0-9]+)(?:\|[^>]*)?>$`)
	userIDPattern     = regexp.MustCompile(`^[UW][A-Z0-9]{2,}$`)
)

// Gateway is the bot's outbound messaging surface.
type Gateway struct {
	api    SlackAPI
	logger *slog.Logger
}

// NewGateway wraps api.
func NewGateway(api SlackAPI, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{api: api, logger: logger}
}

// SendMessage posts plain text and returns the message timestamp.
func (g *Gateway) SendMessage(ctx context.Context, channelID, text string) (string, error) {
	_, ts, err := g.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return "", fmt.Errorf("post message to %s: %w", channelID, err)
	}
	return ts, nil
}

// SendMessageWithBlocks posts blocks with fallbackText as the notification
// text. When Slack rejects the blocks the message degrades to the fallback
// text alone.
func (g *Gateway) SendMessageWithBlocks(ctx context.Context, channelID, fallbackText string, blocks []slack.Block) (string, error) {
	if fallbackText == "" {
		fallbackText = DefaultFallbackText
	}
	_, ts, err := g.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(fallbackText, false),
		slack.MsgOptionBlocks(blocks...))
	if err == nil {
		return ts, nil
	}
	if strings.Contains(err.Error(), "invalid_blocks") {
		g.logger.Warn("blocks rejected, sending plain text", "channel", channelID, "blocks", len(blocks), "error", err)
		return g.SendMessage(ctx, channelID, fallbackText)
	}
	return "", fmt.Errorf("post blocks to %s: %w", channelID, err)
}

// SendBatches posts each batch as its own message, stopping at the first
// failure.
func (g *Gateway) SendBatches(ctx context.Context, channelID, fallbackText string, batches [][]slack.Block) ([]string, error) {
	timestamps := make([]string, 0, len(batches))
	for i, batch := range batches {
		ts, err := g.SendMessageWithBlocks(ctx, channelID, fallbackText, batch)
		if err != nil {
			return timestamps, fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps, nil
}

// SendEphemeral posts text visible only to userID.
func (g *Gateway) SendEphemeral(ctx context.Context, channelID, userID, text string) error {
	if _, err := g.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("post ephemeral to %s: %w", channelID, err)
	}
	return nil
}

// UpdateMessage replaces the text and blocks of an existing message.
func (g *Gateway) UpdateMessage(ctx context.Context, channelID, ts, text string, blocks []slack.Block) error {
	if text == "" {
		text = DefaultFallbackText
	}
	_, _, _, err := g.api.UpdateMessageContext(ctx, channelID, ts,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("update message %s in %s: %w", ts, channelID, err)
	}
	return nil
}

// OpenDirectMessageChannel returns the DM channel ID for userID.
func (g *Gateway) OpenDirectMessageChannel(ctx context.Context, userID string) (string, error) {
	ch, _, _, err := g.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{userID}})
	if err != nil {
		return "", fmt.Errorf("open DM with %s: %w", userID, err)
	}
	return ch.ID, nil
}

// GetUserProfile resolves "<@U123|name>", "@name", "name" or a bare user ID.
// Names are matched against the handle, display name and real name.
func (g *Gateway) GetUserProfile(ctx context.Context, ref string) (*slack.User, error) {
	ref = strings.TrimSpace(ref)
	if m := mentionRefPattern.FindStringSubmatch(ref); m != nil {
		return g.userByID(ctx, m[1])
	}
	if userIDPattern.MatchString(ref) {
		return g.userByID(ctx, ref)
	}

	name := strings.ToLower(strings.TrimPrefix(ref, "@"))
	if name == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrUserNotFound)
	}
	users, err := g.api.GetUsersContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		u := &users[i]
		if u.Deleted {
			continue
		}
		if strings.EqualFold(u.Name, name) ||
			strings.EqualFold(u.Profile.DisplayName, name) ||
			strings.EqualFold(u.RealName, name) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: @%s", ErrUserNotFound, name)
}

func (g *Gateway) userByID(ctx context.Context, id string) (*slack.User, error) {
	u, err := g.api.GetUserInfoContext(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "user_not_found") {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// UserTitle returns the profile title of userID.
func (g *Gateway) UserTitle(ctx context.Context, userID string) (string, error) {
	u, err := g.userByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Profile.Title, nil
}
