// Package blockkit renders checklists and progress summaries as Slack Block
// Kit structures. Everything here is pure: no I/O, no clocks.
package blockkit

import (
	"unicode/utf8"

	"github.com/slack-go/slack"
)

// Platform limits. Slack rejects messages over 50 blocks; MaxBlocksPerBatch
// leaves headroom below that.
const (
	MaxBlocksPerBatch = 45
	MaxSectionText    = 3000
	MaxHeaderText     = 150
	MaxButtonText     = 75
	MaxOptionText     = 75
	MaxActionID       = 255
)

// Action ID prefixes routed by the interaction dispatcher.
const (
	ActionToggle       = "toggle_"
	ActionViewProgress = "view_progress_"
	ActionViewEmployee = "view_emp_"
)

// ActionIDItemChars is how much of an item ID is embedded after ActionToggle.
// It is short on purpose: the full ID travels in the option value, and the
// truncated form is only a legacy fallback resolved by prefix.
const ActionIDItemChars = 17

// Truncate shortens s to at most maxLen runes, ending in "..." when cut.
// Stored text is never modified; this is for display only.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, Truncate(text, MaxSectionText), false, false)
}

func plain(text string, maxLen int) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, Truncate(text, maxLen), true, false)
}

// Section is a single mrkdwn section block.
func Section(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(mrkdwn(text), nil, nil)
}

// Header is a plain-text header block.
func Header(text string) *slack.HeaderBlock {
	return slack.NewHeaderBlock(plain(text, MaxHeaderText))
}

// Context is a context block with one mrkdwn element.
func Context(text string) *slack.ContextBlock {
	return slack.NewContextBlock("", mrkdwn(text))
}

// Batch splits blocks into consecutive slices of at most max blocks.
func Batch(blocks []slack.Block, max int) [][]slack.Block {
	if max <= 0 {
		max = MaxBlocksPerBatch
	}
	var out [][]slack.Block
	for len(blocks) > 0 {
		n := min(max, len(blocks))
		out = append(out, blocks[:n:n])
		blocks = blocks[n:]
	}
	return out
}
