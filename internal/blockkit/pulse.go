package blockkit

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/steveyegge/onboardbuddy/internal/pulse"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

var pulseLevels = []types.PulseLevel{types.PulseLow, types.PulseMedium, types.PulseHigh}

// RenderPulse renders a pulse question with one button per level. Action ids
// are "{dimension}_{level}" and values are the level.
func RenderPulse(title string, q pulse.Question) []slack.Block {
	if title == "" {
		title = "📊 *Quick Well-being Pulse*"
	}
	buttons := make([]slack.BlockElement, 0, len(pulseLevels))
	for _, level := range pulseLevels {
		buttons = append(buttons, slack.NewButtonBlockElement(q.ActionID(level), string(level),
			plain(q.Label(level), MaxButtonText)))
	}
	return []slack.Block{
		Section(title + "\n\n" + q.Text),
		slack.NewActionBlock("pulse:"+q.Dimension, buttons...),
	}
}

// PulseThanksText acknowledges a recorded pulse answer.
func PulseThanksText(q pulse.Question, level types.PulseLevel) string {
	return fmt.Sprintf("Thanks! I've recorded your %s as *%s*. 🙏", q.Dimension, level)
}

var trendIcons = map[string]string{
	pulse.TrendUp:     "📈",
	pulse.TrendDown:   "📉",
	pulse.TrendSteady: "↔️",
}

// RenderInsights renders aggregated pulse insights.
func RenderInsights(in pulse.Insights) []slack.Block {
	blocks := []slack.Block{
		Header("🌈 Team Well-being Insights"),
		Context(fmt.Sprintf("Last %d days · %d responses from %d people · since %s",
			in.Days, in.Responses, in.Respondents, in.Since.Format(dateLayout))),
	}
	if in.Responses == 0 {
		return append(blocks, Section("_No pulse responses yet. Try `/pulse` or `/enroll` to start checking in._"))
	}

	var fields []*slack.TextBlockObject
	var spark strings.Builder
	spark.WriteString("```\n")
	for _, d := range in.Dimensions {
		if d.Responses == 0 {
			fields = append(fields, mrkdwn(fmt.Sprintf("*%s:* no data", titleCase(d.Dimension))))
			continue
		}
		fields = append(fields, mrkdwn(fmt.Sprintf("*%s:* %d%% %s", titleCase(d.Dimension), d.Score, trendIcons[d.Trend])))
		fmt.Fprintf(&spark, "%-11s %s\n", titleCase(d.Dimension)+":", d.Sparkline)
	}
	spark.WriteString("```")

	blocks = append(blocks,
		slack.NewSectionBlock(mrkdwn("*Dimension Breakdown*"), nil, nil),
		slack.NewSectionBlock(nil, fields, nil),
		slack.NewDividerBlock(),
		Section(fmt.Sprintf("*Trend (last %d days)*\n%s", in.Days, spark.String())),
		Context("💡 Scores run 0-100, higher is better. Stress is inverted so lower stress scores higher."),
	)
	return blocks
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
