package blockkit

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/steveyegge/onboardbuddy/internal/rai"
)

// RenderAnswer renders an answer with its metrics as a context block.
func RenderAnswer(answer string, m rai.Metrics) []slack.Block {
	return []slack.Block{
		Section(answer),
		slack.NewDividerBlock(),
		Context(rai.FormatForSlack(m)),
	}
}

// RenderRAIDashboard renders the responsible-AI aggregate for managers.
func RenderRAIDashboard(s rai.Summary) []slack.Block {
	blocks := []slack.Block{
		Header("🧠 Responsible AI Dashboard"),
		Section("This dashboard summarizes the assistant's answers since " + s.Since.Format(dateLayout) + "."),
		slack.NewDividerBlock(),
	}
	if s.Answers == 0 {
		return append(blocks, Section("_No answers recorded yet._"))
	}

	blocks = append(blocks,
		Section("*📈 AI Performance Summary*"),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			mrkdwn(fmt.Sprintf("*Average Response Time:*\n%.1f seconds", s.AvgLatency.Seconds())),
			mrkdwn(fmt.Sprintf("*Average Confidence Score:*\n%.1f%%", s.AvgConfidence*100)),
			mrkdwn(fmt.Sprintf("*Total Questions Processed:*\n%d", s.Answers)),
			mrkdwn(fmt.Sprintf("*Average Answer Length:*\n%.0f words", s.AvgWordCount)),
		}, nil),
		slack.NewDividerBlock(),
		Section("*🛡️ Safety & Compliance*"),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			mrkdwn(fmt.Sprintf("*PII Redactions:*\n%d", s.PIIQueries)),
			mrkdwn(fmt.Sprintf("*Bias Flags:*\n%d", s.BiasQueries)),
			mrkdwn(fmt.Sprintf("*Flagged Answers:*\n%d (%.0f%%)", s.FlaggedAnswers, 100*float64(s.FlaggedAnswers)/float64(s.Answers))),
			mrkdwn("*Sentiment:*\n" + sentimentLine(s.Sentiments)),
		}, nil),
	)
	if len(s.TopSensitive) > 0 {
		terms := make([]string, len(s.TopSensitive))
		for i, tc := range s.TopSensitive {
			terms[i] = fmt.Sprintf("`%s` (%d)", tc.Term, tc.Count)
		}
		blocks = append(blocks, Context("Most frequent sensitive topics: "+strings.Join(terms, ", ")))
	}
	return blocks
}

func sentimentLine(counts map[rai.Sentiment]int) string {
	return fmt.Sprintf("%d positive · %d neutral · %d negative",
		counts[rai.Positive], counts[rai.Neutral], counts[rai.Negative])
}
