// Package rai computes lightweight responsible-AI signals for LLM answers:
// query screening for personal data and biased phrasing, and per-answer
// heuristics (sensitive terms, hedging, sentiment, confidence) that managers
// can review.
package rai

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Sentiment is a coarse classification of an answer's tone.
type Sentiment string

const (
	Positive Sentiment = "Positive"
	Neutral  Sentiment = "Neutral"
	Negative Sentiment = "Negative"
)

// MaxTriggersShown caps the sensitive terms listed in a metrics summary.
const MaxTriggersShown = 3

var sensitiveTerms = []string{
	"password", "confidential", "secret", "private", "sensitive",
	"proprietary", "classified", "restricted", "internal", "only",
	"social security", "ssn", "birth date", "credit card", "account number",
}

var uncertaintyTerms = []string{
	"maybe", "perhaps", "possibly", "might", "could be",
	"not sure", "uncertain", "unclear", "unknown", "estimate",
	"approximately", "around", "about", "roughly",
}

var (
	positiveWords = wordPatterns(
		"good", "great", "excellent", "amazing", "wonderful", "best",
		"helpful", "beneficial", "positive", "success", "successful",
		"recommended", "effective", "efficient", "valuable",
	)
	negativeWords = wordPatterns(
		"bad", "poor", "terrible", "awful", "worst", "difficult",
		"hard", "problem", "issue", "concern", "negative", "fail",
		"failure", "ineffective", "inefficient", "useless",
	)
)

func wordPatterns(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

// containsAny returns the terms that occur in text, case-insensitively.
func containsAny(text string, terms []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, t := range terms {
		if strings.Contains(lower, t) {
			out = append(out, t)
		}
	}
	return out
}

// SensitiveTerms lists the sensitive terms present in text.
func SensitiveTerms(text string) []string { return containsAny(text, sensitiveTerms) }

// UncertaintyMarkers lists the hedging phrases present in text.
func UncertaintyMarkers(text string) []string { return containsAny(text, uncertaintyTerms) }

func countMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, re := range patterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

// SentimentOf classifies text as Positive or Negative when one side
// outnumbers the other by more than 1.5x, otherwise Neutral.
func SentimentOf(text string) Sentiment {
	lower := strings.ToLower(text)
	pos := float64(countMatches(lower, positiveWords))
	neg := float64(countMatches(lower, negativeWords))
	switch {
	case pos > neg*1.5:
		return Positive
	case neg > pos*1.5:
		return Negative
	}
	return Neutral
}

// Confidence is a heuristic in [0.65, 0.95] that drops 0.05 per sensitive term.
func Confidence(sensitiveCount int) float64 {
	return max(0.65, min(0.95, 0.85-0.05*float64(sensitiveCount)))
}

// Metrics describes one answer.
type Metrics struct {
	WordCount          int
	Confidence         float64
	Sentiment          Sentiment
	UncertaintyMarkers []string
	SensitiveTerms     []string
	PIIDetected        bool
	BiasDetected       bool
	Latency            time.Duration
	Model              string
	Provider           string
	At                 time.Time
}

// Flagged reports whether any safety signal fired.
func (m Metrics) Flagged() bool {
	return m.PIIDetected || m.BiasDetected || len(m.SensitiveTerms) > 0
}

// Analyze computes the answer heuristics. Latency, model and timestamp are
// filled in by the caller, which is the only one that knows them.
func Analyze(answer string, screening Screening) Metrics {
	sensitive := SensitiveTerms(answer)
	return Metrics{
		WordCount:          len(strings.Fields(answer)),
		Confidence:         Confidence(len(sensitive)),
		Sentiment:          SentimentOf(answer),
		UncertaintyMarkers: UncertaintyMarkers(answer),
		SensitiveTerms:     sensitive,
		PIIDetected:        screening.PIIDetected,
		BiasDetected:       screening.BiasDetected,
	}
}

// FormatForSlack renders metrics as mrkdwn for a context block.
func FormatForSlack(m Metrics) string {
	lines := []string{
		"*🤖 AI Response Metrics*",
		fmt.Sprintf("• 🔍 Confidence: %.1f%%", m.Confidence*100),
		fmt.Sprintf("• ⏱️ Response Time: %dms", m.Latency.Milliseconds()),
		fmt.Sprintf("• 📊 Word Count: %d", m.WordCount),
		fmt.Sprintf("• 🧠 Sentiment: %s", m.Sentiment),
	}
	if len(m.UncertaintyMarkers) > 0 {
		lines = append(lines, fmt.Sprintf("• 🤔 Uncertainty markers: %d", len(m.UncertaintyMarkers)))
	}
	if !m.Flagged() {
		lines = append(lines, "✅ *No Safety Concerns*")
	} else {
		lines = append(lines, "⚠️ *Safety Flags:*")
		if m.PIIDetected {
			lines = append(lines, "  • PII detected and handled")
		}
		if m.BiasDetected {
			lines = append(lines, "  • Potential bias mitigated")
		}
		if n := len(m.SensitiveTerms); n > 0 {
			shown := m.SensitiveTerms[:min(n, MaxTriggersShown)]
			lines = append(lines, fmt.Sprintf("  • %d sensitive terms found (%s)", n, strings.Join(shown, ", ")))
		}
	}
	if m.Model != "" {
		lines = append(lines, fmt.Sprintf("_Model: %s (%s)_", m.Model, m.Provider))
	}
	return strings.Join(lines, "\n")
}
