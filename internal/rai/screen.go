package rai

import (
	"regexp"
	"strings"
)

// Redacted replaces personal data removed from a query.
const Redacted = "[REDACTED]"

// BiasNote is appended to prompts whose query used biased phrasing.
const BiasNote = "Note: The user's query may contain biased language. Ensure your response is fair and unbiased."

var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
	regexp.MustCompile(`(?:\+?\d{1,2}[ .-]?)?\(?\d{3}\)?[ .-]\d{3}[ .-]\d{4}\b`),
}

var biasTerms = []string{
	"guys", "manpower", "man-hours", "chairman", "culture fit",
	"native speaker", "young and energetic", "digital native",
	"too old", "crazy", "insane", "lame", "blacklist", "whitelist",
}

// Screening is the result of checking a user query before it reaches a model.
type Screening struct {
	Text         string // the query with personal data redacted
	PIIDetected  bool
	BiasDetected bool
	BiasTerms    []string
}

// Screen redacts emails, phone, card and social security numbers from query
// and flags biased phrasing.
func Screen(query string) Screening {
	s := Screening{Text: query}
	for _, re := range piiPatterns {
		if re.MatchString(s.Text) {
			s.PIIDetected = true
			s.Text = re.ReplaceAllString(s.Text, Redacted)
		}
	}
	s.BiasTerms = containsAny(query, biasTerms)
	s.BiasDetected = len(s.BiasTerms) > 0
	return s
}

// Prompt returns the screened text, with BiasNote appended when needed.
func (s Screening) Prompt() string {
	if !s.BiasDetected {
		return s.Text
	}
	return strings.TrimSpace(s.Text) + "\n\n" + BiasNote
}
