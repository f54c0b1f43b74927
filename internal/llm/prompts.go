package llm

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// PromptKind selects the instructions wrapped around a question.
type PromptKind string

const (
	PromptDefault   PromptKind = "default"
	PromptChecklist PromptKind = "checklist"
	PromptWellness  PromptKind = "wellness"
)

// GeneralRole is the checklist role used when no specific role applies.
const GeneralRole = "general"

var (
	rolePattern      = regexp.MustCompile(`(?i)for an? (.*?) role`)
	looseRolePattern = regexp.MustCompile(`(?i)for (.*?) role`)
	wellnessPattern  = regexp.MustCompile(`(?i)\b(wellness|well-being|wellbeing|burnout|stress(ed)?|mental health|work-life)\b`)
)

// Route picks the prompt for a question. Checklist requests naming a role
// ("... checklist for a designer role") also return the role.
func Route(question string) (PromptKind, string) {
	lower := strings.ToLower(question)
	if strings.Contains(lower, "checklist") || strings.Contains(lower, "onboarding list") {
		m := rolePattern.FindStringSubmatch(question)
		if m == nil {
			m = looseRolePattern.FindStringSubmatch(question)
		}
		if m != nil && strings.TrimSpace(m[1]) != "" {
			return PromptChecklist, strings.TrimSpace(m[1])
		}
		if strings.Contains(lower, "general onboarding checklist") {
			return PromptChecklist, GeneralRole
		}
	}
	if wellnessPattern.MatchString(question) {
		return PromptWellness, ""
	}
	return PromptDefault, ""
}

const defaultPromptTemplate = `You are Buddy, a friendly onboarding assistant for new employees on Slack.

Answer the question below clearly and briefly. Use Slack mrkdwn (*bold*, bullet lists) rather than headings. If you do not know something specific to this company, say so and suggest who the employee could ask (their manager, HR or IT).

Question:
{{.Question}}
`

const checklistPromptTemplate = `You are Buddy, an onboarding assistant. Create a new employee onboarding checklist for the {{.Role}} role.

Organize items into three categories: "First Day", "First Week" and "First Month".
Write each category name on its own line ending with a colon.
Under each category, write one task per line starting with "- ".
Include at most 15 items in total. Start each task with a verb and keep it under 60 characters.
Do not add any other text before or after the checklist.

Request:
{{.Question}}
`

const wellnessPromptTemplate = `You are Buddy, a supportive onboarding assistant who also cares about employee well-being.

Respond with empathy and practical, low-effort suggestions. Do not give medical advice. If the employee seems to be struggling, gently suggest talking to their manager or the company's employee assistance resources.

Message:
{{.Question}}
`

var promptTemplates = map[PromptKind]*template.Template{
	PromptDefault:   template.Must(template.New("default").Parse(defaultPromptTemplate)),
	PromptChecklist: template.Must(template.New("checklist").Parse(checklistPromptTemplate)),
	PromptWellness:  template.Must(template.New("wellness").Parse(wellnessPromptTemplate)),
}

type promptData struct {
	Question string
	Role     string
}

// RenderPrompt builds the full prompt for question.
func RenderPrompt(kind PromptKind, question, role string) (string, error) {
	tmpl, ok := promptTemplates[kind]
	if !ok {
		return "", fmt.Errorf("unknown prompt kind: %s", kind)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{Question: question, Role: role}); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", kind, err)
	}
	return buf.String(), nil
}
