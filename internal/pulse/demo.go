package pulse

import "time"

// StepKind is what a demo step sends.
type StepKind int

const (
	StepMessage  StepKind = iota // plain text
	StepPulse                    // a random pulse question
	StepInsights                 // the insights dashboard
)

// DemoStep is one beat of the scripted walkthrough. Pause is waited before
// the step is sent.
type DemoStep struct {
	Kind  StepKind
	Text  string
	Pause time.Duration
}

// DemoScript returns the /demo walkthrough.
func DemoScript() []DemoStep {
	return []DemoStep{
		{Kind: StepMessage, Text: "🚀 *Welcome to the Buddy well-being demo!*\n\nI'll walk you through how continuous well-being check-ins work."},
		{Kind: StepMessage, Pause: 2 * time.Second, Text: "Buddy sends short pulse checks at varying times during the workday:"},
		{Kind: StepPulse, Pause: 1500 * time.Millisecond},
		{Kind: StepMessage, Pause: 8 * time.Second, Text: "Each response is aggregated with team data. Individual responses are never shared with management."},
		{Kind: StepMessage, Pause: 3 * time.Second, Text: "From these check-ins, leads see aggregated team insights:"},
		{Kind: StepInsights, Pause: 1500 * time.Millisecond},
		{Kind: StepMessage, Pause: 5 * time.Second, Text: "That's the Buddy pulse experience!\n\n*Key benefits:*\n• Continuous rather than periodic measurement\n• Under five seconds per pulse\n• Actionable insights for leads\n• Privacy-preserving aggregation\n\nTry `/enroll` to start receiving pulses, or `/insights` to view the dashboard."},
	}
}
