// Package pulse implements the well-being check-ins: the question bank,
// response parsing, scheduled delivery and aggregated insights.
package pulse

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/onboardbuddy/internal/types"
)

//go:embed questions.yaml
var builtinQuestions []byte

// DefaultDimension is asked by /pulse and the legacy pulse_* buttons.
const DefaultDimension = "energy"

// Question is one dimension's check-in.
type Question struct {
	Dimension string                      `yaml:"name"`
	Text      string                      `yaml:"question"`
	Inverted  bool                        `yaml:"inverted"`
	Labels    map[types.PulseLevel]string `yaml:"labels"`
}

// Label returns the button label for level.
func (q Question) Label(level types.PulseLevel) string {
	if l, ok := q.Labels[level]; ok && l != "" {
		return l
	}
	return strings.ToUpper(string(level[:1])) + string(level[1:])
}

// ActionID is the interaction id for answering q with level.
func (q Question) ActionID(level types.PulseLevel) string {
	return q.Dimension + "_" + string(level)
}

// Score maps level onto 0..100 where higher is always better.
func (q Question) Score(level types.PulseLevel) int {
	if q.Inverted {
		return 100 - level.Score()
	}
	return level.Score()
}

// Bank is the ordered set of pulse questions.
type Bank struct {
	Title     string     `yaml:"title"`
	Questions []Question `yaml:"dimensions"`
}

// LoadBank parses the embedded question bank.
func LoadBank() (*Bank, error) {
	return ParseBank(builtinQuestions)
}

// ParseBank parses a YAML question bank.
func ParseBank(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing pulse questions: %w", err)
	}
	if len(b.Questions) == 0 {
		return nil, fmt.Errorf("pulse question bank has no dimensions")
	}
	seen := make(map[string]bool, len(b.Questions))
	for i, q := range b.Questions {
		if q.Dimension == "" || q.Text == "" {
			return nil, fmt.Errorf("pulse question %d: name and question are required", i)
		}
		if strings.Contains(q.Dimension, "_") {
			return nil, fmt.Errorf("pulse dimension %q must not contain '_'", q.Dimension)
		}
		if seen[q.Dimension] {
			return nil, fmt.Errorf("duplicate pulse dimension %q", q.Dimension)
		}
		seen[q.Dimension] = true
	}
	return &b, nil
}

// MustLoadBank is LoadBank for package initialisation.
func MustLoadBank() *Bank {
	b, err := LoadBank()
	if err != nil {
		panic(err)
	}
	return b
}

// Get returns the question for dimension.
func (b *Bank) Get(dimension string) (Question, bool) {
	for _, q := range b.Questions {
		if q.Dimension == dimension {
			return q, true
		}
	}
	return Question{}, false
}

// Dimensions lists dimension names in bank order.
func (b *Bank) Dimensions() []string {
	names := make([]string, len(b.Questions))
	for i, q := range b.Questions {
		names[i] = q.Dimension
	}
	return names
}

// Random picks a question. r may be nil.
func (b *Bank) Random(r *rand.Rand) Question {
	if r == nil {
		return b.Questions[rand.IntN(len(b.Questions))]
	}
	return b.Questions[r.IntN(len(b.Questions))]
}

// ParseAction decodes a pulse button action id: "{dimension}_{level}" or the
// legacy "pulse_{level}", which answers DefaultDimension.
func (b *Bank) ParseAction(actionID string) (Question, types.PulseLevel, bool) {
	dim, lvl, ok := strings.Cut(actionID, "_")
	if !ok {
		return Question{}, "", false
	}
	level := types.PulseLevel(lvl)
	if !level.IsValid() {
		return Question{}, "", false
	}
	if dim == "pulse" {
		dim = DefaultDimension
	}
	q, found := b.Get(dim)
	if !found {
		return Question{}, "", false
	}
	return q, level, true
}
