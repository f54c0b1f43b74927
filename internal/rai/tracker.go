package rai

import (
	"sort"
	"sync"
	"time"
)

// Summary aggregates the metrics recorded by a Tracker.
type Summary struct {
	Answers        int
	AvgConfidence  float64
	AvgLatency     time.Duration
	AvgWordCount   float64
	Sentiments     map[Sentiment]int
	PIIQueries     int
	BiasQueries    int
	FlaggedAnswers int
	TopSensitive   []TermCount
	Since          time.Time
}

// TermCount is how often a sensitive term appeared.
type TermCount struct {
	Term  string
	Count int
}

// Tracker aggregates answer metrics in memory for the dashboard.
type Tracker struct {
	mu        sync.Mutex
	answers   int
	conf      float64
	latency   time.Duration
	words     int
	sentiment map[Sentiment]int
	pii       int
	bias      int
	flagged   int
	terms     map[string]int
	since     time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		sentiment: make(map[Sentiment]int),
		terms:     make(map[string]int),
		since:     time.Now(),
	}
}

// Record adds one answer's metrics.
func (t *Tracker) Record(m Metrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answers++
	t.conf += m.Confidence
	t.latency += m.Latency
	t.words += m.WordCount
	t.sentiment[m.Sentiment]++
	if m.PIIDetected {
		t.pii++
	}
	if m.BiasDetected {
		t.bias++
	}
	if m.Flagged() {
		t.flagged++
	}
	for _, term := range m.SensitiveTerms {
		t.terms[term]++
	}
}

// Summary returns a snapshot of the aggregate.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{
		Answers:        t.answers,
		Sentiments:     make(map[Sentiment]int, len(t.sentiment)),
		PIIQueries:     t.pii,
		BiasQueries:    t.bias,
		FlaggedAnswers: t.flagged,
		Since:          t.since,
	}
	for k, v := range t.sentiment {
		s.Sentiments[k] = v
	}
	if t.answers > 0 {
		n := float64(t.answers)
		s.AvgConfidence = t.conf / n
		s.AvgLatency = t.latency / time.Duration(t.answers)
		s.AvgWordCount = float64(t.words) / n
	}
	for term, c := range t.terms {
		s.TopSensitive = append(s.TopSensitive, TermCount{Term: term, Count: c})
	}
	sort.Slice(s.TopSensitive, func(i, j int) bool {
		if s.TopSensitive[i].Count != s.TopSensitive[j].Count {
			return s.TopSensitive[i].Count > s.TopSensitive[j].Count
		}
		return s.TopSensitive[i].Term < s.TopSensitive[j].Term
	})
	if len(s.TopSensitive) > MaxTriggersShown {
		s.TopSensitive = s.TopSensitive[:MaxTriggersShown]
	}
	return s
}
