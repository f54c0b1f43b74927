package pulse

import (
	"math"
	"strings"
	"time"

	"github.com/steveyegge/onboardbuddy/internal/types"
)

// DefaultWindowDays is how far back insights look.
const DefaultWindowDays = 14

// Trend directions.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendSteady = "steady"
)

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// DimensionInsight aggregates one dimension. Scores run 0..100 with higher
// always better, so stress is inverted.
type DimensionInsight struct {
	Dimension string
	Score     int
	Responses int
	Trend     string
	Sparkline string
	Daily     []int // per-day average, -1 for days without responses
}

// Insights aggregates pulse responses over a window.
type Insights struct {
	Since       time.Time
	Days        int
	Responses   int
	Respondents int
	Dimensions  []DimensionInsight
}

// Summarize aggregates responses from the days days ending at now. Dimensions
// follow bank order; unknown dimensions are ignored.
func Summarize(bank *Bank, responses []types.PulseResponse, now time.Time, days int) Insights {
	if days <= 0 {
		days = DefaultWindowDays
	}
	end := startOfDay(now).AddDate(0, 0, 1)
	since := end.AddDate(0, 0, -days)

	type bucket struct{ sum, n int }
	daily := make(map[string][]bucket, len(bank.Questions))
	for _, q := range bank.Questions {
		daily[q.Dimension] = make([]bucket, days)
	}

	users := make(map[string]bool)
	in := Insights{Since: since, Days: days}
	for _, r := range responses {
		at := r.RecordedAt.In(now.Location())
		if at.Before(since) || !at.Before(end) {
			continue
		}
		q, ok := bank.Get(r.Dimension)
		if !ok || !r.Level.IsValid() {
			continue
		}
		idx := int(math.Round(startOfDay(at).Sub(since).Hours() / 24))
		if idx < 0 || idx >= days {
			continue
		}
		b := &daily[q.Dimension][idx]
		b.sum += q.Score(r.Level)
		b.n++
		users[r.UserID] = true
		in.Responses++
	}
	in.Respondents = len(users)

	for _, q := range bank.Questions {
		buckets := daily[q.Dimension]
		di := DimensionInsight{Dimension: q.Dimension, Daily: make([]int, days)}
		total := 0
		for i, b := range buckets {
			if b.n == 0 {
				di.Daily[i] = -1
				continue
			}
			di.Daily[i] = int(math.Round(float64(b.sum) / float64(b.n)))
			total += b.sum
			di.Responses += b.n
		}
		if di.Responses > 0 {
			di.Score = int(math.Round(float64(total) / float64(di.Responses)))
		}
		di.Trend = trend(di.Daily)
		di.Sparkline = Sparkline(di.Daily)
		in.Dimensions = append(in.Dimensions, di)
	}
	return in
}

// Sparkline renders 0..100 values as block characters. Negative values
// (missing days) render as a space.
func Sparkline(values []int) string {
	var sb strings.Builder
	for _, v := range values {
		if v < 0 {
			sb.WriteRune(' ')
			continue
		}
		idx := v * (len(sparkTicks) - 1) / 100
		idx = min(max(idx, 0), len(sparkTicks)-1)
		sb.WriteRune(sparkTicks[idx])
	}
	return sb.String()
}

// trend compares the mean of the later half of observed days with the earlier
// half. Moves under five points are steady.
func trend(daily []int) string {
	var observed []int
	for _, v := range daily {
		if v >= 0 {
			observed = append(observed, v)
		}
	}
	if len(observed) < 2 {
		return TrendSteady
	}
	half := len(observed) / 2
	delta := mean(observed[len(observed)-half:]) - mean(observed[:half])
	switch {
	case delta >= 5:
		return TrendUp
	case delta <= -5:
		return TrendDown
	}
	return TrendSteady
}

func mean(vs []int) float64 {
	sum := 0
	for _, v := range vs {
		sum += v
	}
	return float64(sum) / float64(len(vs))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
