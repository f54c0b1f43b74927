// Package timeparsing parses times of day for scheduled check-ins.
//
// Parsing is layered:
//  1. Compact clock (15:00, 9:30, 10am, 3:30pm)
//  2. Natural language via olebedev/when (ten am, half past 3pm, noon)
package timeparsing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrNoTime is returned when nothing in the input looks like a time.
var ErrNoTime = errors.New("no time of day found")

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%d:%02d", c.Hour, c.Minute)
}

// compactClockRe matches 24h "15:00" and 12h "10am" / "3:30 pm".
var compactClockRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

var listSplitRe = regexp.MustCompile(`\s*(?:,|\band\b|&)\s*`)

var parser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseCompactClock parses a compact clock expression. A bare number
// without am/pm or minutes is rejected as ambiguous.
func ParseCompactClock(s string) (Clock, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	m := compactClockRe.FindStringSubmatch(s)
	if m == nil || (m[2] == "" && m[3] == "") {
		return Clock{}, fmt.Errorf("not a compact clock: %q", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return Clock{}, fmt.Errorf("invalid 12-hour clock: %q", s)
		}
		if hour == 12 {
			hour = 0
		}
		if m[3] == "pm" {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid clock: %q", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// ParseNaturalLanguage extracts a time of day from free text.
func ParseNaturalLanguage(s string, now time.Time) (Clock, error) {
	r, err := parser.Parse(s, now)
	if err != nil {
		return Clock{}, fmt.Errorf("parse %q: %w", s, err)
	}
	if r == nil {
		return Clock{}, fmt.Errorf("%w in %q", ErrNoTime, s)
	}
	return Clock{Hour: r.Time.Hour(), Minute: r.Time.Minute()}, nil
}

// ParseClock tries each layer in order.
func ParseClock(s string, now time.Time) (Clock, error) {
	if c, err := ParseCompactClock(s); err == nil {
		return c, nil
	}
	return ParseNaturalLanguage(s, now)
}

// ParseClockList parses a list such as "10am and 3:30pm" or "9:15, 14:00".
func ParseClockList(s string, now time.Time) ([]Clock, error) {
	var clocks []Clock
	for _, part := range listSplitRe.Split(strings.TrimSpace(s), -1) {
		if part == "" {
			continue
		}
		c, err := ParseClock(part, now)
		if err != nil {
			return nil, err
		}
		clocks = append(clocks, c)
	}
	if len(clocks) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoTime, s)
	}
	return clocks, nil
}
