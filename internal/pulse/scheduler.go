package pulse

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/timeparsing"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

const (
	DefaultWorkStart  = 9
	DefaultWorkEnd    = 17
	DefaultCheckIns   = 2
	matchWindowMinute = 1
	dayLayout         = "2006-01-02"
)

// Sender delivers a pulse question to a channel.
type Sender interface {
	SendPulse(ctx context.Context, channelID string, q Question) error
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Store     storage.PulseRepository
	Sender    Sender
	Bank      *Bank
	WorkStart int // first hour a check-in may be scheduled
	WorkEnd   int // last hour a check-in may be scheduled
	Location  *time.Location
	Logger    *slog.Logger
	Rand      *rand.Rand
}

// Scheduler delivers enrolled users' daily check-ins from a minute ticker.
type Scheduler struct {
	store     storage.PulseRepository
	sender    Sender
	bank      *Bank
	workStart int
	workEnd   int
	loc       *time.Location
	logger    *slog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand

	now func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Store == nil || cfg.Sender == nil {
		return nil, fmt.Errorf("pulse scheduler requires a store and a sender")
	}
	if cfg.Bank == nil {
		b, err := LoadBank()
		if err != nil {
			return nil, err
		}
		cfg.Bank = b
	}
	if cfg.WorkStart == 0 && cfg.WorkEnd == 0 {
		cfg.WorkStart, cfg.WorkEnd = DefaultWorkStart, DefaultWorkEnd
	}
	if cfg.WorkStart < 0 || cfg.WorkEnd > 23 || cfg.WorkStart > cfg.WorkEnd {
		return nil, fmt.Errorf("invalid work hours %d-%d", cfg.WorkStart, cfg.WorkEnd)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Scheduler{
		store:     cfg.Store,
		sender:    cfg.Sender,
		bank:      cfg.Bank,
		workStart: cfg.WorkStart,
		workEnd:   cfg.WorkEnd,
		loc:       cfg.Location,
		logger:    cfg.Logger.With("component", "pulse"),
		rng:       cfg.Rand,
		now:       time.Now,
	}, nil
}

// Bank returns the scheduler's question bank.
func (s *Scheduler) Bank() *Bank { return s.bank }

// RandomTimes picks n distinct check-in times within work hours, sorted.
func (s *Scheduler) RandomTimes(n int) []types.PulseTime {
	s.mu.Lock()
	defer s.mu.Unlock()
	span := (s.workEnd - s.workStart + 1) * 60
	if n > span {
		n = span
	}
	seen := make(map[int]bool, n)
	times := make([]types.PulseTime, 0, n)
	for len(times) < n {
		m := s.rng.IntN(span)
		if seen[m] {
			continue
		}
		seen[m] = true
		times = append(times, types.PulseTime{Hour: s.workStart + m/60, Minute: m % 60})
	}
	sortTimes(times)
	return times
}

// ParseTimes reads check-in times such as "10am and 3:30pm". Every time
// must fall within work hours.
func (s *Scheduler) ParseTimes(text string) ([]types.PulseTime, error) {
	clocks, err := timeparsing.ParseClockList(text, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}
	times := make([]types.PulseTime, 0, len(clocks))
	for _, c := range clocks {
		if c.Hour < s.workStart || c.Hour > s.workEnd {
			return nil, fmt.Errorf("%s is outside work hours (%d:00-%d:59)", c, s.workStart, s.workEnd)
		}
		pt := types.PulseTime{Hour: c.Hour, Minute: c.Minute}
		if !slices.Contains(times, pt) {
			times = append(times, pt)
		}
	}
	sortTimes(times)
	return times, nil
}

// Enroll schedules daily check-ins for userID. With empty spec it picks
// DefaultCheckIns random times; otherwise spec is parsed by ParseTimes.
// Re-enrolling replaces the previous schedule.
func (s *Scheduler) Enroll(ctx context.Context, userID, channelID, spec string) ([]types.PulseTime, error) {
	var times []types.PulseTime
	spec = strings.TrimSpace(spec)
	if spec == "" {
		times = s.RandomTimes(DefaultCheckIns)
	} else {
		var err error
		if times, err = s.ParseTimes(spec); err != nil {
			return nil, err
		}
	}
	err := s.store.SaveEnrollment(ctx, types.PulseEnrollment{
		UserID:    userID,
		ChannelID: channelID,
		Times:     times,
	})
	if err != nil {
		return nil, fmt.Errorf("saving pulse enrollment: %w", err)
	}
	s.logger.Info("enrolled in pulses", "user", userID, "times", FormatTimes(times))
	return times, nil
}

// SendNow delivers a random question to channelID immediately.
func (s *Scheduler) SendNow(ctx context.Context, channelID string) (Question, error) {
	s.mu.Lock()
	q := s.bank.Random(s.rng)
	s.mu.Unlock()
	return q, s.sender.SendPulse(ctx, channelID, q)
}

// Tick delivers every check-in due at now, at most once per user per day.
// It returns the number delivered.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (int, error) {
	now = now.In(s.loc)
	enrollments, err := s.store.ListEnrollments(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing pulse enrollments: %w", err)
	}
	day := now.Format(dayLayout)
	sent := 0
	for _, e := range enrollments {
		if e.LastSent == day || !due(e.Times, now) {
			continue
		}
		// Claim the day first so overlapping ticks cannot double-send.
		claimed, err := s.store.MarkPulseSent(ctx, e.UserID, day)
		if err != nil {
			s.logger.Warn("failed to mark pulse sent", "user", e.UserID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		q, err := s.SendNow(ctx, e.ChannelID)
		if err != nil {
			s.logger.Warn("failed to send scheduled pulse", "user", e.UserID, "dimension", q.Dimension, "error", err)
			continue
		}
		s.logger.Debug("sent scheduled pulse", "user", e.UserID, "dimension", q.Dimension)
		sent++
	}
	return sent, nil
}

// Run ticks once a minute until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	s.logger.Info("pulse scheduler started", "work_hours", fmt.Sprintf("%d-%d", s.workStart, s.workEnd))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("pulse scheduler stopped")
			return nil
		case t := <-ticker.C:
			if _, err := s.Tick(ctx, t); err != nil {
				s.logger.Warn("pulse tick failed", "error", err)
			}
		}
	}
}

// due reports whether any scheduled time is within a minute of now.
func due(times []types.PulseTime, now time.Time) bool {
	for _, t := range times {
		if t.Hour != now.Hour() {
			continue
		}
		d := t.Minute - now.Minute()
		if d >= -matchWindowMinute && d <= matchWindowMinute {
			return true
		}
	}
	return false
}

func sortTimes(times []types.PulseTime) {
	slices.SortFunc(times, func(a, b types.PulseTime) int {
		return (a.Hour*60 + a.Minute) - (b.Hour*60 + b.Minute)
	})
}

// FormatTimes renders times as "9:05 and 14:30".
func FormatTimes(times []types.PulseTime) string {
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = fmt.Sprintf("%d:%02d", t.Hour, t.Minute)
	}
	return strings.Join(parts, " and ")
}
