// Package slackbot turns verified Slack payloads into onboarding work:
// slash commands, checklist interactions, direct questions and pulse
// check-ins. The webhook server owns the HTTP edge; Bot implements its
// Dispatcher.
package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/onboardbuddy/internal/authz"
	"github.com/steveyegge/onboardbuddy/internal/llm"
	"github.com/steveyegge/onboardbuddy/internal/pulse"
	"github.com/steveyegge/onboardbuddy/internal/rai"
	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/telemetry"
	"github.com/steveyegge/onboardbuddy/internal/webhook"
)

// DefaultJobTimeout bounds each piece of follow-up work.
const DefaultJobTimeout = 60 * time.Second

// Answerer answers a free-form question. *llm.Service satisfies it.
type Answerer interface {
	Ask(ctx context.Context, question string) llm.Answer
}

// Config wires a Bot.
type Config struct {
	API     SlackAPI
	Store   storage.Store
	LLM     Answerer
	Policy  authz.Policy // nil uses the profile-title policy
	Tracker *rai.Tracker // nil creates a fresh tracker

	// Pulse scheduling. Zero hours select the pulse package defaults.
	Bank      *pulse.Bank
	WorkStart int
	WorkEnd   int
	Location  *time.Location

	JobTimeout time.Duration
	Logger     *slog.Logger
}

// Bot dispatches Slack commands, events and interactions.
type Bot struct {
	gateway    *Gateway
	api        SlackAPI
	store      storage.Store
	llm        Answerer
	policy     authz.Policy
	tracker    *rai.Tracker
	pulses     *pulse.Scheduler
	jobTimeout time.Duration
	logger     *slog.Logger

	botUserID string

	wg    sync.WaitGroup
	locks sync.Map // checklist ID -> *sync.Mutex

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Bot and the pulse scheduler it delivers through.
func New(cfg Config) (*Bot, error) {
	if cfg.API == nil || cfg.Store == nil || cfg.LLM == nil {
		return nil, fmt.Errorf("slackbot requires an API client, a store and an answerer")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if cfg.Tracker == nil {
		cfg.Tracker = rai.NewTracker()
	}
	gw := NewGateway(cfg.API, cfg.Logger.With("component", "gateway"))
	if cfg.Policy == nil {
		cfg.Policy = authz.NewTitlePolicy(gw)
	}
	slackMetricsOnce.Do(initSlackMetrics)

	b := &Bot{
		gateway:    gw,
		api:        cfg.API,
		store:      cfg.Store,
		llm:        cfg.LLM,
		policy:     cfg.Policy,
		tracker:    cfg.Tracker,
		jobTimeout: cfg.JobTimeout,
		logger:     cfg.Logger.With("component", "slackbot"),
		now:        time.Now,
		sleep:      sleepContext,
	}
	sched, err := pulse.NewScheduler(pulse.SchedulerConfig{
		Store:     cfg.Store,
		Sender:    b,
		Bank:      cfg.Bank,
		WorkStart: cfg.WorkStart,
		WorkEnd:   cfg.WorkEnd,
		Location:  cfg.Location,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("pulse scheduler: %w", err)
	}
	b.pulses = sched
	return b, nil
}

// Start identifies the bot user so its own messages can be ignored.
func (b *Bot) Start(ctx context.Context) error {
	resp, err := b.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	b.botUserID = resp.UserID
	b.logger.Info("connected to slack", "team", resp.Team, "bot_user", resp.UserID)
	return nil
}

// Gateway returns the outbound messaging surface.
func (b *Bot) Gateway() *Gateway { return b.gateway }

// Scheduler returns the pulse scheduler; the caller runs it.
func (b *Bot) Scheduler() *pulse.Scheduler { return b.pulses }

// Tracker returns the responsible-AI aggregate.
func (b *Bot) Tracker() *rai.Tracker { return b.tracker }

var _ webhook.Dispatcher = (*Bot)(nil)
var _ pulse.Sender = (*Bot)(nil)

// Go runs job in the background with a context detached from the request
// and bounded by the job timeout. Panics are logged, never propagated.
func (b *Bot) Go(job webhook.Job) {
	if job == nil {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), b.jobTimeout)
		defer cancel()
		job(ctx)
	}()
}

// Wait blocks until background jobs finish or ctx ends.
func (b *Bot) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lockChecklist serializes read-modify-notify cycles on one checklist so
// concurrent clicks see each other's progress.
func (b *Bot) lockChecklist(id string) func() {
	v, _ := b.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (b *Bot) isManager(ctx context.Context, userID string) bool {
	ok, err := b.policy.IsAuthorizedManager(ctx, userID)
	if err != nil {
		b.logger.Warn("manager check failed", "user", userID, "error", err)
		return false
	}
	return ok
}

// reply posts text to channelID, logging rather than returning failures.
func (b *Bot) reply(ctx context.Context, channelID, text string) {
	if _, err := b.gateway.SendMessage(ctx, channelID, text); err != nil {
		b.logger.Error("send message", "channel", channelID, "error", err)
	}
}

// dm sends text to userID's direct-message channel.
func (b *Bot) dm(ctx context.Context, userID, text string) error {
	ch, err := b.gateway.OpenDirectMessageChannel(ctx, userID)
	if err != nil {
		return err
	}
	_, err = b.gateway.SendMessage(ctx, ch, text)
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slackMetrics holds lazily-initialized OTel instruments for dispatch.
var slackMetrics struct {
	commands     metric.Int64Counter
	interactions metric.Int64Counter
	events       metric.Int64Counter
}

var slackMetricsOnce sync.Once

func initSlackMetrics() {
	m := telemetry.Meter("github.com/steveyegge/onboardbuddy/slackbot")
	slackMetrics.commands, _ = m.Int64Counter("buddy.slack.commands",
		metric.WithDescription("Slash commands dispatched"),
		metric.WithUnit("{command}"),
	)
	slackMetrics.interactions, _ = m.Int64Counter("buddy.slack.interactions",
		metric.WithDescription("Block actions dispatched"),
		metric.WithUnit("{action}"),
	)
	slackMetrics.events, _ = m.Int64Counter("buddy.slack.events",
		metric.WithDescription("Events API callbacks dispatched"),
		metric.WithUnit("{event}"),
	)
}

func count(ctx context.Context, c metric.Int64Counter, key, value string) {
	if c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attribute.String(key, value)))
	}
}
