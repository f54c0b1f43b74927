package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/onboardbuddy/internal/logging"
	"github.com/steveyegge/onboardbuddy/internal/rai"
	"github.com/steveyegge/onboardbuddy/internal/telemetry"
)

const (
	DefaultTimeout        = 25 * time.Second
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 1 * time.Second
)

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	Logger         *slog.Logger
}

// Answer is the outcome of one question. Text is always safe to show: when
// Err is set it holds FallbackMessage.
type Answer struct {
	Text      string
	Kind      PromptKind
	Latency   time.Duration
	Screening rai.Screening
	Metrics   rai.Metrics
	Err       error
}

// Service wraps a Querier with prompt routing, screening, retries and a
// per-call timeout.
type Service struct {
	querier        Querier
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewService creates a Service around q.
func NewService(q Querier, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	llmMetricsOnce.Do(initLLMMetrics)
	return &Service{
		querier:        q,
		timeout:        opts.Timeout,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		logger:         opts.Logger.With("component", "llm"),
		now:            time.Now,
	}
}

// Query answers question, returning FallbackMessage on any failure.
func (s *Service) Query(ctx context.Context, question string) string {
	return s.Ask(ctx, question).Text
}

// Ask screens question, routes it to a prompt and queries the model.
func (s *Service) Ask(ctx context.Context, question string) Answer {
	screening := rai.Screen(question)
	kind, role := Route(screening.Text)
	ans := Answer{Kind: kind, Screening: screening}

	prompt, err := RenderPrompt(kind, screening.Prompt(), role)
	if err != nil {
		ans.Err = err
		ans.Text = FallbackMessage
		return ans
	}

	start := s.now()
	text, err := s.call(ctx, kind, prompt)
	ans.Latency = s.now().Sub(start)
	if err != nil {
		s.logger.Warn("llm query failed",
			"kind", kind,
			"query", logging.Truncate(screening.Text, 50),
			"error", err)
		ans.Err = err
		ans.Text = FallbackMessage
		return ans
	}

	ans.Text = text
	ans.Metrics = rai.Analyze(text, screening)
	ans.Metrics.Latency = ans.Latency
	ans.Metrics.At = s.now()
	if d, ok := s.querier.(Describer); ok {
		ans.Metrics.Model = d.Model()
		ans.Metrics.Provider = d.Provider()
	}
	return ans
}

// llmMetrics holds lazily-initialized OTel instruments for model calls.
var llmMetrics struct {
	requests metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

var llmMetricsOnce sync.Once

func initLLMMetrics() {
	m := telemetry.Meter("github.com/steveyegge/onboardbuddy/llm")
	llmMetrics.requests, _ = m.Int64Counter("buddy.llm.requests",
		metric.WithDescription("Model queries issued"),
		metric.WithUnit("{request}"),
	)
	llmMetrics.errors, _ = m.Int64Counter("buddy.llm.errors",
		metric.WithDescription("Model queries that failed after retries"),
		metric.WithUnit("{request}"),
	)
	llmMetrics.duration, _ = m.Float64Histogram("buddy.llm.request.duration",
		metric.WithDescription("Model query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
}

func (s *Service) call(ctx context.Context, kind PromptKind, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tracer := telemetry.Tracer("github.com/steveyegge/onboardbuddy/llm")
	ctx, span := tracer.Start(ctx, "llm.query")
	defer span.End()
	kindAttr := attribute.String("buddy.llm.prompt", string(kind))
	span.SetAttributes(kindAttr)
	if d, ok := s.querier.(Describer); ok {
		span.SetAttributes(
			attribute.String("buddy.llm.provider", d.Provider()),
			attribute.String("buddy.llm.model", d.Model()),
		)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.initialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.maxRetries)), ctx)

	var text string
	attempts := 0
	t0 := time.Now()
	err := backoff.Retry(func() error {
		attempts++
		if llmMetrics.requests != nil {
			llmMetrics.requests.Add(ctx, 1, metric.WithAttributes(kindAttr))
		}
		out, err := s.querier.Query(ctx, prompt)
		if err == nil {
			text = out
			return nil
		}
		if Retryable(err) {
			s.logger.Debug("retrying llm query", "attempt", attempts, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	ms := float64(time.Since(t0).Milliseconds())

	span.SetAttributes(attribute.Int("buddy.llm.attempts", attempts))
	if llmMetrics.duration != nil {
		llmMetrics.duration.Record(ctx, ms, metric.WithAttributes(kindAttr))
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && err != ctxErr {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		if llmMetrics.errors != nil {
			llmMetrics.errors.Add(ctx, 1, metric.WithAttributes(kindAttr))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("llm query failed after %d attempt(s): %w", attempts, err)
	}
	return text, nil
}
