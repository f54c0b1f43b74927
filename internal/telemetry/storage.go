package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/types"
)

const storageScopeName = "github.com/steveyegge/onboardbuddy/storage"

// InstrumentedStore wraps storage.Store with OTel tracing and metrics.
// Every method gets a span and is counted in buddy.storage.* metrics.
type InstrumentedStore struct {
	inner  storage.Store
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapStore returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is.
func WrapStore(s storage.Store) storage.Store {
	if !Enabled() {
		return s
	}
	m := Meter(storageScopeName)
	ops, _ := m.Int64Counter("buddy.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("buddy.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("buddy.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	return &InstrumentedStore{
		inner:  s,
		tracer: Tracer(storageScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// op starts a span and records a metric for the named storage operation.
func (s *InstrumentedStore) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (s *InstrumentedStore) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

// ── Checklists ──────────────────────────────────────────────────────────────

func (s *InstrumentedStore) Create(ctx context.Context, employeeID, managerID, role string, items []storage.NewItem) (string, error) {
	attrs := []attribute.KeyValue{
		attribute.String("buddy.role", role),
		attribute.Int("buddy.item.count", len(items)),
	}
	ctx, span, t := s.op(ctx, "Create", attrs...)
	id, err := s.inner.Create(ctx, employeeID, managerID, role, items)
	s.done(ctx, span, t, err, attrs...)
	return id, err
}

func (s *InstrumentedStore) GetByID(ctx context.Context, id string) (*types.Checklist, error) {
	attrs := []attribute.KeyValue{attribute.String("buddy.checklist.id", id)}
	ctx, span, t := s.op(ctx, "GetByID", attrs...)
	cl, err := s.inner.GetByID(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return cl, err
}

func (s *InstrumentedStore) FindByEmployeeAndManager(ctx context.Context, employeeID, managerID string) ([]*types.Checklist, error) {
	ctx, span, t := s.op(ctx, "FindByEmployeeAndManager")
	list, err := s.inner.FindByEmployeeAndManager(ctx, employeeID, managerID)
	if err == nil {
		span.SetAttributes(attribute.Int("buddy.result.count", len(list)))
	}
	s.done(ctx, span, t, err)
	return list, err
}

func (s *InstrumentedStore) SetItemCompletion(ctx context.Context, checklistID, itemID string, completed bool) (bool, error) {
	attrs := []attribute.KeyValue{
		attribute.String("buddy.checklist.id", checklistID),
		attribute.Bool("buddy.item.completed", completed),
	}
	ctx, span, t := s.op(ctx, "SetItemCompletion", attrs...)
	ok, err := s.inner.SetItemCompletion(ctx, checklistID, itemID, completed)
	s.done(ctx, span, t, err, attrs...)
	return ok, err
}

func (s *InstrumentedStore) ToggleItem(ctx context.Context, checklistID, itemID string) (bool, bool, error) {
	attrs := []attribute.KeyValue{attribute.String("buddy.checklist.id", checklistID)}
	ctx, span, t := s.op(ctx, "ToggleItem", attrs...)
	found, completed, err := s.inner.ToggleItem(ctx, checklistID, itemID)
	s.done(ctx, span, t, err, attrs...)
	return found, completed, err
}

func (s *InstrumentedStore) ResolveItem(ctx context.Context, itemID string) (*types.Checklist, *types.ChecklistItem, error) {
	ctx, span, t := s.op(ctx, "ResolveItem")
	cl, it, err := s.inner.ResolveItem(ctx, itemID)
	span.SetAttributes(attribute.Bool("buddy.resolved", it != nil))
	s.done(ctx, span, t, err)
	return cl, it, err
}

func (s *InstrumentedStore) ResolveItemByIDPrefix(ctx context.Context, prefix string) (*types.Checklist, *types.ChecklistItem, error) {
	ctx, span, t := s.op(ctx, "ResolveItemByIDPrefix")
	cl, it, err := s.inner.ResolveItemByIDPrefix(ctx, prefix)
	span.SetAttributes(attribute.Bool("buddy.resolved", it != nil))
	s.done(ctx, span, t, err)
	return cl, it, err
}

// ── Pulses ──────────────────────────────────────────────────────────────────

func (s *InstrumentedStore) RecordPulse(ctx context.Context, resp types.PulseResponse) error {
	attrs := []attribute.KeyValue{
		attribute.String("buddy.pulse.dimension", resp.Dimension),
		attribute.String("buddy.pulse.level", string(resp.Level)),
	}
	ctx, span, t := s.op(ctx, "RecordPulse", attrs...)
	err := s.inner.RecordPulse(ctx, resp)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStore) ListPulses(ctx context.Context, userID string) ([]types.PulseResponse, error) {
	ctx, span, t := s.op(ctx, "ListPulses")
	out, err := s.inner.ListPulses(ctx, userID)
	s.done(ctx, span, t, err)
	return out, err
}

func (s *InstrumentedStore) SaveEnrollment(ctx context.Context, e types.PulseEnrollment) error {
	ctx, span, t := s.op(ctx, "SaveEnrollment")
	err := s.inner.SaveEnrollment(ctx, e)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStore) ListEnrollments(ctx context.Context) ([]types.PulseEnrollment, error) {
	ctx, span, t := s.op(ctx, "ListEnrollments")
	out, err := s.inner.ListEnrollments(ctx)
	s.done(ctx, span, t, err)
	return out, err
}

func (s *InstrumentedStore) MarkPulseSent(ctx context.Context, userID, day string) (bool, error) {
	ctx, span, t := s.op(ctx, "MarkPulseSent")
	sent, err := s.inner.MarkPulseSent(ctx, userID, day)
	s.done(ctx, span, t, err)
	return sent, err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
