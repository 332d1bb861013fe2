package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "weibosim/internal/service"

// Outcome values recorded on the task counter.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeCacheHit = "cache_hit"
)

// generationMetrics holds the OpenTelemetry instruments for generation tasks.
type generationMetrics struct {
	tasks    metric.Int64Counter
	duration metric.Float64Histogram
}

// GenerationOption configures a GenerationService.
type GenerationOption func(*GenerationService)

// WithTracer sets the tracer used for generation spans.
func WithTracer(tracer trace.Tracer) GenerationOption {
	return func(s *GenerationService) {
		s.tracer = tracer
	}
}

// WithMeter sets the meter used for generation metrics.
func WithMeter(meter metric.Meter) GenerationOption {
	return func(s *GenerationService) {
		s.metrics = initGenerationMetrics(meter)
	}
}

// WithRand replaces the random source. Values must lie in [0, 1).
func WithRand(rnd func() float64) GenerationOption {
	return func(s *GenerationService) {
		s.rand = rnd
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) GenerationOption {
	return func(s *GenerationService) {
		s.now = now
	}
}

func initGenerationMetrics(meter metric.Meter) *generationMetrics {
	tasks, _ := meter.Int64Counter("weibo.generation.tasks",
		metric.WithDescription("Generation tasks by task and outcome"),
		metric.WithUnit("{task}"),
	)
	duration, _ := meter.Float64Histogram("weibo.generation.duration",
		metric.WithDescription("Generation task duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000),
	)
	return &generationMetrics{tasks: tasks, duration: duration}
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func defaultMetrics() *generationMetrics {
	return initGenerationMetrics(otel.Meter(instrumentationName))
}

// taskRun tracks one generation task from start to outcome.
type taskRun struct {
	svc   *GenerationService
	task  string
	span  trace.Span
	start time.Time
}

func (s *GenerationService) startTask(ctx context.Context, task string, attrs ...attribute.KeyValue) (context.Context, *taskRun) {
	ctx, span := s.tracer.Start(ctx, "generation."+task, trace.WithAttributes(attrs...))
	return ctx, &taskRun{svc: s, task: task, span: span, start: time.Now()}
}

// end closes the span and records the outcome. A nil err with cacheHit
// records a cache hit.
func (r *taskRun) end(ctx context.Context, err error, cacheHit bool) {
	outcome := outcomeOK
	switch {
	case err != nil:
		outcome = outcomeError
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	case cacheHit:
		outcome = outcomeCacheHit
	}
	r.span.SetAttributes(attribute.String("generation.outcome", outcome))
	r.span.End()

	if m := r.svc.metrics; m != nil {
		attrs := metric.WithAttributes(
			attribute.String("task", r.task),
			attribute.String("outcome", outcome),
		)
		m.tasks.Add(ctx, 1, attrs)
		m.duration.Record(ctx, float64(time.Since(r.start).Milliseconds()), attrs)
	}
}
