package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CommandInstruments traces and measures engine commands.
type CommandInstruments struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

// NewCommandInstruments creates command instruments from the global providers.
func NewCommandInstruments() (*CommandInstruments, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"engine.command.duration",
		metric.WithDescription("Engine command duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"engine.command.failures",
		metric.WithDescription("Engine commands that ended with a failure"),
	)
	if err != nil {
		return nil, err
	}

	return &CommandInstruments{
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
		failures: failures,
	}, nil
}

// Start opens a command.execute span. The returned function ends the span and
// records the duration, marking the span failed when err is non-nil.
func (ci *CommandInstruments) Start(ctx context.Context, command string) (context.Context, func(err error)) {
	start := time.Now()
	attrs := []attribute.KeyValue{attribute.String("engine.command", command)}

	ctx, span := ci.tracer.Start(ctx, "command.execute", trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		defer span.End()

		outcome := "success"
		if err != nil {
			outcome = "failure"

			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			ci.failures.Add(ctx, 1, metric.WithAttributes(attrs...))
		}

		ci.duration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(append(attrs, attribute.String("outcome", outcome))...))
	}
}
