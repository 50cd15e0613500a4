// Package observe provides the OpenTelemetry metrics recorded by the session
// controller and the HTTP server, with a Prometheus exporter bridge so they
// can be scraped from /metrics.
//
// Tests should use [NewMetrics] with their own [metric.MeterProvider] (or
// [Noop]) to avoid cross-test pollution.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all laughmeter metrics.
const meterName = "github.com/dooshek/laughmeter"

// Session outcomes used as the "outcome" attribute.
const (
	OutcomeCompleted  = "completed"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
	OutcomeClosed     = "closed"
)

// Metrics holds all metric instruments. Safe for concurrent use.
type Metrics struct {
	// SessionsStarted counts presses that began a session.
	SessionsStarted metric.Int64Counter

	// SessionsEnded counts sessions by attribute.String("outcome", ...).
	SessionsEnded metric.Int64Counter

	// SessionScore records the final score of completed sessions.
	SessionScore metric.Float64Histogram

	// SessionDuration records how long sessions ran, in seconds.
	SessionDuration metric.Float64Histogram

	// SamplesProcessed counts readings fed to the detector.
	SamplesProcessed metric.Int64Counter

	// StaleCallbacks counts callbacks dropped because their session was
	// superseded. Use with attribute.String("kind", ...).
	StaleCallbacks metric.Int64Counter

	// ActiveSessions is 1 while recording.
	ActiveSessions metric.Int64UpDownCounter

	// MeterClients tracks connected WebSocket clients.
	MeterClients metric.Int64UpDownCounter
}

var scoreBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

var durationBuckets = []float64{0.5, 1, 2, 3, 4, 5, 7.5, 10, 30, 60}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionsStarted, err = m.Int64Counter("laughmeter.sessions.started",
		metric.WithDescription("Recording sessions started."),
	); err != nil {
		return nil, err
	}
	if met.SessionsEnded, err = m.Int64Counter("laughmeter.sessions.ended",
		metric.WithDescription("Recording sessions ended, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.SessionScore, err = m.Float64Histogram("laughmeter.session.score",
		metric.WithDescription("Final laughter score of completed sessions."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("laughmeter.session.duration",
		metric.WithDescription("Wall time of recording sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SamplesProcessed, err = m.Int64Counter("laughmeter.samples.processed",
		metric.WithDescription("Metering readings fed to the detector."),
	); err != nil {
		return nil, err
	}
	if met.StaleCallbacks, err = m.Int64Counter("laughmeter.callbacks.stale",
		metric.WithDescription("Capture callbacks dropped because their session was superseded."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("laughmeter.active_sessions",
		metric.WithDescription("Sessions currently recording."),
	); err != nil {
		return nil, err
	}
	if met.MeterClients, err = m.Int64UpDownCounter("laughmeter.meter.clients",
		metric.WithDescription("Connected WebSocket meter clients."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Noop returns metrics that record nothing.
func Noop() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return m
}

// RecordSessionEnded records the outcome and, for completed sessions, the
// final score.
func (m *Metrics) RecordSessionEnded(ctx context.Context, outcome string, score, seconds float64) {
	m.SessionsEnded.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.SessionDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome == OutcomeCompleted {
		m.SessionScore.Record(ctx, score)
	}
}

// RecordStale records a dropped callback.
func (m *Metrics) RecordStale(ctx context.Context, kind string) {
	m.StaleCallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
