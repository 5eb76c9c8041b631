// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianReach/services/reach/eval"
)

// Metrics holds the solver instruments.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// SolvesTotal counts solves by algorithm, variant and status.
	SolvesTotal metric.Int64Counter

	// SolveDuration records solve duration in seconds.
	SolveDuration metric.Float64Histogram

	// StatesExplored counts states or assignments visited by solvers.
	StatesExplored metric.Int64Counter

	// HTTPRequestsTotal counts API requests by route and status code.
	HTTPRequestsTotal metric.Int64Counter

	meter      metric.Meter
	mu         sync.RWMutex
	components map[string][]componentInstrument
}

// componentInstrument is one instrument built from a component's
// MetricDefinition. Exactly one field is set.
type componentInstrument struct {
	counter   metric.Int64Counter
	gauge     metric.Int64Gauge
	histogram metric.Float64Histogram
}

func (ci componentInstrument) record(ctx context.Context, v int64, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	switch {
	case ci.counter != nil:
		ci.counter.Add(ctx, v, opt)
	case ci.gauge != nil:
		ci.gauge.Record(ctx, v, opt)
	case ci.histogram != nil:
		ci.histogram.Record(ctx, float64(v), opt)
	}
}

// NewMetrics registers every instrument with meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter, components: make(map[string][]componentInstrument)}
	var err error

	m.SolvesTotal, err = meter.Int64Counter(
		"reach_solves_total",
		metric.WithDescription("Total machine solves"),
		metric.WithUnit("{solve}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create solves_total: %w", err)
	}

	m.SolveDuration, err = meter.Float64Histogram(
		"reach_solve_duration_seconds",
		metric.WithDescription("Machine solve duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create solve_duration: %w", err)
	}

	m.StatesExplored, err = meter.Int64Counter(
		"reach_states_explored_total",
		metric.WithDescription("States or assignments visited by solvers"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create states_explored: %w", err)
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"reach_http_requests_total",
		metric.WithDescription("Total API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	return m, nil
}

// RegisterComponent builds instruments for the metrics a component
// declares. RecordSolve feeds each of them the solve's explored-state
// count when the algorithm name matches component. Registering the same
// component again is a no-op.
//
// Outputs:
//   - error: An invalid definition or an instrument the meter rejects.
func (m *Metrics) RegisterComponent(component string, defs []eval.MetricDefinition) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.components[component]; ok {
		return nil
	}

	instruments := make([]componentInstrument, 0, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return fmt.Errorf("%s metric %q: %w", component, def.Name, err)
		}
		var ci componentInstrument
		var err error
		switch def.Type {
		case eval.MetricCounter:
			ci.counter, err = m.meter.Int64Counter(def.Name, metric.WithDescription(def.Description))
		case eval.MetricGauge:
			ci.gauge, err = m.meter.Int64Gauge(def.Name, metric.WithDescription(def.Description))
		case eval.MetricHistogram:
			ci.histogram, err = m.meter.Float64Histogram(def.Name,
				metric.WithDescription(def.Description),
				metric.WithExplicitBucketBoundaries(def.Buckets...),
			)
		default:
			err = fmt.Errorf("unsupported metric type %s", def.Type)
		}
		if err != nil {
			return fmt.Errorf("create %s: %w", def.Name, err)
		}
		instruments = append(instruments, ci)
	}
	m.components[component] = instruments
	return nil
}

// NewGlobalMetrics is NewMetrics on the global meter provider.
func NewGlobalMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter("reach"))
}

// RecordSolve records one solve. A nil receiver is a no-op.
func (m *Metrics) RecordSolve(ctx context.Context, algorithm, variant string, d time.Duration, states int, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("algorithm", algorithm),
		attribute.String("variant", variant),
		attribute.String("status", status),
	)
	m.SolvesTotal.Add(ctx, 1, attrs)
	m.SolveDuration.Record(ctx, d.Seconds(), attrs)
	if states > 0 {
		m.StatesExplored.Add(ctx, int64(states), metric.WithAttributes(attribute.String("algorithm", algorithm)))

		m.mu.RLock()
		instruments := m.components[algorithm]
		m.mu.RUnlock()
		for _, ci := range instruments {
			ci.record(ctx, int64(states), attribute.String("variant", variant))
		}
	}
}

// RecordRequest records one API request. A nil receiver is a no-op.
func (m *Metrics) RecordRequest(ctx context.Context, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

// StartSpan creates a span from the global tracer.
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// RecordError records err on span and marks it failed. Nil span or
// error is a no-op.
func RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	var opts []trace.EventOption
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}
