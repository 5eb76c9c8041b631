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
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AleutianAI/AleutianReach/services/reach/eval"
)

func TestInit_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := Init(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestInit_UnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "zipkin"
	_, err := Init(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)

	cfg = DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "graphite"
	_, err = Init(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestInit_Prometheus(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "prometheus"

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	metrics, err := NewGlobalMetrics()
	require.NoError(t, err)
	metrics.RecordSolve(context.Background(), "bitmask_bfs", "lights", time.Millisecond, 12, nil)
	metrics.RecordRequest(context.Background(), "/v1/reach/solve", http.StatusOK)

	handler := MetricsHandler()
	require.NotNil(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reach_solves_total")
}

func TestInit_NoneIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "none"

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSolve(context.Background(), "x", "lights", time.Second, 1, errors.New("boom"))
		m.RecordRequest(context.Background(), "/", 500)
	})
}

func TestNewMetrics_Noop(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotNil(t, m.SolvesTotal)
	assert.NotNil(t, m.SolveDuration)
	assert.NotNil(t, m.StatesExplored)
	assert.NotNil(t, m.HTTPRequestsTotal)
}

func TestRecordError(t *testing.T) {
	_, span := StartSpan(context.Background(), "test", "op")
	defer span.End()

	assert.NotPanics(t, func() {
		RecordError(span, errors.New("boom"))
		RecordError(span, nil)
		RecordError(nil, errors.New("boom"))
	})
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetrics_RegisterComponent(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	require.NoError(t, m.RegisterComponent("bitmask_bfs", []eval.MetricDefinition{
		{Name: "bitmask_bfs_states_total", Type: eval.MetricCounter, Description: "states"},
	}))
	require.NoError(t, m.RegisterComponent("pseudo_boolean", []eval.MetricDefinition{
		{Name: "pseudo_boolean_variables", Type: eval.MetricHistogram, Description: "vars", Buckets: []float64{8, 32}},
	}))
	// A second registration keeps the first instruments.
	require.NoError(t, m.RegisterComponent("bitmask_bfs", nil))

	ctx := context.Background()
	m.RecordSolve(ctx, "bitmask_bfs", "lights", time.Millisecond, 12, nil)
	m.RecordSolve(ctx, "bitmask_bfs", "lights", time.Millisecond, 5, nil)
	m.RecordSolve(ctx, "pseudo_boolean", "joltage", time.Millisecond, 20, nil)
	m.RecordSolve(ctx, "gf2_elimination", "lights", time.Millisecond, 4, nil)

	data := collect(t, reader)

	sum, ok := data["bitmask_bfs_states_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(17), sum.DataPoints[0].Value)

	hist, ok := data["pseudo_boolean_variables"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 20.0, hist.DataPoints[0].Sum, 1e-9)

	assert.NotContains(t, data, "gf2_elimination_assignments_total")
}

func TestMetrics_RegisterComponentRejectsInvalid(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	err = m.RegisterComponent("broken", []eval.MetricDefinition{
		{Name: "broken_latency", Type: eval.MetricHistogram, Description: "no buckets"},
	})
	assert.Error(t, err)

	var nilMetrics *Metrics
	assert.NoError(t, nilMetrics.RegisterComponent("x", nil))
}
