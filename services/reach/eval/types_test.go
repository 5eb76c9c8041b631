// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubComponent struct {
	props []Property
}

func (s *stubComponent) Name() string { return "stub" }
func (s *stubComponent) Properties() []Property { return s.props }
func (s *stubComponent) Metrics() []MetricDefinition { return nil }
func (s *stubComponent) HealthCheck(ctx context.Context) error { return nil }

func TestProperty_Validate(t *testing.T) {
	p := Property{}
	assert.ErrorIs(t, p.Validate(), ErrInvalidProperty)

	p = Property{Name: "x"}
	assert.ErrorIs(t, p.Validate(), ErrInvalidProperty)

	p = Property{Name: "x", Description: "y"}
	assert.ErrorIs(t, p.Validate(), ErrInvalidProperty)

	p.Check = func(input, output any) error { return nil }
	assert.NoError(t, p.Validate())
}

func TestProperty_HasTag(t *testing.T) {
	p := Property{Tags: []string{"critical", "boundary"}}
	assert.True(t, p.HasTag("boundary"))
	assert.False(t, p.HasTag("performance"))
}

func TestMetricDefinition_Validate(t *testing.T) {
	m := MetricDefinition{Name: "x", Description: "y", Type: MetricHistogram}
	assert.Error(t, m.Validate())

	m.Buckets = []float64{1, 2}
	assert.NoError(t, m.Validate())

	assert.Equal(t, "counter", MetricCounter.String())
	assert.Equal(t, "metric_type(9)", MetricType(9).String())
}

func TestCheckAll(t *testing.T) {
	c := &stubComponent{props: []Property{
		{
			Name:        "passes",
			Description: "always holds",
			Check:       func(input, output any) error { return nil },
		},
		{
			Name:        "fails",
			Description: "never holds",
			Check:       func(input, output any) error { return errors.New("nope") },
		},
		{
			Name:        "panics",
			Description: "blows up",
			Check:       func(input, output any) error { panic("boom") },
		},
		{Name: "incomplete"},
	}}

	results := CheckAll(c, 1, 2)
	require.Len(t, results, 4)
	assert.True(t, results[0].Passed)
	assert.ErrorIs(t, results[1].Err, ErrPropertyViolated)
	assert.ErrorIs(t, results[2].Err, ErrPropertyViolated)
	assert.ErrorIs(t, results[3].Err, ErrInvalidProperty)

	failed := Failed(results)
	assert.Len(t, failed, 3)
	assert.Equal(t, "stub", failed[0].Component)
}
