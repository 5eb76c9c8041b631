// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eval defines the evaluation contract shared by the solvers.
//
// Every algorithm is an Evaluable: it names itself, declares the
// correctness properties it guarantees, and the metrics it exposes. The
// properties are checked by tests and by the verify command against
// concrete (input, output) pairs.
package eval

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Errors returned by property validation.
var (
	// ErrInvalidProperty indicates a property definition is incomplete.
	ErrInvalidProperty = errors.New("invalid property")

	// ErrPropertyViolated indicates a property check failed.
	ErrPropertyViolated = errors.New("property violated")
)

// -----------------------------------------------------------------------------
// Core Interfaces
// -----------------------------------------------------------------------------

// Evaluable is implemented by every testable component.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Evaluable interface {
	// Name returns a stable identifier suitable for metric labels
	// (lowercase, underscore-separated).
	Name() string

	// Properties returns the correctness properties this component guarantees.
	Properties() []Property

	// Metrics returns the metrics this component exposes. For solvers
	// each one is fed the solve's explored-state count.
	Metrics() []MetricDefinition

	// HealthCheck returns nil when the component is usable.
	HealthCheck(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// Property Definition
// -----------------------------------------------------------------------------

// Property defines a correctness invariant checked against an
// (input, output) pair.
type Property struct {
	// Name is a unique identifier, e.g. "zero_target_zero_presses".
	Name string

	// Description explains what the property verifies.
	Description string

	// Check returns nil if the property holds.
	Check func(input any, output any) error

	// Tags categorise the property, e.g. "critical", "boundary".
	Tags []string

	// Timeout bounds a single check. Zero means no bound.
	Timeout time.Duration
}

// Validate checks that the property is well-formed.
func (p *Property) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProperty)
	}
	if p.Description == "" {
		return fmt.Errorf("%w: description is required for %s", ErrInvalidProperty, p.Name)
	}
	if p.Check == nil {
		return fmt.Errorf("%w: check function is required for %s", ErrInvalidProperty, p.Name)
	}
	return nil
}

// HasTag returns true if this property has the specified tag.
func (p *Property) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Metric Definition
// -----------------------------------------------------------------------------

// MetricType identifies the type of metric.
type MetricType int

const (
	// MetricCounter is a monotonically increasing value.
	MetricCounter MetricType = iota
	// MetricGauge is a value that can go up or down.
	MetricGauge
	// MetricHistogram records observations in buckets.
	MetricHistogram
)

// String returns the string representation of a MetricType.
func (m MetricType) String() string {
	switch m {
	case MetricCounter:
		return "counter"
	case MetricGauge:
		return "gauge"
	case MetricHistogram:
		return "histogram"
	default:
		return fmt.Sprintf("metric_type(%d)", m)
	}
}

// MetricDefinition describes a metric exposed by a component.
type MetricDefinition struct {
	// Name follows Prometheus conventions, e.g. "bitmask_bfs_states_total".
	Name string

	// Type is the metric type.
	Type MetricType

	// Description explains what this metric measures.
	Description string

	// Labels are the label names for this metric.
	Labels []string

	// Buckets are the histogram bucket boundaries (histograms only).
	Buckets []float64
}

// Validate checks that the metric definition is well-formed.
func (m *MetricDefinition) Validate() error {
	if m.Name == "" {
		return errors.New("metric name is required")
	}
	if m.Description == "" {
		return errors.New("metric description is required")
	}
	if m.Type == MetricHistogram && len(m.Buckets) == 0 {
		return errors.New("histogram metrics require buckets")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Property Results
// -----------------------------------------------------------------------------

// PropertyResult is the outcome of one property check.
type PropertyResult struct {
	// Component is the Evaluable that declared the property.
	Component string

	// Property is the property name.
	Property string

	// Passed is true if the check returned nil.
	Passed bool

	// Err is the check failure, wrapped in ErrPropertyViolated.
	Err error

	// Duration is how long the check took.
	Duration time.Duration
}

// CheckAll runs every property of component against (input, output).
//
// Description:
//
//	Properties that fail validation are reported as failures rather than
//	skipped. A check that panics is reported as a failure; the panic does
//	not escape.
//
// Outputs:
//   - []PropertyResult: One result per declared property, in declaration order.
func CheckAll(component Evaluable, input, output any) []PropertyResult {
	props := component.Properties()
	results := make([]PropertyResult, 0, len(props))
	for i := range props {
		p := props[i]
		res := PropertyResult{Component: component.Name(), Property: p.Name}
		if err := p.Validate(); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		start := time.Now()
		err := runCheck(p, input, output)
		res.Duration = time.Since(start)
		if err != nil {
			res.Err = fmt.Errorf("%w: %s: %v", ErrPropertyViolated, p.Name, err)
		} else {
			res.Passed = true
		}
		results = append(results, res)
	}
	return results
}

// Failed filters results down to failures.
func Failed(results []PropertyResult) []PropertyResult {
	var out []PropertyResult
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func runCheck(p Property, input, output any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()
	return p.Check(input, output)
}
