// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package algorithms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
	"golang.org/x/sync/errgroup"
)

// Registry indexes algorithms by name.
//
// Thread Safety: Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	algorithms map[string]Algorithm
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{algorithms: make(map[string]Algorithm)}
}

// Register adds an algorithm under its Name().
//
// Outputs:
//   - error: ErrAlreadyRegistered if the name is taken.
func (r *Registry) Register(algo Algorithm) error {
	if algo == nil {
		return fmt.Errorf("%w: nil algorithm", ErrInvalidConfig)
	}
	name := algo.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.algorithms[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.algorithms[name] = algo
	return nil
}

// MustRegister registers an algorithm and panics on error.
// Only use during startup.
func (r *Registry) MustRegister(algo Algorithm) {
	if err := r.Register(algo); err != nil {
		panic(fmt.Sprintf("algorithms: failed to register: %v", err))
	}
}

// Get returns the algorithm with the given name.
func (r *Registry) Get(name string) (Algorithm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	algo, ok := r.algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
	}
	return algo, nil
}

// Resolve returns the named algorithm and checks it supports v.
func (r *Registry) Resolve(name string, v machine.Variant) (Algorithm, error) {
	algo, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if !algo.Supports(v) {
		return nil, fmt.Errorf("%w: %s cannot solve %s", ErrVariantMismatch, name, v)
	}
	return algo, nil
}

// List returns all registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.algorithms))
	for name := range r.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForVariant returns every algorithm supporting v, sorted by name.
func (r *Registry) ForVariant(v machine.Variant) []Algorithm {
	var out []Algorithm
	for _, name := range r.List() {
		algo, err := r.Get(name)
		if err == nil && algo.Supports(v) {
			out = append(out, algo)
		}
	}
	return out
}

// Count returns the number of registered algorithms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.algorithms)
}

// HealthResult is the outcome of one algorithm's HealthCheck.
type HealthResult struct {
	Name string
	Err  error
}

// HealthCheckAll runs HealthCheck on every algorithm.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - concurrency: Maximum checks in flight. Values below 1 mean 1.
//
// Outputs:
//   - []HealthResult: One entry per algorithm, sorted by name.
func (r *Registry) HealthCheckAll(ctx context.Context, concurrency int) []HealthResult {
	if concurrency < 1 {
		concurrency = 1
	}
	names := r.List()
	results := make([]HealthResult, len(names))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, name := range names {
		g.Go(func() error {
			algo, err := r.Get(name)
			if err == nil {
				err = algo.HealthCheck(gCtx)
			}
			results[i] = HealthResult{Name: name, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// MetricsRegistrar builds instruments from a component's declared metrics.
type MetricsRegistrar interface {
	RegisterComponent(component string, defs []eval.MetricDefinition) error
}

// RegisterMetrics hands every algorithm's Metrics() to mr, in name order.
func (r *Registry) RegisterMetrics(mr MetricsRegistrar) error {
	for _, name := range r.List() {
		algo, err := r.Get(name)
		if err != nil {
			return err
		}
		if err := mr.RegisterComponent(name, algo.Metrics()); err != nil {
			return fmt.Errorf("register metrics for %s: %w", name, err)
		}
	}
	return nil
}
