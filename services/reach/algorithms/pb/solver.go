// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pb solves both variants as 0/1 pseudo-boolean optimisation
// problems with gophersat.
//
// It is the cross-check solver: slower than the dedicated searches on
// easy machines but independent of them, so agreement between the two is
// meaningful.
//
// Encoding:
//
//	joltage  x_j = sum_k 2^k * y_jk, k < bits(u_j), u_j = min target touched
//	         for each position i: sum_{j touches i} x_j = t_i
//	         minimise sum_j x_j
//
//	lights   x_j in {0,1}, q_i = sum_k 2^k * z_ik
//	         for each position i: sum_{j touches i} x_j - 2*q_i = l_i
//	         minimise sum_j x_j
package pb

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"runtime"
	"slices"
	"time"

	"github.com/crillab/gophersat/solver"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// Config configures the pseudo-boolean solver.
type Config struct {
	// MaxVariables caps the boolean variables in one encoding.
	MaxVariables int

	// Timeout is the maximum execution time enforced by the Runner.
	Timeout time.Duration

	// MaxConcurrent caps gophersat searches in flight, including ones whose
	// caller has already given up. Zero means GOMAXPROCS.
	MaxConcurrent int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxVariables: 4096,
		Timeout:      60 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxVariables < 1 {
		return fmt.Errorf("%w: max variables must be positive", algorithms.ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", algorithms.ErrInvalidConfig)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("%w: negative max concurrent", algorithms.ErrInvalidConfig)
	}
	return nil
}

// Solver is the pseudo_boolean algorithm.
//
// Thread Safety: Safe for concurrent use. Each solve builds its own
// gophersat problem.
type Solver struct {
	config   *Config
	searches *semaphore.Weighted
}

// New creates the solver. A nil config uses DefaultConfig.
func New(config *Config) *Solver {
	if config == nil {
		config = DefaultConfig()
	}
	slots := config.MaxConcurrent
	if slots <= 0 {
		slots = runtime.GOMAXPROCS(0)
	}
	return &Solver{config: config, searches: semaphore.NewWeighted(int64(slots))}
}

// Name returns the algorithm name.
func (s *Solver) Name() string {
	return "pseudo_boolean"
}

// Description returns a one-line summary.
func (s *Solver) Description() string {
	return "0/1 optimisation with gophersat, both variants"
}

// Supports reports true for both variants.
func (s *Solver) Supports(v machine.Variant) bool {
	return v == machine.VariantLights || v == machine.VariantJoltage
}

// Timeout returns the maximum execution time.
func (s *Solver) Timeout() time.Duration {
	return s.config.Timeout
}

// term is one weighted boolean variable of a toggle count.
type term struct {
	toggle int
	lit    int
	weight int
}

// encoding is a built problem plus the bookkeeping to decode its model.
type encoding struct {
	constrs []solver.PBConstr
	terms   []term
	nbVars  int
}

func (e *encoding) newVar() int {
	e.nbVars++
	return e.nbVars
}

// Solve encodes the machine, minimises, and decodes per-toggle counts.
//
// Outputs:
//   - error: Wraps ErrInfeasible when gophersat proves the problem unsat,
//     ErrSearchBudgetExceeded when the encoding exceeds MaxVariables.
func (s *Solver) Solve(ctx context.Context, m *machine.Machine, v machine.Variant) (*algorithms.Solution, error) {
	if err := algorithms.CheckInput(s, m, v); err != nil {
		return nil, err
	}

	counts := make([]int, m.NumToggles())
	if m.IsZeroTarget(v) {
		return &algorithms.Solution{Algorithm: s.Name(), Variant: v, Counts: counts}, nil
	}

	var enc *encoding
	var err error
	if v == machine.VariantLights {
		enc, err = encodeLights(m)
	} else {
		enc, err = encodeJoltage(m)
	}
	if err != nil {
		return nil, algorithms.NewAlgorithmError(s.Name(), "Encode", err)
	}
	if enc.nbVars > s.config.MaxVariables {
		return nil, algorithms.NewAlgorithmError(s.Name(), "Encode",
			fmt.Errorf("%w: %d variables exceeds %d", algorithms.ErrSearchBudgetExceeded, enc.nbVars, s.config.MaxVariables))
	}

	model, cost, err := s.minimize(ctx, enc)
	if err != nil {
		return nil, err
	}
	if cost < 0 {
		return nil, algorithms.NewAlgorithmError(s.Name(), "Solve", algorithms.ErrInfeasible)
	}

	total := 0
	for _, t := range enc.terms {
		if idx := t.lit - 1; idx < len(model) && model[idx] {
			counts[t.toggle] += t.weight
			total += t.weight
		}
	}
	return &algorithms.Solution{
		Algorithm:      s.Name(),
		Variant:        v,
		Presses:        total,
		Counts:         counts,
		StatesExplored: enc.nbVars,
	}, nil
}

// minimize runs gophersat in a goroutine so ctx can abandon it.
//
// gophersat does not poll stop inside a single search, so an abandoned
// search runs on until it finishes. It keeps its semaphore slot until
// then, which bounds how many can pile up behind timed-out callers.
func (s *Solver) minimize(ctx context.Context, enc *encoding) ([]bool, int, error) {
	if err := s.searches.Acquire(ctx, 1); err != nil {
		return nil, 0, algorithms.NewAlgorithmError(s.Name(), "Solve", err)
	}

	problem := solver.ParsePBConstrs(enc.constrs)
	lits := make([]solver.Lit, len(enc.terms))
	weights := make([]int, len(enc.terms))
	for i, t := range enc.terms {
		lits[i] = solver.IntToLit(int32(t.lit))
		weights[i] = t.weight
	}
	problem.SetCostFunc(lits, weights)

	stop := make(chan struct{})
	done := make(chan solver.Result, 1)
	go func() {
		defer s.searches.Release(1)
		done <- solver.New(problem).Optimal(nil, stop)
	}()

	select {
	case res := <-done:
		switch res.Status {
		case solver.Sat:
			return res.Model, res.Weight, nil
		case solver.Unsat:
			return nil, -1, nil
		default:
			return nil, 0, algorithms.NewAlgorithmError(s.Name(), "Solve",
				errors.New("search stopped without a verdict"))
		}
	case <-ctx.Done():
		close(stop)
		return nil, 0, algorithms.NewAlgorithmError(s.Name(), "Solve", ctx.Err())
	}
}

func encodeJoltage(m *machine.Machine) (*encoding, error) {
	enc := &encoding{}
	target := m.Joltages()
	byPosition := make([][]term, m.Dimension())

	for j := 0; j < m.NumToggles(); j++ {
		positions := m.Positions(j)
		if len(positions) == 0 {
			continue
		}
		bound := target[positions[0]]
		for _, p := range positions[1:] {
			bound = min(bound, target[p])
		}
		for k := 0; k < bits.Len(uint(bound)); k++ {
			t := term{toggle: j, lit: enc.newVar(), weight: 1 << k}
			enc.terms = append(enc.terms, t)
			for _, p := range positions {
				byPosition[p] = append(byPosition[p], t)
			}
		}
	}

	for i, want := range target {
		lits, weights := split(byPosition[i])
		if len(lits) == 0 {
			if want != 0 {
				return nil, fmt.Errorf("%w: position %d has no usable toggle", algorithms.ErrInfeasible, i)
			}
			continue
		}
		enc.constrs = append(enc.constrs, equal(lits, weights, want)...)
	}
	return enc, nil
}

// encodeLights builds the parity constraints with slack variables.
func encodeLights(m *machine.Machine) (*encoding, error) {
	enc := &encoding{}
	byPosition := make([][]term, m.Dimension())

	for j := 0; j < m.NumToggles(); j++ {
		positions := m.Positions(j)
		if len(positions) == 0 {
			continue
		}
		t := term{toggle: j, lit: enc.newVar(), weight: 1}
		enc.terms = append(enc.terms, t)
		for _, p := range positions {
			byPosition[p] = append(byPosition[p], t)
		}
	}

	for i := 0; i < m.Dimension(); i++ {
		want := 0
		if m.Lights().Has(i) {
			want = 1
		}
		lits, weights := split(byPosition[i])
		if len(lits) == 0 {
			if want != 0 {
				return nil, fmt.Errorf("%w: light %d has no toggle", algorithms.ErrInfeasible, i)
			}
			continue
		}
		for k := 0; k < bits.Len(uint(len(lits)/2)); k++ {
			lits = append(lits, enc.newVar())
			weights = append(weights, -(2 << k))
		}
		enc.constrs = append(enc.constrs, equal(lits, weights, want)...)
	}
	return enc, nil
}

// equal is sum(weights*lits) = n as a pair of inequalities. Each side gets
// its own slices because gophersat normalises negative weights in place.
func equal(lits, weights []int, n int) []solver.PBConstr {
	return []solver.PBConstr{
		solver.GtEq(slices.Clone(lits), slices.Clone(weights), n),
		solver.LtEq(slices.Clone(lits), slices.Clone(weights), n),
	}
}

func split(terms []term) ([]int, []int) {
	lits := make([]int, len(terms))
	weights := make([]int, len(terms))
	for i, t := range terms {
		lits[i] = t.lit
		weights[i] = t.weight
	}
	return lits, weights
}

// -----------------------------------------------------------------------------
// Evaluable Implementation
// -----------------------------------------------------------------------------

// Properties returns the correctness properties.
func (s *Solver) Properties() []eval.Property {
	return algorithms.CommonProperties()
}

// Metrics returns the metrics this algorithm exposes.
func (s *Solver) Metrics() []eval.MetricDefinition {
	return []eval.MetricDefinition{
		{
			Name:        "pseudo_boolean_variables",
			Type:        eval.MetricHistogram,
			Description: "Boolean variables per encoding",
			Buckets:     []float64{8, 32, 128, 512, 2048},
		},
	}
}

// HealthCheck solves a two-toggle machine end to end.
func (s *Solver) HealthCheck(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	m := machine.MustNew(2, machine.MaskOf(0, 1), []machine.Mask{machine.MaskOf(0), machine.MaskOf(0, 1)}, []int{2, 1})
	sol, err := s.Solve(ctx, m, machine.VariantJoltage)
	if err != nil {
		return algorithms.NewAlgorithmError(s.Name(), "HealthCheck", err)
	}
	if sol.Presses != 2 {
		return algorithms.NewAlgorithmError(s.Name(), "HealthCheck", fmt.Errorf("expected 2 presses, got %d", sol.Presses))
	}
	return nil
}
