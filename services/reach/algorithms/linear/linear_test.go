// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package linear

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms/search"
	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

var fixtures = []struct {
	line    string
	lights  int
	joltage int
}{
	{"[.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}", 2, 10},
	{"[...#.] (0,2,3,4) (2,3) (0,4) (0,1,2) (1,2,3,4) {7,5,12,7,2}", 3, 12},
	{"[.###.#] (0,1,2,3,4) (0,3,4) (0,1,2,4,5) (1,2) {10,11,11,5,10,5}", 2, 11},
}

func TestGF2Elimination_Fixtures(t *testing.T) {
	algo := NewGF2Elimination(nil)
	for _, f := range fixtures {
		m, err := machine.Parse(f.line)
		require.NoError(t, err)

		sol, err := algo.Solve(context.Background(), m, machine.VariantLights)
		require.NoError(t, err, f.line)
		assert.Equal(t, f.lights, sol.Presses, f.line)
		assert.NoError(t, algorithms.ReplayCounts(m, machine.VariantLights, sol.Counts))
	}
}

func TestIntegerElimination_Fixtures(t *testing.T) {
	algo := NewIntegerElimination(nil)
	total := 0
	for _, f := range fixtures {
		m, err := machine.Parse(f.line)
		require.NoError(t, err)

		sol, err := algo.Solve(context.Background(), m, machine.VariantJoltage)
		require.NoError(t, err, f.line)
		assert.Equal(t, f.joltage, sol.Presses, f.line)
		assert.NoError(t, algorithms.ReplayCounts(m, machine.VariantJoltage, sol.Counts))
		total += sol.Presses
	}
	assert.Equal(t, 33, total)
}

func TestLinear_Infeasible(t *testing.T) {
	tests := []struct {
		name string
		m    *machine.Machine
	}{
		{"empty toggle", machine.MustNew(1, machine.MaskOf(0), []machine.Mask{0}, []int{1})},
		{"inconsistent", machine.MustNew(2, machine.MaskOf(0), []machine.Mask{machine.MaskOf(0, 1)}, []int{1, 2})},
		{"no toggles", machine.MustNew(3, machine.MaskOf(2), nil, []int{0, 0, 4})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGF2Elimination(nil).Solve(context.Background(), tt.m, machine.VariantLights)
			assert.ErrorIs(t, err, algorithms.ErrInfeasible)

			_, err = NewIntegerElimination(nil).Solve(context.Background(), tt.m, machine.VariantJoltage)
			assert.ErrorIs(t, err, algorithms.ErrInfeasible)
		})
	}
}

func TestIntegerElimination_NegativePivotRejected(t *testing.T) {
	// x0 + x1 = 1 and x1 = 3: consistent over the integers but x0 = -2.
	m := machine.MustNew(2, 0, []machine.Mask{machine.MaskOf(0), machine.MaskOf(0, 1)}, []int{1, 3})
	_, err := NewIntegerElimination(nil).Solve(context.Background(), m, machine.VariantJoltage)
	assert.ErrorIs(t, err, algorithms.ErrInfeasible)
}

func TestLinear_ZeroTarget(t *testing.T) {
	m := machine.MustNew(3, 0, []machine.Mask{machine.MaskOf(0, 1), machine.MaskOf(2), 0}, []int{0, 0, 0})

	sol, err := NewGF2Elimination(nil).Solve(context.Background(), m, machine.VariantLights)
	require.NoError(t, err)
	assert.Zero(t, sol.Presses)

	sol, err = NewIntegerElimination(nil).Solve(context.Background(), m, machine.VariantJoltage)
	require.NoError(t, err)
	assert.Zero(t, sol.Presses)
	assert.Equal(t, []int{0, 0, 0}, sol.Counts)
}

func TestGF2Elimination_FreeColumnBudget(t *testing.T) {
	m := machine.MustNew(1, machine.MaskOf(0), []machine.Mask{1, 1, 1, 1}, nil)
	_, err := NewGF2Elimination(&Config{MaxFreeVariables: 2, MaxAssignments: 1, Timeout: time.Second}).
		Solve(context.Background(), m, machine.VariantLights)
	assert.ErrorIs(t, err, algorithms.ErrSearchBudgetExceeded)
}

func TestIntegerElimination_AssignmentBudget(t *testing.T) {
	m, err := machine.Parse(fixtures[0].line)
	require.NoError(t, err)
	_, err = NewIntegerElimination(&Config{MaxFreeVariables: 8, MaxAssignments: 1, Timeout: time.Second}).
		Solve(context.Background(), m, machine.VariantJoltage)
	assert.ErrorIs(t, err, algorithms.ErrSearchBudgetExceeded)
}

func TestIntegerElimination_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := machine.Parse(fixtures[0].line)
	require.NoError(t, err)

	_, err = NewIntegerElimination(&Config{MaxFreeVariables: 8, MaxAssignments: 1 << 20, Timeout: time.Second, CheckInterval: 1}).
		Solve(ctx, m, machine.VariantJoltage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinear_AgreesWithSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(2025))
	gf2, integer := NewGF2Elimination(nil), NewIntegerElimination(nil)
	bitmask, packed := search.NewBitmaskBFS(nil), search.NewPackedBFS(nil)

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(5)
		toggles := make([]machine.Mask, rng.Intn(6))
		for j := range toggles {
			toggles[j] = machine.Mask(rng.Intn(1 << n))
		}
		joltages := make([]int, n)
		for i := range joltages {
			joltages[i] = rng.Intn(8)
		}
		m := machine.MustNew(n, machine.Mask(rng.Intn(1<<n)), toggles, joltages)

		pairs := []struct {
			v         machine.Variant
			reach     algorithms.Algorithm
			algebraic algorithms.Algorithm
		}{
			{machine.VariantLights, bitmask, gf2},
			{machine.VariantJoltage, packed, integer},
		}
		for _, p := range pairs {
			want, wantErr := p.reach.Solve(context.Background(), m, p.v)
			got, gotErr := p.algebraic.Solve(context.Background(), m, p.v)
			if wantErr != nil {
				assert.ErrorIs(t, wantErr, algorithms.ErrInfeasible)
				assert.ErrorIs(t, gotErr, algorithms.ErrInfeasible, "%s %s", p.v, m)
				continue
			}
			require.NoError(t, gotErr, "%s %s", p.v, m)
			assert.Equal(t, want.Presses, got.Presses, "%s %s", p.v, m)
			assert.NoError(t, algorithms.ReplayCounts(m, p.v, got.Counts), "%s %s", p.v, m)
		}
	}
}

func TestLinear_Evaluable(t *testing.T) {
	m, err := machine.Parse(fixtures[1].line)
	require.NoError(t, err)

	for _, algo := range []algorithms.Algorithm{NewGF2Elimination(nil), NewIntegerElimination(nil)} {
		require.NoError(t, algo.HealthCheck(context.Background()))
		for _, v := range machine.Variants() {
			if !algo.Supports(v) {
				continue
			}
			sol, err := algo.Solve(context.Background(), m, v)
			results := eval.CheckAll(algo, algorithms.Input{Machine: m, Variant: v}, algorithms.Outcome{Solution: sol, Err: err})
			assert.Empty(t, eval.Failed(results), algo.Name())
		}
	}

	assert.ErrorIs(t, (&Config{MaxFreeVariables: 99, MaxAssignments: 1, CheckInterval: 1}).Validate(), algorithms.ErrInvalidConfig)
}
