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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(&mockAlgorithm{name: "lights_only", variants: []machine.Variant{machine.VariantLights}}))
	require.NoError(t, r.Register(&mockAlgorithm{name: "joltage_only", variants: []machine.Variant{machine.VariantJoltage}}))
	require.NoError(t, r.Register(&mockAlgorithm{name: "both"}))
	return r
}

func TestRegistry_Register(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, 3, r.Count())
	assert.Equal(t, []string{"both", "joltage_only", "lights_only"}, r.List())

	err := r.Register(&mockAlgorithm{name: "both"})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	err = r.Register(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.Panics(t, func() { r.MustRegister(&mockAlgorithm{name: "both"}) })
}

func TestRegistry_Resolve(t *testing.T) {
	r := newTestRegistry(t)

	algo, err := r.Resolve("lights_only", machine.VariantLights)
	require.NoError(t, err)
	assert.Equal(t, "lights_only", algo.Name())

	_, err = r.Resolve("lights_only", machine.VariantJoltage)
	assert.ErrorIs(t, err, ErrVariantMismatch)

	_, err = r.Resolve("nope", machine.VariantLights)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestRegistry_ForVariant(t *testing.T) {
	r := newTestRegistry(t)

	var names []string
	for _, a := range r.ForVariant(machine.VariantJoltage) {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"both", "joltage_only"}, names)
}

func TestRegistry_HealthCheckAll(t *testing.T) {
	r := newTestRegistry(t)
	broken := errors.New("broken")
	require.NoError(t, r.Register(&mockAlgorithm{name: "sick", healthy: broken}))

	results := r.HealthCheckAll(context.Background(), 2)
	require.Len(t, results, 4)
	for _, res := range results {
		if res.Name == "sick" {
			assert.ErrorIs(t, res.Err, broken)
		} else {
			assert.NoError(t, res.Err, res.Name)
		}
	}
}

type recordingRegistrar struct {
	components []string
	fail       error
}

func (r *recordingRegistrar) RegisterComponent(component string, defs []eval.MetricDefinition) error {
	r.components = append(r.components, component)
	return r.fail
}

func TestRegistry_RegisterMetrics(t *testing.T) {
	r := newTestRegistry(t)

	rec := &recordingRegistrar{}
	require.NoError(t, r.RegisterMetrics(rec))
	assert.Equal(t, []string{"both", "joltage_only", "lights_only"}, rec.components)

	broken := errors.New("meter closed")
	err := r.RegisterMetrics(&recordingRegistrar{fail: broken})
	assert.ErrorIs(t, err, broken)
}

func TestCheckInput(t *testing.T) {
	algo := &mockAlgorithm{name: "lights_only", variants: []machine.Variant{machine.VariantLights}}

	assert.NoError(t, CheckInput(algo, testMachine, machine.VariantLights))
	assert.ErrorIs(t, CheckInput(algo, nil, machine.VariantLights), ErrNilMachine)
	assert.ErrorIs(t, CheckInput(algo, testMachine, machine.VariantJoltage), ErrVariantMismatch)

	noJoltage := machine.MustNew(1, 0, nil, nil)
	both := &mockAlgorithm{name: "both"}
	err := CheckInput(both, noJoltage, machine.VariantJoltage)
	assert.ErrorIs(t, err, ErrVariantMismatch)

	var ae *AlgorithmError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "both", ae.Algorithm)
	assert.Equal(t, "Solve", ae.Operation)
}

func TestReplayCounts(t *testing.T) {
	m, err := machine.Parse("[.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}")
	require.NoError(t, err)

	assert.NoError(t, ReplayCounts(m, machine.VariantLights, []int{0, 0, 0, 0, 1, 1}))
	assert.Error(t, ReplayCounts(m, machine.VariantLights, []int{1, 0, 0, 0, 0, 0}))

	assert.NoError(t, ReplayCounts(m, machine.VariantJoltage, []int{1, 3, 0, 3, 1, 2}))
	assert.Error(t, ReplayCounts(m, machine.VariantJoltage, []int{1, 3, 0, 3, 1, 1}))
	assert.Error(t, ReplayCounts(m, machine.VariantJoltage, []int{1}))
	assert.Error(t, ReplayCounts(m, machine.VariantJoltage, []int{-1, 3, 0, 3, 1, 2}))
}

func TestCommonProperties(t *testing.T) {
	algo := &mockAlgorithm{name: "both", timeout: time.Second}
	zero := machine.MustNew(2, 0, []machine.Mask{machine.MaskOf(1)}, []int{0, 0})
	in := Input{Machine: zero, Variant: machine.VariantJoltage}

	ok := eval.CheckAll(algo, in, Outcome{Solution: &Solution{Presses: 0}})
	assert.Empty(t, eval.Failed(ok))

	bad := eval.CheckAll(algo, in, Outcome{Solution: &Solution{Presses: 2}})
	require.Len(t, eval.Failed(bad), 1)
	assert.Equal(t, "zero_target_zero_presses", eval.Failed(bad)[0].Property)

	both := eval.CheckAll(algo, in, Outcome{Solution: &Solution{}, Err: ErrInfeasible})
	assert.NotEmpty(t, eval.Failed(both))
}
