// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms/catalog"
	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// fixedAlgorithm answers every machine with the same count.
type fixedAlgorithm struct {
	name    string
	presses int
	err     error
	props   []eval.Property
}

func (f *fixedAlgorithm) Name() string { return f.name }
func (f *fixedAlgorithm) Description() string { return "fixed answer" }
func (f *fixedAlgorithm) Supports(machine.Variant) bool { return true }
func (f *fixedAlgorithm) Timeout() time.Duration { return time.Second }
func (f *fixedAlgorithm) Properties() []eval.Property { return f.props }
func (f *fixedAlgorithm) Metrics() []eval.MetricDefinition { return nil }
func (f *fixedAlgorithm) HealthCheck(context.Context) error { return nil }
func (f *fixedAlgorithm) Solve(_ context.Context, _ *machine.Machine, v machine.Variant) (*algorithms.Solution, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &algorithms.Solution{Algorithm: f.name, Variant: v, Presses: f.presses}, nil
}

func TestVerify_CatalogAgrees(t *testing.T) {
	registry := catalog.New(catalog.Options{})
	machines := exampleMachines(t)

	for _, v := range machine.Variants() {
		t.Run(string(v), func(t *testing.T) {
			report, err := Verify(context.Background(), registry, machines, v)
			require.NoError(t, err)

			assert.NotEmpty(t, report.RunID)
			assert.Equal(t, v, report.Variant)
			assert.Zero(t, report.Disagreements)
			require.Len(t, report.Machines, 3)
			runs := 3 * len(registry.ForVariant(v))
			assert.Equal(t, algorithms.RunnerStats{Started: runs, Completed: runs}, report.Runs)
			for _, agreement := range report.Machines {
				assert.True(t, agreement.Agreed)
				assert.Len(t, agreement.Answers, len(registry.ForVariant(v)))
			}
		})
	}
}

func TestVerify_InfeasibleAgrees(t *testing.T) {
	machines, err := machine.ParseString("[#] () {1}\n")
	require.NoError(t, err)

	report, err := Verify(context.Background(), catalog.New(catalog.Options{}), machines, machine.VariantJoltage)
	require.NoError(t, err)
	require.Len(t, report.Machines, 1)
	assert.True(t, report.Machines[0].Agreed)
	for _, a := range report.Machines[0].Answers {
		assert.Equal(t, VerdictInfeasible, a.Verdict, a.Algorithm)
	}
}

func TestVerify_Disagreement(t *testing.T) {
	registry := algorithms.NewRegistry()
	registry.MustRegister(&fixedAlgorithm{name: "a", presses: 2})
	registry.MustRegister(&fixedAlgorithm{name: "b", presses: 3})
	registry.MustRegister(&fixedAlgorithm{name: "c", err: algorithms.ErrSearchBudgetExceeded})

	report, err := Verify(context.Background(), registry, exampleMachines(t)[:1], machine.VariantLights)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Disagreements)

	answers := report.Machines[0].Answers
	require.Len(t, answers, 3)
	assert.Equal(t, "a", answers[0].Algorithm)
	assert.Equal(t, VerdictSkipped, answers[2].Verdict)
}

func TestVerify_SkippedDoesNotDisagree(t *testing.T) {
	registry := algorithms.NewRegistry()
	registry.MustRegister(&fixedAlgorithm{name: "a", presses: 2})
	registry.MustRegister(&fixedAlgorithm{name: "b", err: algorithms.ErrUnsupportedEncoding})

	report, err := Verify(context.Background(), registry, exampleMachines(t)[:1], machine.VariantLights)
	require.NoError(t, err)
	assert.Zero(t, report.Disagreements)
}

func TestVerify_SolvedVersusInfeasible(t *testing.T) {
	registry := algorithms.NewRegistry()
	registry.MustRegister(&fixedAlgorithm{name: "a", presses: 2})
	registry.MustRegister(&fixedAlgorithm{name: "b", err: algorithms.ErrInfeasible})

	report, err := Verify(context.Background(), registry, exampleMachines(t)[:1], machine.VariantLights)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Disagreements)
}

func TestVerify_EmptyRegistry(t *testing.T) {
	_, err := Verify(context.Background(), algorithms.NewRegistry(), exampleMachines(t), machine.VariantLights)
	assert.ErrorIs(t, err, algorithms.ErrVariantMismatch)
}

func TestVerify_PropertyViolation(t *testing.T) {
	registry := algorithms.NewRegistry()
	registry.MustRegister(&fixedAlgorithm{name: "a", presses: 2})
	registry.MustRegister(&fixedAlgorithm{name: "b", presses: 2, props: []eval.Property{{
		Name:        "always_fails",
		Description: "Rejects every answer.",
		Check:       func(any, any) error { return errors.New("rejected") },
	}}})

	report, err := Verify(context.Background(), registry, exampleMachines(t)[:1], machine.VariantLights)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Disagreements)
	assert.Equal(t, []string{"always_fails"}, report.Machines[0].Answers[1].Violations)
}
