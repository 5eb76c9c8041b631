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

	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// mockAlgorithm is a simple test algorithm.
type mockAlgorithm struct {
	name     string
	variants []machine.Variant
	timeout  time.Duration
	solveErr error
	delay    time.Duration
	presses  int
	healthy  error
}

func (m *mockAlgorithm) Name() string {
	return m.name
}

func (m *mockAlgorithm) Description() string {
	return "mock " + m.name
}

func (m *mockAlgorithm) Supports(v machine.Variant) bool {
	if m.variants == nil {
		return true
	}
	for _, s := range m.variants {
		if s == v {
			return true
		}
	}
	return false
}

func (m *mockAlgorithm) Solve(ctx context.Context, mach *machine.Machine, v machine.Variant) (*Solution, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, NewAlgorithmError(m.name, "Solve", ctx.Err())
		}
	}
	if m.solveErr != nil {
		return nil, NewAlgorithmError(m.name, "Solve", m.solveErr)
	}
	return &Solution{Algorithm: m.name, Variant: v, Presses: m.presses}, nil
}

func (m *mockAlgorithm) Timeout() time.Duration {
	return m.timeout
}

func (m *mockAlgorithm) Properties() []eval.Property {
	return CommonProperties()
}

func (m *mockAlgorithm) Metrics() []eval.MetricDefinition {
	return nil
}

func (m *mockAlgorithm) HealthCheck(ctx context.Context) error {
	return m.healthy
}

var testMachine = machine.MustNew(2, machine.MaskOf(0), []machine.Mask{machine.MaskOf(0)}, []int{1, 0})

func TestNewRunner(t *testing.T) {
	t.Run("creates runner with capacity", func(t *testing.T) {
		if r := NewRunner(5); r == nil {
			t.Fatal("expected non-nil runner")
		}
	})

	t.Run("uses default capacity for zero", func(t *testing.T) {
		r := NewRunner(0)
		if cap(r.results) != 10 {
			t.Errorf("expected capacity 10, got %d", cap(r.results))
		}
	})
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("runs single algorithm", func(t *testing.T) {
		runner := NewRunner(1)
		runner.RunTagged(ctx, 3, &mockAlgorithm{name: "one", timeout: time.Second, presses: 4}, testMachine, machine.VariantLights)

		results, err := runner.Collect(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		r := results[0]
		if !r.Success() {
			t.Errorf("expected success, got %v", r.Err)
		}
		if r.Tag != 3 || r.Name != "one" || r.Variant != machine.VariantLights {
			t.Errorf("unexpected result metadata: %+v", r)
		}
		if r.Solution.Presses != 4 {
			t.Errorf("expected 4 presses, got %d", r.Solution.Presses)
		}
		if r.EndTime.Before(r.StartTime) {
			t.Error("end time before start time")
		}
	})

	t.Run("reports algorithm errors", func(t *testing.T) {
		runner := NewRunner(1)
		runner.Run(ctx, &mockAlgorithm{name: "bad", timeout: time.Second, solveErr: ErrInfeasible}, testMachine, machine.VariantLights)

		results, err := runner.Collect(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !errors.Is(results[0].Err, ErrInfeasible) {
			t.Errorf("expected ErrInfeasible, got %v", results[0].Err)
		}
		if results[0].Cancelled {
			t.Error("error should not be marked cancelled")
		}
	})

	t.Run("enforces timeout", func(t *testing.T) {
		runner := NewRunner(1)
		algo := &mockAlgorithm{name: "slow", timeout: 10 * time.Millisecond, delay: time.Second}
		runner.Run(ctx, algo, testMachine, machine.VariantLights)

		results, err := runner.Collect(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !results[0].Cancelled {
			t.Error("expected cancelled result")
		}
		if !errors.Is(results[0].Err, ErrTimeout) {
			t.Errorf("expected deadline exceeded, got %v", results[0].Err)
		}
	})

	t.Run("tracks stats", func(t *testing.T) {
		runner := NewRunner(2)
		runner.Run(ctx, &mockAlgorithm{name: "a", timeout: time.Second}, testMachine, machine.VariantLights)
		runner.Run(ctx, &mockAlgorithm{name: "b", timeout: time.Second}, testMachine, machine.VariantJoltage)
		if _, err := runner.Collect(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		stats := runner.Stats()
		if stats.Started != 2 || stats.Completed != 2 || stats.Pending != 0 {
			t.Errorf("unexpected stats: %+v", stats)
		}
	})
}

func TestRunAll(t *testing.T) {
	algos := []Algorithm{
		&mockAlgorithm{name: "x", timeout: time.Second, presses: 1},
		&mockAlgorithm{name: "y", timeout: time.Second, presses: 1},
		&mockAlgorithm{name: "z", timeout: time.Second, presses: 1},
	}
	results, stats, err := RunAll(context.Background(), testMachine, machine.VariantLights, algos...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if want := (RunnerStats{Started: 3, Completed: 3}); stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if sum := stats.Add(stats); sum.Started != 6 || sum.Completed != 6 {
		t.Errorf("unexpected sum: %+v", sum)
	}
	for _, r := range results {
		if !r.Success() || r.Solution.Presses != 1 {
			t.Errorf("%s: unexpected result %+v", r.Name, r)
		}
	}
}

func TestCollect_ContextDone(t *testing.T) {
	runner := NewRunner(1)
	runner.Run(context.Background(), &mockAlgorithm{name: "slow", timeout: time.Second, delay: 200 * time.Millisecond}, testMachine, machine.VariantLights)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Collect(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
