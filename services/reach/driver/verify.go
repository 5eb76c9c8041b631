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
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// Verdict classifies one algorithm's answer during verification.
type Verdict string

const (
	// VerdictSolved means the algorithm returned a press count.
	VerdictSolved Verdict = "solved"

	// VerdictInfeasible means the algorithm proved the target unreachable.
	VerdictInfeasible Verdict = "infeasible"

	// VerdictSkipped means the algorithm could not decide: its encoding
	// did not fit, its budget ran out, or it was cancelled.
	VerdictSkipped Verdict = "skipped"
)

// Answer is one algorithm's outcome on one machine.
type Answer struct {
	Algorithm string  `json:"algorithm"`
	Verdict   Verdict `json:"verdict"`
	Presses   int     `json:"presses,omitempty"`
	Error     string  `json:"error,omitempty"`

	// Violations names the declared properties the answer broke.
	Violations []string `json:"violations,omitempty"`
}

// Agreement collects every applicable algorithm's answer for one machine.
type Agreement struct {
	Index   int      `json:"index"`
	Answers []Answer `json:"answers"`
	Agreed  bool     `json:"agreed"`
}

// VerifyReport is the outcome of Verify.
type VerifyReport struct {
	RunID         string          `json:"run_id"`
	Variant       machine.Variant `json:"variant"`
	Machines      []Agreement     `json:"machines"`
	Disagreements int             `json:"disagreements"`

	// Runs totals the algorithm runs across every machine.
	Runs algorithms.RunnerStats `json:"runs"`
}

// Verify runs every algorithm in registry that supports v on each machine
// and checks that the deciding ones agree.
//
// Description:
//
//	Algorithms that skip (unsupported encoding, exhausted budget,
//	cancellation) are recorded but do not count against agreement. A
//	machine agrees when all deciding algorithms report the same press
//	count, or all report infeasible, and no deciding answer violates a
//	property its algorithm declares.
//
// Outputs:
//   - *VerifyReport: Per-machine answers and the disagreement count.
//   - error: Non-nil only if ctx ends first or no algorithm supports v.
func Verify(ctx context.Context, registry *algorithms.Registry, machines []*machine.Machine, v machine.Variant) (*VerifyReport, error) {
	algos := registry.ForVariant(v)
	if len(algos) == 0 {
		return nil, fmt.Errorf("%w: no algorithm supports %s", algorithms.ErrVariantMismatch, v)
	}

	report := &VerifyReport{
		RunID:    uuid.NewString(),
		Variant:  v,
		Machines: make([]Agreement, 0, len(machines)),
	}
	logger := slog.Default().With(
		slog.String("component", "verify"),
		slog.String("run_id", report.RunID),
	)

	for i, m := range machines {
		results, stats, err := algorithms.RunAll(ctx, m, v, algos...)
		if err != nil {
			return nil, fmt.Errorf("machine %d: %w", i, err)
		}
		report.Runs = report.Runs.Add(stats)

		agreement := judge(registry, m, v, i, results)
		if !agreement.Agreed {
			report.Disagreements++
			logger.Warn("algorithms disagree",
				slog.Int("machine", i),
				slog.String("variant", string(v)),
				slog.Any("answers", agreement.Answers),
			)
		}
		report.Machines = append(report.Machines, agreement)
	}

	logger.Info("verification completed",
		slog.String("variant", string(v)),
		slog.Int("machines", len(machines)),
		slog.Int("algorithms", len(algos)),
		slog.Int("runs", report.Runs.Completed),
		slog.Int("disagreements", report.Disagreements),
	)
	return report, nil
}

func judge(registry *algorithms.Registry, m *machine.Machine, v machine.Variant, index int, results []*algorithms.Result) Agreement {
	answers := make([]Answer, 0, len(results))
	for _, r := range results {
		a := classify(r)
		if a.Verdict != VerdictSkipped {
			a.Violations = violations(registry, m, v, r)
		}
		answers = append(answers, a)
	}
	sort.Slice(answers, func(a, b int) bool {
		return answers[a].Algorithm < answers[b].Algorithm
	})

	agreed := true
	var first *Answer
	for k := range answers {
		a := &answers[k]
		if a.Verdict == VerdictSkipped {
			continue
		}
		if len(a.Violations) > 0 {
			agreed = false
		}
		if first == nil {
			first = a
			continue
		}
		if a.Verdict != first.Verdict || a.Presses != first.Presses {
			agreed = false
		}
	}
	return Agreement{Index: index, Answers: answers, Agreed: agreed}
}

func classify(r *algorithms.Result) Answer {
	a := Answer{Algorithm: r.Name}
	switch {
	case r.Err == nil && r.Solution != nil:
		a.Verdict = VerdictSolved
		a.Presses = r.Solution.Presses
	case errors.Is(r.Err, algorithms.ErrInfeasible):
		a.Verdict = VerdictInfeasible
		a.Error = r.Err.Error()
	default:
		a.Verdict = VerdictSkipped
		if r.Err != nil {
			a.Error = r.Err.Error()
		}
	}
	return a
}

func violations(registry *algorithms.Registry, m *machine.Machine, v machine.Variant, r *algorithms.Result) []string {
	algo, err := registry.Get(r.Name)
	if err != nil {
		return nil
	}
	failed := eval.Failed(eval.CheckAll(algo,
		algorithms.Input{Machine: m, Variant: v},
		algorithms.Outcome{Solution: r.Solution, Err: r.Err},
	))
	names := make([]string, 0, len(failed))
	for _, f := range failed {
		names = append(names, f.Property)
	}
	return names
}
