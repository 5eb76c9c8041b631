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
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// ReplayCounts applies per-toggle press counts to the zero state and
// reports whether the result equals the target of v.
//
// Description:
//
//	Lights: toggle j contributes counts[j] mod 2 flips. Joltage: toggle j
//	adds counts[j] to every position it affects.
func ReplayCounts(m *machine.Machine, v machine.Variant, counts []int) error {
	if len(counts) != m.NumToggles() {
		return fmt.Errorf("got %d counts for %d toggles", len(counts), m.NumToggles())
	}
	for j, c := range counts {
		if c < 0 {
			return fmt.Errorf("toggle %d pressed %d times", j, c)
		}
	}

	if v == machine.VariantLights {
		var state machine.Mask
		for j, c := range counts {
			if c%2 == 1 {
				state ^= m.Toggle(j)
			}
		}
		if state != m.Lights() {
			return fmt.Errorf("counts reach %b, want %b", uint64(state), uint64(m.Lights()))
		}
		return nil
	}

	state := make([]int, m.Dimension())
	for j, c := range counts {
		for _, p := range m.Positions(j) {
			state[p] += c
		}
	}
	for i, want := range m.Joltages() {
		if state[i] != want {
			return fmt.Errorf("counts reach %v, want %v", state, m.Joltages())
		}
	}
	return nil
}

// CommonProperties returns the properties every solver guarantees.
//
// Description:
//
//	Checks take an Input and the (*Solution, error) pair produced by
//	Solve, passed as an Outcome.
func CommonProperties() []eval.Property {
	return []eval.Property{
		{
			Name:        "zero_target_zero_presses",
			Description: "A machine whose target is all zero needs no presses.",
			Tags:        []string{"boundary"},
			Check: func(input, output any) error {
				in, out, err := unpackCheck(input, output)
				if err != nil {
					return err
				}
				if !in.Machine.IsZeroTarget(in.Variant) {
					return nil
				}
				if out.Err != nil {
					return fmt.Errorf("zero target failed: %w", out.Err)
				}
				if out.Solution == nil || out.Solution.Presses != 0 {
					return errors.New("zero target needed presses")
				}
				return nil
			},
		},
		{
			Name:        "infeasible_is_reported",
			Description: "A failed solve never carries a solution, and a solution never has negative presses.",
			Tags:        []string{"critical"},
			Check: func(input, output any) error {
				_, out, err := unpackCheck(input, output)
				if err != nil {
					return err
				}
				if out.Err != nil && out.Solution != nil {
					return errors.New("solution returned alongside error")
				}
				if out.Err == nil && (out.Solution == nil || out.Solution.Presses < 0) {
					return errors.New("success without a valid solution")
				}
				return nil
			},
		},
		{
			Name:        "counts_reproduce_target",
			Description: "When per-toggle counts are reported they sum to the press total and reach the target.",
			Tags:        []string{"critical"},
			Check: func(input, output any) error {
				in, out, err := unpackCheck(input, output)
				if err != nil {
					return err
				}
				if out.Err != nil || out.Solution == nil || out.Solution.Counts == nil {
					return nil
				}
				total := 0
				for _, c := range out.Solution.Counts {
					total += c
				}
				if total != out.Solution.Presses {
					return fmt.Errorf("counts sum to %d, presses %d", total, out.Solution.Presses)
				}
				return ReplayCounts(in.Machine, in.Variant, out.Solution.Counts)
			},
		},
	}
}

// Outcome pairs a Solve return for property checks.
type Outcome struct {
	Solution *Solution
	Err      error
}

func unpackCheck(input, output any) (Input, Outcome, error) {
	in, ok := input.(Input)
	if !ok || in.Machine == nil {
		return Input{}, Outcome{}, fmt.Errorf("expected algorithms.Input, got %T", input)
	}
	out, ok := output.(Outcome)
	if !ok {
		return Input{}, Outcome{}, fmt.Errorf("expected algorithms.Outcome, got %T", output)
	}
	return in, out, nil
}
