// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// -----------------------------------------------------------------------------
// Packed BFS
// -----------------------------------------------------------------------------

// PackedBFS solves the joltage variant by breadth-first search over
// counter vectors packed into single words.
//
// Description:
//
//	Every counter is bounded by its target because presses only
//	increment. The vector therefore fits in n fields of Packer.Width()
//	bits, and the visited set is a map keyed by uint64 rather than by
//	slices.
//
// Thread Safety: Safe for concurrent use.
type PackedBFS struct {
	config *BFSConfig
}

// NewPackedBFS creates the solver. A nil config uses DefaultBFSConfig.
func NewPackedBFS(config *BFSConfig) *PackedBFS {
	return &PackedBFS{config: normalizeConfig(config)}
}

type packedEntry struct {
	state   PackedState
	presses int
}

// Name returns the algorithm name.
func (p *PackedBFS) Name() string {
	return "packed_bfs"
}

// Description returns a one-line summary.
func (p *PackedBFS) Description() string {
	return "breadth-first search over bit-packed joltage counters"
}

// Supports reports whether v is the joltage variant.
func (p *PackedBFS) Supports(v machine.Variant) bool {
	return v == machine.VariantJoltage
}

// Solve returns the minimum number of presses to reach m.Joltages().
//
// Outputs:
//   - error: Wraps ErrUnsupportedEncoding when the targets do not pack
//     into 64 bits, ErrInfeasible when the frontier empties.
func (p *PackedBFS) Solve(ctx context.Context, m *machine.Machine, v machine.Variant) (*algorithms.Solution, error) {
	if err := algorithms.CheckInput(p, m, v); err != nil {
		return nil, err
	}

	packer, err := NewPacker(m.Joltages())
	if err != nil {
		return nil, algorithms.NewAlgorithmError(p.Name(), "Solve", err)
	}

	deltas := make([]PackedState, 0, m.NumToggles())
	for _, t := range distinctMasks(m) {
		deltas = append(deltas, packer.Delta(machine.Mask(t)))
	}

	target := packer.Target()
	g := newGuard(ctx, p.Name(), p.config)

	visited := map[PackedState]struct{}{0: {}}
	var queue fifo[packedEntry]
	queue.push(packedEntry{})

	for {
		e, ok := queue.pop()
		if !ok {
			break
		}
		if err := g.tick(); err != nil {
			return nil, err
		}
		if e.state == target {
			return &algorithms.Solution{
				Algorithm:      p.Name(),
				Variant:        v,
				Presses:        e.presses,
				StatesExplored: len(visited),
			}, nil
		}
		for _, d := range deltas {
			next, ok := packer.Add(e.state, d)
			if !ok {
				continue
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			if err := g.admit(len(visited)); err != nil {
				return nil, err
			}
			queue.push(packedEntry{state: next, presses: e.presses + 1})
		}
	}

	return nil, infeasible(p.Name())
}

// Timeout returns the maximum execution time.
func (p *PackedBFS) Timeout() time.Duration {
	return p.config.Timeout
}

// -----------------------------------------------------------------------------
// Evaluable Implementation
// -----------------------------------------------------------------------------

// Properties returns the correctness properties.
func (p *PackedBFS) Properties() []eval.Property {
	return append(algorithms.CommonProperties(), eval.Property{
		Name:        "presses_at_least_max_target",
		Description: "Each press raises a counter by at most one, so the total is at least the largest target.",
		Check: func(input, output any) error {
			in, ok := input.(algorithms.Input)
			if !ok {
				return fmt.Errorf("expected algorithms.Input, got %T", input)
			}
			out, ok := output.(algorithms.Outcome)
			if !ok || out.Solution == nil {
				return nil
			}
			if out.Solution.Presses < in.Machine.MaxJoltage() {
				return fmt.Errorf("%d presses below largest target %d", out.Solution.Presses, in.Machine.MaxJoltage())
			}
			return nil
		},
	})
}

// Metrics returns the metrics this algorithm exposes.
func (p *PackedBFS) Metrics() []eval.MetricDefinition {
	return []eval.MetricDefinition{
		{
			Name:        "packed_bfs_states_total",
			Type:        eval.MetricCounter,
			Description: "Packed counter states discovered",
		},
	}
}

// HealthCheck verifies the algorithm is functioning.
func (p *PackedBFS) HealthCheck(ctx context.Context) error {
	if p.config == nil {
		return algorithms.NewAlgorithmError(p.Name(), "HealthCheck", algorithms.ErrInvalidConfig)
	}
	return p.config.Validate()
}
