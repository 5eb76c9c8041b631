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
// Bitmask BFS
// -----------------------------------------------------------------------------

// BitmaskBFS solves the lights variant by breadth-first search over the
// 2^n hypercube of light patterns.
//
// Description:
//
//	Pressing a toggle twice cancels out, so the answer is the smallest
//	subset of toggles whose XOR equals the target. BFS from the all-off
//	pattern with edges p -> p^t finds it: the first time the target is
//	dequeued, its depth is minimal.
//
// Thread Safety: Safe for concurrent use.
type BitmaskBFS struct {
	config *BFSConfig
}

// NewBitmaskBFS creates the solver. A nil config uses DefaultBFSConfig.
func NewBitmaskBFS(config *BFSConfig) *BitmaskBFS {
	return &BitmaskBFS{config: normalizeConfig(config)}
}

type maskEntry struct {
	state   uint64
	presses int
}

// Name returns the algorithm name.
func (b *BitmaskBFS) Name() string {
	return "bitmask_bfs"
}

// Description returns a one-line summary.
func (b *BitmaskBFS) Description() string {
	return "breadth-first search over XOR light patterns"
}

// Supports reports whether v is the lights variant.
func (b *BitmaskBFS) Supports(v machine.Variant) bool {
	return v == machine.VariantLights
}

// Solve returns the minimum number of presses to reach m.Lights().
func (b *BitmaskBFS) Solve(ctx context.Context, m *machine.Machine, v machine.Variant) (*algorithms.Solution, error) {
	if err := algorithms.CheckInput(b, m, v); err != nil {
		return nil, err
	}

	target := uint64(m.Lights())
	toggles := distinctMasks(m)
	g := newGuard(ctx, b.Name(), b.config)

	visited := map[uint64]struct{}{0: {}}
	var queue fifo[maskEntry]
	queue.push(maskEntry{})

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
				Algorithm:      b.Name(),
				Variant:        v,
				Presses:        e.presses,
				StatesExplored: len(visited),
			}, nil
		}
		for _, t := range toggles {
			next := e.state ^ t
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			if err := g.admit(len(visited)); err != nil {
				return nil, err
			}
			queue.push(maskEntry{state: next, presses: e.presses + 1})
		}
	}

	return nil, infeasible(b.Name())
}

// distinctMasks returns the non-empty toggles with duplicates removed.
// An empty toggle is a self-loop and a duplicate adds no new edge.
func distinctMasks(m *machine.Machine) []uint64 {
	seen := make(map[machine.Mask]struct{}, m.NumToggles())
	out := make([]uint64, 0, m.NumToggles())
	for _, t := range m.Toggles() {
		if t == 0 {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, uint64(t))
	}
	return out
}

// Timeout returns the maximum execution time.
func (b *BitmaskBFS) Timeout() time.Duration {
	return b.config.Timeout
}

// -----------------------------------------------------------------------------
// Evaluable Implementation
// -----------------------------------------------------------------------------

// Properties returns the correctness properties.
func (b *BitmaskBFS) Properties() []eval.Property {
	return append(algorithms.CommonProperties(), eval.Property{
		Name:        "presses_bounded_by_toggles",
		Description: "The lights answer never presses more toggles than exist, since each is used at most once.",
		Check: func(input, output any) error {
			in, ok := input.(algorithms.Input)
			if !ok {
				return fmt.Errorf("expected algorithms.Input, got %T", input)
			}
			out, ok := output.(algorithms.Outcome)
			if !ok || out.Solution == nil {
				return nil
			}
			if out.Solution.Presses > in.Machine.NumToggles() {
				return fmt.Errorf("%d presses with %d toggles", out.Solution.Presses, in.Machine.NumToggles())
			}
			return nil
		},
	})
}

// Metrics returns the metrics this algorithm exposes.
func (b *BitmaskBFS) Metrics() []eval.MetricDefinition {
	return []eval.MetricDefinition{
		{
			Name:        "bitmask_bfs_states_total",
			Type:        eval.MetricCounter,
			Description: "Light patterns discovered",
		},
	}
}

// HealthCheck verifies the algorithm is functioning.
func (b *BitmaskBFS) HealthCheck(ctx context.Context) error {
	if b.config == nil {
		return algorithms.NewAlgorithmError(b.Name(), "HealthCheck", algorithms.ErrInvalidConfig)
	}
	return b.config.Validate()
}
