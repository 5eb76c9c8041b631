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
	"encoding/binary"
	"slices"
	"time"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// -----------------------------------------------------------------------------
// Vector BFS
// -----------------------------------------------------------------------------

// VectorBFS is the unpacked joltage baseline.
//
// Description:
//
//	Same search as PackedBFS but each state is a []int and the visited
//	set is keyed by its varint encoding. It has no width limit, so it
//	also covers machines PackedBFS rejects with ErrUnsupportedEncoding,
//	at a much higher memory cost per state.
//
// Thread Safety: Safe for concurrent use.
type VectorBFS struct {
	config *BFSConfig
}

// NewVectorBFS creates the solver. A nil config uses DefaultBFSConfig.
func NewVectorBFS(config *BFSConfig) *VectorBFS {
	return &VectorBFS{config: normalizeConfig(config)}
}

type vectorEntry struct {
	state   []int
	presses int
}

// Name returns the algorithm name.
func (vb *VectorBFS) Name() string {
	return "vector_bfs"
}

// Description returns a one-line summary.
func (vb *VectorBFS) Description() string {
	return "breadth-first search over unpacked joltage vectors"
}

// Supports reports whether v is the joltage variant.
func (vb *VectorBFS) Supports(v machine.Variant) bool {
	return v == machine.VariantJoltage
}

// Solve returns the minimum number of presses to reach m.Joltages().
func (vb *VectorBFS) Solve(ctx context.Context, m *machine.Machine, v machine.Variant) (*algorithms.Solution, error) {
	if err := algorithms.CheckInput(vb, m, v); err != nil {
		return nil, err
	}

	target := m.Joltages()
	toggles := make([][]int, 0, m.NumToggles())
	for _, t := range distinctMasks(m) {
		toggles = append(toggles, machine.Mask(t).Positions())
	}
	g := newGuard(ctx, vb.Name(), vb.config)

	start := make([]int, len(target))
	buf := make([]byte, 0, len(target)*binary.MaxVarintLen64)
	visited := map[string]struct{}{vectorKey(buf, start): {}}
	var queue fifo[vectorEntry]
	queue.push(vectorEntry{state: start})

	for {
		e, ok := queue.pop()
		if !ok {
			break
		}
		if err := g.tick(); err != nil {
			return nil, err
		}
		if slices.Equal(e.state, target) {
			return &algorithms.Solution{
				Algorithm:      vb.Name(),
				Variant:        v,
				Presses:        e.presses,
				StatesExplored: len(visited),
			}, nil
		}
	next:
		for _, positions := range toggles {
			for _, i := range positions {
				if e.state[i] >= target[i] {
					continue next
				}
			}
			state := append([]int(nil), e.state...)
			for _, i := range positions {
				state[i]++
			}
			key := vectorKey(buf, state)
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}
			if err := g.admit(len(visited)); err != nil {
				return nil, err
			}
			queue.push(vectorEntry{state: state, presses: e.presses + 1})
		}
	}

	return nil, infeasible(vb.Name())
}

func vectorKey(buf []byte, state []int) string {
	buf = buf[:0]
	for _, x := range state {
		buf = binary.AppendUvarint(buf, uint64(x))
	}
	return string(buf)
}

// Timeout returns the maximum execution time.
func (vb *VectorBFS) Timeout() time.Duration {
	return vb.config.Timeout
}

// Properties returns the correctness properties.
func (vb *VectorBFS) Properties() []eval.Property {
	return algorithms.CommonProperties()
}

// Metrics returns the metrics this algorithm exposes.
func (vb *VectorBFS) Metrics() []eval.MetricDefinition {
	return []eval.MetricDefinition{
		{
			Name:        "vector_bfs_states_total",
			Type:        eval.MetricCounter,
			Description: "Unpacked counter states discovered",
		},
	}
}

// HealthCheck verifies the algorithm is functioning.
func (vb *VectorBFS) HealthCheck(ctx context.Context) error {
	if vb.config == nil {
		return algorithms.NewAlgorithmError(vb.Name(), "HealthCheck", algorithms.ErrInvalidConfig)
	}
	return vb.config.Validate()
}
