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
	"fmt"
	"math/bits"
	"time"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// -----------------------------------------------------------------------------
// GF(2) rows
// -----------------------------------------------------------------------------

// bitRow is one augmented equation over GF(2); bit `cols` is the
// right-hand side.
type bitRow []uint64

func (r bitRow) get(i int) bool {
	return r[i/64]&(1<<uint(i%64)) != 0
}

func (r bitRow) set(i int) {
	r[i/64] |= 1 << uint(i%64)
}

func (r bitRow) xor(o bitRow) {
	for w := range r {
		r[w] ^= o[w]
	}
}

// -----------------------------------------------------------------------------
// GF(2) Elimination
// -----------------------------------------------------------------------------

// GF2Elimination solves the lights variant by Gaussian elimination over
// GF(2) followed by enumeration of the free columns.
//
// Description:
//
//	Row i of the system is light i, column j is toggle j. After reduction
//	to row echelon form each pivot toggle is determined by the free
//	toggles, so trying every 2^f free assignment and keeping the lightest
//	gives the minimum. Runtime is O(n*m^2/64 + 2^f*n).
//
// Thread Safety: Safe for concurrent use.
type GF2Elimination struct {
	config *Config
}

// NewGF2Elimination creates the solver. A nil config uses DefaultConfig.
func NewGF2Elimination(config *Config) *GF2Elimination {
	return &GF2Elimination{config: normalizeConfig(config)}
}

// Name returns the algorithm name.
func (g *GF2Elimination) Name() string {
	return "gf2_elimination"
}

// Description returns a one-line summary.
func (g *GF2Elimination) Description() string {
	return "Gaussian elimination over GF(2) with free-column enumeration"
}

// Supports reports whether v is the lights variant.
func (g *GF2Elimination) Supports(v machine.Variant) bool {
	return v == machine.VariantLights
}

// Timeout returns the maximum execution time.
func (g *GF2Elimination) Timeout() time.Duration {
	return g.config.Timeout
}

// Solve returns the minimum presses and the toggles pressed.
//
// Outputs:
//   - error: Wraps ErrInfeasible on an inconsistent row and
//     ErrSearchBudgetExceeded when the free columns exceed
//     MaxFreeVariables.
func (g *GF2Elimination) Solve(ctx context.Context, m *machine.Machine, v machine.Variant) (*algorithms.Solution, error) {
	if err := algorithms.CheckInput(g, m, v); err != nil {
		return nil, err
	}

	cols := activeToggles(m)
	c := len(cols)
	words := (c + 1 + 63) / 64

	rows := make([]bitRow, m.Dimension())
	for i := range rows {
		rows[i] = make(bitRow, words)
		for k, j := range cols {
			if m.Toggle(j).Has(i) {
				rows[i].set(k)
			}
		}
		if m.Lights().Has(i) {
			rows[i].set(c)
		}
	}

	// Forward elimination to reduced row echelon form.
	var pivots []int
	rank := 0
	for col := 0; col < c && rank < len(rows); col++ {
		p := -1
		for r := rank; r < len(rows); r++ {
			if rows[r].get(col) {
				p = r
				break
			}
		}
		if p < 0 {
			continue
		}
		rows[rank], rows[p] = rows[p], rows[rank]
		for r := range rows {
			if r != rank && rows[r].get(col) {
				rows[r].xor(rows[rank])
			}
		}
		pivots = append(pivots, col)
		rank++
	}

	for r := rank; r < len(rows); r++ {
		if rows[r].get(c) {
			return nil, algorithms.NewAlgorithmError(g.Name(), "Solve",
				fmt.Errorf("%w: inconsistent equation for light pattern", algorithms.ErrInfeasible))
		}
	}

	isPivot := make([]bool, c)
	for _, col := range pivots {
		isPivot[col] = true
	}
	var free []int
	for col := 0; col < c; col++ {
		if !isPivot[col] {
			free = append(free, col)
		}
	}
	if len(free) > g.config.MaxFreeVariables {
		return nil, algorithms.NewAlgorithmError(g.Name(), "Solve",
			fmt.Errorf("%w: %d free columns exceeds %d", algorithms.ErrSearchBudgetExceeded, len(free), g.config.MaxFreeVariables))
	}

	// deps[r] has bit k set when pivot row r depends on free column k.
	deps := make([]uint64, rank)
	rhs := make([]uint64, rank)
	for r := 0; r < rank; r++ {
		for k, col := range free {
			if rows[r].get(col) {
				deps[r] |= 1 << uint(k)
			}
		}
		if rows[r].get(c) {
			rhs[r] = 1
		}
	}

	t := &ticker{ctx: ctx, name: g.Name(), interval: g.config.CheckInterval}
	best, bestAssign := -1, uint64(0)
	total := uint64(1) << uint(len(free))
	for a := uint64(0); a < total; a++ {
		if err := t.tick(); err != nil {
			return nil, err
		}
		weight := bits.OnesCount64(a)
		for r := 0; r < rank; r++ {
			weight += int(rhs[r] ^ uint64(bits.OnesCount64(deps[r]&a)&1))
		}
		if best < 0 || weight < best {
			best, bestAssign = weight, a
		}
	}

	counts := make([]int, m.NumToggles())
	for k, col := range free {
		if bestAssign&(1<<uint(k)) != 0 {
			counts[cols[col]] = 1
		}
	}
	for r, col := range pivots {
		counts[cols[col]] = int(rhs[r] ^ uint64(bits.OnesCount64(deps[r]&bestAssign)&1))
	}

	return &algorithms.Solution{
		Algorithm:      g.Name(),
		Variant:        v,
		Presses:        best,
		Counts:         counts,
		StatesExplored: int(total),
	}, nil
}

// -----------------------------------------------------------------------------
// Evaluable Implementation
// -----------------------------------------------------------------------------

// Properties returns the correctness properties.
func (g *GF2Elimination) Properties() []eval.Property {
	return append(algorithms.CommonProperties(), eval.Property{
		Name:        "counts_are_binary",
		Description: "Over GF(2) no toggle is ever pressed twice in a minimum solution.",
		Check: func(input, output any) error {
			out, ok := output.(algorithms.Outcome)
			if !ok || out.Solution == nil {
				return nil
			}
			for j, c := range out.Solution.Counts {
				if c != 0 && c != 1 {
					return fmt.Errorf("toggle %d pressed %d times", j, c)
				}
			}
			return nil
		},
	})
}

// Metrics returns the metrics this algorithm exposes.
func (g *GF2Elimination) Metrics() []eval.MetricDefinition {
	return []eval.MetricDefinition{
		{
			Name:        "gf2_elimination_assignments_total",
			Type:        eval.MetricCounter,
			Description: "Free-column assignments enumerated",
		},
	}
}

// HealthCheck verifies the algorithm is functioning.
func (g *GF2Elimination) HealthCheck(ctx context.Context) error {
	if g.config == nil {
		return algorithms.NewAlgorithmError(g.Name(), "HealthCheck", algorithms.ErrInvalidConfig)
	}
	return g.config.Validate()
}
