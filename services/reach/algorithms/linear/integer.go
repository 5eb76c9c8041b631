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
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

var errOverflow = errors.New("coefficient overflow")

// -----------------------------------------------------------------------------
// Integer rows
// -----------------------------------------------------------------------------

// intRow is one augmented equation; the last entry is the right-hand side.
type intRow []int64

// normalize divides the row by the gcd of its entries.
func (r intRow) normalize() {
	var g int64
	for _, v := range r {
		g = gcd(g, abs(v))
	}
	if g > 1 {
		for i := range r {
			r[i] /= g
		}
	}
}

// eliminate sets r[col] to zero using pivot row p without fractions:
// r = p[col]*r - r[col]*p.
func (r intRow) eliminate(p intRow, col int) error {
	a, b := p[col], r[col]
	for i := range r {
		x, ok1 := mulChecked(a, r[i])
		y, ok2 := mulChecked(b, p[i])
		if !ok1 || !ok2 {
			return errOverflow
		}
		r[i] = x - y
	}
	r.normalize()
	return nil
}

func mulChecked(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if abs(a) > math.MaxInt32 || abs(b) > math.MaxInt32 {
		return 0, false
	}
	return a * b, true
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// -----------------------------------------------------------------------------
// Integer Elimination
// -----------------------------------------------------------------------------

// IntegerElimination solves the joltage variant exactly.
//
// Description:
//
//	The system A x = t is reduced with fraction-free Gauss-Jordan
//	elimination, normalising each row by its gcd. Every toggle count is
//	bounded by the smallest target it touches, so the free columns range
//	over finite boxes. Free assignments are enumerated depth-first in
//	lexicographic order with an explicit stack; each fixes the pivot
//	columns, which must come out as non-negative integers within their
//	bounds. A partial assignment whose free sum already reaches the best
//	total is cut, since pivot counts are never negative.
//
// Thread Safety: Safe for concurrent use.
type IntegerElimination struct {
	config *Config
}

// NewIntegerElimination creates the solver. A nil config uses DefaultConfig.
func NewIntegerElimination(config *Config) *IntegerElimination {
	return &IntegerElimination{config: normalizeConfig(config)}
}

// Name returns the algorithm name.
func (ie *IntegerElimination) Name() string {
	return "integer_elimination"
}

// Description returns a one-line summary.
func (ie *IntegerElimination) Description() string {
	return "fraction-free integer elimination with bounded free-variable search"
}

// Supports reports whether v is the joltage variant.
func (ie *IntegerElimination) Supports(v machine.Variant) bool {
	return v == machine.VariantJoltage
}

// Timeout returns the maximum execution time.
func (ie *IntegerElimination) Timeout() time.Duration {
	return ie.config.Timeout
}

// reduced is the eliminated system.
type reduced struct {
	rows   []intRow
	pivots []int // pivot column of rows[r]
	free   []int
	bounds []int64
}

// Solve returns the minimum presses and the per-toggle counts.
//
// Outputs:
//   - error: Wraps ErrInfeasible when the system is inconsistent or no
//     bounded non-negative assignment exists, ErrSearchBudgetExceeded
//     past MaxAssignments, ErrUnsupportedEncoding on coefficient
//     overflow.
func (ie *IntegerElimination) Solve(ctx context.Context, m *machine.Machine, v machine.Variant) (*algorithms.Solution, error) {
	if err := algorithms.CheckInput(ie, m, v); err != nil {
		return nil, err
	}

	// Columns are toggles that can be pressed at all: non-empty and not
	// touching a zero target.
	target := m.Joltages()
	var cols []int
	var bounds []int64
	for _, j := range activeToggles(m) {
		bound := int64(math.MaxInt64)
		for _, p := range m.Positions(j) {
			bound = min(bound, int64(target[p]))
		}
		if bound > 0 {
			cols = append(cols, j)
			bounds = append(bounds, bound)
		}
	}

	sys, err := ie.reduce(m, cols, bounds)
	if err != nil {
		return nil, err
	}

	best, assign, explored, err := ie.search(ctx, sys)
	if err != nil {
		return nil, err
	}
	if best < 0 {
		return nil, algorithms.NewAlgorithmError(ie.Name(), "Solve",
			fmt.Errorf("%w: no bounded non-negative solution", algorithms.ErrInfeasible))
	}

	counts := make([]int, m.NumToggles())
	for k, col := range sys.free {
		counts[cols[col]] = int(assign[k])
	}
	for r, col := range sys.pivots {
		counts[cols[col]] = int(pivotValue(sys.rows[r], sys.pivots[r], sys.free, assign))
	}

	return &algorithms.Solution{
		Algorithm:      ie.Name(),
		Variant:        v,
		Presses:        int(best),
		Counts:         counts,
		StatesExplored: explored,
	}, nil
}

// reduce builds and eliminates the augmented system.
func (ie *IntegerElimination) reduce(m *machine.Machine, cols []int, bounds []int64) (*reduced, error) {
	c := len(cols)
	rows := make([]intRow, m.Dimension())
	for i := range rows {
		rows[i] = make(intRow, c+1)
		for k, j := range cols {
			if m.Toggle(j).Has(i) {
				rows[i][k] = 1
			}
		}
		rows[i][c] = int64(m.Joltage(i))
	}

	var pivots []int
	rank := 0
	for col := 0; col < c && rank < len(rows); col++ {
		// Smallest non-zero magnitude keeps coefficients small.
		p := -1
		for r := rank; r < len(rows); r++ {
			if rows[r][col] != 0 && (p < 0 || abs(rows[r][col]) < abs(rows[p][col])) {
				p = r
			}
		}
		if p < 0 {
			continue
		}
		rows[rank], rows[p] = rows[p], rows[rank]
		if rows[rank][col] < 0 {
			for i := range rows[rank] {
				rows[rank][i] = -rows[rank][i]
			}
		}
		for r := range rows {
			if r == rank || rows[r][col] == 0 {
				continue
			}
			if err := rows[r].eliminate(rows[rank], col); err != nil {
				return nil, algorithms.NewAlgorithmError(ie.Name(), "Reduce",
					fmt.Errorf("%w: %v", algorithms.ErrUnsupportedEncoding, err))
			}
		}
		pivots = append(pivots, col)
		rank++
	}

	for r := rank; r < len(rows); r++ {
		if rows[r][c] != 0 {
			return nil, algorithms.NewAlgorithmError(ie.Name(), "Reduce",
				fmt.Errorf("%w: inconsistent equation for joltage targets", algorithms.ErrInfeasible))
		}
	}

	isPivot := make([]bool, c)
	for _, col := range pivots {
		isPivot[col] = true
	}
	sys := &reduced{rows: rows[:rank], pivots: pivots}
	for col := 0; col < c; col++ {
		if !isPivot[col] {
			sys.free = append(sys.free, col)
			sys.bounds = append(sys.bounds, bounds[col])
		}
	}
	// Pivot bounds are appended after the free ones.
	for _, col := range pivots {
		sys.bounds = append(sys.bounds, bounds[col])
	}
	return sys, nil
}

// pivotValue solves row for its pivot column. It returns -1 when the
// result is not a non-negative integer.
func pivotValue(row intRow, pivot int, free []int, assign []int64) int64 {
	rhs := row[len(row)-1]
	for k, col := range free {
		rhs -= row[col] * assign[k]
	}
	coeff := row[pivot]
	if coeff == 0 || rhs%coeff != 0 {
		return -1
	}
	x := rhs / coeff
	if x < 0 {
		return -1
	}
	return x
}

// search enumerates the free columns and returns the best total, its
// free assignment, and the number of complete assignments evaluated.
func (ie *IntegerElimination) search(ctx context.Context, sys *reduced) (int64, []int64, int, error) {
	f := len(sys.free)
	t := &ticker{ctx: ctx, name: ie.Name(), interval: ie.config.CheckInterval}

	best := int64(-1)
	var bestAssign []int64
	explored := 0

	evaluate := func(assign []int64, freeSum int64) {
		total := freeSum
		for r := range sys.rows {
			x := pivotValue(sys.rows[r], sys.pivots[r], sys.free, assign)
			if x < 0 || x > sys.bounds[f+r] {
				return
			}
			total += x
		}
		if best < 0 || total < best {
			best = total
			bestAssign = append(bestAssign[:0], assign...)
		}
	}

	if f == 0 {
		evaluate(nil, 0)
		return best, bestAssign, 1, nil
	}

	// x is the explicit stack: x[0..depth] is the current partial assignment.
	x := make([]int64, f)
	prefix := make([]int64, f)
	x[0] = -1
	depth := 0
	for depth >= 0 {
		x[depth]++
		sum := x[depth]
		if depth > 0 {
			sum += prefix[depth-1]
		}
		prefix[depth] = sum
		if x[depth] > sys.bounds[depth] || (best >= 0 && sum >= best) {
			depth--
			continue
		}
		if depth < f-1 {
			depth++
			x[depth] = -1
			continue
		}

		explored++
		if explored > ie.config.MaxAssignments {
			return 0, nil, explored, algorithms.NewAlgorithmError(ie.Name(), "Solve",
				fmt.Errorf("%w: more than %d assignments", algorithms.ErrSearchBudgetExceeded, ie.config.MaxAssignments))
		}
		if err := t.tick(); err != nil {
			return 0, nil, explored, err
		}
		evaluate(x, sum)
	}
	return best, bestAssign, explored, nil
}

// -----------------------------------------------------------------------------
// Evaluable Implementation
// -----------------------------------------------------------------------------

// Properties returns the correctness properties.
func (ie *IntegerElimination) Properties() []eval.Property {
	return algorithms.CommonProperties()
}

// Metrics returns the metrics this algorithm exposes.
func (ie *IntegerElimination) Metrics() []eval.MetricDefinition {
	return []eval.MetricDefinition{
		{
			Name:        "integer_elimination_assignments_total",
			Type:        eval.MetricCounter,
			Description: "Free-variable assignments evaluated",
		},
	}
}

// HealthCheck verifies the algorithm is functioning.
func (ie *IntegerElimination) HealthCheck(ctx context.Context) error {
	if ie.config == nil {
		return algorithms.NewAlgorithmError(ie.Name(), "HealthCheck", algorithms.ErrInvalidConfig)
	}
	return ie.config.Validate()
}
