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
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianReach/services/reach/eval"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// -----------------------------------------------------------------------------
// Algorithm Interface
// -----------------------------------------------------------------------------

// Algorithm computes the minimum number of presses for one machine.
//
// Description:
//
//	Algorithms read an immutable machine and return a Solution. They run
//	in goroutines under the Runner with timeout enforcement.
//
// CANCELLATION CONTRACT:
//   - Search loops MUST check ctx.Done() at bounded intervals
//   - A cancelled solve returns ctx.Err() wrapped in *AlgorithmError
//
// Thread Safety: Must be safe for concurrent execution.
type Algorithm interface {
	eval.Evaluable

	// Description is a one-line human-readable summary.
	Description() string

	// Supports reports whether the algorithm can solve the variant.
	Supports(v machine.Variant) bool

	// Solve returns the minimum press count for the machine under v.
	//
	// Outputs:
	//   - *Solution: Non-nil on success.
	//   - error: *AlgorithmError wrapping ErrInfeasible,
	//     ErrUnsupportedEncoding, ErrSearchBudgetExceeded,
	//     ErrVariantMismatch or a context error.
	Solve(ctx context.Context, m *machine.Machine, v machine.Variant) (*Solution, error)

	// Timeout returns the maximum execution time enforced by the Runner.
	Timeout() time.Duration
}

// -----------------------------------------------------------------------------
// Solution
// -----------------------------------------------------------------------------

// Solution is the outcome of a successful solve.
type Solution struct {
	// Algorithm is the name of the algorithm that produced the solution.
	Algorithm string `json:"algorithm"`

	// Variant is the transition model solved.
	Variant machine.Variant `json:"variant"`

	// Presses is the minimum total number of toggle applications.
	Presses int `json:"presses"`

	// Counts holds presses per toggle when the algorithm reconstructs
	// them. Nil for the breadth-first solvers.
	Counts []int `json:"counts,omitempty"`

	// StatesExplored counts visited states (search) or enumerated
	// assignments (algebraic).
	StatesExplored int `json:"states_explored"`
}

// Input is the (machine, variant) pair passed to property checks.
type Input struct {
	Machine *machine.Machine
	Variant machine.Variant
}

// -----------------------------------------------------------------------------
// Algorithm Result
// -----------------------------------------------------------------------------

// Result wraps the output of one Runner execution.
//
// Thread Safety: Immutable after creation.
type Result struct {
	// Name is the algorithm name.
	Name string

	// Tag identifies the execution, e.g. the machine index.
	Tag int

	// Variant is the variant that was solved.
	Variant machine.Variant

	// Solution is non-nil on success.
	Solution *Solution

	// Err is non-nil if the algorithm failed.
	Err error

	// Duration is how long the algorithm ran.
	Duration time.Duration

	// StartTime is when the algorithm started.
	StartTime time.Time

	// EndTime is when the algorithm finished.
	EndTime time.Time

	// Cancelled is true if the algorithm hit its timeout or the parent
	// context was cancelled.
	Cancelled bool
}

// Success returns true if the algorithm succeeded without error.
func (r *Result) Success() bool {
	return r.Err == nil && !r.Cancelled
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Solver errors.
var (
	// ErrInfeasible is returned when no press sequence reaches the target.
	ErrInfeasible = errors.New("target infeasible")

	// ErrUnsupportedEncoding is returned when the targets are too large for
	// the packed state representation.
	ErrUnsupportedEncoding = errors.New("unsupported state encoding")

	// ErrSearchBudgetExceeded is returned when a configured state or
	// enumeration cap is reached before an answer is proven.
	ErrSearchBudgetExceeded = errors.New("search budget exceeded")

	// ErrVariantMismatch is returned when an algorithm is asked to solve a
	// variant it does not support, or the machine lacks that target.
	ErrVariantMismatch = errors.New("variant not supported")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid algorithm config")

	// ErrNilMachine is returned when the machine is nil.
	ErrNilMachine = errors.New("nil machine")

	// ErrUnknownAlgorithm is returned by the Registry for unknown names.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("algorithm already registered")

	// ErrTimeout is returned when the algorithm times out.
	ErrTimeout = context.DeadlineExceeded

	// ErrCancelled is returned when the algorithm is cancelled.
	ErrCancelled = context.Canceled
)

// AlgorithmError wraps an error with algorithm context.
type AlgorithmError struct {
	Algorithm string
	Operation string
	Err       error
}

func (e *AlgorithmError) Error() string {
	return e.Algorithm + "." + e.Operation + ": " + e.Err.Error()
}

func (e *AlgorithmError) Unwrap() error {
	return e.Err
}

// NewAlgorithmError creates a new algorithm error.
func NewAlgorithmError(algorithm, operation string, err error) *AlgorithmError {
	return &AlgorithmError{
		Algorithm: algorithm,
		Operation: operation,
		Err:       err,
	}
}

// CheckInput validates the common preconditions of Solve.
//
// Description:
//
//	Returns an *AlgorithmError wrapping ErrNilMachine when m is nil and
//	ErrVariantMismatch when the algorithm does not support v or the
//	machine has no joltage targets for VariantJoltage.
func CheckInput(algo Algorithm, m *machine.Machine, v machine.Variant) error {
	if m == nil {
		return NewAlgorithmError(algo.Name(), "Solve", ErrNilMachine)
	}
	if !algo.Supports(v) {
		return NewAlgorithmError(algo.Name(), "Solve", fmt.Errorf("%w: %s", ErrVariantMismatch, v))
	}
	if v == machine.VariantJoltage && !m.HasJoltages() {
		return NewAlgorithmError(algo.Name(), "Solve", fmt.Errorf("%w: machine has no joltage targets", ErrVariantMismatch))
	}
	return nil
}
