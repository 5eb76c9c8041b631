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
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianReach/services/reach/machine"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// -----------------------------------------------------------------------------
// Runner
// -----------------------------------------------------------------------------

// Runner executes algorithms in goroutines and collects results via channels.
//
// Description:
//
//	Runner is the coordinator used when several solves run side by side,
//	for example every applicable algorithm on the same machine during
//	verification. It:
//	- Spawns one goroutine per Run call
//	- Enforces each algorithm's Timeout()
//	- Wraps each solve in an OpenTelemetry span
//	- Collects results via a buffered channel
//
// Thread Safety: Safe for concurrent use.
type Runner struct {
	mu      sync.Mutex
	results chan *Result
	wg      sync.WaitGroup
	logger  *slog.Logger

	started   int
	completed int
}

// NewRunner creates a new algorithm runner.
//
// Inputs:
//   - capacity: Buffer size for the results channel. Default: 10.
//     Results beyond capacity are dropped with a warning, so callers
//     should size it to the number of Run calls.
//
// Outputs:
//   - *Runner: The new runner.
func NewRunner(capacity int) *Runner {
	if capacity <= 0 {
		capacity = 10
	}
	return &Runner{
		results: make(chan *Result, capacity),
		logger:  slog.Default().With(slog.String("component", "algorithm_runner")),
	}
}

// Run starts an algorithm in a goroutine.
//
// Inputs:
//   - ctx: Parent context. The algorithm runs with a derived timeout context.
//   - algo: The algorithm to run.
//   - m: The machine to solve.
//   - v: The variant to solve.
//
// Thread Safety: Safe for concurrent calls.
func (r *Runner) Run(ctx context.Context, algo Algorithm, m *machine.Machine, v machine.Variant) {
	r.RunTagged(ctx, 0, algo, m, v)
}

// RunTagged is Run with a caller-chosen tag copied into the Result.
func (r *Runner) RunTagged(ctx context.Context, tag int, algo Algorithm, m *machine.Machine, v machine.Variant) {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()

	r.wg.Add(1)
	go r.runAlgorithm(ctx, tag, algo, m, v)
}

// runAlgorithm executes a single algorithm with timeout and tracing.
func (r *Runner) runAlgorithm(ctx context.Context, tag int, algo Algorithm, m *machine.Machine, v machine.Variant) {
	defer r.wg.Done()

	name := algo.Name()
	startTime := time.Now()

	timeout := algo.Timeout()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	ctx, span := otel.Tracer("reach.algorithms").Start(ctx, "algorithm."+name,
		trace.WithAttributes(
			attribute.String("algorithm", name),
			attribute.String("variant", string(v)),
			attribute.Int("tag", tag),
			attribute.String("timeout", timeout.String()),
		),
	)
	defer span.End()

	result := &Result{
		Name:      name,
		Tag:       tag,
		Variant:   v,
		StartTime: startTime,
	}

	sol, err := algo.Solve(ctx, m, v)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	result.Solution = sol
	result.Err = err

	if ctx.Err() != nil {
		result.Cancelled = true
		if err == nil {
			result.Err = ctx.Err()
		}
	}

	span.SetAttributes(
		attribute.Int64("duration_ms", result.Duration.Milliseconds()),
		attribute.Bool("success", result.Success()),
		attribute.Bool("cancelled", result.Cancelled),
	)
	if sol != nil {
		span.SetAttributes(
			attribute.Int("presses", sol.Presses),
			attribute.Int("states_explored", sol.StatesExplored),
		)
	}
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}

	if result.Err != nil && !result.Cancelled {
		r.logger.Warn("algorithm failed",
			slog.String("algorithm", name),
			slog.Int("tag", tag),
			slog.Duration("duration", result.Duration),
			slog.String("error", result.Err.Error()),
		)
	} else {
		r.logger.Debug("algorithm completed",
			slog.String("algorithm", name),
			slog.Int("tag", tag),
			slog.Duration("duration", result.Duration),
			slog.Bool("cancelled", result.Cancelled),
		)
	}

	r.mu.Lock()
	r.completed++
	r.mu.Unlock()

	select {
	case r.results <- result:
	default:
		r.logger.Warn("result channel full, dropping result",
			slog.String("algorithm", name),
		)
	}
}

// Collect waits for all algorithms to complete and returns their results.
//
// Outputs:
//   - []*Result: All results (including failures), in completion order.
//   - error: Non-nil if ctx ends before every algorithm finishes.
//
// Thread Safety: Must be called once, after all Run() calls.
func (r *Runner) Collect(ctx context.Context) ([]*Result, error) {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	close(r.results)

	var results []*Result
	for result := range r.results {
		results = append(results, result)
	}
	return results, nil
}

// Stats returns execution statistics.
func (r *Runner) Stats() RunnerStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RunnerStats{
		Started:   r.started,
		Completed: r.completed,
		Pending:   r.started - r.completed,
	}
}

// RunnerStats contains runner execution statistics.
type RunnerStats struct {
	Started   int `json:"started"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Add returns the field-wise sum of s and o.
func (s RunnerStats) Add(o RunnerStats) RunnerStats {
	return RunnerStats{
		Started:   s.Started + o.Started,
		Completed: s.Completed + o.Completed,
		Pending:   s.Pending + o.Pending,
	}
}

// -----------------------------------------------------------------------------
// Parallel Execution Helper
// -----------------------------------------------------------------------------

// RunAll runs every algorithm on the same machine and variant in parallel.
//
// Outputs:
//   - []*Result: One result per algorithm.
//   - RunnerStats: The runner's counts once collection returns.
//   - error: Non-nil if ctx ends before collection completes.
func RunAll(ctx context.Context, m *machine.Machine, v machine.Variant, algos ...Algorithm) ([]*Result, RunnerStats, error) {
	runner := NewRunner(len(algos))
	for _, algo := range algos {
		runner.Run(ctx, algo, m, v)
	}
	results, err := runner.Collect(ctx)
	return results, runner.Stats(), err
}
