// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package driver solves collections of machines and sums the presses.
//
// A Driver holds one configured algorithm per variant. Total solves
// every machine with it and adds the answers; the first failing machine
// aborts the run with a *MachineError naming the machine.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
	"github.com/AleutianAI/AleutianReach/services/reach/telemetry"
)

// Config selects algorithms and fan-out.
type Config struct {
	// LightsStrategy names the algorithm for the lights variant.
	LightsStrategy string

	// JoltageStrategy names the algorithm for the joltage variant.
	JoltageStrategy string

	// JoltageFallback names the algorithm retried on a joltage machine
	// whose strategy fails with ErrUnsupportedEncoding. Empty disables
	// the retry.
	JoltageFallback string

	// Parallelism is the number of machines solved at once. Values
	// below 2 solve sequentially.
	Parallelism int
}

// MachineError reports which machine stopped a run.
type MachineError struct {
	Index     int
	Variant   machine.Variant
	Algorithm string
	Err       error
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("machine %d (%s, %s): %v", e.Index, e.Variant, e.Algorithm, e.Err)
}

func (e *MachineError) Unwrap() error {
	return e.Err
}

// Report is the outcome of one run.
type Report struct {
	RunID     string          `json:"run_id"`
	Variant   machine.Variant `json:"variant"`
	Algorithm string          `json:"algorithm"`
	Total     int             `json:"total"`
	Presses   []int           `json:"presses"`
	Duration  time.Duration   `json:"-"`

	// Fallbacks lists the machines solved by the fallback algorithm.
	Fallbacks []int `json:"fallbacks,omitempty"`
}

// Driver runs one algorithm per machine.
//
// Thread Safety: Safe for concurrent use; algorithms are stateless.
type Driver struct {
	strategies  map[machine.Variant]algorithms.Algorithm
	fallbacks   map[machine.Variant]algorithms.Algorithm
	parallelism int
	logger      *slog.Logger
	metrics     *telemetry.Metrics
}

// Option customises a Driver.
type Option func(*Driver)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithMetrics records every machine solve on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// New resolves the configured strategies against the registry.
//
// Outputs:
//   - error: Wraps ErrUnknownAlgorithm or ErrVariantMismatch when a
//     strategy is missing or cannot solve its variant.
func New(registry *algorithms.Registry, cfg Config, opts ...Option) (*Driver, error) {
	lights, err := registry.Resolve(cfg.LightsStrategy, machine.VariantLights)
	if err != nil {
		return nil, fmt.Errorf("lights strategy: %w", err)
	}
	joltage, err := registry.Resolve(cfg.JoltageStrategy, machine.VariantJoltage)
	if err != nil {
		return nil, fmt.Errorf("joltage strategy: %w", err)
	}

	d := &Driver{
		strategies: map[machine.Variant]algorithms.Algorithm{
			machine.VariantLights:  lights,
			machine.VariantJoltage: joltage,
		},
		fallbacks:   make(map[machine.Variant]algorithms.Algorithm),
		parallelism: max(cfg.Parallelism, 1),
		logger:      slog.Default(),
	}
	if cfg.JoltageFallback != "" && cfg.JoltageFallback != joltage.Name() {
		fallback, err := registry.Resolve(cfg.JoltageFallback, machine.VariantJoltage)
		if err != nil {
			return nil, fmt.Errorf("joltage fallback: %w", err)
		}
		d.fallbacks[machine.VariantJoltage] = fallback
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(slog.String("component", "driver"))
	return d, nil
}

// Algorithm returns the algorithm configured for v.
func (d *Driver) Algorithm(v machine.Variant) (algorithms.Algorithm, error) {
	algo, ok := d.strategies[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", algorithms.ErrVariantMismatch, v)
	}
	return algo, nil
}

// Total returns the summed minimum presses over machines.
func (d *Driver) Total(ctx context.Context, machines []*machine.Machine, v machine.Variant) (int, error) {
	report, err := d.Solve(ctx, machines, v)
	if err != nil {
		return 0, err
	}
	return report.Total, nil
}

// Lights is Total for the lights variant.
func (d *Driver) Lights(ctx context.Context, machines []*machine.Machine) (int, error) {
	return d.Total(ctx, machines, machine.VariantLights)
}

// Joltage is Total for the joltage variant.
func (d *Driver) Joltage(ctx context.Context, machines []*machine.Machine) (int, error) {
	return d.Total(ctx, machines, machine.VariantJoltage)
}

// Solve runs the configured algorithm on every machine.
//
// Description:
//
//	Exactly one algorithm is invoked per machine. Sequential mode stops
//	at the first failure. Parallel mode cancels the remaining machines
//	on the first failure and reports that one.
//
// Outputs:
//   - *Report: Per-machine presses and the total.
//   - error: *MachineError wrapping the algorithm's error.
func (d *Driver) Solve(ctx context.Context, machines []*machine.Machine, v machine.Variant) (*Report, error) {
	algo, err := d.Algorithm(v)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Variant:   v,
		Algorithm: algo.Name(),
		Presses:   make([]int, len(machines)),
	}

	ctx, span := telemetry.StartSpan(ctx, "reach.driver", "Driver.Solve",
		trace.WithAttributes(
			attribute.String("run_id", report.RunID),
			attribute.String("variant", string(v)),
			attribute.String("algorithm", algo.Name()),
			attribute.Int("machines", len(machines)),
			attribute.Int("parallelism", d.parallelism),
		),
	)
	defer span.End()

	start := time.Now()
	fellBack := make([]bool, len(machines))
	if d.parallelism > 1 && len(machines) > 1 {
		err = d.solveParallel(ctx, algo, machines, v, report.Presses, fellBack)
	} else {
		err = d.solveSequential(ctx, algo, machines, v, report.Presses, fellBack)
	}
	report.Duration = time.Since(start)

	if err != nil {
		telemetry.RecordError(span, err)
		recordRun(string(v), report.Duration.Seconds(), 0, false)
		d.logger.Error("run failed",
			slog.String("run_id", report.RunID),
			slog.String("variant", string(v)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	for i, p := range report.Presses {
		report.Total += p
		if fellBack[i] {
			report.Fallbacks = append(report.Fallbacks, i)
		}
	}
	span.SetAttributes(attribute.Int("total", report.Total))
	recordRun(string(v), report.Duration.Seconds(), report.Total, true)
	d.logger.Info("run completed",
		slog.String("run_id", report.RunID),
		slog.String("variant", string(v)),
		slog.String("algorithm", algo.Name()),
		slog.Int("machines", len(machines)),
		slog.Int("total", report.Total),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

func (d *Driver) solveSequential(ctx context.Context, algo algorithms.Algorithm, machines []*machine.Machine, v machine.Variant, presses []int, fellBack []bool) error {
	for i, m := range machines {
		p, fb, err := d.solveOne(ctx, algo, i, m, v)
		if err != nil {
			return err
		}
		presses[i], fellBack[i] = p, fb
	}
	return nil
}

func (d *Driver) solveParallel(ctx context.Context, algo algorithms.Algorithm, machines []*machine.Machine, v machine.Variant, presses []int, fellBack []bool) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallelism)
	for i, m := range machines {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			p, fb, err := d.solveOne(gCtx, algo, i, m, v)
			if err != nil {
				return err
			}
			presses[i], fellBack[i] = p, fb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// A parent cancellation can stop the loop before any machine fails.
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// solveOne runs algo on one machine, retrying with the variant's
// fallback when algo cannot encode the machine. The bool reports whether
// the fallback produced the answer.
func (d *Driver) solveOne(ctx context.Context, algo algorithms.Algorithm, index int, m *machine.Machine, v machine.Variant) (int, bool, error) {
	presses, err := d.attempt(ctx, algo, index, m, v)
	if err == nil {
		return presses, false, nil
	}

	fallback, ok := d.fallbacks[v]
	if !ok || !errors.Is(err, algorithms.ErrUnsupportedEncoding) {
		return 0, false, &MachineError{Index: index, Variant: v, Algorithm: algo.Name(), Err: err}
	}
	d.logger.Warn("strategy cannot encode machine, falling back",
		slog.Int("machine", index),
		slog.String("variant", string(v)),
		slog.String("algorithm", algo.Name()),
		slog.String("fallback", fallback.Name()),
		slog.String("error", err.Error()),
	)
	presses, err = d.attempt(ctx, fallback, index, m, v)
	if err != nil {
		return 0, false, &MachineError{Index: index, Variant: v, Algorithm: fallback.Name(), Err: err}
	}
	return presses, true, nil
}

// attempt runs algo on one machine under its timeout.
func (d *Driver) attempt(ctx context.Context, algo algorithms.Algorithm, index int, m *machine.Machine, v machine.Variant) (int, error) {
	if timeout := algo.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	sol, err := algo.Solve(ctx, m, v)
	elapsed := time.Since(start)

	states := 0
	if sol != nil {
		states = sol.StatesExplored
	}
	d.metrics.RecordSolve(ctx, algo.Name(), string(v), elapsed, states, err)

	if err != nil {
		status := "error"
		switch {
		case errors.Is(err, algorithms.ErrInfeasible):
			status = "infeasible"
		case errors.Is(err, algorithms.ErrUnsupportedEncoding):
			status = "unsupported"
		}
		recordMachine(string(v), algo.Name(), status)
		return 0, err
	}

	recordMachine(string(v), algo.Name(), "ok")
	d.logger.Debug("machine solved",
		slog.Int("machine", index),
		slog.String("variant", string(v)),
		slog.String("algorithm", algo.Name()),
		slog.Int("presses", sol.Presses),
		slog.Int("states_explored", states),
		slog.Duration("duration", elapsed),
	)
	return sol.Presses, nil
}
