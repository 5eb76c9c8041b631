// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package linear solves both variants algebraically.
//
// The machine is the linear system A x = t, where column j of A is the
// effect set of toggle j. Lights solve it over GF(2); joltage solves it
// over the non-negative integers. Elimination leaves a handful of free
// columns, and the minimum is found by enumerating those.
package linear

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// Config configures the algebraic solvers.
type Config struct {
	// MaxFreeVariables caps the GF(2) free columns; enumeration is 2^f.
	MaxFreeVariables int

	// MaxAssignments caps the integer free-variable assignments checked.
	MaxAssignments int

	// Timeout is the maximum execution time enforced by the Runner.
	Timeout time.Duration

	// CheckInterval is how many assignments pass between cancellation checks.
	CheckInterval int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxFreeVariables: 24,
		MaxAssignments:   1 << 26,
		Timeout:          30 * time.Second,
		CheckInterval:    1024,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxFreeVariables < 0 || c.MaxFreeVariables > 62 {
		return fmt.Errorf("%w: max free variables %d outside [0, 62]", algorithms.ErrInvalidConfig, c.MaxFreeVariables)
	}
	if c.MaxAssignments < 1 {
		return fmt.Errorf("%w: max assignments must be positive", algorithms.ErrInvalidConfig)
	}
	if c.Timeout < 0 || c.CheckInterval < 1 {
		return fmt.Errorf("%w: bad timeout or check interval", algorithms.ErrInvalidConfig)
	}
	return nil
}

func normalizeConfig(config *Config) *Config {
	if config == nil {
		return DefaultConfig()
	}
	c := *config
	if c.CheckInterval < 1 {
		c.CheckInterval = DefaultConfig().CheckInterval
	}
	return &c
}

// ticker checks ctx every interval calls.
type ticker struct {
	ctx      context.Context
	name     string
	interval int
	n        int
}

func (t *ticker) tick() error {
	t.n++
	if t.n%t.interval != 0 {
		return nil
	}
	if err := t.ctx.Err(); err != nil {
		return algorithms.NewAlgorithmError(t.name, "Solve", err)
	}
	return nil
}

// activeToggles returns the indices of toggles with a non-empty effect set.
func activeToggles(m *machine.Machine) []int {
	out := make([]int, 0, m.NumToggles())
	for j := 0; j < m.NumToggles(); j++ {
		if m.Toggle(j) != 0 {
			out = append(out, j)
		}
	}
	return out
}
