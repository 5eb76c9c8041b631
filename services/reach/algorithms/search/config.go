// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search implements the breadth-first reachability solvers.
//
// All three solvers explore an implicit graph whose nodes are states and
// whose edges are single toggle presses. Edges have uniform cost, so the
// first time the target is dequeued its depth is the minimum press count.
// Frontiers are explicit FIFO queues; no solver recurses.
package search

import (
	"context"
	"time"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
)

// BFSConfig configures the breadth-first solvers.
type BFSConfig struct {
	// MaxStates caps the number of discovered states. Zero disables the cap.
	MaxStates int

	// Timeout is the maximum execution time enforced by the Runner.
	Timeout time.Duration

	// CheckInterval is how many dequeues pass between cancellation checks.
	CheckInterval int
}

// DefaultBFSConfig returns the default configuration.
func DefaultBFSConfig() *BFSConfig {
	return &BFSConfig{
		MaxStates:     1 << 24,
		Timeout:       30 * time.Second,
		CheckInterval: 1024,
	}
}

// Validate checks the configuration.
func (c *BFSConfig) Validate() error {
	if c.MaxStates < 0 || c.Timeout < 0 || c.CheckInterval < 1 {
		return algorithms.ErrInvalidConfig
	}
	return nil
}

func normalizeConfig(config *BFSConfig) *BFSConfig {
	if config == nil {
		return DefaultBFSConfig()
	}
	c := *config
	if c.CheckInterval < 1 {
		c.CheckInterval = DefaultBFSConfig().CheckInterval
	}
	return &c
}

// -----------------------------------------------------------------------------
// FIFO queue
// -----------------------------------------------------------------------------

// fifo is a slice-backed queue that reclaims its consumed prefix.
type fifo[T any] struct {
	items []T
	head  int
}

func (q *fifo[T]) push(v T) {
	q.items = append(q.items, v)
}

func (q *fifo[T]) pop() (T, bool) {
	var zero T
	if q.head >= len(q.items) {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	if q.head > 1024 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v, true
}

func (q *fifo[T]) len() int {
	return len(q.items) - q.head
}

// -----------------------------------------------------------------------------
// Shared loop helpers
// -----------------------------------------------------------------------------

// guard tracks cancellation and the state budget for one solve.
type guard struct {
	name     string
	ctx      context.Context
	interval int
	max      int
	ticks    int
}

func newGuard(ctx context.Context, name string, c *BFSConfig) *guard {
	return &guard{name: name, ctx: ctx, interval: c.CheckInterval, max: c.MaxStates}
}

// tick is called once per dequeue.
func (g *guard) tick() error {
	g.ticks++
	if g.ticks%g.interval != 0 {
		return nil
	}
	select {
	case <-g.ctx.Done():
		return algorithms.NewAlgorithmError(g.name, "Solve", g.ctx.Err())
	default:
		return nil
	}
}

// admit is called with the discovered-state count after each insertion.
func (g *guard) admit(discovered int) error {
	if g.max > 0 && discovered > g.max {
		return algorithms.NewAlgorithmError(g.name, "Solve", algorithms.ErrSearchBudgetExceeded)
	}
	return nil
}

func infeasible(name string) error {
	return algorithms.NewAlgorithmError(name, "Solve", algorithms.ErrInfeasible)
}
