// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package algorithms provides the solver framework for toggle reachability.
//
// Architecture:
//
//	Algorithms are pure functions over an immutable machine.Machine. Each
//	solve call owns its frontier and visited set; nothing outlives the call,
//	so independent machines can be solved concurrently without locking.
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                           SOLVER EXECUTION                           │
//	├──────────────────────────────────────────────────────────────────────┤
//	│                                                                      │
//	│   Driver / verify command                                            │
//	│      │                                                               │
//	│      ▼                                                               │
//	│   ┌──────────────────────────────────────────────────────────────┐   │
//	│   │                           Runner                             │   │
//	│   │  one goroutine per (algorithm, machine), timeout + span      │   │
//	│   └───────────────────────┬──────────────────────────────────────┘   │
//	│           ┌───────────────┼────────────────┐                         │
//	│           ▼               ▼                ▼                         │
//	│   ┌──────────────┐ ┌──────────────┐ ┌──────────────┐                 │
//	│   │ bitmask_bfs  │ │ packed_bfs   │ │ gf2 / integer│                 │
//	│   │ (lights)     │ │ (joltage)    │ │ elimination  │                 │
//	│   └──────┬───────┘ └──────┬───────┘ └──────┬───────┘                 │
//	│          └────────────────┴────────────────┘                         │
//	│                           ▼                                          │
//	│                   []*Result (Solution | error)                       │
//	│                                                                      │
//	└──────────────────────────────────────────────────────────────────────┘
//
// Algorithm Contract:
//
//	Algorithms MUST:
//	1. Never mutate the machine
//	2. Check ctx.Done() regularly inside search loops
//	3. Report infeasibility as ErrInfeasible, never as zero presses
//	4. Wrap failures in *AlgorithmError
//	5. Implement eval.Evaluable
//
//	Algorithms MUST NOT:
//	1. Access global mutable state
//	2. Perform I/O
//	3. Recurse over search states; frontiers are explicit queues or stacks
//
// Algorithm Catalogue:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│  SEARCH      │ bitmask_bfs, packed_bfs, vector_bfs              │
//	│  ALGEBRAIC   │ gf2_elimination, integer_elimination             │
//	│  OPTIMISER   │ pseudo_boolean                                   │
//	└─────────────────────────────────────────────────────────────────┘
//
// Example Usage:
//
//	registry := algorithms.NewRegistry()
//	registry.MustRegister(search.NewBitmaskBFS(nil))
//	registry.MustRegister(linear.NewGF2Elimination(nil))
//
//	runner := algorithms.NewRunner(2)
//	for _, algo := range registry.ForVariant(machine.VariantLights) {
//	    runner.Run(ctx, algo, m, machine.VariantLights)
//	}
//	results, err := runner.Collect(ctx)
package algorithms
