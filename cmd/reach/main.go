// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command reach solves toggle-combination reachability puzzles.
//
// Each input line describes a machine: a light diagram, toggle wirings and
// joltage targets. reach finds the fewest toggle presses that light the
// diagram (lights) or reach the joltage targets (joltage), and sums them.
//
// Usage:
//
//	reach solve input.txt
//	reach solve input.txt --variant joltage --strategy integer_elimination
//	reach solve input.txt --watch
//	reach verify input.txt
//	reach serve --port 12230
//	reach algorithms
package main

import (
	"errors"
	"os"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			cmd.PrintErrln("Error:", err)
		}
		os.Exit(1)
	}
}
