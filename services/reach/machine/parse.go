// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package machine

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Parse reads one machine description:
//
//	[.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}
//
// The light diagram is required and fixes the dimension. Wiring groups are
// optional; "()" is a toggle that affects nothing. The joltage vector is
// required and must list one value per light.
//
// Errors wrap ErrFormat for grammar violations and ErrMalformedMachine for
// dimensional violations.
func Parse(line string) (*Machine, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: missing light diagram", ErrFormat)
	}

	diagram := parts[0]
	if len(diagram) < 2 || diagram[0] != '[' || diagram[len(diagram)-1] != ']' {
		return nil, fmt.Errorf("%w: invalid light diagram %q", ErrFormat, diagram)
	}
	cells := diagram[1 : len(diagram)-1]
	n := len(cells)
	if n == 0 || n > MaxDimension {
		return nil, fmt.Errorf("%w: light diagram width %d outside [1, %d]", ErrFormat, n, MaxDimension)
	}
	var lights Mask
	for i := 0; i < n; i++ {
		switch cells[i] {
		case '.':
		case '#':
			lights |= 1 << uint(i)
		default:
			return nil, fmt.Errorf("%w: invalid light diagram character %q", ErrFormat, cells[i])
		}
	}

	rest := parts[1:]
	var toggles []Mask
	for len(rest) > 0 && strings.HasPrefix(rest[0], "(") {
		wiring := rest[0]
		if !strings.HasSuffix(wiring, ")") {
			return nil, fmt.Errorf("%w: unterminated wiring %q", ErrFormat, wiring)
		}
		positions, err := parseInts(wiring[1 : len(wiring)-1])
		if err != nil {
			return nil, fmt.Errorf("%w: wiring %s: %v", ErrFormat, wiring, err)
		}
		var t Mask
		for _, p := range positions {
			if p >= n {
				return nil, fmt.Errorf("%w: wiring %s references position %d of %d", ErrMalformedMachine, wiring, p, n)
			}
			t |= 1 << uint(p)
		}
		toggles = append(toggles, t)
		rest = rest[1:]
	}

	if len(rest) == 0 {
		return nil, fmt.Errorf("%w: missing joltages", ErrFormat)
	}
	jolt := rest[0]
	if len(jolt) < 2 || jolt[0] != '{' || jolt[len(jolt)-1] != '}' {
		return nil, fmt.Errorf("%w: invalid joltages %q", ErrFormat, jolt)
	}
	joltages, err := parseInts(jolt[1 : len(jolt)-1])
	if err != nil {
		return nil, fmt.Errorf("%w: joltages %s: %v", ErrFormat, jolt, err)
	}
	if joltages == nil {
		joltages = []int{}
	}
	if len(rest) > 1 {
		return nil, fmt.Errorf("%w: unexpected trailing %q", ErrFormat, strings.Join(rest[1:], " "))
	}

	return New(n, lights, toggles, joltages)
}

// ParseAll parses every non-blank line of r.
//
// Outputs:
//   - []*Machine: One machine per non-blank line, in input order.
//   - error: A *ParseError naming the first failing line.
func ParseAll(r io.Reader) ([]*Machine, error) {
	var machines []*Machine
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		m, err := Parse(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Err: err}
		}
		machines = append(machines, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read machines: %w", err)
	}
	return machines, nil
}

// ParseString is ParseAll over an in-memory string.
func ParseString(s string) ([]*Machine, error) {
	return ParseAll(strings.NewReader(s))
}

// parseInts parses a comma-separated list of non-negative integers.
// An empty list yields nil.
func parseInts(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		if v < 0 {
			return nil, fmt.Errorf("negative number %d", v)
		}
		out = append(out, v)
	}
	return out, nil
}
