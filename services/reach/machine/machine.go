// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package machine defines the immutable puzzle instance consumed by the
// reachability solvers, together with the line-oriented input parser.
//
// A Machine has n positions. Each position carries one indicator light and
// one joltage counter. A toggle (button) affects a fixed subset of positions:
// in the lights variant pressing it flips those lights, in the joltage
// variant it increments those counters by exactly one.
//
// Positions are encoded LSB-first: position i is bit i of a Mask.
package machine

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// MaxDimension is the largest supported number of positions.
const MaxDimension = 64

// -----------------------------------------------------------------------------
// Mask
// -----------------------------------------------------------------------------

// Mask is a fixed-width boolean vector, one bit per position.
type Mask uint64

// Has reports whether position i is set.
func (m Mask) Has(i int) bool {
	return i >= 0 && i < MaxDimension && m&(1<<uint(i)) != 0
}

// Count returns the Hamming weight of the mask.
func (m Mask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Positions returns the set positions in ascending order.
func (m Mask) Positions() []int {
	out := make([]int, 0, m.Count())
	for v := uint64(m); v != 0; v &= v - 1 {
		out = append(out, bits.TrailingZeros64(v))
	}
	return out
}

// MaskOf builds a mask from a list of positions.
func MaskOf(positions ...int) Mask {
	var m Mask
	for _, p := range positions {
		if p >= 0 && p < MaxDimension {
			m |= 1 << uint(p)
		}
	}
	return m
}

// fits reports whether every set bit lies below n.
func (m Mask) fits(n int) bool {
	if n >= MaxDimension {
		return true
	}
	return uint64(m)>>uint(n) == 0
}

// -----------------------------------------------------------------------------
// Variant
// -----------------------------------------------------------------------------

// Variant selects the transition model a machine is solved under.
type Variant string

const (
	// VariantLights flips lights with XOR; the target is the light diagram.
	VariantLights Variant = "lights"

	// VariantJoltage increments counters; the target is the joltage vector.
	VariantJoltage Variant = "joltage"
)

// ParseVariant converts a user-facing name into a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lights", "light", "xor", "part1":
		return VariantLights, nil
	case "joltage", "joltages", "increment", "part2":
		return VariantJoltage, nil
	default:
		return "", fmt.Errorf("unknown variant %q", s)
	}
}

// Variants returns both variants in solve order.
func Variants() []Variant {
	return []Variant{VariantLights, VariantJoltage}
}

// -----------------------------------------------------------------------------
// Machine
// -----------------------------------------------------------------------------

// Machine is one puzzle instance.
//
// Thread Safety: Immutable after construction; safe for concurrent reads.
type Machine struct {
	n        int
	lights   Mask
	toggles  []Mask
	joltages []int
}

// New validates the inputs and returns an immutable Machine.
//
// Inputs:
//   - n: Number of positions. Must be in [1, MaxDimension].
//   - lights: Target light pattern; no bit at or above n may be set.
//   - toggles: Toggle effect sets; no bit at or above n may be set.
//   - joltages: Target counters. Either nil or exactly n non-negative values.
//
// Outputs:
//   - *Machine: The machine. Inputs are copied.
//   - error: Wraps ErrMalformedMachine on any violation.
func New(n int, lights Mask, toggles []Mask, joltages []int) (*Machine, error) {
	if n < 1 || n > MaxDimension {
		return nil, fmt.Errorf("%w: dimension %d outside [1, %d]", ErrMalformedMachine, n, MaxDimension)
	}
	if !lights.fits(n) {
		return nil, fmt.Errorf("%w: light pattern %b wider than %d positions", ErrMalformedMachine, uint64(lights), n)
	}
	for j, t := range toggles {
		if !t.fits(n) {
			return nil, fmt.Errorf("%w: toggle %d references a position >= %d", ErrMalformedMachine, j, n)
		}
	}
	if joltages != nil {
		if len(joltages) != n {
			return nil, fmt.Errorf("%w: %d joltages for %d positions", ErrMalformedMachine, len(joltages), n)
		}
		for i, v := range joltages {
			if v < 0 {
				return nil, fmt.Errorf("%w: joltage %d is negative (%d)", ErrMalformedMachine, i, v)
			}
		}
	}

	m := &Machine{
		n:       n,
		lights:  lights,
		toggles: append([]Mask(nil), toggles...),
	}
	if joltages != nil {
		m.joltages = append([]int(nil), joltages...)
	}
	return m, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(n int, lights Mask, toggles []Mask, joltages []int) *Machine {
	m, err := New(n, lights, toggles, joltages)
	if err != nil {
		panic(err)
	}
	return m
}

// Dimension returns the number of positions.
func (m *Machine) Dimension() int {
	return m.n
}

// Lights returns the target light pattern.
func (m *Machine) Lights() Mask {
	return m.lights
}

// Toggles returns a copy of the toggle effect sets.
func (m *Machine) Toggles() []Mask {
	return append([]Mask(nil), m.toggles...)
}

// NumToggles returns the number of toggles.
func (m *Machine) NumToggles() int {
	return len(m.toggles)
}

// Toggle returns the effect set of toggle j.
func (m *Machine) Toggle(j int) Mask {
	return m.toggles[j]
}

// Positions returns the positions toggle j affects.
func (m *Machine) Positions(j int) []int {
	return m.toggles[j].Positions()
}

// HasJoltages reports whether joltage targets were supplied.
func (m *Machine) HasJoltages() bool {
	return m.joltages != nil
}

// Joltages returns a copy of the joltage targets, or nil when absent.
func (m *Machine) Joltages() []int {
	if m.joltages == nil {
		return nil
	}
	return append([]int(nil), m.joltages...)
}

// Joltage returns the joltage target at position i.
func (m *Machine) Joltage(i int) int {
	return m.joltages[i]
}

// MaxJoltage returns the largest joltage target, or 0 when absent.
func (m *Machine) MaxJoltage() int {
	best := 0
	for _, v := range m.joltages {
		best = max(best, v)
	}
	return best
}

// IsZeroTarget reports whether the target for the variant is all zero.
func (m *Machine) IsZeroTarget(v Variant) bool {
	if v == VariantLights {
		return m.lights == 0
	}
	for _, j := range m.joltages {
		if j != 0 {
			return false
		}
	}
	return true
}

// String renders the machine in the input grammar.
func (m *Machine) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < m.n; i++ {
		if m.lights.Has(i) {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('.')
		}
	}
	sb.WriteByte(']')
	for _, t := range m.toggles {
		sb.WriteString(" (")
		for k, p := range t.Positions() {
			if k > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(p))
		}
		sb.WriteByte(')')
	}
	if m.joltages != nil {
		sb.WriteString(" {")
		for i, v := range m.joltages {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(v))
		}
		sb.WriteByte('}')
	}
	return sb.String()
}
