// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"fmt"
	"math/bits"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// PackedState is a bounded counter vector encoded in one word.
type PackedState uint64

// Packer encodes counter vectors into PackedState values.
//
// Description:
//
//	Coordinate i occupies bits [i*Width, (i+1)*Width). Width is the bit
//	length of the largest limit plus one guard bit, so a single increment
//	past any limit stays inside its own field. The width is chosen once
//	per machine and carried here rather than recomputed at each use.
//
// Thread Safety: Immutable after construction.
type Packer struct {
	n      int
	width  uint
	mask   uint64
	limits []uint64
	target PackedState
}

// NewPacker builds a packer for the given per-coordinate limits. The
// limits double as the target vector.
//
// Outputs:
//   - error: Wraps ErrUnsupportedEncoding when len(limits)*Width > 64,
//     or a limit is negative.
func NewPacker(limits []int) (*Packer, error) {
	largest := 0
	for i, l := range limits {
		if l < 0 {
			return nil, fmt.Errorf("%w: limit %d is negative", algorithms.ErrUnsupportedEncoding, i)
		}
		largest = max(largest, l)
	}
	width := uint(bits.Len(uint(largest))) + 1
	if len(limits) == 0 || uint(len(limits))*width > 64 {
		return nil, fmt.Errorf("%w: %d coordinates of %d bits exceed 64", algorithms.ErrUnsupportedEncoding, len(limits), width)
	}

	p := &Packer{
		n:      len(limits),
		width:  width,
		mask:   (uint64(1) << width) - 1,
		limits: make([]uint64, len(limits)),
	}
	for i, l := range limits {
		p.limits[i] = uint64(l)
	}
	target, err := p.Pack(limits)
	if err != nil {
		return nil, err
	}
	p.target = target
	return p, nil
}

// Width returns the bits per coordinate.
func (p *Packer) Width() uint {
	return p.width
}

// Target returns the packed limit vector.
func (p *Packer) Target() PackedState {
	return p.target
}

// Pack encodes a vector. Every value must fit in a field.
func (p *Packer) Pack(vec []int) (PackedState, error) {
	if len(vec) != p.n {
		return 0, fmt.Errorf("%w: got %d coordinates, want %d", algorithms.ErrUnsupportedEncoding, len(vec), p.n)
	}
	var s uint64
	for i, v := range vec {
		if v < 0 || uint64(v) > p.mask {
			return 0, fmt.Errorf("%w: value %d does not fit %d bits", algorithms.ErrUnsupportedEncoding, v, p.width)
		}
		s |= uint64(v) << (uint(i) * p.width)
	}
	return PackedState(s), nil
}

// Unpack decodes a state into a fresh vector.
func (p *Packer) Unpack(s PackedState) []int {
	out := make([]int, p.n)
	for i := range out {
		out[i] = int(p.Field(s, i))
	}
	return out
}

// Field returns coordinate i of s.
func (p *Packer) Field(s PackedState, i int) uint64 {
	return (uint64(s) >> (uint(i) * p.width)) & p.mask
}

// Delta encodes a toggle as 1 in each field it increments.
func (p *Packer) Delta(t machine.Mask) PackedState {
	var d uint64
	for _, i := range t.Positions() {
		if i < p.n {
			d |= uint64(1) << (uint(i) * p.width)
		}
	}
	return PackedState(d)
}

// Add returns s+d computed field by field.
//
// Description:
//
//	Plain integer addition could carry between fields, so each
//	coordinate is summed on its own. If any sum exceeds its limit the
//	transition is discarded: counters never decrease, so an overshoot
//	state can never reach the target.
//
// Outputs:
//   - PackedState: The verified sum.
//   - bool: False when any coordinate would exceed its limit.
func (p *Packer) Add(s, d PackedState) (PackedState, bool) {
	var out uint64
	for i := 0; i < p.n; i++ {
		shift := uint(i) * p.width
		sum := ((uint64(s) >> shift) & p.mask) + ((uint64(d) >> shift) & p.mask)
		if sum > p.limits[i] {
			return 0, false
		}
		out |= sum << shift
	}
	return PackedState(out), true
}
