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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

func TestNewPacker_Width(t *testing.T) {
	tests := []struct {
		limits []int
		width  uint
	}{
		{[]int{0}, 1},
		{[]int{1}, 2},
		{[]int{3, 5, 4, 7}, 4},
		{[]int{7, 5, 12, 7, 2}, 5},
		{[]int{255}, 9},
	}
	for _, tt := range tests {
		p, err := NewPacker(tt.limits)
		require.NoError(t, err)
		assert.Equal(t, tt.width, p.Width(), "%v", tt.limits)
	}
}

func TestNewPacker_TooWide(t *testing.T) {
	limits := make([]int, 9)
	for i := range limits {
		limits[i] = 128
	}
	_, err := NewPacker(limits)
	assert.ErrorIs(t, err, algorithms.ErrUnsupportedEncoding)

	_, err = NewPacker([]int{-1})
	assert.ErrorIs(t, err, algorithms.ErrUnsupportedEncoding)
}

func TestPacker_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(7)
		limits := make([]int, n)
		for i := range limits {
			limits[i] = rng.Intn(200)
		}
		p, err := NewPacker(limits)
		require.NoError(t, err)

		vec := make([]int, n)
		for i := range vec {
			vec[i] = rng.Intn(limits[i] + 1)
		}
		s, err := p.Pack(vec)
		require.NoError(t, err)
		assert.Equal(t, vec, p.Unpack(s))
	}
}

func TestPacker_NoFieldAliasing(t *testing.T) {
	p, err := NewPacker([]int{3, 3, 3})
	require.NoError(t, err)

	full, err := p.Pack([]int{3, 0, 0})
	require.NoError(t, err)

	_, ok := p.Add(full, p.Delta(machine.MaskOf(0)))
	assert.False(t, ok, "overshoot must be rejected, not carried")

	next, ok := p.Add(full, p.Delta(machine.MaskOf(1, 2)))
	require.True(t, ok)
	assert.Equal(t, []int{3, 1, 1}, p.Unpack(next))
}

func TestPacker_Target(t *testing.T) {
	p, err := NewPacker([]int{3, 5, 4, 7})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 4, 7}, p.Unpack(p.Target()))

	_, err = p.Pack([]int{1, 2})
	assert.ErrorIs(t, err, algorithms.ErrUnsupportedEncoding)
}

func BenchmarkPackedBFS(b *testing.B) {
	m, _ := machine.Parse(fixtures[2].line)
	algo := NewPackedBFS(nil)
	for i := 0; i < b.N; i++ {
		_, _ = algo.Solve(b.Context(), m, machine.VariantJoltage)
	}
}

func BenchmarkVectorBFS(b *testing.B) {
	m, _ := machine.Parse(fixtures[2].line)
	algo := NewVectorBFS(nil)
	for i := 0; i < b.N; i++ {
		_, _ = algo.Solve(b.Context(), m, machine.VariantJoltage)
	}
}
