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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	m := MaskOf(0, 2, 5)

	assert.True(t, m.Has(0))
	assert.False(t, m.Has(1))
	assert.True(t, m.Has(5))
	assert.False(t, m.Has(-1))
	assert.False(t, m.Has(64))
	assert.Equal(t, 3, m.Count())
	assert.Equal(t, []int{0, 2, 5}, m.Positions())
	assert.Empty(t, Mask(0).Positions())
}

func TestNew(t *testing.T) {
	t.Run("valid machine", func(t *testing.T) {
		m, err := New(4, MaskOf(1, 2), []Mask{MaskOf(3), MaskOf(0, 1)}, []int{3, 5, 4, 7})
		require.NoError(t, err)
		assert.Equal(t, 4, m.Dimension())
		assert.Equal(t, MaskOf(1, 2), m.Lights())
		assert.Equal(t, 2, m.NumToggles())
		assert.Equal(t, []int{0, 1}, m.Positions(1))
		assert.Equal(t, 7, m.MaxJoltage())
	})

	t.Run("copies inputs", func(t *testing.T) {
		toggles := []Mask{MaskOf(0)}
		joltages := []int{1}
		m, err := New(1, 0, toggles, joltages)
		require.NoError(t, err)

		toggles[0] = 0
		joltages[0] = 9
		assert.Equal(t, MaskOf(0), m.Toggle(0))
		assert.Equal(t, 1, m.Joltage(0))

		got := m.Toggles()
		got[0] = 0
		assert.Equal(t, MaskOf(0), m.Toggle(0))
	})

	tests := []struct {
		name     string
		n        int
		lights   Mask
		toggles  []Mask
		joltages []int
	}{
		{"zero dimension", 0, 0, nil, nil},
		{"too wide", MaxDimension + 1, 0, nil, nil},
		{"lights wider than dimension", 2, MaskOf(2), nil, nil},
		{"toggle out of range", 3, 0, []Mask{MaskOf(0), MaskOf(3)}, nil},
		{"joltage count mismatch", 3, 0, nil, []int{1, 2}},
		{"negative joltage", 2, 0, nil, []int{1, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.n, tt.lights, tt.toggles, tt.joltages)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedMachine))
		})
	}
}

func TestMachine_TogglesIsCopy(t *testing.T) {
	m := MustNew(2, MaskOf(0), []Mask{MaskOf(1)}, []int{1, 1})

	toggles := append(m.Toggles(), MaskOf(0))
	toggles[0] = MaskOf(0, 1)
	assert.Equal(t, 1, m.NumToggles())
	assert.Equal(t, MaskOf(1), m.Toggle(0))

	jolts := m.Joltages()
	jolts[0] = 9
	assert.Equal(t, 1, m.Joltage(0))
}

func TestMachine_IsZeroTarget(t *testing.T) {
	m := MustNew(3, 0, nil, []int{0, 0, 0})
	assert.True(t, m.IsZeroTarget(VariantLights))
	assert.True(t, m.IsZeroTarget(VariantJoltage))

	m = MustNew(3, MaskOf(1), nil, []int{0, 2, 0})
	assert.False(t, m.IsZeroTarget(VariantLights))
	assert.False(t, m.IsZeroTarget(VariantJoltage))
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("Lights")
	require.NoError(t, err)
	assert.Equal(t, VariantLights, v)

	v, err = ParseVariant("part2")
	require.NoError(t, err)
	assert.Equal(t, VariantJoltage, v)

	_, err = ParseVariant("voltage")
	assert.Error(t, err)
}
