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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleInput = `
[.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}
[...#.] (0,2,3,4) (2,3) (0,4) (0,1,2) (1,2,3,4) {7,5,12,7,2}
[.###.#] (0,1,2,3,4) (0,3,4) (0,1,2,4,5) (1,2) {10,11,11,5,10,5}
`

func TestParse(t *testing.T) {
	m, err := Parse("[.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}")
	require.NoError(t, err)

	assert.Equal(t, 4, m.Dimension())
	assert.Equal(t, MaskOf(1, 2), m.Lights())
	assert.Equal(t, []Mask{
		MaskOf(3), MaskOf(1, 3), MaskOf(2), MaskOf(2, 3), MaskOf(0, 2), MaskOf(0, 1),
	}, m.Toggles())
	assert.Equal(t, []int{3, 5, 4, 7}, m.Joltages())
}

func TestParse_EmptyWiring(t *testing.T) {
	m, err := Parse("[#] () {1}")
	require.NoError(t, err)
	assert.Equal(t, 1, m.NumToggles())
	assert.Equal(t, Mask(0), m.Toggle(0))
}

func TestParse_RoundTrip(t *testing.T) {
	for _, line := range strings.Split(strings.TrimSpace(exampleInput), "\n") {
		m, err := Parse(line)
		require.NoError(t, err)
		assert.Equal(t, line, m.String())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"empty", "", ErrFormat},
		{"missing brackets", ".##. (1) {1,1,1,1}", ErrFormat},
		{"bad light char", "[.x.] (1) {1,1,1}", ErrFormat},
		{"empty diagram", "[] {}", ErrFormat},
		{"unterminated wiring", "[..] (0,1 {1,1}", ErrFormat},
		{"bad wiring index", "[..] (a) {1,1}", ErrFormat},
		{"wiring out of range", "[..] (2) {1,1}", ErrMalformedMachine},
		{"missing joltages", "[..] (0)", ErrFormat},
		{"bad joltage braces", "[..] (0) [1,1]", ErrFormat},
		{"joltage count", "[..] (0) {1,1,1}", ErrMalformedMachine},
		{"trailing token", "[..] (0) {1,1} extra", ErrFormat},
		{"wiring after joltages", "[..] {1,1} (0)", ErrFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseAll(t *testing.T) {
	machines, err := ParseString(exampleInput)
	require.NoError(t, err)
	require.Len(t, machines, 3)
	assert.Equal(t, 5, machines[1].Dimension())
	assert.Equal(t, 6, machines[2].Dimension())
}

func TestParseAll_ReportsLine(t *testing.T) {
	_, err := ParseString("[#] (0) {1}\n\n[#] (4) {1}\n")
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Line)
	assert.ErrorIs(t, err, ErrMalformedMachine)
}
