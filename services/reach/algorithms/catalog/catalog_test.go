// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

func TestNew(t *testing.T) {
	r := New(Options{})
	assert.Equal(t, []string{
		"bitmask_bfs", "gf2_elimination", "integer_elimination",
		"packed_bfs", "pseudo_boolean", "vector_bfs",
	}, r.List())

	_, err := r.Resolve(DefaultLightsStrategy, machine.VariantLights)
	require.NoError(t, err)
	_, err = r.Resolve(DefaultJoltageStrategy, machine.VariantJoltage)
	require.NoError(t, err)

	assert.Len(t, r.ForVariant(machine.VariantLights), 3)
	assert.Len(t, r.ForVariant(machine.VariantJoltage), 4)

	for _, h := range r.HealthCheckAll(context.Background(), 4) {
		assert.NoError(t, h.Err, h.Name)
	}
}
