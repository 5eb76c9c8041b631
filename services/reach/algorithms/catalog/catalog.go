// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog assembles the registry of every shipped algorithm.
package catalog

import (
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms/linear"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms/pb"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms/search"
)

// Default strategy per variant.
const (
	DefaultLightsStrategy  = "bitmask_bfs"
	DefaultJoltageStrategy = "packed_bfs"

	// DefaultJoltageFallback takes over machines whose targets do not
	// pack into one word.
	DefaultJoltageFallback = "integer_elimination"
)

// Options carries per-family configuration. Nil fields use each
// family's defaults.
type Options struct {
	Search *search.BFSConfig
	Linear *linear.Config
	PB     *pb.Config
}

// New returns a registry holding every algorithm.
func New(opts Options) *algorithms.Registry {
	r := algorithms.NewRegistry()
	r.MustRegister(search.NewBitmaskBFS(opts.Search))
	r.MustRegister(search.NewPackedBFS(opts.Search))
	r.MustRegister(search.NewVectorBFS(opts.Search))
	r.MustRegister(linear.NewGF2Elimination(opts.Linear))
	r.MustRegister(linear.NewIntegerElimination(opts.Linear))
	r.MustRegister(pb.New(opts.PB))
	return r
}
