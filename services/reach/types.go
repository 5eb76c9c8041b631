// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reach

import (
	"github.com/AleutianAI/AleutianReach/services/reach/driver"
)

// SolveRequest is the body of POST /v1/reach/solve.
type SolveRequest struct {
	// Input holds one machine per line in the puzzle grammar.
	Input string `json:"input" binding:"required"`

	// Variant is "lights" or "joltage".
	Variant string `json:"variant" binding:"required"`

	// Strategy overrides the configured algorithm for the variant.
	Strategy string `json:"strategy,omitempty"`
}

// SolveResponse is the response for POST /v1/reach/solve.
type SolveResponse struct {
	RunID      string `json:"run_id"`
	Variant    string `json:"variant"`
	Algorithm  string `json:"algorithm"`
	Total      int    `json:"total"`
	Presses    []int  `json:"presses"`
	DurationMs int64  `json:"duration_ms"`

	// Fallbacks lists machines answered by the fallback algorithm.
	Fallbacks []int `json:"fallbacks,omitempty"`
}

// VerifyRequest is the body of POST /v1/reach/verify.
type VerifyRequest struct {
	Input string `json:"input" binding:"required"`

	// Variant is "lights", "joltage", or empty for both.
	Variant string `json:"variant,omitempty"`
}

// VerifyResponse is the response for POST /v1/reach/verify.
type VerifyResponse struct {
	Agreed  bool                   `json:"agreed"`
	Reports []*driver.VerifyReport `json:"reports"`
}

// AlgorithmInfo describes one registered algorithm.
type AlgorithmInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Variants    []string `json:"variants"`
	TimeoutMs   int64    `json:"timeout_ms"`
	Properties  []string `json:"properties,omitempty"`
}

// AlgorithmsResponse is the response for GET /v1/reach/algorithms.
type AlgorithmsResponse struct {
	Algorithms []AlgorithmInfo    `json:"algorithms"`
	Defaults   map[string]string `json:"defaults"`
}

// HealthResponse is the response for GET /v1/reach/health.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`

	// Failing lists algorithms whose self-check failed.
	Failing map[string]string `json:"failing,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code.
	Code string `json:"code,omitempty"`

	// RequestID echoes the X-Request-ID header.
	RequestID string `json:"request_id,omitempty"`
}
