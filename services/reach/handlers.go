// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reach exposes the reachability solvers over HTTP.
package reach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/driver"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
	"github.com/AleutianAI/AleutianReach/services/reach/telemetry"
)

// ServiceVersion is the reach service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the reach API.
type Handlers struct {
	registry     *algorithms.Registry
	strategies   driver.Config
	solveTimeout time.Duration
	metrics      *telemetry.Metrics
}

// NewHandlers creates handlers over registry.
//
// Inputs:
//
//	registry - Algorithms available to requests
//	strategies - Default algorithm per variant; Parallelism applies to solves
//	solveTimeout - Upper bound on one request's solve. Zero means none.
func NewHandlers(registry *algorithms.Registry, strategies driver.Config, solveTimeout time.Duration) *Handlers {
	return &Handlers{
		registry:     registry,
		strategies:   strategies,
		solveTimeout: solveTimeout,
	}
}

// WithMetrics records solves and requests on m.
func (h *Handlers) WithMetrics(m *telemetry.Metrics) *Handlers {
	h.metrics = m
	return h
}

// HandleSolve handles POST /v1/reach/solve.
//
// Description:
//
//	Parses the machines in the request, solves them with the configured
//	or requested strategy, and returns the per-machine presses and their
//	sum.
//
// Response:
//
//	200 OK: SolveResponse
//	400 Bad Request: Invalid body, input, variant or strategy
//	422 Unprocessable Entity: A machine is infeasible or cannot be encoded
//	504 Gateway Timeout: Budget or deadline exhausted
func (h *Handlers) HandleSolve(c *gin.Context) {
	requestID := requestIDFrom(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSolve")

	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		bindError(c, requestID, err)
		return
	}

	variant, machines, err := parseRequest(req.Input, req.Variant)
	if err != nil {
		h.fail(c, logger, requestID, err)
		return
	}

	cfg := h.strategies
	if req.Strategy != "" {
		cfg.JoltageFallback = ""
		if variant == machine.VariantLights {
			cfg.LightsStrategy = req.Strategy
		} else {
			cfg.JoltageStrategy = req.Strategy
		}
	}
	d, err := driver.New(h.registry, cfg, driver.WithLogger(logger), driver.WithMetrics(h.metrics))
	if err != nil {
		h.fail(c, logger, requestID, err)
		return
	}

	ctx, cancel := h.withTimeout(c.Request.Context())
	defer cancel()

	report, err := d.Solve(ctx, machines, variant)
	if err != nil {
		h.fail(c, logger, requestID, err)
		return
	}

	c.JSON(http.StatusOK, SolveResponse{
		RunID:      report.RunID,
		Variant:    string(report.Variant),
		Algorithm:  report.Algorithm,
		Total:      report.Total,
		Presses:    report.Presses,
		Fallbacks:  report.Fallbacks,
		DurationMs: report.Duration.Milliseconds(),
	})
}

// HandleVerify handles POST /v1/reach/verify.
//
// Description:
//
//	Runs every applicable algorithm on every machine and reports whether
//	they agree. An empty variant verifies both. Disagreement is reported
//	in the body with status 200.
func (h *Handlers) HandleVerify(c *gin.Context) {
	requestID := requestIDFrom(c)
	logger := slog.With("request_id", requestID, "handler", "HandleVerify")

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		bindError(c, requestID, err)
		return
	}

	variants := machine.Variants()
	if req.Variant != "" {
		v, err := machine.ParseVariant(req.Variant)
		if err != nil {
			h.fail(c, logger, requestID, fmt.Errorf("%w: %q", ErrUnknownVariant, req.Variant))
			return
		}
		variants = []machine.Variant{v}
	}

	machines, err := machine.ParseString(req.Input)
	if err != nil {
		h.fail(c, logger, requestID, err)
		return
	}

	ctx, cancel := h.withTimeout(c.Request.Context())
	defer cancel()

	resp := VerifyResponse{Agreed: true}
	for _, v := range variants {
		report, err := driver.Verify(ctx, h.registry, machines, v)
		if err != nil {
			h.fail(c, logger, requestID, err)
			return
		}
		if report.Disagreements > 0 {
			resp.Agreed = false
		}
		resp.Reports = append(resp.Reports, report)
	}
	c.JSON(http.StatusOK, resp)
}

// HandleAlgorithms handles GET /v1/reach/algorithms.
func (h *Handlers) HandleAlgorithms(c *gin.Context) {
	resp := AlgorithmsResponse{
		Algorithms: make([]AlgorithmInfo, 0, h.registry.Count()),
		Defaults: map[string]string{
			string(machine.VariantLights):  h.strategies.LightsStrategy,
			string(machine.VariantJoltage): h.strategies.JoltageStrategy,
		},
	}
	for _, name := range h.registry.List() {
		algo, err := h.registry.Get(name)
		if err != nil {
			continue
		}
		resp.Algorithms = append(resp.Algorithms, DescribeAlgorithm(algo))
	}
	c.JSON(http.StatusOK, resp)
}

// DescribeAlgorithm summarises an algorithm for listings.
func DescribeAlgorithm(algo algorithms.Algorithm) AlgorithmInfo {
	info := AlgorithmInfo{
		Name:        algo.Name(),
		Description: algo.Description(),
		TimeoutMs:   algo.Timeout().Milliseconds(),
	}
	for _, v := range machine.Variants() {
		if algo.Supports(v) {
			info.Variants = append(info.Variants, string(v))
		}
	}
	for _, p := range algo.Properties() {
		info.Properties = append(info.Properties, p.Name)
	}
	return info
}

// HandleHealth handles GET /v1/reach/health.
//
// Description:
//
//	Runs every algorithm's self-check. Returns 503 with the failing
//	algorithms when any check fails.
func (h *Handlers) HandleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	}
	for _, r := range h.registry.HealthCheckAll(c.Request.Context(), 4) {
		if r.Err == nil {
			continue
		}
		if resp.Failing == nil {
			resp.Failing = make(map[string]string)
		}
		resp.Failing[r.Name] = r.Err.Error()
	}
	if len(resp.Failing) > 0 {
		resp.Status = "degraded"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.solveTimeout > 0 {
		return context.WithTimeout(ctx, h.solveTimeout)
	}
	return context.WithCancel(ctx)
}

// fail writes the error response for a solve or parse failure.
func (h *Handlers) fail(c *gin.Context, logger *slog.Logger, requestID string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "code", code)
	} else {
		logger.Info("Request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: requestID,
	})
}

func parseRequest(input, variantName string) (machine.Variant, []*machine.Machine, error) {
	variant, err := machine.ParseVariant(variantName)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variantName)
	}
	machines, err := machine.ParseString(input)
	if err != nil {
		return "", nil, err
	}
	return variant, machines, nil
}

func bindError(c *gin.Context, requestID string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:     fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			Code:      "BODY_TOO_LARGE",
			RequestID: requestID,
		})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:     "Invalid request body",
		Code:      "INVALID_REQUEST",
		RequestID: requestID,
	})
}

// requestIDKey is the gin context key set by the requestID middleware.
const requestIDKey = "request_id"

// requestID adopts the X-Request-ID header or mints a UUID, stores it on
// the context and echoes it on the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requestIDFrom returns the ID stored by the requestID middleware.
func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
