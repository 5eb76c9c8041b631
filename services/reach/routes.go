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
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianReach/services/reach/telemetry"
)

// RegisterRoutes registers all reach routes with the router.
//
// Description:
//
//	Registers all /v1/reach/* endpoints with the given Gin router group.
//
// Endpoints:
//
//	POST /v1/reach/solve - Solve machines for one variant
//	POST /v1/reach/verify - Cross-check every applicable algorithm
//	GET  /v1/reach/algorithms - List registered algorithms
//	GET  /v1/reach/health - Run algorithm self-checks
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	reach := rg.Group("/reach")
	{
		reach.POST("/solve", handlers.HandleSolve)
		reach.POST("/verify", handlers.HandleVerify)
		reach.GET("/algorithms", handlers.HandleAlgorithms)
		reach.GET("/health", handlers.HandleHealth)
	}
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// ServiceName labels the otelgin spans.
	ServiceName string

	// MaxBodyBytes caps request bodies. Zero means no cap.
	MaxBodyBytes int64

	// RateLimit caps /v1 requests per second across all clients. Zero
	// disables limiting.
	RateLimit float64

	// RateBurst is the limiter's bucket size. Default: 1.
	RateBurst int

	// Debug enables gin's request logger.
	Debug bool
}

// NewRouter builds the gin engine with middleware, the v1 routes and
// /metrics.
func NewRouter(handlers *Handlers, opts RouterOptions) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = "reach"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	if opts.Debug {
		router.Use(gin.Logger())
	}
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(requestMetrics(handlers.metrics))
	if opts.MaxBodyBytes > 0 {
		router.Use(limitBody(opts.MaxBodyBytes))
	}

	v1 := router.Group("/v1")
	if opts.RateLimit > 0 {
		v1.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))))
	}
	RegisterRoutes(v1, handlers)

	metrics := telemetry.MetricsHandler()
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	router.GET("/metrics", gin.WrapH(metrics))
	return router
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error:     "rate limit exceeded",
				Code:      "RATE_LIMITED",
				RequestID: requestIDFrom(c),
			})
			return
		}
		c.Next()
	}
}

func requestMetrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(c.Request.Context(), route, c.Writer.Status())
	}
}
