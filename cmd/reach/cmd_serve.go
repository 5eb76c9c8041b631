// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReach/services/reach"
	"github.com/AleutianAI/AleutianReach/services/reach/driver"
	"github.com/AleutianAI/AleutianReach/services/reach/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port  int
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := telemetry.Init(ctx, a.cfg.Telemetry)
			if err != nil {
				return err
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					a.logger.Warn("telemetry shutdown failed", "error", err)
				}
			}()

			metrics, err := telemetry.NewGlobalMetrics()
			if err != nil {
				return err
			}
			if err := a.registry.RegisterMetrics(metrics); err != nil {
				return err
			}

			handlers := reach.NewHandlers(a.registry, driver.Config{
				LightsStrategy:  a.cfg.Driver.LightsStrategy,
				JoltageStrategy: a.cfg.Driver.JoltageStrategy,
				JoltageFallback: a.cfg.Driver.JoltageFallback,
				Parallelism:     a.cfg.Driver.Parallelism,
			}, a.cfg.Server.SolveTimeout).WithMetrics(metrics)

			router := reach.NewRouter(handlers, reach.RouterOptions{
				ServiceName:  a.cfg.Telemetry.ServiceName,
				MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
				RateLimit:    a.cfg.Server.RateLimit,
				RateBurst:    a.cfg.Server.RateBurst,
				Debug:        debug,
			})

			a.printer.Box("Reach API", fmt.Sprintf("listening on :%d\nalgorithms: %s",
				a.cfg.Server.Port, strings.Join(a.registry.List(), ", ")))
			return reach.Serve(ctx, router, a.cfg.Server.Port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 12230, "Port to listen on")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable gin debug mode and request logging")
	return cmd
}
