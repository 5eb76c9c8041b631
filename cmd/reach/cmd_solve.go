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
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReach/services/reach/driver"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
	"github.com/AleutianAI/AleutianReach/services/reach/watch"
)

type solveOptions struct {
	variant  string
	strategy string
	parallel int
	watch    bool
	verbose  bool
}

func newSolveCmd(a *app) *cobra.Command {
	opts := &solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve [file]",
		Short: "Sum the minimum presses over every machine",
		Long: `Solves every machine in the input (a file, or stdin when omitted or "-")
and prints the total presses per variant.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.watch && (len(args) == 0 || args[0] == "-") {
				return errors.New("--watch needs an input file")
			}
			if cmd.Flags().Changed("parallel") {
				a.cfg.Driver.Parallelism = opts.parallel
			}
			if !opts.watch {
				return runSolve(cmd.Context(), cmd, a, opts, inputArg(args))
			}
			return watchSolve(cmd, a, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.variant, "variant", "both", "Variant to solve: lights, joltage or both")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Algorithm to use instead of the configured one")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 1, "Machines solved concurrently")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-solve whenever the input file changes")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print per-machine presses")
	return cmd
}

func runSolve(ctx context.Context, cmd *cobra.Command, a *app, opts *solveOptions, path string) error {
	variants, err := parseVariants(opts.variant)
	if err != nil {
		return err
	}
	if opts.strategy != "" && len(variants) > 1 {
		return errors.New("--strategy needs a single --variant")
	}

	machines, err := readMachines(cmd, path)
	if err != nil {
		return err
	}

	cfg := driver.Config{
		LightsStrategy:  a.cfg.Driver.LightsStrategy,
		JoltageStrategy: a.cfg.Driver.JoltageStrategy,
		JoltageFallback: a.cfg.Driver.JoltageFallback,
		Parallelism:     a.cfg.Driver.Parallelism,
	}
	if opts.strategy != "" {
		// An explicit strategy is answered by that algorithm alone.
		cfg.JoltageFallback = ""
		if variants[0] == machine.VariantLights {
			cfg.LightsStrategy = opts.strategy
		} else {
			cfg.JoltageStrategy = opts.strategy
		}
	}
	d, err := driver.New(a.registry, cfg, driver.WithLogger(a.logger.Slog()))
	if err != nil {
		return err
	}

	for _, v := range variants {
		report, err := d.Solve(ctx, machines, v)
		if err != nil {
			return err
		}
		if opts.verbose {
			rows := make([][]string, len(report.Presses))
			for i, p := range report.Presses {
				rows[i] = []string{strconv.Itoa(i), strconv.Itoa(p)}
			}
			a.printer.Title(fmt.Sprintf("%s (%s)", v, report.Algorithm))
			a.printer.Table([]string{"machine", "presses"}, rows)
		}
		a.printer.KeyValue(string(v), report.Total)
	}
	return nil
}

func watchSolve(cmd *cobra.Command, a *app, opts *solveOptions, path string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	solve := func(ctx context.Context, path string) {
		if err := runSolve(ctx, cmd, a, opts, path); err != nil {
			a.printer.Error(err.Error())
		}
	}

	solve(ctx, path)

	w, err := watch.New(path, solve, &watch.Options{Logger: a.logger.Slog()})
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.Start(ctx); err != nil {
		return err
	}
	a.printer.Info(fmt.Sprintf("watching %s", w.Path()))

	<-ctx.Done()
	return nil
}
