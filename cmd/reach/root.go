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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReach/pkg/logging"
	"github.com/AleutianAI/AleutianReach/pkg/ux"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms/catalog"
	"github.com/AleutianAI/AleutianReach/services/reach/config"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// errReported marks a failure already printed to the user.
var errReported = errors.New("reported")

// app carries state shared by subcommands, built in PersistentPreRunE.
type app struct {
	configPath string
	logLevel   string

	cfg      config.Config
	logger   *logging.Logger
	registry *algorithms.Registry
	printer  *ux.Printer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "reach",
		Short: "Find minimum toggle presses for lights and joltage machines",
		Long: `reach reads machines in the form

  [.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}

and computes the fewest toggle presses that reach each target, by
breadth-first search, linear elimination or pseudo-boolean optimisation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newSolveCmd(a))
	rootCmd.AddCommand(newVerifyCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newAlgorithmsCmd(a))
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		if _, err := logging.ParseLevel(a.logLevel); err != nil {
			return err
		}
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	logCfg := cfg.LoggerConfig("reach")
	logCfg.Output = cmd.ErrOrStderr()
	a.logger = logging.New(logCfg)
	a.logger.SetDefault()

	a.registry = catalog.New(cfg.CatalogOptions())
	a.printer = ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), ux.DetectMode(cmd.OutOrStdout()))
	return nil
}

// readMachines parses path, or stdin when path is empty or "-".
func readMachines(cmd *cobra.Command, path string) ([]*machine.Machine, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	machines, err := machine.ParseAll(r)
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	return machines, nil
}

// parseVariants expands "both" into both variants.
func parseVariants(s string) ([]machine.Variant, error) {
	if s == "both" || s == "" {
		return machine.Variants(), nil
	}
	v, err := machine.ParseVariant(s)
	if err != nil {
		return nil, err
	}
	return []machine.Variant{v}, nil
}

func inputArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
