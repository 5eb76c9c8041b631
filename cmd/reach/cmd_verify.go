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
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReach/services/reach/driver"
)

func newVerifyCmd(a *app) *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Cross-check every applicable algorithm on every machine",
		Long: `Runs every registered algorithm that supports the variant on each machine
and reports machines where the answers differ. Exits non-zero on any
disagreement. Algorithms that run out of budget are listed as skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variants, err := parseVariants(variant)
			if err != nil {
				return err
			}
			machines, err := readMachines(cmd, inputArg(args))
			if err != nil {
				return err
			}

			disagreements := 0
			for _, v := range variants {
				report, err := driver.Verify(cmd.Context(), a.registry, machines, v)
				if err != nil {
					return err
				}
				disagreements += report.Disagreements
				printVerify(a, report)
			}

			if disagreements > 0 {
				a.printer.Error(fmt.Sprintf("%d machine(s) with disagreeing algorithms", disagreements))
				return errReported
			}
			a.printer.Success(fmt.Sprintf("all algorithms agree on %d machine(s)", len(machines)))
			return nil
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "both", "Variant to verify: lights, joltage or both")
	return cmd
}

func printVerify(a *app, report *driver.VerifyReport) {
	a.printer.Title(fmt.Sprintf("%s verification", report.Variant))

	var rows [][]string
	for _, m := range report.Machines {
		if m.Agreed {
			continue
		}
		for _, ans := range m.Answers {
			detail := string(ans.Verdict)
			if ans.Verdict == driver.VerdictSolved {
				detail = strconv.Itoa(ans.Presses)
			}
			if len(ans.Violations) > 0 {
				detail += " (violates " + strings.Join(ans.Violations, ", ") + ")"
			}
			rows = append(rows, []string{strconv.Itoa(m.Index), ans.Algorithm, detail})
		}
	}
	if len(rows) > 0 {
		a.printer.Table([]string{"machine", "algorithm", "answer"}, rows)
	}
	a.printer.KeyValue(string(report.Variant)+" disagreements", report.Disagreements)
}
