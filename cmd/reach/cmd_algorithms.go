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
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReach/services/reach"
)

func newAlgorithmsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List registered algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, name := range a.registry.List() {
				algo, err := a.registry.Get(name)
				if err != nil {
					return err
				}
				info := reach.DescribeAlgorithm(algo)
				rows = append(rows, []string{
					info.Name,
					strings.Join(info.Variants, ","),
					(time.Duration(info.TimeoutMs) * time.Millisecond).String(),
					info.Description,
				})
			}
			a.printer.Table([]string{"name", "variants", "timeout", "description"}, rows)
			return nil
		},
	}
}
