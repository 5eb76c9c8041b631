// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package driver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// machinesSolved counts per-machine solves.
	// Labels: variant, algorithm, status (ok, infeasible, unsupported, error)
	machinesSolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reach",
		Subsystem: "driver",
		Name:      "machines_total",
		Help:      "Machines solved by the driver",
	}, []string{"variant", "algorithm", "status"})

	// runDuration measures whole-collection runs.
	// Labels: variant
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reach",
		Subsystem: "driver",
		Name:      "run_duration_seconds",
		Help:      "Duration of a driver run over all machines",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
	}, []string{"variant"})

	// pressesTotal is the most recent total per variant.
	// Labels: variant
	pressesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "reach",
		Subsystem: "driver",
		Name:      "last_total_presses",
		Help:      "Total presses reported by the last successful run",
	}, []string{"variant"})
)

func recordMachine(variant, algorithm, status string) {
	machinesSolved.WithLabelValues(variant, algorithm, status).Inc()
}

func recordRun(variant string, seconds float64, total int, ok bool) {
	runDuration.WithLabelValues(variant).Observe(seconds)
	if ok {
		pressesTotal.WithLabelValues(variant).Set(float64(total))
	}
}
