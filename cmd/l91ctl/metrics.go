// go-l91
// Copyright (c) 2026 The L91 Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-l91.
//
// go-l91 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-l91 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-l91; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/L91Project/go-l91/scan"
)

// newMonitorMetrics registers the monitor's metric set and returns the
// event counter for the presence callbacks to increment. Gauges and sweep
// counters read straight from the scanner on collection, so they need no
// bookkeeping of their own.
func newMonitorMetrics(reg *prometheus.Registry, scanner *scan.Scanner) *prometheus.CounterVec {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "l91_node_events_total",
		Help: "Node presence transitions observed by the monitor.",
	}, []string{"event"})

	reg.MustRegister(
		collectors.NewGoCollector(),
		events,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "l91_responsive_nodes",
			Help: "Nodes currently in a responsive state.",
		}, func() float64 {
			return float64(len(scanner.Registry().Responsive()))
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "l91_sweeps_completed_total",
			Help: "Bus sweeps that covered their whole address range.",
		}, func() float64 {
			return float64(scanner.Stats().SweepsCompleted)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "l91_probe_timeouts_total",
			Help: "Probe and confirm transactions that expired.",
		}, func() float64 {
			return float64(scanner.Stats().Timeouts)
		}),
	)

	// Materialize the series so dashboards see zeroes before the first
	// transition.
	for _, event := range []string{"up", "down", "fault"} {
		events.WithLabelValues(event)
	}
	return events
}

// startMetricsServer serves /metrics on addr until shut down.
func startMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
