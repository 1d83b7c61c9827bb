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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	l91 "github.com/L91Project/go-l91"
	"github.com/L91Project/go-l91/scan"
)

var (
	flagMonInterval time.Duration
	flagMonMissed   int
	flagMonMetrics  string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Continuously sweep the bus and report presence changes",
	Long: `Sweep the bus on an interval and log when nodes appear, disappear or
report a fault. Runs until interrupted.

With --metrics-addr, sweep counters and a responsive-nodes gauge are
exported at /metrics for Prometheus.`,
	RunE: runMonitor,
}

func init() {
	f := monitorCmd.Flags()
	f.DurationVar(&flagMonInterval, "interval", scan.DefaultMonitorInterval, "pause between sweeps")
	f.IntVar(&flagMonMissed, "missed-sweeps", scan.DefaultMissedSweeps, "consecutive misses before a node is reported down")
	f.StringVar(&flagMonMetrics, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9091")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	scanCfg, err := buildScanConfig(cmd)
	if err != nil {
		return err
	}

	session, desc, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	logger.Info("connected", zap.String("target", desc))

	scanner, err := scan.NewScanner(session, scanCfg)
	if err != nil {
		return err
	}
	monitor, err := scan.NewMonitor(scanner, &scan.MonitorConfig{
		Interval:     flagMonInterval,
		MissedSweeps: flagMonMissed,
	})
	if err != nil {
		return err
	}

	var events *prometheus.CounterVec
	if flagMonMetrics != "" {
		reg := prometheus.NewRegistry()
		events = newMonitorMetrics(reg, scanner)
		srv := startMetricsServer(flagMonMetrics, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("metrics listening", zap.String("addr", flagMonMetrics))
	}

	monitor.OnNodeUp = func(node l91.Node) {
		logger.Info("node up",
			zap.String("node", fmt.Sprintf("0x%02x", node.Address)),
			zap.String("label", label(node.Address)),
			zap.String("state", node.State.String()))
		if events != nil {
			events.WithLabelValues("up").Inc()
		}
	}
	monitor.OnNodeDown = func(addr byte) {
		logger.Warn("node down",
			zap.String("node", fmt.Sprintf("0x%02x", addr)),
			zap.String("label", label(addr)))
		if events != nil {
			events.WithLabelValues("down").Inc()
		}
	}
	monitor.OnNodeFault = func(node l91.Node) {
		logger.Error("node fault",
			zap.String("node", fmt.Sprintf("0x%02x", node.Address)),
			zap.String("label", label(node.Address)))
		if events != nil {
			events.WithLabelValues("fault").Inc()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := monitor.Start(ctx); err != nil {
		return err
	}
	logger.Info("monitoring", zap.Duration("interval", flagMonInterval))

	<-ctx.Done()
	monitor.Stop()

	fmt.Println(scanner.Stats().String())
	return nil
}
