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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	l91 "github.com/L91Project/go-l91"
	"github.com/L91Project/go-l91/scan"
)

var (
	flagScanStart    string
	flagScanEnd      string
	flagScanStrategy string
	flagScanTimeout  time.Duration
	flagScanPace     time.Duration
	flagScanTol      int
	flagScanConfirm  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep the bus for responsive nodes",
	Long: `Probe every address in the configured range with an activate command,
classify what answers, and power probed nodes back off.

Addresses that stay silent are normal; the sweep reports what responded,
grouped into contiguous runs. Exit code is 0 when nodes were found, 1 when
the bus is silent, 2 on failure.`,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&flagScanStart, "start", "", "first address to probe (decimal or 0x hex)")
	f.StringVar(&flagScanEnd, "end", "", "last address to probe")
	f.StringVar(&flagScanStrategy, "strategy", "", "address range preset: standard, wide or full (overrides start/end)")
	f.DurationVar(&flagScanTimeout, "timeout", 0, "per-address probe timeout")
	f.DurationVar(&flagScanPace, "pace", 0, "minimum spacing between probes")
	f.IntVar(&flagScanTol, "tolerance", 0, "address gap merged when grouping results")
	f.BoolVar(&flagScanConfirm, "confirm", true, "confirm responsive nodes with a load-parameters query")
	rootCmd.AddCommand(scanCmd)
}

// buildScanConfig merges config file defaults with scan flag overrides.
// Shared by scan and monitor.
func buildScanConfig(cmd *cobra.Command) (*scan.Config, error) {
	classifier, err := cfg.faultClassifier()
	if err != nil {
		return nil, err
	}
	if cfg.Scan.Start < 0 || cfg.Scan.Start > 0xFF || cfg.Scan.End < 0 || cfg.Scan.End > 0xFF {
		return nil, fmt.Errorf("scan range %d-%d out of 0-255", cfg.Scan.Start, cfg.Scan.End)
	}

	scanCfg := &scan.Config{
		FaultClassifier:       classifier,
		PerAddressTimeout:     cfg.Scan.Timeout,
		PaceInterval:          cfg.Scan.Pace,
		SettleDelay:           scan.DefaultSettleDelay,
		GroupTolerance:        cfg.Scan.Tolerance,
		Start:                 byte(cfg.Scan.Start),
		End:                   byte(cfg.Scan.End),
		ConfirmWithLoadParams: cfg.Scan.Confirm,
		DeactivateAfterProbe:  true,
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		scanCfg.PerAddressTimeout = flagScanTimeout
	}
	if flags.Changed("pace") {
		scanCfg.PaceInterval = flagScanPace
	}
	if flags.Changed("tolerance") {
		scanCfg.GroupTolerance = flagScanTol
	}
	if flags.Changed("confirm") {
		scanCfg.ConfirmWithLoadParams = flagScanConfirm
	}
	if flagScanStart != "" {
		if scanCfg.Start, err = parseAddress(flagScanStart); err != nil {
			return nil, err
		}
	}
	if flagScanEnd != "" {
		if scanCfg.End, err = parseAddress(flagScanEnd); err != nil {
			return nil, err
		}
	}
	return scanCfg, nil
}

func runScan(cmd *cobra.Command, _ []string) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result *scan.Result
	if flagScanStrategy != "" {
		strategy, serr := scan.ParseStrategy(flagScanStrategy)
		if serr != nil {
			return serr
		}
		result, err = scanner.ScanRanges(ctx, strategy.Ranges())
	} else {
		result, err = scanner.Scan(ctx)
	}

	if err != nil {
		var aborted *scan.AbortedError
		if errors.As(err, &aborted) && aborted.Result != nil {
			logger.Warn("sweep aborted, reporting partial results", zap.Error(aborted.Err))
			if perr := printResult(aborted.Result); perr != nil {
				return perr
			}
		}
		return err
	}

	if err := printResult(result); err != nil {
		return err
	}
	if len(responsiveNodes(result)) == 0 {
		return fmt.Errorf("no responsive nodes: %w", errNotFound)
	}
	return nil
}

// responsiveNodes filters a result down to nodes that answered.
func responsiveNodes(result *scan.Result) []l91.Node {
	var nodes []l91.Node
	for _, node := range result.Nodes {
		switch node.State {
		case l91.StateActivated, l91.StateDeactivated, l91.StateFaulted:
			nodes = append(nodes, node)
		case l91.StateUnknown, l91.StateUnresponsive:
		}
	}
	return nodes
}

// nodeReport is the JSON view of one responsive node.
type nodeReport struct {
	Address   string `json:"address"`
	Label     string `json:"label,omitempty"`
	State     string `json:"state"`
	Confirmed bool   `json:"confirmed"`
	Attempts  int    `json:"attempts"`
}

type scanReport struct {
	Nodes     []nodeReport    `json:"nodes"`
	Groups    []string        `json:"groups"`
	Stats     scan.Statistics `json:"stats"`
	Completed bool            `json:"completed"`
}

func printResult(result *scan.Result) error {
	nodes := responsiveNodes(result)

	if flagJSON {
		report := scanReport{
			Nodes:     make([]nodeReport, 0, len(nodes)),
			Groups:    make([]string, 0, len(result.Groups)),
			Stats:     result.Stats,
			Completed: result.Completed,
		}
		for _, node := range nodes {
			report.Nodes = append(report.Nodes, nodeReport{
				Address:   fmt.Sprintf("0x%02x", node.Address),
				Label:     label(node.Address),
				State:     node.State.String(),
				Confirmed: node.Confirmed,
				Attempts:  node.Attempts,
			})
		}
		for _, group := range result.Groups {
			report.Groups = append(report.Groups, group.String())
		}
		return printJSON(report)
	}

	if len(nodes) == 0 {
		fmt.Println("no responsive nodes")
		fmt.Println(result.Stats.String())
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDR\tLABEL\tSTATE\tCONFIRMED")
	for _, node := range nodes {
		confirmed := "no"
		if node.Confirmed {
			confirmed = "yes"
		}
		fmt.Fprintf(w, "0x%02x\t%s\t%s\t%s\n", node.Address, label(node.Address), node.State, confirmed)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	groups := make([]string, 0, len(result.Groups))
	for _, group := range result.Groups {
		groups = append(groups, group.String())
	}
	fmt.Printf("groups: %s\n", strings.Join(groups, ", "))
	fmt.Println(result.Stats.String())
	return nil
}
