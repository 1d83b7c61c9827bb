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
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	l91 "github.com/L91Project/go-l91"
)

var (
	flagPowerNode  string
	flagPowerRange string
)

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Power a node on",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runPower("activate", l91.NewActivateFrame)
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Power a node or address range off",
	Long: `Send deactivate to one node (--node) or every address in a range
(--range A-B).

Deactivates are write-only: node firmware acknowledges them too
unreliably to wait on, so the command reports what was sent, not what
was confirmed. Run a scan afterwards to verify.`,
	RunE: runDeactivate,
}

var clearFaultCmd = &cobra.Command{
	Use:   "clear-fault",
	Short: "Clear a node's fault latch",
	Long: `Send the clear-fault command. A node that acknowledges it comes back
powered on.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runPower("clear fault", l91.NewClearFaultFrame)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{activateCmd, clearFaultCmd} {
		cmd.Flags().StringVar(&flagPowerNode, "node", "", "node address (decimal or 0x hex)")
		_ = cmd.MarkFlagRequired("node")
	}
	deactivateCmd.Flags().StringVar(&flagPowerNode, "node", "", "node address (decimal or 0x hex)")
	deactivateCmd.Flags().StringVar(&flagPowerRange, "range", "", "address range A-B, e.g. 0x01-0x20")
	rootCmd.AddCommand(activateCmd, deactivateCmd, clearFaultCmd)
}

// runPower handles the acknowledged power commands: activate and
// clear-fault both expect the node to answer.
func runPower(verb string, build func(byte) l91.Frame) error {
	addr, err := parseAddress(flagPowerNode)
	if err != nil {
		return err
	}

	session, desc, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	logger.Info("connected", zap.String("target", desc))

	if _, err := session.Transact(build(addr)); err != nil {
		return fmt.Errorf("%s node 0x%02x: %w", verb, addr, err)
	}
	if name := label(addr); name != "" {
		fmt.Printf("node 0x%02x (%s): %s acknowledged\n", addr, name, verb)
	} else {
		fmt.Printf("node 0x%02x: %s acknowledged\n", addr, verb)
	}
	return nil
}

func runDeactivate(cmd *cobra.Command, _ []string) error {
	if (flagPowerNode == "") == (flagPowerRange == "") {
		return fmt.Errorf("deactivate needs exactly one of --node or --range")
	}

	var span l91.AddressRange
	var err error
	if flagPowerNode != "" {
		var addr byte
		if addr, err = parseAddress(flagPowerNode); err != nil {
			return err
		}
		span = l91.AddressRange{Start: addr, End: addr}
	} else if span, err = parseAddressRange(flagPowerRange); err != nil {
		return err
	}

	session, desc, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	logger.Info("connected", zap.String("target", desc))

	sent := 0
	for addr := int(span.Start); addr <= int(span.End); addr++ {
		if err := session.Send(l91.NewDeactivateFrame(byte(addr))); err != nil {
			return fmt.Errorf("deactivate node 0x%02x: %w", addr, err)
		}
		sent++
	}
	// Absorb whatever acknowledgements do arrive so they cannot poison a
	// later transaction on this session.
	discarded := session.Flush(200 * time.Millisecond)
	logger.Debug("deactivate sweep flushed", zap.Int("acks_discarded", discarded))

	fmt.Printf("deactivate sent to %s (%d node(s), write-only)\n", span.String(), sent)
	return nil
}
