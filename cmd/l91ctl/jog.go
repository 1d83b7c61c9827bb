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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	l91 "github.com/L91Project/go-l91"
)

var (
	flagJogNode     string
	flagJogSpeed    float64
	flagJogDuration time.Duration
	flagJogPulse    bool
	flagJogKeep     bool
)

// pulseSpeed and pulseSegment are the defaults for the identification
// nudge: slow enough to be safe on an unknown mechanism, long enough to
// see which actuator twitched.
const (
	pulseSpeed   = 0.1
	pulseSegment = 500 * time.Millisecond
)

var jogCmd = &cobra.Command{
	Use:   "jog",
	Short: "Jog a node at a velocity, then stop",
	Long: `Activate a node, command velocity-mode motion for the given duration,
then stop it. Interrupting the wait still stops the node before exiting.

--pulse nudges the node forward and back instead, to physically identify
which actuator sits behind an address.`,
	RunE: runJog,
}

func init() {
	f := jogCmd.Flags()
	f.StringVar(&flagJogNode, "node", "", "node address (decimal or 0x hex)")
	f.Float64Var(&flagJogSpeed, "speed", 0, "normalized speed, -1.0 to 1.0")
	f.DurationVar(&flagJogDuration, "duration", 2*time.Second, "how long to move")
	f.BoolVar(&flagJogPulse, "pulse", false, "forward/back identification nudge")
	f.BoolVar(&flagJogKeep, "keep-active", false, "leave the node powered after stopping")
	_ = jogCmd.MarkFlagRequired("node")
	rootCmd.AddCommand(jogCmd)
}

func runJog(cmd *cobra.Command, _ []string) error {
	addr, err := parseAddress(flagJogNode)
	if err != nil {
		return err
	}

	speed := flagJogSpeed
	duration := flagJogDuration
	if flagJogPulse {
		if !cmd.Flags().Changed("speed") {
			speed = pulseSpeed
		}
		if !cmd.Flags().Changed("duration") {
			duration = pulseSegment
		}
	} else if !cmd.Flags().Changed("speed") {
		return fmt.Errorf("jog requires --speed (or --pulse)")
	}
	if err := l91.ValidateJogSpeed(speed); err != nil {
		return err
	}

	session, desc, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	logger.Info("connected", zap.String("target", desc))

	if _, err := session.Transact(l91.NewActivateFrame(addr)); err != nil {
		return fmt.Errorf("node 0x%02x did not acknowledge activation: %w", addr, err)
	}

	// The node is now live. Whatever happens below, including Ctrl+C
	// during the wait, it must be stopped before this command exits.
	defer func() {
		_ = session.Send(l91.NewStopFrame(addr))
		session.Flush(100 * time.Millisecond)
		if !flagJogKeep {
			_ = session.Send(l91.NewDeactivateFrame(addr))
			session.Flush(100 * time.Millisecond)
		}
		logger.Info("node stopped", zap.String("node", fmt.Sprintf("0x%02x", addr)))
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagJogPulse {
		return runPulse(ctx, session, addr, speed, duration)
	}

	logger.Info("jogging",
		zap.String("node", fmt.Sprintf("0x%02x", addr)),
		zap.Float64("speed", speed),
		zap.Duration("duration", duration))
	if err := session.Send(l91.NewJogFrame(addr, speed, true)); err != nil {
		return err
	}
	waitOrInterrupt(ctx, duration)
	return nil
}

// runPulse nudges the node forward and back by the same amount.
func runPulse(ctx context.Context, session *l91.Session, addr byte, speed float64, segment time.Duration) error {
	logger.Info("pulsing",
		zap.String("node", fmt.Sprintf("0x%02x", addr)),
		zap.Float64("speed", speed),
		zap.Duration("segment", segment))

	if err := session.Send(l91.NewJogFrame(addr, speed, true)); err != nil {
		return err
	}
	if !waitOrInterrupt(ctx, segment) {
		return nil
	}

	if err := session.Send(l91.NewStopFrame(addr)); err != nil {
		return err
	}
	session.Flush(100 * time.Millisecond)

	if err := session.Send(l91.NewJogFrame(addr, -speed, true)); err != nil {
		return err
	}
	waitOrInterrupt(ctx, segment)
	return nil
}

// waitOrInterrupt sleeps for d, returning false if ctx ended first.
func waitOrInterrupt(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
