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
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	l91 "github.com/L91Project/go-l91"
)

var flagListenRaw bool

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Passively capture and decode bus traffic",
	Long: `Run the bring-up handshake, then print every decoded frame as it
arrives until interrupted. Adapter chatter is filtered out; node labels
from the config are applied.

Sends nothing beyond the handshake, so it is safe to leave running
against a live installation.`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().BoolVar(&flagListenRaw, "raw", false, "print wire bytes instead of decoded fields")
	rootCmd.AddCommand(listenCmd)
}

func runListen(_ *cobra.Command, _ []string) error {
	session, desc, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	logger.Info("connected", zap.String("target", desc))

	fmt.Printf("listening on %s, Ctrl+C to stop\n\n", desc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames := 0
	err = session.Listen(ctx, func(frame *l91.Frame) {
		frames++
		fmt.Print(formatFrame(frame))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := session.Stats()
	fmt.Printf("\ncaptured %d frame(s), skipped %d chatter frame(s)\n", frames, stats.ChatterSkipped)
	return nil
}

func formatFrame(frame *l91.Frame) string {
	timestamp := time.Now().Format("15:04:05.000")

	if flagListenRaw {
		wire, err := frame.Encode()
		if err != nil {
			return fmt.Sprintf("[%s] unencodable frame: %v\n", timestamp, err)
		}
		return fmt.Sprintf("[%s] % 02x\n", timestamp, wire)
	}

	name := ""
	if lbl := label(frame.NodeAddress); lbl != "" {
		name = fmt.Sprintf(" (%s)", lbl)
	}
	return fmt.Sprintf("[%s] %s node 0x%02x%s  % 02x\n",
		timestamp, frame.Type, frame.NodeAddress, name, frame.Payload)
}
