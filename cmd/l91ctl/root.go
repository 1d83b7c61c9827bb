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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	l91 "github.com/L91Project/go-l91"
	"github.com/L91Project/go-l91/transport/uart"
	"github.com/L91Project/go-l91/transport/ws"
)

var (
	flagPort     string
	flagBaud     int
	flagConfig   string
	flagLogLevel string
	flagLogFile  string
	flagJSON     bool

	cfg        *config
	logger     *zap.Logger
	nodeLabels map[byte]string
)

var rootCmd = &cobra.Command{
	Use:   "l91ctl",
	Short: "Control and inspect L91 actuator buses",
	Long: `l91ctl talks to actuator nodes on a shared bus through an L91
USB-serial bridge adapter.

Connection modes:
  Serial:     --port /dev/ttyUSB0 [--baud 921600]
  WebSocket:  --port ws://host/bridge (for adapters behind a network bridge)
  Automatic:  no --port enumerates USB-serial adapters and picks the best
              candidate without writing to any port

Node labels, fault signatures and sweep defaults come from l91ctl.yaml;
every setting can be overridden with L91_* environment variables or
flags.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagPort, "port", "p", "", "serial device, ws:// URL, or empty for auto-detection")
	pf.IntVarP(&flagBaud, "baud", "b", l91.DefaultBaudRate, "serial line speed")
	pf.StringVar(&flagConfig, "config", "", "config file (default l91ctl.yaml in . or ~/.config/l91)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flagLogFile, "log-file", "", "also write JSON logs to this rotated file")
	pf.BoolVar(&flagJSON, "json", false, "write command output as JSON")
}

// setup loads config, applies flag overrides and builds the logger. It
// runs before every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		c.Port = flagPort
	}
	if cmd.Flags().Changed("baud") {
		c.Baud = flagBaud
	}
	if cmd.Flags().Changed("log-level") {
		c.Log.Level = flagLogLevel
	}
	if cmd.Flags().Changed("log-file") {
		c.Log.File = flagLogFile
	}

	logger, err = buildLogger(c.Log)
	if err != nil {
		return err
	}
	if strings.EqualFold(c.Log.Level, "debug") {
		l91.SetDebugEnabled(true)
	}

	nodeLabels, err = c.nodeLabels()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// connect opens a session to the configured target: a ws:// or wss:// URL
// dials the network bridge, anything else is a serial path, and an empty
// target auto-detects an adapter. The returned string describes the live
// connection.
func connect() (*l91.Session, string, error) {
	target := cfg.Port

	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		session, err := l91.Open(target, l91.WithTransportFactory(ws.Factory))
		if err != nil {
			return nil, "", err
		}
		return session, target, nil
	}

	opts := []l91.ConnectOption{
		l91.WithTransportFactory(uart.Factory),
		l91.WithBaudRate(cfg.Baud),
	}
	if target == "" {
		opts = append(opts, l91.WithAutoDetection())
	}
	session, err := l91.Open(target, opts...)
	if err != nil {
		return nil, "", err
	}

	desc := target
	if named, ok := session.Transport().(interface{ PortName() string }); ok {
		desc = named.PortName()
	}
	return session, fmt.Sprintf("%s @ %d baud", desc, cfg.Baud), nil
}

// label returns the configured human label for a node, or "".
func label(addr byte) string {
	return nodeLabels[addr]
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
