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

// buslisten prints decoded L91 bus traffic until interrupted. It is the
// minimal field tool: one port, one flag, no configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	l91 "github.com/L91Project/go-l91"
	"github.com/L91Project/go-l91/transport/uart"
)

func main() {
	portName := flag.String("port", "", "serial port device (e.g. /dev/ttyUSB0)")
	baudRate := flag.Int("baud", l91.DefaultBaudRate, "baud rate")
	flag.Parse()

	if *portName == "" {
		fmt.Fprintf(os.Stderr, "Usage: buslisten -port <device> [-baud <rate>]\n")
		fmt.Fprintf(os.Stderr, "Example: buslisten -port /dev/ttyUSB0\n")
		os.Exit(1)
	}

	session, err := l91.Open(*portName,
		l91.WithTransportFactory(uart.Factory),
		l91.WithBaudRate(*baudRate))
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *portName, err)
	}
	defer session.Close()

	fmt.Printf("buslisten - passive L91 bus capture\n")
	fmt.Printf("Port: %s @ %d baud\n", *portName, *baudRate)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = session.Listen(ctx, func(frame *l91.Frame) {
		fmt.Printf("[%s] %s node 0x%02x  % 02x\n",
			time.Now().Format("15:04:05.000"), frame.Type, frame.NodeAddress, frame.Payload)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Listen error: %v", err)
	}

	stats := session.Stats()
	fmt.Printf("\nSkipped %d chatter frame(s)\n", stats.ChatterSkipped)
}
