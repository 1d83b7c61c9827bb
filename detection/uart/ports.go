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

// Package uart enumerates serial ports that might have an L91 bridge
// behind them.
package uart

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Port describes one serial port and whatever USB metadata the platform
// exposes for it.
type Port struct {
	// Path is what you hand to the transport, /dev/ttyUSB0 or COM3.
	Path string
	// Name is the friendly device name when the platform has one.
	Name string
	// VIDPID is the USB identity as "VVVV:PPPP" hex, empty for
	// non-USB ports.
	VIDPID string
	// Manufacturer is the USB manufacturer string, if any.
	Manufacturer string
	// Product is the USB product string, if any.
	Product string
	// SerialNumber is the USB serial number, if any.
	SerialNumber string
}

// List returns the serial ports visible on this machine. The library
// enumeration is merged with platform-specific sources, which carry
// metadata the library misses on some OS versions.
func List(ctx context.Context) ([]Port, error) {
	byPath := make(map[string]Port)
	var order []string

	details, enumErr := enumerator.GetDetailedPortsList()
	if enumErr == nil {
		for _, d := range details {
			port := Port{Path: d.Name, Name: filepath.Base(d.Name)}
			if d.IsUSB {
				if d.VID != "" && d.PID != "" {
					port.VIDPID = strings.ToUpper(d.VID + ":" + d.PID)
				}
				port.Product = d.Product
				port.SerialNumber = d.SerialNumber
			}
			byPath[port.Path] = port
			order = append(order, port.Path)
		}
	}

	platform, platformErr := platformPorts(ctx)
	if enumErr != nil && platformErr != nil {
		return nil, errors.Join(enumErr, platformErr)
	}
	for _, port := range platform {
		existing, ok := byPath[port.Path]
		if !ok {
			byPath[port.Path] = port
			order = append(order, port.Path)
			continue
		}
		byPath[port.Path] = mergePorts(existing, port)
	}

	ports := make([]Port, 0, len(order))
	for _, path := range order {
		ports = append(ports, byPath[path])
	}
	return ports, nil
}

// mergePorts fills base's empty fields from extra, keeping base where both
// sources disagree.
func mergePorts(base, extra Port) Port {
	if base.Name == "" || base.Name == filepath.Base(base.Path) {
		if extra.Name != "" {
			base.Name = extra.Name
		}
	}
	if base.VIDPID == "" {
		base.VIDPID = extra.VIDPID
	}
	if base.Manufacturer == "" {
		base.Manufacturer = extra.Manufacturer
	}
	if base.Product == "" {
		base.Product = extra.Product
	}
	if base.SerialNumber == "" {
		base.SerialNumber = extra.SerialNumber
	}
	return base
}
